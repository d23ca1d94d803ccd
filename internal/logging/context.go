package logging

import (
	"context"
	"log/slog"

	"jukebox/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSongID is the standardized structured logging key for catalog song identifiers.
	FieldSongID = "song_id"
	// FieldSongRequestID is the standardized structured logging key for song request identifiers.
	FieldSongRequestID = "song_request_id"
	// FieldRequester is the standardized structured logging key for the requesting user.
	FieldRequester = "requester"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType names the kind of event a log line records.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step an operator should take.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.SongRequestIDFromContext(ctx); ok {
		fields = append(fields, SongRequestID(id))
	}
	if id, ok := services.SongIDFromContext(ctx); ok {
		fields = append(fields, SongID(id))
	}
	if who, ok := services.RequesterFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRequester, who))
	}
	if rid, ok := services.CorrelationIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
