package services

import "context"

type contextKey string

const (
	songIDKey        contextKey = "song_id"
	songRequestIDKey contextKey = "song_request_id"
	requesterKey     contextKey = "requester"
	correlationIDKey contextKey = "correlation_id"
)

// WithSongID annotates context with the catalog song identifier.
func WithSongID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, songIDKey, id)
}

// SongIDFromContext extracts the catalog song identifier if present.
func SongIDFromContext(ctx context.Context) (int64, bool) {
	return int64Value(ctx, songIDKey)
}

// WithSongRequestID annotates context with the song request identifier.
func WithSongRequestID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, songRequestIDKey, id)
}

// SongRequestIDFromContext extracts the song request identifier if present.
func SongRequestIDFromContext(ctx context.Context) (int64, bool) {
	return int64Value(ctx, songRequestIDKey)
}

// WithRequester annotates context with the requesting user's identity.
func WithRequester(ctx context.Context, requester string) context.Context {
	if requester == "" {
		return ctx
	}
	return context.WithValue(ctx, requesterKey, requester)
}

// RequesterFromContext returns the requester if present.
func RequesterFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requesterKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCorrelationID annotates context with a correlation identifier.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext extracts the correlation identifier if present.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(correlationIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

func int64Value(ctx context.Context, key contextKey) (int64, bool) {
	v := ctx.Value(key)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}
