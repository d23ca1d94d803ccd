package queue

import "errors"

var (
	// ErrSongNotFound indicates the referenced catalog song does not exist.
	ErrSongNotFound = errors.New("song not found")
	// ErrRequestNotFound indicates the referenced song request does not exist.
	ErrRequestNotFound = errors.New("song request not found")
	// ErrDuplicateRequest indicates the song already has an unplayed request.
	ErrDuplicateRequest = errors.New("song has already been requested")
	// ErrInvalidRequester indicates a user request was submitted without a requester.
	ErrInvalidRequester = errors.New("requester is required")
)

// ErrorClassifier allows errors to declare their classification for status mapping.
type ErrorClassifier interface {
	// ErrorKind returns a string classification of the error.
	// Known kinds: "not_found", "conflict", "validation".
	ErrorKind() string
}

// ErrorKind maps an error to the classification transports use to pick a
// response status. Errors implementing ErrorClassifier take precedence over
// the package sentinels; unknown errors return an empty kind.
func ErrorKind(err error) string {
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	switch {
	case errors.Is(err, ErrSongNotFound), errors.Is(err, ErrRequestNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateRequest):
		return "conflict"
	case errors.Is(err, ErrInvalidRequester):
		return "validation"
	}
	return ""
}
