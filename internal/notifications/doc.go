// Package notifications pushes jukebox events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// the play loop and daemon can publish unconditionally. Events are rendered
// into a title, a short body and ntfy tags here, keeping HTTP details out of
// the callers.
package notifications
