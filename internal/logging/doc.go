// Package logging assembles structured slog loggers and formatting helpers used
// across jukebox services.
//
// Console output is rendered by charmbracelet/log acting as the slog handler
// (text layout on terminals, logfmt otherwise); JSON output uses the standard
// slog JSON handler. The package exposes context-aware helpers so playback and
// API code can tag log lines with song IDs, song request IDs, requesters, and
// correlation IDs, plus a no-op logger for tests and wiring code that cannot
// fail.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape as the rest of the system.
package logging
