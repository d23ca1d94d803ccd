// Package config loads, normalizes, and validates jukebox configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// JUKEBOX_DATABASE_URL and the AWS credential variables. The Config type
// centralizes every knob the daemon and CLI need, from the queue display
// limits to the player command.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
