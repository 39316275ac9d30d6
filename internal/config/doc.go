// Package config loads, normalizes, and validates chanmirror configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// CHANMIRROR_CACHE_TTL and CHANMIRROR_MAX_CACHE_SIZE. The Config type
// centralizes every knob the daemon and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
