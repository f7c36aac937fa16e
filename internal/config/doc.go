// Package config loads, normalizes, and validates scorepub configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SCOREPUB_S3_ACCESS_KEY. The Config type centralizes every knob the publish
// daemons and CLI need: database and lock locations, batch sizing, retry
// ceilings, per-axis polling intervals, the output writer backend, and hooks.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
