// Package config loads, normalizes, and validates captionsync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads .env files, and honours environment
// fallbacks such as OPENAI_API_KEY. The Config type centralizes every knob the
// pipeline, CLI, and server need so temp directories, cache location, and the
// transcription thresholds are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
