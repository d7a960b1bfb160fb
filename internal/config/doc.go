// Package config loads, normalizes, and validates reel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours REEL_* environment overrides for
// secrets. The Config type centralizes every knob the daemon and CLI need:
// the job store location, pipeline admission limits, per-stage deadlines, and
// credentials for each external collaborator.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and a single FatalError listing
// every missing setting at once.
package config
