// Package config loads, normalizes, and validates slipclip configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the SLIPCLIP_REPLAY_DIR and SLIPCLIP_CLIP_DIR
// environment fallbacks. Every component receives its settings from the
// Config type instead of package-level defaults.
package config
