// Package config loads, normalizes, and validates cd2md configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the CD2MD_DRIVE environment
// override. Always obtain settings through this package so downstream code
// receives sanitized paths, lower-cased modes, and clear validation errors.
package config
