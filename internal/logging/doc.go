// Package logging assembles structured slog loggers and formatting helpers used
// across cd2md.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code automatically tags
// log lines with run IDs, stage names and track ordinals. Console output goes
// to stderr; stdout belongs to the progress status line.
package logging
