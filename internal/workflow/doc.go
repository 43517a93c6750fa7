// Package workflow runs one whole-disc session: it takes the drive lock,
// reads the TOC, inspects the MiniDisc, resolves titles, prepares the MD,
// drives the pipeline with a live status line, and records the run in the
// history store.
//
// Interactive decisions (erase or append, continue untitled) are delegated
// to callbacks so the CLI can prompt while tests answer deterministically.
package workflow
