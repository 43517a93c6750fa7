// Package services defines shared utilities consumed by the pipeline stages
// and the external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and track ordinals for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures as
//     fatal (device, capacity) or recoverable (per-track reads, tool exits).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
