// Package services defines shared utilities consumed by the pipeline stage
// adapters and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that tag failures with a
//     machine-readable cause category (transient-network, invalid-input,
//     upstream-rejected, timeout).
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
