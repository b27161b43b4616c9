// Package services defines shared utilities consumed by the transcription
// pipeline stages and the external integrations they drive.
//
// Key responsibilities:
//   - Context helpers that stamp invocation correlation identifiers and stage
//     names for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the pipeline's taxonomy (probe, extraction, split, remote
//     transcription, cache I/O).
//   - A CommandRunner abstraction that makes external tool execution testable.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
