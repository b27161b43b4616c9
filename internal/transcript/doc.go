// Package transcript defines the time-aligned transcript shared by the
// transcription client, the orchestrator, the cache, and the caption
// synchronizer.
//
// Segment mirrors the remote verbose-JSON contract field for field so cached
// entries round-trip without loss. Metadata carries the per-run numbers
// reported to callers.
package transcript
