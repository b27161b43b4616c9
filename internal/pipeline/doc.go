// Package pipeline is the single entry point that turns uploaded video bytes
// into a transcript.
//
// A Runner fingerprints the bytes, answers from the transcript cache when it
// can, and otherwise writes the video to a private work directory, probes
// its duration, extracts compressed audio, and hands the audio to the
// transcription orchestrator. Stage failures are reported as a failed Result
// and never carry a partial transcript. Runs are serialised so at most one
// remote transcription call is in flight per process.
package pipeline
