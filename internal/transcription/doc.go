// Package transcription chooses between single-shot and chunked transcription
// and stitches chunk results into one transcript on the original timeline.
//
// Audio at or below the single-shot ceiling goes to the service in one call
// and comes back unmodified. Longer audio is split into fixed-length chunks
// that are transcribed strictly in order; each chunk's segments are shifted by
// the running offset and the chunk file is deleted as soon as it is consumed.
// Any chunk failure aborts the run and removes the remaining chunk files.
package transcription
