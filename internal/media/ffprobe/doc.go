// Package ffprobe wraps the ffprobe binary.
//
// Key types:
//   - Prober: measures container duration with an injectable command runner
//   - FallbackProber: ffprobe first, in-process MP3 decoding when ffprobe is missing
//   - Result: parsed JSON inspection output (streams and format metadata)
//
// Duration failures wrap services.ErrProbe so callers can classify them.
package ffprobe
