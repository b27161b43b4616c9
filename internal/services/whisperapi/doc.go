// Package whisperapi calls the hosted Whisper transcription endpoint.
//
// Each call uploads one audio file and requests verbose JSON with
// segment-level timestamps and the language pinned to English. The raw
// response body is decoded into transcript.Transcript so segment fields the
// pipeline does not interpret survive unchanged into the cache.
//
// Failures wrap services.ErrRemoteTranscription and carry the upstream
// message. The client never retries.
package whisperapi
