// Package api serves the transcription pipeline and caption stream over HTTP.
//
// # Routes
//
//	POST   /api/transcriptions                      multipart "file" -> pipeline result
//	GET    /api/cache                               cache statistics
//	DELETE /api/cache                               clear the cache
//	GET    /api/transcripts/{fingerprint}           cached entry
//	GET    /api/transcripts/{fingerprint}/subtitles ?format=srt|vtt&speakers=1
//	GET    /ws/captions/{fingerprint}               caption transitions over WebSocket
//
// # Caption stream
//
// The client reports its playback clock with {"type":"time","time":12.5} and
// {"type":"ended"}. The server answers only on transitions, with
// {"type":"show",...} or {"type":"hide"}. Each connection owns its own
// captions.Synchronizer.
//
// JSON payloads use camelCase tags. Errors are {"error": "..."} with an
// HTTP status, except pipeline failures, which keep the pipeline's
// {"success": false, "error": "..."} shape.
package api
