// Package captions drives caption display from a transcript and a playback
// clock, and renders transcripts as SRT or WebVTT files.
//
// Synchronizer receives time updates (many per second, possibly jumping on
// seek) and reports only transitions: a Show when a different segment
// becomes active and a Hide when playback leaves all segments. Speaker
// colours come from a SpeakerAssigner; RoundRobin is a deterministic
// placeholder that rotates every two segments over six slots and carries no
// diarization meaning.
package captions
