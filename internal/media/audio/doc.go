// Package audio turns a video container into transcription-ready MP3 audio.
//
// Extractor pulls a single mono 16 kHz 64 kb/s track out of the source,
// mapping the primary English stream explicitly when the container carries
// several. Splitter cuts long audio into fixed-length chunks and owns their
// cleanup until it hands them to the caller.
//
// Stream ranking prefers English tracks, then channel count, then lossless
// codecs over lossy ones, then the default flag.
package audio
