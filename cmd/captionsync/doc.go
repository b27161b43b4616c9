// Package main hosts the captionsync CLI entrypoint and command graph.
//
// The Cobra command tree transcribes videos through the pipeline, inspects
// and exports the transcript cache, replays cached transcripts against a
// simulated playback clock, runs the HTTP/WebSocket server, and scaffolds
// configuration. Configuration resolution and logger setup live in
// commandContext so subcommands only deal with presentation.
package main
