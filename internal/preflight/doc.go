// Package preflight provides readiness checks for the tools, paths and
// services captionsync depends on.
//
// The CLI "captionsync check" command runs RunAll and renders the results.
// "captionsync transcribe" and "captionsync serve" run CheckSystemDeps before
// starting so a missing ffmpeg fails fast instead of mid-pipeline.
//
// A Result that passes with Warning set is usable but degraded, for example
// a temp directory with little free space.
package preflight
