package preflight

import (
	"context"

	"captionsync/internal/config"
	"captionsync/internal/deps"
)

// MinFreeTempBytes is the free space below which the temp directory check
// warns. Extracted audio and chunks for a long video fit well within it.
const MinFreeTempBytes uint64 = 1 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Warning bool   `json:"warning,omitempty"`
	Detail  string `json:"detail"`
}

// Options toggle checks that leave the machine.
type Options struct {
	// Online calls the transcription endpoint to validate the key.
	Online bool
}

// RunAll executes every preflight check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, fromStatus(status))
	}

	results = append(results, CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir))
	results = append(results, CheckFreeSpace("Temp free space", cfg.Paths.TempDir, MinFreeTempBytes))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	results = append(results, CheckAPIKey(cfg))
	if opts.Online && cfg.OpenAI.APIKey != "" {
		results = append(results, CheckTranscriptionService(ctx, cfg))
	}
	results = append(results, CheckCache(cfg))
	return results
}

// CheckSystemDeps evaluates the external binaries for cfg.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.MediaTools(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

func fromStatus(status deps.Status) Result {
	if status.Available {
		return Result{Name: status.Name, Passed: true, Detail: status.Path}
	}
	detail := status.Detail
	if status.Description != "" {
		detail += " (" + status.Description + ")"
	}
	return Result{Name: status.Name, Passed: status.Optional, Warning: status.Optional, Detail: detail}
}
