package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"captionsync/internal/config"
	"captionsync/internal/services/whisperapi"
	"captionsync/internal/transcript"
	"captionsync/internal/transcriptcache"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace warns when the filesystem holding path has less than min
// bytes available to unprivileged users.
func CheckFreeSpace(name, path string, min uint64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := st.Bavail * uint64(st.Bsize)
	detail := fmt.Sprintf("%.1f GiB available", float64(free)/(1<<30))
	if free < min {
		return Result{
			Name:    name,
			Passed:  true,
			Warning: true,
			Detail:  fmt.Sprintf("%s (below %.1f GiB; long videos may fail to extract)", detail, float64(min)/(1<<30)),
		}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckAPIKey verifies a transcription API key is configured.
func CheckAPIKey(cfg *config.Config) Result {
	const name = "OpenAI API key"
	if err := cfg.ValidateTranscriptionAccess(); err != nil {
		return Result{Name: name, Detail: "missing (set OPENAI_API_KEY or openai.api_key)"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckTranscriptionService verifies the endpoint accepts the key and serves
// the configured model. It uses a 15-second timeout and a single attempt.
func CheckTranscriptionService(ctx context.Context, cfg *config.Config) Result {
	const name = "Transcription service"

	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client := whisperapi.New(whisperapi.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
	}, nil)
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeServiceError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable (model %s)", cfg.OpenAI.BaseURL, cfg.OpenAI.Model)}
}

// CheckCache verifies the transcript cache can be read.
func CheckCache(cfg *config.Config) Result {
	const name = "Transcript cache"
	if !cfg.Cache.Enabled {
		return Result{Name: name, Passed: true, Detail: "disabled (memory only)"}
	}
	count, err := transcriptcache.Verify(cfg)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.Cache.Path, err)}
	}
	detail := fmt.Sprintf("%s (%s, %d entries", cfg.Cache.Path, cfg.Cache.Backend, count)
	if info, statErr := os.Stat(cfg.Cache.Path); statErr == nil {
		detail += fmt.Sprintf(", %.2f MB", transcript.Round(transcript.BytesToMB(info.Size()), 2))
	}
	return Result{Name: name, Passed: true, Detail: detail + ")"}
}

// summarizeServiceError produces a human-readable summary for health check failures.
func summarizeServiceError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (service unreachable)"
	}
	return err.Error()
}
