package ffprobe

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"

	"captionsync/internal/media/mp3probe"
	"captionsync/internal/services"
)

// FallbackProber measures duration with Primary and, for .mp3 files only,
// decodes the file in process when the ffprobe binary is not installed.
type FallbackProber struct {
	Primary DurationProber
	// MP3 defaults to mp3probe.Duration.
	MP3 func(path string) (float64, error)
}

// Duration implements DurationProber.
func (f FallbackProber) Duration(ctx context.Context, path string) (float64, error) {
	primary := f.Primary
	if primary == nil {
		primary = Prober{}
	}
	duration, err := primary.Duration(ctx, path)
	if err == nil {
		return duration, nil
	}
	if !errors.Is(err, exec.ErrNotFound) || !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return 0, err
	}
	decode := f.MP3
	if decode == nil {
		decode = mp3probe.Duration
	}
	duration, mp3Err := decode(path)
	if mp3Err != nil {
		return 0, services.Wrap(services.ErrProbe, "probe", "decode mp3", "ffprobe missing and MP3 decoding failed", errors.Join(err, mp3Err))
	}
	return duration, nil
}
