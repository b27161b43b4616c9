package audio

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"captionsync/internal/logging"
	"captionsync/internal/media/ffprobe"
	"captionsync/internal/services"
)

// Output encoding shared by extraction and chunking: mono, 16 kHz, 64 kb/s MP3.
const (
	SampleRate = 16000
	Channels   = 1
	Bitrate    = "64k"
)

// Inspector lists the streams of a media container.
type Inspector interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Extractor writes the audio track of a video to a compressed MP3.
type Extractor struct {
	FFmpeg string
	Run    services.CommandRunner
	// Inspector is optional; without it ffmpeg picks the default stream.
	Inspector Inspector
	Logger    *slog.Logger
}

// NewExtractor builds an extractor that inspects streams with ffprobeBinary.
func NewExtractor(ffmpegBinary, ffprobeBinary string, logger *slog.Logger) *Extractor {
	return &Extractor{
		FFmpeg:    ffmpegBinary,
		Inspector: ffprobe.Prober{Binary: ffprobeBinary},
		Logger:    logging.NewComponentLogger(logger, "audio"),
	}
}

// Extract encodes the audio of videoPath into destPath. The source is never
// modified; a partial destPath left by a failure is the caller's to remove.
func (e *Extractor) Extract(ctx context.Context, videoPath, destPath string) error {
	if strings.TrimSpace(videoPath) == "" || strings.TrimSpace(destPath) == "" {
		return services.Wrap(services.ErrValidation, "extract", "validate paths", "Source and destination are required", nil)
	}
	logger := logging.WithContext(ctx, e.logger())

	streamIndex := -1
	if e.Inspector != nil {
		result, err := e.Inspector.Inspect(ctx, videoPath)
		if err != nil {
			logger.Debug("stream inspection failed; using ffmpeg default stream", logging.Error(err))
		} else {
			sel := Select(result.Streams)
			if sel.Explicit() {
				streamIndex = sel.PrimaryIndex
				logger.Info("audio stream selected",
					logging.Args(append(logging.DecisionAttrs("audio_stream", strconv.Itoa(sel.PrimaryIndex), sel.Label()),
						logging.Int("audio_streams", sel.AudioCount))...)...)
			}
		}
	}

	args := buildExtractArgs(videoPath, streamIndex, destPath)
	if _, err := e.runner()(ctx, e.binary(), args...); err != nil {
		return services.Wrap(services.ErrExtraction, "extract", "run ffmpeg", "Failed to extract audio track", err)
	}
	logger.Debug("audio extracted", logging.String("dest", destPath))
	return nil
}

func (e *Extractor) binary() string {
	if b := strings.TrimSpace(e.FFmpeg); b != "" {
		return b
	}
	return "ffmpeg"
}

func (e *Extractor) runner() services.CommandRunner {
	if e.Run != nil {
		return e.Run
	}
	return services.ExecRunner
}

func (e *Extractor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logging.NewNop()
}

func buildExtractArgs(source string, streamIndex int, dest string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", source}
	if streamIndex >= 0 {
		args = append(args, "-map", fmt.Sprintf("0:%d", streamIndex))
	}
	return append(args, encodeArgs(dest)...)
}

func buildChunkArgs(source string, start, length float64, dest string) []string {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", source,
		"-ss", formatSeconds(start),
		"-t", formatSeconds(length),
	}
	return append(args, encodeArgs(dest)...)
}

func encodeArgs(dest string) []string {
	return []string{
		"-vn",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-b:a", Bitrate,
		dest,
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
