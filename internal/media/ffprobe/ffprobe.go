package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"captionsync/internal/services"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index         int               `json:"index"`
	CodecName     string            `json:"codec_name"`
	CodecLongName string            `json:"codec_long_name"`
	CodecType     string            `json:"codec_type"`
	Profile       string            `json:"profile"`
	SampleRate    string            `json:"sample_rate"`
	Channels      int               `json:"channels"`
	Tags          map[string]string `json:"tags"`
	Disposition   map[string]int    `json:"disposition"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// DurationProber measures media duration in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Prober runs ffprobe through Run (services.ExecRunner when nil).
type Prober struct {
	Binary string
	Run    services.CommandRunner
}

// ProbeDuration measures path with the given ffprobe binary.
func ProbeDuration(ctx context.Context, binary, path string) (float64, error) {
	return Prober{Binary: binary}.Duration(ctx, path)
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary, path string) (Result, error) {
	return Prober{Binary: binary}.Inspect(ctx, path)
}

// Duration returns the container duration of path in seconds. A non-finite or
// negative value is an error even when ffprobe exits cleanly.
func (p Prober) Duration(ctx context.Context, path string) (float64, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, services.Wrap(services.ErrProbe, "probe", "validate path", "Media path is empty", nil)
	}
	output, err := p.runner()(ctx, p.binary(),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"--", path,
	)
	if err != nil {
		return 0, services.Wrap(services.ErrProbe, "probe", "run ffprobe", "Failed to read media duration", err)
	}
	duration, err := ParseDuration(output)
	if err != nil {
		return 0, services.Wrap(services.ErrProbe, "probe", "parse duration", "ffprobe reported an unusable duration", err)
	}
	return duration, nil
}

// Inspect returns the full stream and format listing for path.
func (p Prober) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	output, err := p.runner()(ctx, p.binary(), "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

func (p Prober) binary() string {
	if b := strings.TrimSpace(p.Binary); b != "" {
		return b
	}
	return "ffprobe"
}

func (p Prober) runner() services.CommandRunner {
	if p.Run != nil {
		return p.Run
	}
	return services.ExecRunner
}

// ParseDuration reads a single seconds value from ffprobe's bare output.
func ParseDuration(output []byte) (float64, error) {
	cleaned := strings.TrimSpace(string(output))
	if cleaned == "" {
		return 0, errors.New("empty ffprobe output")
	}
	if idx := strings.IndexAny(cleaned, "\r\n"); idx >= 0 {
		cleaned = strings.TrimSpace(cleaned[:idx])
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", cleaned, err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("non-finite duration %q", cleaned)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative duration %v", value)
	}
	return value, nil
}

// AudioStreams returns the audio streams in container order.
func (r Result) AudioStreams() []Stream {
	var streams []Stream
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			streams = append(streams, stream)
		}
	}
	return streams
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	return len(r.AudioStreams())
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
