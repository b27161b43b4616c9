package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"captionsync/internal/logging"
	"captionsync/internal/media/ffprobe"
	"captionsync/internal/services"
)

// Chunk is one fixed-length slice of a longer audio file. Duration is the
// nominal chunk length; the final chunk may be shorter on disk.
type Chunk struct {
	Index    int
	Path     string
	Start    float64
	Duration float64
}

// Splitter cuts audio into consecutive chunks.
type Splitter struct {
	FFmpeg string
	Prober ffprobe.DurationProber
	Run    services.CommandRunner
	// TempDir is the parent of each chunk directory; the audio file's
	// directory is used when empty.
	TempDir string
	Logger  *slog.Logger
}

// NewSplitter builds a splitter that measures audio with ffprobe, decoding
// MP3 in process when ffprobe is unavailable.
func NewSplitter(ffmpegBinary, ffprobeBinary, tempDir string, logger *slog.Logger) *Splitter {
	return &Splitter{
		FFmpeg:  ffmpegBinary,
		Prober:  ffprobe.FallbackProber{Primary: ffprobe.Prober{Binary: ffprobeBinary}},
		TempDir: tempDir,
		Logger:  logging.NewComponentLogger(logger, "splitter"),
	}
}

// Split writes ceil(total/chunkSeconds) chunks into a fresh directory, ordered
// by index. On failure every chunk created so far is removed along with the
// directory. On success the caller owns the files.
func (s *Splitter) Split(ctx context.Context, audioPath string, chunkSeconds float64) (chunks []Chunk, err error) {
	if chunkSeconds <= 0 || math.IsNaN(chunkSeconds) || math.IsInf(chunkSeconds, 0) {
		return nil, services.Wrap(services.ErrValidation, "split", "validate chunk length", fmt.Sprintf("Chunk length must be positive, got %v", chunkSeconds), nil)
	}
	logger := logging.WithContext(ctx, s.logger())

	total, err := s.prober().Duration(ctx, audioPath)
	if err != nil {
		return nil, services.Wrap(services.ErrSplit, "split", "probe audio", "Failed to measure audio before splitting", err)
	}
	count := int(math.Ceil(total / chunkSeconds))
	if count == 0 {
		return nil, nil
	}

	parent := s.TempDir
	if strings.TrimSpace(parent) == "" {
		parent = filepath.Dir(audioPath)
	}
	dir, err := os.MkdirTemp(parent, "chunks-")
	if err != nil {
		return nil, services.Wrap(services.ErrSplit, "split", "create chunk dir", "Failed to create chunk directory", err)
	}

	defer func() {
		if err == nil {
			return
		}
		if cleanupErr := RemoveChunks(chunks); cleanupErr != nil {
			logging.WarnWithContext(logger, "chunk cleanup failed", "chunk_cleanup_failed",
				logging.Error(cleanupErr),
				logging.String(logging.FieldErrorHint, "remove leftover files under "+dir),
				logging.String(logging.FieldImpact, "temporary audio left on disk"))
		}
		_ = os.RemoveAll(dir)
		chunks = nil
	}()

	ext := filepath.Ext(audioPath)
	if ext == "" {
		ext = ".mp3"
	}
	chunks = make([]Chunk, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * chunkSeconds
		chunk := Chunk{
			Index:    i,
			Path:     filepath.Join(dir, fmt.Sprintf("chunk_%03d%s", i, ext)),
			Start:    start,
			Duration: chunkSeconds,
		}
		// Track the chunk before running ffmpeg so a partial file is removed too.
		chunks = append(chunks, chunk)
		if _, runErr := s.runner()(ctx, s.binary(), buildChunkArgs(audioPath, start, chunkSeconds, chunk.Path)...); runErr != nil {
			return chunks, services.Wrap(services.ErrSplit, "split", "run ffmpeg", fmt.Sprintf("Failed to write chunk %d of %d", i+1, count), runErr)
		}
		logger.Debug("chunk written",
			logging.Int(logging.FieldChunkIndex, i),
			logging.Float64("start_seconds", start),
			logging.String("path", chunk.Path))
	}

	logger.Info("audio split",
		logging.Int("chunk_count", count),
		logging.Float64("total_seconds", total),
		logging.Float64("chunk_seconds", chunkSeconds))
	return chunks, nil
}

// RemoveChunks deletes chunk files, ignoring ones already gone.
func RemoveChunks(chunks []Chunk) error {
	var errs []error
	for _, chunk := range chunks {
		if err := os.Remove(chunk.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ChunkDir returns the directory holding the chunks, or "" when there are none.
func ChunkDir(chunks []Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	return filepath.Dir(chunks[0].Path)
}

func (s *Splitter) prober() ffprobe.DurationProber {
	if s.Prober != nil {
		return s.Prober
	}
	return ffprobe.FallbackProber{}
}

func (s *Splitter) binary() string {
	if b := strings.TrimSpace(s.FFmpeg); b != "" {
		return b
	}
	return "ffmpeg"
}

func (s *Splitter) runner() services.CommandRunner {
	if s.Run != nil {
		return s.Run
	}
	return services.ExecRunner
}

func (s *Splitter) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logging.NewNop()
}
