package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"captionsync/internal/config"
	"captionsync/internal/logging"
	"captionsync/internal/media/audio"
	"captionsync/internal/media/ffprobe"
	"captionsync/internal/services"
	"captionsync/internal/services/whisperapi"
	"captionsync/internal/transcript"
	"captionsync/internal/transcriptcache"
	"captionsync/internal/transcription"
)

// Request is one uploaded media file. Data is not retained after Run returns.
type Request struct {
	Filename string
	Data     []byte
}

// Result is the outcome of a run.
type Result struct {
	Success    bool                   `json:"success"`
	Transcript *transcript.Transcript `json:"transcript,omitempty"`
	Metadata   *transcript.Metadata   `json:"metadata,omitempty"`
	Error      string                 `json:"error,omitempty"`
	// Fingerprint identifies the input in the cache.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// ClearResult reports the outcome of a cache reset.
type ClearResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Extractor writes the audio track of a video to destPath.
type Extractor interface {
	Extract(ctx context.Context, videoPath, destPath string) error
}

// Transcriber produces a transcript for compressed audio of known duration.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, duration float64) (transcription.Result, error)
}

// Runner executes pipeline invocations one at a time.
type Runner struct {
	mu          sync.Mutex
	cache       *transcriptcache.Cache
	prober      ffprobe.DurationProber
	extractor   Extractor
	transcriber Transcriber
	tempDir     string
	logger      *slog.Logger
	newID       func() string
}

// Option customizes a Runner.
type Option func(*Runner)

// WithTempDir sets the parent directory for per-run work directories.
func WithTempDir(dir string) Option {
	return func(r *Runner) {
		r.tempDir = strings.TrimSpace(dir)
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logging.NewComponentLogger(logger, "pipeline")
	}
}

// New wires a runner from its collaborators.
func New(cache *transcriptcache.Cache, prober ffprobe.DurationProber, extractor Extractor, transcriber Transcriber, opts ...Option) *Runner {
	if cache == nil {
		cache = transcriptcache.New(transcriptcache.NewMemoryStore(), nil)
	}
	r := &Runner{
		cache:       cache,
		prober:      prober,
		extractor:   extractor,
		transcriber: transcriber,
		logger:      logging.NewNop(),
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFromConfig builds a runner backed by ffmpeg, ffprobe and the configured
// transcription endpoint.
func NewFromConfig(cfg *config.Config, cache *transcriptcache.Cache, logger *slog.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "build runner", "Configuration is required", nil)
	}
	if err := cfg.ValidateTranscriptionAccess(); err != nil {
		return nil, err
	}

	client := whisperapi.New(whisperapi.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		Model:          cfg.OpenAI.Model,
		Language:       cfg.Transcription.Language,
		Timeout:        cfg.OpenAITimeout(),
		MaxUploadBytes: cfg.MaxUploadBytes(),
	}, logger)
	splitter := audio.NewSplitter(cfg.FFmpegBinary(), cfg.FFprobeBinary(), cfg.Paths.TempDir, logger)
	orchestrator := transcription.New(client, splitter,
		transcription.WithThresholds(cfg.Transcription.SingleShotMaxSeconds, cfg.Transcription.ChunkSeconds),
		transcription.WithLogger(logger))

	return New(cache,
		ffprobe.Prober{Binary: cfg.FFprobeBinary()},
		audio.NewExtractor(cfg.FFmpegBinary(), cfg.FFprobeBinary(), logger),
		orchestrator,
		WithTempDir(cfg.Paths.TempDir),
		WithLogger(logger),
	), nil
}

// Cache exposes the runner's transcript cache.
func (r *Runner) Cache() *transcriptcache.Cache {
	return r.cache
}

// Run transcribes req, answering from the cache when the same bytes were seen
// before. Errors are reported in the Result.
func (r *Runner) Run(ctx context.Context, req Request) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx = services.WithRequestID(ctx, r.newID())
	logger := logging.WithContext(ctx, r.logger)

	if len(req.Data) == 0 {
		err := services.Wrap(services.ErrValidation, "pipeline", "validate request", "Media file is empty", nil)
		return r.fail(ctx, req, err)
	}

	fingerprint := transcriptcache.Fingerprint(req.Data)
	logger = logger.With(logging.String("fingerprint", fingerprint), logging.String("filename", req.Filename))

	if entry, ok := r.cache.Get(fingerprint); ok {
		logger.Info("cache lookup", logging.Args(logging.DecisionAttrs("transcript_cache", "hit",
			"identical bytes were transcribed before")...)...)
		tr := entry.Transcript
		meta := entry.Metadata
		cachedAt := entry.CachedAt
		meta.FromCache = true
		meta.CachedAt = &cachedAt
		return Result{Success: true, Transcript: &tr, Metadata: &meta, Fingerprint: fingerprint}
	}
	logger.Info("cache lookup", logging.Args(logging.DecisionAttrs("transcript_cache", "miss",
		"no stored transcript for these bytes")...)...)

	start := time.Now()
	tr, meta, err := r.process(ctx, req)
	if err != nil {
		return r.fail(ctx, req, err)
	}

	if err := r.cache.Put(fingerprint, req.Filename, tr, meta); err != nil {
		logging.WarnWithContext(logger, "failed to persist transcript", "transcriptcache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions and free space at "+r.cache.Location()),
			logging.String(logging.FieldImpact, "transcript is kept in memory only for this process"))
	}

	logger.Info("transcription completed",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.Int("segment_count", len(tr.Segments)),
		logging.Bool("was_chunked", meta.WasChunked),
		logging.Float64("duration_seconds", meta.DurationSeconds),
		logging.Duration("elapsed", time.Since(start)))
	return Result{Success: true, Transcript: &tr, Metadata: &meta, Fingerprint: fingerprint}
}

// CacheStats summarises the cache contents.
func (r *Runner) CacheStats() transcriptcache.Stats {
	return r.cache.Stats()
}

// ClearCache removes every cached transcript.
func (r *Runner) ClearCache() ClearResult {
	if err := r.cache.Clear(); err != nil {
		logging.ErrorWithContext(r.logger, "failed to clear transcript cache", "transcriptcache_clear_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions at "+r.cache.Location()))
		return ClearResult{Error: err.Error()}
	}
	r.logger.Info("transcript cache cleared", logging.String(logging.FieldEventType, "cache_cleared"))
	return ClearResult{Success: true}
}

func (r *Runner) process(ctx context.Context, req Request) (transcript.Transcript, transcript.Metadata, error) {
	var (
		tr   transcript.Transcript
		meta transcript.Metadata
	)
	workDir, err := r.createWorkDir()
	if err != nil {
		return tr, meta, err
	}
	defer r.removeWorkDir(ctx, workDir)

	videoPath := filepath.Join(workDir, "input"+mediaExtension(req.Filename))
	if err := os.WriteFile(videoPath, req.Data, 0o600); err != nil {
		return tr, meta, services.Wrap(services.ErrExtraction, "prepare", "write input", "Failed to stage uploaded media", err)
	}

	probeCtx := services.WithStage(ctx, "probe")
	duration, err := r.prober.Duration(probeCtx, videoPath)
	if err != nil {
		if !errors.Is(err, services.ErrProbe) {
			err = services.Wrap(services.ErrProbe, "probe", "measure duration", "Could not determine video duration", err)
		}
		return tr, meta, err
	}
	logging.WithContext(probeCtx, r.logger).Info("video probed",
		logging.Float64("duration_seconds", duration),
		logging.Float64("duration_minutes", transcript.Round(duration/60, 1)))

	extractCtx := services.WithStage(ctx, "extract")
	audioPath := filepath.Join(workDir, "audio.mp3")
	if err := r.extractor.Extract(extractCtx, videoPath, audioPath); err != nil {
		return tr, meta, err
	}
	info, err := os.Stat(audioPath)
	if err != nil {
		return tr, meta, services.Wrap(services.ErrExtraction, "extract", "stat audio", "Extracted audio is missing", err)
	}
	logging.WithContext(extractCtx, r.logger).Info("audio extracted",
		logging.Float64("original_size_mb", transcript.Round(transcript.BytesToMB(int64(len(req.Data))), 2)),
		logging.Float64("compressed_size_mb", transcript.Round(transcript.BytesToMB(info.Size()), 2)))

	result, err := r.transcriber.Transcribe(services.WithStage(ctx, "transcribe"), audioPath, duration)
	if err != nil {
		return tr, meta, err
	}
	meta = transcript.NewMetadata(duration, int64(len(req.Data)), info.Size(), result.Chunked)
	return result.Transcript, meta, nil
}

func (r *Runner) fail(ctx context.Context, req Request, err error) Result {
	logging.ErrorWithContext(logging.WithContext(ctx, r.logger), "transcription failed", "pipeline_failed",
		logging.Error(err),
		logging.String("error_kind", services.Kind(err)),
		logging.String("filename", req.Filename),
		logging.String(logging.FieldImpact, "no transcript was produced"))
	return Result{Error: err.Error()}
}

func (r *Runner) createWorkDir() (string, error) {
	parent := r.tempDir
	if parent == "" {
		parent = os.TempDir()
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "prepare", "create temp dir", fmt.Sprintf("Cannot create %s", parent), err)
	}
	dir, err := os.MkdirTemp(parent, "run-")
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "prepare", "create work dir", fmt.Sprintf("Cannot create work directory under %s", parent), err)
	}
	return dir, nil
}

func (r *Runner) removeWorkDir(ctx context.Context, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "work directory cleanup failed", "temp_cleanup_failed",
			logging.Error(err),
			logging.String("path", dir),
			logging.String(logging.FieldErrorHint, "remove the directory manually"),
			logging.String(logging.FieldImpact, "temporary media left on disk"))
	}
}

// mediaExtension keeps the upload's extension so ffprobe can use it as a hint.
func mediaExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 6 {
		return ".bin"
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ".bin"
		}
	}
	return ext
}
