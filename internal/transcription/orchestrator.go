package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"captionsync/internal/logging"
	"captionsync/internal/media/audio"
	"captionsync/internal/services"
	"captionsync/internal/services/whisperapi"
	"captionsync/internal/transcript"
)

const (
	// DefaultSingleShotMaxSeconds is the longest audio sent in one request.
	DefaultSingleShotMaxSeconds = 2700
	// DefaultChunkSeconds is the nominal chunk length for longer audio.
	DefaultChunkSeconds = 1200
)

// Splitter cuts audio into chunks the caller then owns.
type Splitter interface {
	Split(ctx context.Context, audioPath string, chunkSeconds float64) ([]audio.Chunk, error)
}

// Result is a complete transcript plus how it was produced.
type Result struct {
	Transcript transcript.Transcript
	Chunked    bool
	ChunkCount int
}

// Orchestrator runs the transcription strategy for one audio file.
type Orchestrator struct {
	client               whisperapi.Transcriber
	splitter             Splitter
	singleShotMaxSeconds float64
	chunkSeconds         float64
	logger               *slog.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithThresholds overrides the single-shot ceiling and chunk length. Non-positive
// values keep the defaults.
func WithThresholds(singleShotMaxSeconds, chunkSeconds float64) Option {
	return func(o *Orchestrator) {
		if singleShotMaxSeconds > 0 {
			o.singleShotMaxSeconds = singleShotMaxSeconds
		}
		if chunkSeconds > 0 {
			o.chunkSeconds = chunkSeconds
		}
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logging.NewComponentLogger(logger, "transcription")
	}
}

// New constructs an orchestrator.
func New(client whisperapi.Transcriber, splitter Splitter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:               client,
		splitter:             splitter,
		singleShotMaxSeconds: DefaultSingleShotMaxSeconds,
		chunkSeconds:         DefaultChunkSeconds,
		logger:               logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

const strategyOptions = "single_shot,chunked"

// Transcribe produces the transcript for audioPath, whose measured length is
// duration seconds.
func (o *Orchestrator) Transcribe(ctx context.Context, audioPath string, duration float64) (Result, error) {
	logger := logging.WithContext(ctx, o.logger)

	if duration <= o.singleShotMaxSeconds {
		logger.Info("transcription strategy chosen", logging.Args(logging.DecisionAttrsWithOptions("transcription_strategy", "single_shot",
			fmt.Sprintf("duration %.2fs within %.0fs limit", duration, o.singleShotMaxSeconds), strategyOptions)...)...)
		result, err := o.client.Transcribe(ctx, audioPath)
		if err != nil {
			return Result{}, err
		}
		return Result{Transcript: result, ChunkCount: 1}, nil
	}

	logger.Info("transcription strategy chosen", logging.Args(logging.DecisionAttrsWithOptions("transcription_strategy", "chunked",
		fmt.Sprintf("duration %.2fs exceeds %.0fs limit", duration, o.singleShotMaxSeconds), strategyOptions)...)...)
	return o.transcribeChunked(ctx, audioPath)
}

func (o *Orchestrator) transcribeChunked(ctx context.Context, audioPath string) (Result, error) {
	logger := logging.WithContext(ctx, o.logger)

	chunks, err := o.splitter.Split(ctx, audioPath, o.chunkSeconds)
	if err != nil {
		return Result{}, err
	}
	if len(chunks) == 0 {
		return Result{}, services.Wrap(services.ErrSplit, "split", "chunk audio",
			"Audio measured as empty although the video is long enough to need chunking", nil)
	}
	chunkDir := audio.ChunkDir(chunks)
	defer func() {
		if chunkDir != "" {
			_ = os.Remove(chunkDir)
		}
	}()

	var (
		segments []transcript.Segment
		texts    []string
		offset   float64
	)
	for i, chunk := range chunks {
		chunkCtx := services.WithChunkIndex(ctx, chunk.Index)
		part, err := o.client.Transcribe(chunkCtx, chunk.Path)
		if err != nil {
			if cleanupErr := audio.RemoveChunks(chunks[i:]); cleanupErr != nil {
				logging.WarnWithContext(logger, "chunk cleanup failed", "chunk_cleanup_failed",
					logging.Error(cleanupErr),
					logging.String(logging.FieldImpact, "temporary audio left on disk"))
			}
			if chunkDir != "" {
				_ = os.RemoveAll(chunkDir)
			}
			return Result{}, fmt.Errorf("chunk %d of %d: %w", chunk.Index+1, len(chunks), err)
		}

		for _, seg := range part.Segments {
			segments = append(segments, seg.Shift(offset))
		}
		if chunkText := strings.TrimSpace(part.Text); chunkText != "" {
			texts = append(texts, chunkText)
		}

		if err := os.Remove(chunk.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(logger, "chunk removal failed", "chunk_cleanup_failed",
				logging.Error(err),
				logging.String("path", chunk.Path),
				logging.String(logging.FieldImpact, "temporary audio left on disk"))
		}
		logging.WithContext(chunkCtx, o.logger).Info("chunk transcribed",
			logging.Int("segment_count", len(part.Segments)),
			logging.Float64("offset_seconds", offset))

		offset += o.chunkSeconds
	}

	return Result{
		Transcript: transcript.Transcript{
			Text:     strings.Join(texts, " "),
			Segments: segments,
			Language: whisperapi.DefaultLanguage,
		},
		Chunked:    true,
		ChunkCount: len(chunks),
	}, nil
}
