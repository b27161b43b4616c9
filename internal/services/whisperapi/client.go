package whisperapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"captionsync/internal/logging"
	"captionsync/internal/services"
	"captionsync/internal/transcript"
)

const (
	// DefaultModel is the hosted Whisper model.
	DefaultModel = "whisper-1"
	// DefaultLanguage is the only supported transcription language.
	DefaultLanguage = "en"
	// DefaultMaxUploadBytes mirrors the remote service's 25 MB upload ceiling.
	DefaultMaxUploadBytes int64 = 25 * 1024 * 1024
)

// Config holds connection settings for the transcription endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Language       string
	Timeout        time.Duration
	MaxUploadBytes int64
	HTTPClient     *http.Client
}

// Transcriber converts one audio file into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (transcript.Transcript, error)
}

// Client implements Transcriber against the OpenAI audio API.
type Client struct {
	api    openai.Client
	cfg    Config
	logger *slog.Logger
}

// New constructs a client. Empty fields fall back to the package defaults.
func New(cfg Config, logger *slog.Logger) *Client {
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cfg.Language = strings.TrimSpace(cfg.Language)
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		api:    openai.NewClient(opts...),
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "whisperapi"),
	}
}

type verboseResponse struct {
	Text     string               `json:"text"`
	Language string               `json:"language"`
	Duration float64              `json:"duration"`
	Segments []transcript.Segment `json:"segments"`
}

// Transcribe uploads audioPath and returns its segments. Files above the
// upload ceiling are rejected before any request is made.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (transcript.Transcript, error) {
	logger := logging.WithContext(ctx, c.logger)

	info, err := os.Stat(audioPath)
	if err != nil {
		return transcript.Transcript{}, services.Wrap(services.ErrRemoteTranscription, "transcribe", "stat audio", "Audio file is not readable", err)
	}
	if info.Size() > c.cfg.MaxUploadBytes {
		return transcript.Transcript{}, services.Wrap(services.ErrRemoteTranscription, "transcribe", "check upload size",
			fmt.Sprintf("Audio is %.2f MB, above the %.0f MB upload limit",
				transcript.BytesToMB(info.Size()), transcript.BytesToMB(c.cfg.MaxUploadBytes)), nil)
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return transcript.Transcript{}, services.Wrap(services.ErrRemoteTranscription, "transcribe", "open audio", "Audio file is not readable", err)
	}
	defer file.Close()

	params := openai.AudioTranscriptionNewParams{
		File:                   file,
		Model:                  openai.AudioModel(c.cfg.Model),
		Language:               openai.String(c.cfg.Language),
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
	}

	started := time.Now()
	response, err := c.api.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return transcript.Transcript{}, services.Wrap(services.ErrRemoteTranscription, "transcribe", "call api", upstreamMessage(err), err)
	}
	if response == nil {
		return transcript.Transcript{}, services.Wrap(services.ErrRemoteTranscription, "transcribe", "call api", "Transcription service returned no body", nil)
	}

	result, err := decodeVerbose([]byte(response.RawJSON()))
	if err != nil {
		return transcript.Transcript{}, services.Wrap(services.ErrRemoteTranscription, "transcribe", "decode response", "Transcription response was not verbose JSON", err)
	}

	logger.Debug("transcription received",
		logging.Int("segment_count", len(result.Segments)),
		logging.Float64("upload_mb", transcript.Round(transcript.BytesToMB(info.Size()), 2)),
		logging.Duration("elapsed", time.Since(started)))
	return result, nil
}

func decodeVerbose(raw []byte) (transcript.Transcript, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return transcript.Transcript{}, errors.New("empty response body")
	}
	var payload verboseResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return transcript.Transcript{}, err
	}

	segments := make([]transcript.Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		segments = append(segments, seg)
	}

	text := payload.Text
	if strings.TrimSpace(text) == "" {
		text = transcript.JoinText(segments)
	}
	return transcript.Transcript{Text: text, Segments: segments, Language: payload.Language}, nil
}

func upstreamMessage(err error) string {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			return fmt.Sprintf("Transcription service returned %d: %s", apiErr.StatusCode, msg)
		}
		return fmt.Sprintf("Transcription service returned %d", apiErr.StatusCode)
	}
	return "Transcription request failed"
}

// HealthCheck confirms the endpoint accepts the key and knows the configured
// model. No audio is uploaded.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.api.Models.Get(ctx, c.cfg.Model); err != nil {
		return services.Wrap(services.ErrRemoteTranscription, "healthcheck", "get model", upstreamMessage(err), err)
	}
	return nil
}
