package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.OpenAI.TimeoutSeconds < 0 {
		return errors.New("openai.timeout_seconds must be positive")
	}
	return nil
}

// ValidateTranscriptionAccess reports whether the remote service can be called.
// Commands that only read the cache skip this check.
func (c *Config) ValidateTranscriptionAccess() error {
	if c.OpenAI.APIKey == "" {
		return errors.New("openai.api_key is required (set it in config, OPENAI_API_KEY, or a .env file)")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.Language != defaultLanguage {
		return fmt.Errorf("transcription.language: only %q is supported, got %q", defaultLanguage, c.Transcription.Language)
	}
	if c.Transcription.ChunkSeconds <= 0 {
		return errors.New("transcription.chunk_seconds must be positive")
	}
	if c.Transcription.SingleShotMaxSeconds < c.Transcription.ChunkSeconds {
		return errors.New("transcription.single_shot_max_seconds must be at least chunk_seconds")
	}
	if c.Transcription.MaxUploadMB <= 0 {
		return errors.New("transcription.max_upload_mb must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheBackendJSON, CacheBackendSQLite:
		return nil
	default:
		return fmt.Errorf("cache.backend: unsupported value %q", c.Cache.Backend)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
