package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigPath           = "~/.config/captionsync/config.toml"
	defaultOpenAIBaseURL        = "https://api.openai.com/v1"
	defaultOpenAIModel          = "whisper-1"
	defaultOpenAITimeoutSeconds = 600
	defaultLanguage             = "en"
	defaultSingleShotMaxSeconds = 2700
	defaultChunkSeconds         = 1200
	defaultMaxUploadMB          = 25
	defaultServerBind           = "127.0.0.1:7488"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"

	// CacheBackendJSON persists the cache as a single JSON document.
	CacheBackendJSON = "json"
	// CacheBackendSQLite persists the cache in a SQLite database.
	CacheBackendSQLite = "sqlite"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TempDir: filepath.Join(os.TempDir(), "captionsync"),
		},
		OpenAI: OpenAI{
			BaseURL:        defaultOpenAIBaseURL,
			Model:          defaultOpenAIModel,
			TimeoutSeconds: defaultOpenAITimeoutSeconds,
		},
		Transcription: Transcription{
			Language:             defaultLanguage,
			SingleShotMaxSeconds: defaultSingleShotMaxSeconds,
			ChunkSeconds:         defaultChunkSeconds,
			MaxUploadMB:          defaultMaxUploadMB,
		},
		Cache: Cache{
			Enabled: true,
			Backend: CacheBackendJSON,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
