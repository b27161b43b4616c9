package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"captionsync/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "captionsync", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if cfg.OpenAI.APIKey != "test-key" {
		t.Fatalf("expected key from env, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.Model != "whisper-1" {
		t.Fatalf("unexpected model %q", cfg.OpenAI.Model)
	}
	if cfg.Transcription.SingleShotMaxSeconds != 2700 || cfg.Transcription.ChunkSeconds != 1200 {
		t.Fatalf("unexpected thresholds %+v", cfg.Transcription)
	}
	if cfg.Transcription.MaxUploadMB != 25 || cfg.MaxUploadBytes() != 25*1024*1024 {
		t.Fatalf("unexpected upload ceiling %d", cfg.Transcription.MaxUploadMB)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Backend != config.CacheBackendJSON {
		t.Fatalf("unexpected cache defaults %+v", cfg.Cache)
	}
	wantCache := filepath.Join(tempHome, ".cache", "captionsync", "transcripts.json")
	if cfg.Cache.Path != wantCache {
		t.Fatalf("unexpected cache path: got %q want %q", cfg.Cache.Path, wantCache)
	}
	if cfg.Server.Bind != "127.0.0.1:7488" {
		t.Fatalf("unexpected bind %q", cfg.Server.Bind)
	}
	if cfg.FFmpegBinary() != "ffmpeg" || cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("unexpected tool binaries %q %q", cfg.FFmpegBinary(), cfg.FFprobeBinary())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.TempDir, filepath.Dir(cfg.Cache.Path)} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	configPath := filepath.Join(t.TempDir(), "captionsync.toml")

	type payload struct {
		OpenAI struct {
			APIKey string `toml:"api_key"`
		} `toml:"openai"`
		Transcription struct {
			ChunkSeconds         float64 `toml:"chunk_seconds"`
			SingleShotMaxSeconds float64 `toml:"single_shot_max_seconds"`
		} `toml:"transcription"`
		Cache struct {
			Backend string `toml:"backend"`
		} `toml:"cache"`
		Server struct {
			AllowedOrigins []string `toml:"allowed_origins"`
		} `toml:"server"`
	}
	custom := payload{}
	custom.OpenAI.APIKey = "abc123"
	custom.Transcription.ChunkSeconds = 600
	custom.Transcription.SingleShotMaxSeconds = 900
	custom.Cache.Backend = "SQLite"
	custom.Server.AllowedOrigins = []string{" http://a ", "http://a", ""}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution %q exists=%v", resolved, exists)
	}
	if cfg.OpenAI.APIKey != "abc123" {
		t.Fatalf("expected key from file, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.Transcription.ChunkSeconds != 600 || cfg.Transcription.SingleShotMaxSeconds != 900 {
		t.Fatalf("unexpected thresholds %+v", cfg.Transcription)
	}
	if cfg.Cache.Backend != config.CacheBackendSQLite || !strings.HasSuffix(cfg.Cache.Path, "transcripts.db") {
		t.Fatalf("unexpected cache %+v", cfg.Cache)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://a" {
		t.Fatalf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
}

func TestEnvVarOverridesConfigFileForAPIKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "captionsync.toml")
	if err := os.WriteFile(configPath, []byte("[openai]\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.OpenAI.APIKey != "env-key" {
		t.Fatalf("expected env key to win, got %q", cfg.OpenAI.APIKey)
	}
}

func TestLoadReadsDotEnvNextToConfig(t *testing.T) {
	// Register cleanup for the variable before clearing it so godotenv can set it.
	t.Setenv("OPENAI_API_KEY", "")
	if err := os.Unsetenv("OPENAI_API_KEY"); err != nil {
		t.Fatalf("unsetenv: %v", err)
	}
	t.Chdir(t.TempDir())

	dir := t.TempDir()
	configPath := filepath.Join(dir, "captionsync.toml")
	if err := os.WriteFile(configPath, []byte("[logging]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=dotenv-key\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.OpenAI.APIKey != "dotenv-key" {
		t.Fatalf("expected key from .env, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected level %q", cfg.Logging.Level)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_openai_api_key_here") {
		t.Fatalf("sample config missing placeholder key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Transcription.ChunkSeconds != 1200 || cfg.Cache.Backend != "json" {
		t.Fatalf("unexpected sample values %+v %+v", cfg.Transcription, cfg.Cache)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"non-positive chunk", func(c *config.Config) { c.Transcription.ChunkSeconds = 0 }},
		{"single shot below chunk", func(c *config.Config) { c.Transcription.SingleShotMaxSeconds = 600 }},
		{"language not english", func(c *config.Config) { c.Transcription.Language = "fr" }},
		{"unknown backend", func(c *config.Config) { c.Cache.Backend = "redis" }},
		{"unknown log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"unknown log level", func(c *config.Config) { c.Logging.Level = "trace" }},
		{"zero upload ceiling", func(c *config.Config) { c.Transcription.MaxUploadMB = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidateTranscriptionAccessRequiresKey(t *testing.T) {
	cfg := config.Default()
	if err := cfg.ValidateTranscriptionAccess(); err == nil {
		t.Fatal("expected missing key error")
	}
	cfg.OpenAI.APIKey = "k"
	if err := cfg.ValidateTranscriptionAccess(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
