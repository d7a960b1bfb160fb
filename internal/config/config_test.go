package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reel/internal/config"
)

const minimalConfig = `
[storage]
base_url = "https://storage.test"
api_token = "storage-token"

[transcription]
base_url = "https://speech.test"
api_key = "speech-key"

[analysis]
base_url = "https://llm.test"
api_key = "llm-key"

[notifications]
topic_url = "https://ntfy.test/reel"
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reel.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" || !exists {
		t.Fatalf("expected resolved existing path, got %q exists=%v", resolved, exists)
	}

	wantDB := filepath.Join(tempHome, ".local", "share", "reel", "reel.db")
	if cfg.Store.DatabasePath != wantDB {
		t.Fatalf("unexpected database path: got %q want %q", cfg.Store.DatabasePath, wantDB)
	}
	if cfg.Pipeline.MaxConcurrent != 3 || cfg.Pipeline.MaxRetries != 3 {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.PollInterval() != 5*time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval())
	}
	if cfg.Transcode.TargetFormat != "mp3" {
		t.Fatalf("unexpected target format: %q", cfg.Transcode.TargetFormat)
	}
	if cfg.Storage.Folder != "recordings" {
		t.Fatalf("unexpected storage folder: %q", cfg.Storage.Folder)
	}
	if cfg.Daemon.BindAddress != "127.0.0.1:7487" {
		t.Fatalf("unexpected bind address: %q", cfg.Daemon.BindAddress)
	}
	if cfg.DrainTimeout() != 30*time.Second {
		t.Fatalf("unexpected drain timeout: %s", cfg.DrainTimeout())
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REEL_STORAGE_TOKEN", "env-token")
	t.Setenv("REEL_TRANSCRIPTION_API_KEY", "env-speech")

	cfg, _, _, err := config.Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Storage.APIToken != "env-token" {
		t.Fatalf("expected env storage token, got %q", cfg.Storage.APIToken)
	}
	if cfg.Transcription.APIKey != "env-speech" {
		t.Fatalf("expected env transcription key, got %q", cfg.Transcription.APIKey)
	}
	// File value survives where no env override exists.
	if cfg.Analysis.APIKey != "llm-key" {
		t.Fatalf("expected file analysis key, got %q", cfg.Analysis.APIKey)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, _, _, err := config.Load(writeConfig(t, minimalConfig+`
[pipeline]
poll_interval_ms = 250
max_concurrent = 5
max_retries = 7

[timeouts]
transcribe_seconds = 45

[logging]
format = "JSON"
level = "Debug"
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Pipeline.PollIntervalMs != 250 || cfg.Pipeline.MaxConcurrent != 5 || cfg.Pipeline.MaxRetries != 7 {
		t.Fatalf("unexpected pipeline settings: %+v", cfg.Pipeline)
	}
	if got := cfg.StageTimeout("transcribe"); got != 45*time.Second {
		t.Fatalf("unexpected transcribe timeout: %s", got)
	}
	if got := cfg.StageTimeout("notify"); got != 30*time.Second {
		t.Fatalf("unexpected notify timeout: %s", got)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging values, got %+v", cfg.Logging)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, _, _, err := config.Load(writeConfig(t, `
[pipeline]
max_concurrent = -1
`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	fatal, ok := err.(*config.FatalError)
	if !ok {
		t.Fatalf("expected *config.FatalError, got %T: %v", err, err)
	}
	if len(fatal.Problems) < 5 {
		t.Fatalf("expected every problem reported at once, got %d: %v", len(fatal.Problems), fatal.Problems)
	}
	for _, want := range []string{
		"storage.base_url",
		"transcription.api_key",
		"analysis.base_url",
		"notifications.topic_url",
		"pipeline.max_concurrent",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %s, got: %v", want, err)
		}
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REEL_STORAGE_TOKEN", "token")
	t.Setenv("REEL_TRANSCRIPTION_API_KEY", "speech")
	t.Setenv("REEL_ANALYSIS_API_KEY", "llm")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Notifications.TopicURL == "" {
		t.Fatal("expected sample topic url")
	}
}

func TestDefaultConfigPathPointsAtUserConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path, err := config.DefaultConfigPath()
	if err != nil {
		t.Fatalf("DefaultConfigPath returned error: %v", err)
	}
	if path != filepath.Join(tempHome, ".config", "reel", "config.toml") {
		t.Fatalf("unexpected default config path: %q", path)
	}
}
