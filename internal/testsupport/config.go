package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"reel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories and fake
// service credentials per test. It defaults common fields and applies any
// provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Store.DatabasePath = filepath.Join(base, "reel.db")
	cfgVal.Transcode.WorkDir = filepath.Join(base, "work")
	cfgVal.Daemon.LockPath = filepath.Join(base, "reel.lock")
	cfgVal.Daemon.BindAddress = "127.0.0.1:0"
	cfgVal.Storage.BaseURL = "http://storage.invalid"
	cfgVal.Storage.APIToken = "test-token"
	cfgVal.Transcription.BaseURL = "http://speech.invalid"
	cfgVal.Transcription.APIKey = "test-key"
	cfgVal.Analysis.BaseURL = "http://llm.invalid"
	cfgVal.Analysis.APIKey = "test-key"
	cfgVal.Notifications.TopicURL = "http://ntfy.invalid/reel"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}

	return builder.cfg
}

// WithMaxConcurrent overrides the concurrency budget on the test config.
func WithMaxConcurrent(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.MaxConcurrent = n
	}
}

// WithMaxRetries overrides the retry ceiling on the test config.
func WithMaxRetries(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.MaxRetries = n
	}
}

// WithPollInterval overrides the scheduler poll interval, in milliseconds.
func WithPollInterval(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.PollIntervalMs = ms
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default reel external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Transcode.WorkDir)
}
