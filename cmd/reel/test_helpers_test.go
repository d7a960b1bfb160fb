package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reel/internal/config"
	"reel/internal/queue"
	"reel/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[store]
database_path = %q

[transcode]
work_dir = %q

[storage]
base_url = %q
api_token = %q

[transcription]
base_url = %q
api_key = %q

[analysis]
base_url = %q
api_key = %q

[notifications]
topic_url = %q

[daemon]
bind_address = %q
lock_path = %q
`,
		cfg.Store.DatabasePath,
		cfg.Transcode.WorkDir,
		cfg.Storage.BaseURL,
		cfg.Storage.APIToken,
		cfg.Transcription.BaseURL,
		cfg.Transcription.APIKey,
		cfg.Analysis.BaseURL,
		cfg.Analysis.APIKey,
		cfg.Notifications.TopicURL,
		cfg.Daemon.BindAddress,
		cfg.Daemon.LockPath,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
