package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Store contains configuration for the job store database.
type Store struct {
	DatabasePath string `toml:"database_path"`
}

// Pipeline contains admission control and retry settings.
type Pipeline struct {
	PollIntervalMs int `toml:"poll_interval_ms"`
	MaxConcurrent  int `toml:"max_concurrent"`
	MaxRetries     int `toml:"max_retries"`
}

// Timeouts contains the per-stage execution deadlines in seconds.
type Timeouts struct {
	TranscodeSeconds  int `toml:"transcode_seconds"`
	UploadSeconds     int `toml:"upload_seconds"`
	TranscribeSeconds int `toml:"transcribe_seconds"`
	AnalyzeSeconds    int `toml:"analyze_seconds"`
	NotifySeconds     int `toml:"notify_seconds"`
}

// Transcode contains configuration for the audio transcode stage.
type Transcode struct {
	WorkDir       string `toml:"work_dir"`
	TargetFormat  string `toml:"target_format"`
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Storage contains configuration for the durable blob storage service.
type Storage struct {
	BaseURL  string `toml:"base_url"`
	APIToken string `toml:"api_token"`
	Folder   string `toml:"folder"`
}

// Transcription contains configuration for the speech-to-text API.
type Transcription struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

// Analysis contains configuration for the call-analysis LLM API.
type Analysis struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

// Notifications contains configuration for the operator channel and
// downstream completion triggers.
type Notifications struct {
	TopicURL              string `toml:"topic_url"`
	LeadAnalysisURL       string `toml:"lead_analysis_url"`
	EventNudgeURL         string `toml:"event_nudge_url"`
	DebounceWindowSeconds int    `toml:"debounce_window_seconds"`
	TriggerTimeoutSeconds int    `toml:"trigger_timeout_seconds"`
}

// Daemon contains process lifecycle configuration.
type Daemon struct {
	BindAddress         string `toml:"bind_address"`
	LockPath            string `toml:"lock_path"`
	DrainTimeoutSeconds int    `toml:"drain_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for reel.
//
// Configuration sections by subsystem:
//   - Store: job store database location
//   - Pipeline: poll interval, concurrency budget, retry ceiling
//   - Timeouts: per-stage execution deadlines
//   - Transcode: ffmpeg work directory and output format
//   - Storage: durable blob storage API
//   - Transcription: speech-to-text API
//   - Analysis: call-analysis LLM API
//   - Notifications: operator channel plus downstream triggers
//   - Daemon: bind address, lock file, drain window
//   - Logging: log format, level, and optional file output
type Config struct {
	Store         Store         `toml:"store"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Timeouts      Timeouts      `toml:"timeouts"`
	Transcode     Transcode     `toml:"transcode"`
	Storage       Storage       `toml:"storage"`
	Transcription Transcription `toml:"transcription"`
	Analysis      Analysis      `toml:"analysis"`
	Notifications Notifications `toml:"notifications"`
	Daemon        Daemon        `toml:"daemon"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reel/config.toml")
}

// Load locates, parses, and validates a configuration file. Values from
// REEL_* environment variables override the file; a .env file in the working
// directory is applied first so deployments can ship secrets beside the
// binary. The returned config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	// Missing .env is the common case, not an error.
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Store.DatabasePath),
		c.Transcode.WorkDir,
		filepath.Dir(c.Daemon.LockPath),
	}
	if file := strings.TrimSpace(c.Logging.File); file != "" {
		dirs = append(dirs, filepath.Dir(file))
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used by the transcode stage.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Transcode.FFmpegBinary); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for media inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Transcode.FFprobeBinary); bin != "" {
		return bin
	}
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
