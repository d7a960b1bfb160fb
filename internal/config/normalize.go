package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variable overrides. Each wins over the config file value so
// deployments can keep secrets out of the TOML entirely.
const (
	envDatabasePath     = "REEL_DATABASE_PATH"
	envWorkDir          = "REEL_WORK_DIR"
	envStorageToken     = "REEL_STORAGE_TOKEN"
	envTranscriptionKey = "REEL_TRANSCRIPTION_API_KEY"
	envAnalysisKey      = "REEL_ANALYSIS_API_KEY"
	envTopicURL         = "REEL_TOPIC_URL"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscode()
	c.normalizeStorage()
	c.normalizeTranscription()
	c.normalizeAnalysis()
	c.normalizeNotifications()
	c.normalizeDaemon()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	c.Store.DatabasePath = envOverride(envDatabasePath, c.Store.DatabasePath)
	if c.Store.DatabasePath, err = expandPath(c.Store.DatabasePath); err != nil {
		return fmt.Errorf("store.database_path: %w", err)
	}
	c.Transcode.WorkDir = envOverride(envWorkDir, c.Transcode.WorkDir)
	if c.Transcode.WorkDir, err = expandPath(c.Transcode.WorkDir); err != nil {
		return fmt.Errorf("transcode.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Daemon.LockPath) == "" {
		c.Daemon.LockPath = defaultLockPath
	}
	if c.Daemon.LockPath, err = expandPath(c.Daemon.LockPath); err != nil {
		return fmt.Errorf("daemon.lock_path: %w", err)
	}
	if file := strings.TrimSpace(c.Logging.File); file != "" {
		if c.Logging.File, err = expandPath(file); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeTranscode() {
	c.Transcode.TargetFormat = strings.ToLower(strings.TrimSpace(c.Transcode.TargetFormat))
	if c.Transcode.TargetFormat == "" {
		c.Transcode.TargetFormat = defaultTargetFormat
	}
	c.Transcode.FFmpegBinary = strings.TrimSpace(c.Transcode.FFmpegBinary)
	c.Transcode.FFprobeBinary = strings.TrimSpace(c.Transcode.FFprobeBinary)
}

func (c *Config) normalizeStorage() {
	c.Storage.BaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.BaseURL), "/")
	c.Storage.APIToken = strings.TrimSpace(envOverride(envStorageToken, c.Storage.APIToken))
	c.Storage.Folder = strings.TrimSpace(c.Storage.Folder)
	if c.Storage.Folder == "" {
		c.Storage.Folder = defaultStorageFolder
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcription.BaseURL), "/")
	c.Transcription.APIKey = strings.TrimSpace(envOverride(envTranscriptionKey, c.Transcription.APIKey))
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
}

func (c *Config) normalizeAnalysis() {
	c.Analysis.BaseURL = strings.TrimRight(strings.TrimSpace(c.Analysis.BaseURL), "/")
	c.Analysis.APIKey = strings.TrimSpace(envOverride(envAnalysisKey, c.Analysis.APIKey))
	c.Analysis.Model = strings.TrimSpace(c.Analysis.Model)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.TopicURL = strings.TrimSpace(envOverride(envTopicURL, c.Notifications.TopicURL))
	c.Notifications.LeadAnalysisURL = strings.TrimSpace(c.Notifications.LeadAnalysisURL)
	c.Notifications.EventNudgeURL = strings.TrimSpace(c.Notifications.EventNudgeURL)
	if c.Notifications.DebounceWindowSeconds == 0 {
		c.Notifications.DebounceWindowSeconds = defaultDebounceWindowSeconds
	}
	if c.Notifications.TriggerTimeoutSeconds == 0 {
		c.Notifications.TriggerTimeoutSeconds = defaultTriggerTimeoutSeconds
	}
}

func (c *Config) normalizeDaemon() {
	c.Daemon.BindAddress = strings.TrimSpace(c.Daemon.BindAddress)
	if c.Daemon.BindAddress == "" {
		c.Daemon.BindAddress = defaultBindAddress
	}
	if c.Daemon.DrainTimeoutSeconds == 0 {
		c.Daemon.DrainTimeoutSeconds = defaultDrainTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envOverride(name, fallback string) string {
	if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
