package config

import "time"

const (
	defaultDatabasePath          = "~/.local/share/reel/reel.db"
	defaultWorkDir               = "~/.local/share/reel/work"
	defaultLockPath              = "~/.local/share/reel/reel.lock"
	defaultBindAddress           = "127.0.0.1:7487"
	defaultPollIntervalMs        = 5000
	defaultMaxConcurrent         = 3
	defaultMaxRetries            = 3
	defaultTranscodeSeconds      = 60
	defaultUploadSeconds         = 60
	defaultTranscribeSeconds     = 60
	defaultAnalyzeSeconds        = 60
	defaultNotifySeconds         = 30
	defaultTargetFormat          = "mp3"
	defaultStorageFolder         = "recordings"
	defaultDebounceWindowSeconds = 60
	defaultTriggerTimeoutSeconds = 30
	defaultDrainTimeoutSeconds   = 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults. Credentials and
// service endpoints carry no defaults; Validate rejects a config that never
// received them.
func Default() Config {
	return Config{
		Store: Store{
			DatabasePath: defaultDatabasePath,
		},
		Pipeline: Pipeline{
			PollIntervalMs: defaultPollIntervalMs,
			MaxConcurrent:  defaultMaxConcurrent,
			MaxRetries:     defaultMaxRetries,
		},
		Timeouts: Timeouts{
			TranscodeSeconds:  defaultTranscodeSeconds,
			UploadSeconds:     defaultUploadSeconds,
			TranscribeSeconds: defaultTranscribeSeconds,
			AnalyzeSeconds:    defaultAnalyzeSeconds,
			NotifySeconds:     defaultNotifySeconds,
		},
		Transcode: Transcode{
			WorkDir:      defaultWorkDir,
			TargetFormat: defaultTargetFormat,
		},
		Storage: Storage{
			Folder: defaultStorageFolder,
		},
		Notifications: Notifications{
			DebounceWindowSeconds: defaultDebounceWindowSeconds,
			TriggerTimeoutSeconds: defaultTriggerTimeoutSeconds,
		},
		Daemon: Daemon{
			BindAddress:         defaultBindAddress,
			LockPath:            defaultLockPath,
			DrainTimeoutSeconds: defaultDrainTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// PollInterval returns the scheduler poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Pipeline.PollIntervalMs) * time.Millisecond
}

// DrainTimeout returns the shutdown drain window as a duration.
func (c *Config) DrainTimeout() time.Duration {
	return time.Duration(c.Daemon.DrainTimeoutSeconds) * time.Second
}

// DebounceWindow returns the downstream trigger debounce window as a duration.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Notifications.DebounceWindowSeconds) * time.Second
}

// TriggerTimeout returns the downstream trigger call deadline as a duration.
func (c *Config) TriggerTimeout() time.Duration {
	return time.Duration(c.Notifications.TriggerTimeoutSeconds) * time.Second
}

// StageTimeout returns the configured deadline for the named pipeline stage.
// Unknown stage names fall back to the longest configured deadline.
func (c *Config) StageTimeout(stage string) time.Duration {
	seconds := 0
	switch stage {
	case "transcode":
		seconds = c.Timeouts.TranscodeSeconds
	case "store":
		seconds = c.Timeouts.UploadSeconds
	case "transcribe":
		seconds = c.Timeouts.TranscribeSeconds
	case "analyze":
		seconds = c.Timeouts.AnalyzeSeconds
	case "notify":
		seconds = c.Timeouts.NotifySeconds
	}
	if seconds <= 0 {
		seconds = c.longestStageTimeout()
	}
	return time.Duration(seconds) * time.Second
}

func (c *Config) longestStageTimeout() int {
	longest := defaultNotifySeconds
	for _, v := range []int{
		c.Timeouts.TranscodeSeconds,
		c.Timeouts.UploadSeconds,
		c.Timeouts.TranscribeSeconds,
		c.Timeouts.AnalyzeSeconds,
		c.Timeouts.NotifySeconds,
	} {
		if v > longest {
			longest = v
		}
	}
	return longest
}
