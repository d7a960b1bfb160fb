package config

import (
	"fmt"
	"strings"
)

// FatalError reports every missing or invalid setting found during Validate.
// The daemon prints it and exits before any component starts.
type FatalError struct {
	Problems []string
}

func (e *FatalError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "invalid configuration"
	case 1:
		return "invalid configuration: " + e.Problems[0]
	default:
		return fmt.Sprintf("invalid configuration (%d problems):\n  - %s",
			len(e.Problems), strings.Join(e.Problems, "\n  - "))
	}
}

// Validate ensures the configuration is usable. All problems are collected
// into a single FatalError so operators fix everything in one pass.
func (c *Config) Validate() error {
	var problems []string

	appendProblem := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.Store.DatabasePath) == "" {
		appendProblem("store.database_path must be set (or %s)", envDatabasePath)
	}
	if strings.TrimSpace(c.Transcode.WorkDir) == "" {
		appendProblem("transcode.work_dir must be set (or %s)", envWorkDir)
	}

	for key, value := range map[string]int{
		"pipeline.poll_interval_ms":             c.Pipeline.PollIntervalMs,
		"pipeline.max_concurrent":               c.Pipeline.MaxConcurrent,
		"pipeline.max_retries":                  c.Pipeline.MaxRetries,
		"timeouts.transcode_seconds":            c.Timeouts.TranscodeSeconds,
		"timeouts.upload_seconds":               c.Timeouts.UploadSeconds,
		"timeouts.transcribe_seconds":           c.Timeouts.TranscribeSeconds,
		"timeouts.analyze_seconds":              c.Timeouts.AnalyzeSeconds,
		"timeouts.notify_seconds":               c.Timeouts.NotifySeconds,
		"notifications.debounce_window_seconds": c.Notifications.DebounceWindowSeconds,
		"notifications.trigger_timeout_seconds": c.Notifications.TriggerTimeoutSeconds,
		"daemon.drain_timeout_seconds":          c.Daemon.DrainTimeoutSeconds,
	} {
		if value <= 0 {
			appendProblem("%s must be positive", key)
		}
	}

	if strings.TrimSpace(c.Storage.BaseURL) == "" {
		appendProblem("storage.base_url must be set")
	}
	if strings.TrimSpace(c.Storage.APIToken) == "" {
		appendProblem("storage.api_token must be set (or %s)", envStorageToken)
	}
	if strings.TrimSpace(c.Transcription.BaseURL) == "" {
		appendProblem("transcription.base_url must be set")
	}
	if strings.TrimSpace(c.Transcription.APIKey) == "" {
		appendProblem("transcription.api_key must be set (or %s)", envTranscriptionKey)
	}
	if strings.TrimSpace(c.Analysis.BaseURL) == "" {
		appendProblem("analysis.base_url must be set")
	}
	if strings.TrimSpace(c.Analysis.APIKey) == "" {
		appendProblem("analysis.api_key must be set (or %s)", envAnalysisKey)
	}
	if strings.TrimSpace(c.Notifications.TopicURL) == "" {
		appendProblem("notifications.topic_url must be set (or %s)", envTopicURL)
	}

	if len(problems) > 0 {
		return &FatalError{Problems: problems}
	}
	return nil
}
