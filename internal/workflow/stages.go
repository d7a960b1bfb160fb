package workflow

import (
	"log/slog"
	"time"

	"reel/internal/analysis"
	"reel/internal/config"
	"reel/internal/notifications"
	"reel/internal/queue"
	"reel/internal/stage"
	"reel/internal/transcode"
	"reel/internal/transcription"
	"reel/internal/upload"
)

// Stage names in pipeline order.
const (
	StageTranscode  = "transcode"
	StageStore      = "store"
	StageTranscribe = "transcribe"
	StageAnalyze    = "analyze"
	StageNotify     = "notify"
)

// StageOrder is the fixed pipeline sequence.
var StageOrder = []string{StageTranscode, StageStore, StageTranscribe, StageAnalyze, StageNotify}

// StageSet bundles the five pipeline handlers.
type StageSet struct {
	Transcode  stage.Handler
	Store      stage.Handler
	Transcribe stage.Handler
	Analyze    stage.Handler
	Notify     stage.Handler
}

// DefaultStages wires the production stage adapters.
func DefaultStages(cfg *config.Config, logger *slog.Logger, notifier notifications.Service) StageSet {
	return StageSet{
		Transcode:  transcode.NewHandler(cfg, logger),
		Store:      upload.NewHandler(cfg, logger),
		Transcribe: transcription.NewHandler(cfg, logger),
		Analyze:    analysis.NewHandler(cfg, logger),
		Notify:     notifications.NewHandler(notifier, logger),
	}
}

// stageDescriptor pairs a handler with its deadline and completion predicate.
// The predicate makes retries resume instead of restart: a stage whose output
// already sits on the job is skipped.
type stageDescriptor struct {
	name    string
	handler stage.Handler
	timeout time.Duration
	done    func(*queue.Job) bool
}

func (s StageSet) descriptors(cfg *config.Config) []stageDescriptor {
	return []stageDescriptor{
		{
			name:    StageTranscode,
			handler: s.Transcode,
			timeout: cfg.StageTimeout(StageTranscode),
			done: func(job *queue.Job) bool {
				return job.TranscodedRef != "" && job.DurationSeconds > 0
			},
		},
		{
			name:    StageStore,
			handler: s.Store,
			timeout: cfg.StageTimeout(StageStore),
			done: func(job *queue.Job) bool {
				return job.StoredRef != ""
			},
		},
		{
			name:    StageTranscribe,
			handler: s.Transcribe,
			timeout: cfg.StageTimeout(StageTranscribe),
			done: func(job *queue.Job) bool {
				return job.Transcript != ""
			},
		},
		{
			name:    StageAnalyze,
			handler: s.Analyze,
			timeout: cfg.StageTimeout(StageAnalyze),
			done: func(job *queue.Job) bool {
				return job.Analysis != ""
			},
		},
		{
			name:    StageNotify,
			handler: s.Notify,
			timeout: cfg.StageTimeout(StageNotify),
			// The notify stage leaves no payload column behind; it only runs
			// on jobs that never completed, so it always re-fires on resume.
			done: func(*queue.Job) bool { return false },
		},
	}
}
