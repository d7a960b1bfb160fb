package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/notifications"
	"reel/internal/queue"
)

// Manager owns the scheduler loop and the per-job pipeline runs. One poll
// goroutine admits work; each admitted job runs to its stage outcome in its
// own goroutine. The poll loop never waits for job completion.
type Manager struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	stages    []stageDescriptor
	notifier  notifications.Service
	triggers  *notifications.TriggerClient
	debouncer *notifications.Debouncer

	pollInterval time.Duration

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	pollDone chan struct{}

	stopping atomic.Bool
	active   atomic.Int64
	wg       sync.WaitGroup
}

// NewManager constructs a manager wired with the production stage adapters.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	notifier := notifications.NewService(cfg)
	m := NewManagerWithStages(cfg, store, logger, DefaultStages(cfg, logger, notifier))
	m.notifier = notifier
	return m
}

// NewManagerWithStages constructs a manager around an explicit stage set
// (used in tests to substitute fakes).
func NewManagerWithStages(cfg *config.Config, store *queue.Store, logger *slog.Logger, stages StageSet) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		stages:       stages.descriptors(cfg),
		notifier:     notifications.NewService(cfg),
		triggers:     notifications.NewTriggerClient(cfg, logger),
		debouncer:    notifications.NewDebouncer(cfg.DebounceWindow()),
		pollInterval: cfg.PollInterval(),
	}
}

// Start launches the scheduler loop. It returns immediately.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	if len(m.stages) == 0 {
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.pollDone = make(chan struct{})
	m.running = true
	m.stopping.Store(false)

	go m.pollLoop(runCtx)
	return nil
}

// Stop drains the manager: admission halts immediately, then in-flight jobs
// are given until ctx expires to finish. In-flight work is never cancelled;
// a job still running when the deadline passes is left to the next boot's
// stuck-processing reset.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	cancel := m.cancel
	pollDone := m.pollDone
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	m.stopping.Store(true)
	cancel()
	<-pollDone

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		remaining := m.active.Load()
		if remaining == 0 {
			m.wg.Wait()
			return nil
		}
		m.logger.Info("waiting for in-flight jobs", logging.Int64("active", remaining))
		select {
		case <-ctx.Done():
			return fmt.Errorf("drain timeout with %d jobs still active", remaining)
		case <-ticker.C:
		}
	}
}

// Active reports the number of in-flight jobs.
func (m *Manager) Active() int64 {
	return m.active.Load()
}

func (m *Manager) pollLoop(ctx context.Context) {
	defer close(m.pollDone)
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	m.logger.Info("scheduler started",
		logging.Duration("poll_interval", m.pollInterval),
		logging.Int("max_concurrent", m.cfg.Pipeline.MaxConcurrent))

	for {
		m.pollOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Manager) pollOnce(ctx context.Context) {
	if m.stopping.Load() || ctx.Err() != nil {
		return
	}

	slots := int64(m.cfg.Pipeline.MaxConcurrent) - m.active.Load()
	if slots <= 0 {
		return
	}

	jobs, err := m.store.NextEligible(ctx, int(slots), m.cfg.Pipeline.MaxRetries)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			m.logger.Error("failed to fetch eligible jobs", logging.Error(err))
		}
		return
	}

	for _, job := range jobs {
		claimed, err := m.store.Claim(ctx, job.ID, m.cfg.Pipeline.MaxRetries)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				m.logger.Error("failed to claim job",
					logging.String(logging.FieldJobID, job.ID),
					logging.Error(err))
			}
			continue
		}
		if !claimed {
			continue
		}
		m.launch(ctx, job)
	}
}

func (m *Manager) launch(ctx context.Context, job *queue.Job) {
	// The claim already moved the row to processing; mirror it in memory so
	// later transitions are legal.
	if job.Status != queue.StatusProcessing {
		if err := job.BeginProcessing(time.Now()); err != nil {
			m.logger.Error("claimed job in unexpected state",
				logging.String(logging.FieldJobID, job.ID),
				logging.Error(err))
			return
		}
	}

	m.active.Add(1)
	m.wg.Add(1)

	// Jobs survive shutdown: cancellation of the poll context must not
	// abort a stage mid-write.
	jobCtx := context.WithoutCancel(ctx)
	go func() {
		defer m.wg.Done()
		defer m.active.Add(-1)
		m.runJob(jobCtx, job)
	}()
}
