package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/preflight"
	"reel/internal/queue"
	"reel/internal/workflow"
)

// Daemon ties the pieces together: single-instance lock, preflight, crash
// recovery, the workflow manager, and the health endpoint.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startTime time.Time
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath, err := config.ExpandPath(cfg.Daemon.LockPath)
	if err != nil {
		return nil, fmt.Errorf("resolve lock path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock directory: %w", err)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start brings the daemon up: lock, preflight, stuck-job recovery, scheduler,
// health endpoint. It returns once everything is running.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another reel daemon already holds %s", d.lockPath)
	}

	if err := d.runPreflight(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	reset, err := d.store.ResetStuckProcessing(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reset stuck jobs: %w", err)
	}
	if reset > 0 {
		d.logger.Info("reset jobs interrupted by previous shutdown", logging.Int64("count", reset))
	}

	if err := d.workflow.Start(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}

	if err := d.api.start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), d.cfg.DrainTimeout())
		_ = d.workflow.Stop(stopCtx)
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	d.startTime = time.Now()
	d.running.Store(true)
	d.logger.Info("reel daemon started",
		logging.String("lock", d.lockPath),
		logging.String("bind", d.cfg.Daemon.BindAddress))
	return nil
}

// Stop drains in-flight jobs within the configured window, then shuts down
// the health endpoint and releases the lock.
func (d *Daemon) Stop() error {
	if !d.running.Load() {
		return nil
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), d.cfg.DrainTimeout())
	defer cancel()

	var drainErr error
	if err := d.workflow.Stop(drainCtx); err != nil {
		drainErr = err
		d.logger.Warn("drain did not complete cleanly", logging.Error(err))
	}

	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("reel daemon stopped")
	return drainErr
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	err := d.Stop()
	if closeErr := d.store.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Uptime reports how long the daemon has been running.
func (d *Daemon) Uptime() time.Duration {
	if !d.running.Load() {
		return 0
	}
	return time.Since(d.startTime)
}

// ActiveJobs reports the number of in-flight pipeline jobs.
func (d *Daemon) ActiveJobs() int64 {
	return d.workflow.Active()
}

// HealthAddr reports the bound health endpoint address. Useful when the
// configured bind address asked for port 0.
func (d *Daemon) HealthAddr() string {
	return d.api.addr()
}

func (d *Daemon) runPreflight(ctx context.Context) error {
	results := preflight.RunAll(ctx, d.cfg)
	for _, result := range results {
		if result.Passed {
			d.logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
			continue
		}
		if result.Optional {
			d.logger.Warn("preflight check failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
			continue
		}
		d.logger.Error("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}
	if failed := preflight.FailedRequired(results); len(failed) > 0 {
		return fmt.Errorf("preflight failed: %s (%s)", failed[0].Name, failed[0].Detail)
	}
	return nil
}
