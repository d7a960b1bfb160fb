package workflow

import (
	"context"
	"fmt"
	"strings"

	"reel/internal/logging"
	"reel/internal/queue"
	"reel/internal/services"
)

// JobFailure captures one failed pipeline attempt for logging and persistence.
type JobFailure struct {
	JobID    string
	Stage    string
	Category string
	Err      error
}

func newJobFailure(jobID, stageName string, err error) *JobFailure {
	return &JobFailure{
		JobID:    jobID,
		Stage:    stageName,
		Category: services.Category(err),
		Err:      err,
	}
}

func (f *JobFailure) Error() string {
	stageName := f.Stage
	if stageName == "" {
		stageName = "pipeline"
	}
	return fmt.Sprintf("%s: %v", stageName, f.Err)
}

func (f *JobFailure) Unwrap() error {
	return f.Err
}

// Message renders the operator-facing error stored on the job row.
func (f *JobFailure) Message() string {
	msg := strings.TrimSpace(f.Error())
	if msg == "" {
		msg = "failed without error detail"
	}
	return msg
}

// handleJobFailure persists the failed attempt: the payload written so far is
// kept (that is what resume skips on), the retry counter increments, and the
// job parks in failed for the scheduler's filter to judge.
func (m *Manager) handleJobFailure(ctx context.Context, job *queue.Job, failure *JobFailure) {
	logger := logging.WithContext(ctx, m.logger)

	if err := job.FailProcessing(failure.Message()); err != nil {
		logger.Error("job in unexpected state on failure", logging.Error(err))
		return
	}

	exhausted := job.FailedPermanently(m.cfg.Pipeline.MaxRetries)
	logger.Error("job failed",
		logging.String(logging.FieldStage, failure.Stage),
		logging.String(logging.FieldCategory, failure.Category),
		logging.Int("retry_count", job.RetryCount),
		logging.Bool("retries_exhausted", exhausted),
		logging.Error(failure.Err))

	if err := m.store.Update(ctx, job); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
	}

	if exhausted {
		m.notifyJobFailed(ctx, job, failure)
	}
}

// notifyJobFailed publishes a terminal failure to the operator channel. Jobs
// with retry budget left stay quiet; the scheduler will re-admit them.
func (m *Manager) notifyJobFailed(ctx context.Context, job *queue.Job, failure *JobFailure) {
	if m.notifier == nil {
		return
	}
	reason := fmt.Sprintf("%s stage failed (%s): %v", failure.Stage, failure.Category, failure.Err)
	if err := m.notifier.NotifyJobFailed(ctx, job.ID, reason); err != nil {
		logging.WithContext(ctx, m.logger).Warn("job failure notification failed", logging.Error(err))
	}
}
