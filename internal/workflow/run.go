package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"reel/internal/logging"
	"reel/internal/queue"
	"reel/internal/services"
)

// runJob walks the pipeline for one claimed job. Each stage gets exactly one
// attempt; a failure parks the job in failed and the next poll decides whether
// it comes back. Completed stages are recognized by their payload and skipped,
// so a resumed job picks up where the last attempt stopped.
func (m *Manager) runJob(ctx context.Context, job *queue.Job) {
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, m.logger)

	logger.Info("job admitted",
		logging.String("status", string(job.Status)),
		logging.Int("retry_count", job.RetryCount))
	start := time.Now()

	for _, desc := range m.stages {
		if desc.done(job) {
			logger.Debug("stage already complete", logging.String(logging.FieldStage, desc.name))
			continue
		}
		if err := m.runStage(ctx, desc, job); err != nil {
			m.handleJobFailure(ctx, job, newJobFailure(job.ID, desc.name, err))
			return
		}
		if err := m.store.Update(ctx, job); err != nil {
			m.handleJobFailure(ctx, job, newJobFailure(job.ID, desc.name, err))
			return
		}
	}

	if err := job.CompleteProcessing(time.Now()); err != nil {
		m.handleJobFailure(ctx, job, newJobFailure(job.ID, "", err))
		return
	}
	if err := m.store.Update(ctx, job); err != nil {
		logger.Error("failed to persist job completion", logging.Error(err))
		return
	}

	logger.Info("job completed",
		logging.Duration("pipeline_duration", time.Since(start)),
		logging.Float64("duration_seconds", job.DurationSeconds))

	m.fireTriggers(ctx, job)
}

func (m *Manager) runStage(ctx context.Context, desc stageDescriptor, job *queue.Job) error {
	stageCtx := services.WithStage(ctx, desc.name)
	logger := logging.WithContext(stageCtx, m.logger)

	stageCtx, cancel := context.WithTimeout(stageCtx, desc.timeout)
	defer cancel()

	logger.Info("stage started")
	start := time.Now()
	if err := desc.handler.Execute(stageCtx, job); err != nil {
		return err
	}
	logger.Info("stage completed", logging.Duration("stage_duration", time.Since(start)))
	return nil
}

// fireTriggers runs the debounced downstream notifications after completion.
// It executes inside the job goroutine so graceful drain waits for it.
func (m *Manager) fireTriggers(ctx context.Context, job *queue.Job) {
	if job.SubjectID == "" {
		return
	}
	if !m.debouncer.Allow(job.SubjectID) {
		logging.WithContext(ctx, m.logger).Debug("downstream triggers debounced",
			logging.String(logging.FieldSubjectID, job.SubjectID))
		return
	}

	triggerCtx, cancel := context.WithTimeout(ctx, m.triggers.Timeout())
	defer cancel()
	m.triggers.Fire(triggerCtx, job.SubjectID, map[string]string{
		"job_id":   job.ID,
		"language": job.Language,
	})
}
