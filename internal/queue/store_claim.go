package queue

import (
	"context"
	"fmt"
	"time"
)

// NextEligible returns up to limit jobs the scheduler may admit: pending or
// failed, not blocked on external input, under the retry ceiling, oldest
// first.
func (s *Store) NextEligible(ctx context.Context, limit, maxRetries int) ([]*Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs
         WHERE status IN (?, ?)
           AND (awaiting_input IS NULL OR awaiting_input = '')
           AND retry_count < ?
         ORDER BY created_at
         LIMIT ?`,
		StatusPending,
		StatusFailed,
		maxRetries,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query eligible jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Claim atomically moves an eligible job into processing. The conditional
// update's affected-row count decides ownership, so at most one claimant wins
// even when multiple pollers race for the same job.
func (s *Store) Claim(ctx context.Context, id string, maxRetries int) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = NULL, started_at = ?, updated_at = ?
         WHERE id = ?
           AND status IN (?, ?)
           AND (awaiting_input IS NULL OR awaiting_input = '')
           AND retry_count < ?`,
		StatusProcessing,
		now,
		now,
		id,
		StatusPending,
		StatusFailed,
		maxRetries,
	)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ResetStuckProcessing returns jobs abandoned in processing (a previous daemon
// crashed mid-run) to failed so the next poll re-admits them. The retry
// counter is not incremented: the attempt never reported an outcome.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = ?, updated_at = ?
         WHERE status = ?`,
		StatusFailed,
		"reset after interrupted processing",
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// Retry returns a failed job to pending with a fresh retry budget.
func (s *Store) Retry(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, retry_count = 0, error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusFailed,
	)
	if err != nil {
		return false, fmt.Errorf("retry job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkAwaitingInput blocks a job from admission until the named input arrives.
func (s *Store) MarkAwaitingInput(ctx context.Context, id, reason string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET awaiting_input = ?, updated_at = ? WHERE id = ?`,
		reason,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("mark awaiting input: %w", err)
	}
	return nil
}

// ClearAwaitingInput unblocks a job so the scheduler can admit it again.
func (s *Store) ClearAwaitingInput(ctx context.Context, id string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET awaiting_input = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("clear awaiting input: %w", err)
	}
	return nil
}
