package queue

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// allowedTransitions is the job state machine. failed re-enters processing on
// re-admission; whether that is permitted also depends on the retry ceiling,
// which the store's Claim enforces.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusFailed:     {StatusProcessing},
	StatusCompleted:  {},
}

// ErrInvalidTransition is returned by the Job transition methods for moves the
// state machine forbids.
type ErrInvalidTransition struct {
	From Status
	To   Status
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// Job represents one unit of pipeline work persisted in SQLite.
//
// Payload fields are additive: each stage records its output and never clears
// an earlier stage's. That property is what makes resume-not-restart safe.
type Job struct {
	ID           string
	Status       Status
	RetryCount   int
	ErrorMessage string

	// Payload, populated stage by stage.
	SourceRef       string
	TranscodedRef   string
	StoredRef       string
	Transcript      string
	Analysis        string
	SubjectID       string
	Language        string
	DurationSeconds float64

	// AwaitingInput holds a reason string when the job is blocked on external
	// input. Blocked jobs are skipped by admission regardless of status.
	AwaitingInput string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// HealthSummary describes aggregated job counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

func (j *Job) transition(to Status) error {
	for _, allowed := range allowedTransitions[j.Status] {
		if allowed == to {
			j.Status = to
			return nil
		}
	}
	return &ErrInvalidTransition{From: j.Status, To: to}
}

// BeginProcessing moves the job into processing for a new attempt. The
// previous attempt's error message is cleared; its payload is kept so
// completed stages are not re-run.
func (j *Job) BeginProcessing(now time.Time) error {
	if err := j.transition(StatusProcessing); err != nil {
		return err
	}
	started := now.UTC()
	j.StartedAt = &started
	j.ErrorMessage = ""
	return nil
}

// CompleteProcessing marks the job terminally completed.
func (j *Job) CompleteProcessing(now time.Time) error {
	if err := j.transition(StatusCompleted); err != nil {
		return err
	}
	completed := now.UTC()
	j.CompletedAt = &completed
	return nil
}

// FailProcessing records a failed attempt: the retry counter increments and
// the job returns to failed, where the scheduler's filter decides whether it
// is re-admitted or terminal.
func (j *Job) FailProcessing(message string) error {
	if err := j.transition(StatusFailed); err != nil {
		return err
	}
	j.RetryCount++
	j.ErrorMessage = message
	return nil
}

// IsBlocked reports whether the job is awaiting external input.
func (j *Job) IsBlocked() bool {
	return strings.TrimSpace(j.AwaitingInput) != ""
}

// FailedPermanently reports whether the job has exhausted its retry budget.
// There is no separate stored state; permanence is the comparison.
func (j *Job) FailedPermanently(maxRetries int) bool {
	return j.Status == StatusFailed && j.RetryCount >= maxRetries
}

// IsTerminal reports whether the job can never run again under the given
// retry ceiling.
func (j *Job) IsTerminal(maxRetries int) bool {
	return j.Status == StatusCompleted || j.FailedPermanently(maxRetries)
}
