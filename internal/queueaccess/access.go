package queueaccess

import (
	"context"

	"reel/internal/queue"
)

// Access provides the queue operations the CLI needs without exposing the
// full store surface.
type Access interface {
	Stats(ctx context.Context) (map[queue.Status]int, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
	List(ctx context.Context, statuses []string) ([]*queue.Job, error)
	Describe(ctx context.Context, id string) (*queue.Job, error)
	Add(ctx context.Context, sourceRef, subjectID string) (*queue.Job, error)
	Remove(ctx context.Context, ids []string) (int64, error)
	Retry(ctx context.Context, ids []string) (int64, error)
	RetryAll(ctx context.Context) (int64, error)
	ResetStuck(ctx context.Context) (int64, error)
	Unblock(ctx context.Context, id string) error
}

// NewStoreAccess returns an Access backed by direct DB access.
func NewStoreAccess(store *queue.Store) Access {
	return &storeAccess{store: store}
}

type storeAccess struct {
	store *queue.Store
}

func (a *storeAccess) Stats(ctx context.Context) (map[queue.Status]int, error) {
	return a.store.Stats(ctx)
}

func (a *storeAccess) Health(ctx context.Context) (queue.HealthSummary, error) {
	return a.store.Health(ctx)
}

func (a *storeAccess) List(ctx context.Context, statuses []string) ([]*queue.Job, error) {
	var filters []queue.Status
	for _, s := range statuses {
		if parsed, ok := queue.ParseStatus(s); ok {
			filters = append(filters, parsed)
		}
	}
	return a.store.List(ctx, filters...)
}

func (a *storeAccess) Describe(ctx context.Context, id string) (*queue.Job, error) {
	return a.store.GetByID(ctx, id)
}

func (a *storeAccess) Add(ctx context.Context, sourceRef, subjectID string) (*queue.Job, error) {
	return a.store.NewJob(ctx, sourceRef, subjectID)
}

func (a *storeAccess) Remove(ctx context.Context, ids []string) (int64, error) {
	var count int64
	for _, id := range ids {
		removed, err := a.store.Remove(ctx, id)
		if err != nil {
			return count, err
		}
		if removed {
			count++
		}
	}
	return count, nil
}

func (a *storeAccess) Retry(ctx context.Context, ids []string) (int64, error) {
	var count int64
	for _, id := range ids {
		updated, err := a.store.Retry(ctx, id)
		if err != nil {
			return count, err
		}
		if updated {
			count++
		}
	}
	return count, nil
}

func (a *storeAccess) RetryAll(ctx context.Context) (int64, error) {
	failed, err := a.store.List(ctx, queue.StatusFailed)
	if err != nil {
		return 0, err
	}
	ids := make([]string, 0, len(failed))
	for _, job := range failed {
		ids = append(ids, job.ID)
	}
	return a.Retry(ctx, ids)
}

func (a *storeAccess) ResetStuck(ctx context.Context) (int64, error) {
	return a.store.ResetStuckProcessing(ctx)
}

func (a *storeAccess) Unblock(ctx context.Context, id string) error {
	return a.store.ClearAwaitingInput(ctx, id)
}
