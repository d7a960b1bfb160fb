package stage

import (
	"context"

	"reel/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage
// adapter. Execute mutates the job's payload in memory only; persistence is
// the workflow layer's responsibility.
type Handler interface {
	Execute(context.Context, *queue.Job) error
	HealthCheck(context.Context) Health
}
