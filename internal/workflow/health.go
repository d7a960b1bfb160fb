package workflow

import (
	"context"

	"reel/internal/stage"
)

// Health runs every stage's readiness probe and returns the results in
// pipeline order.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	results := make([]stage.Health, 0, len(m.stages))
	for _, desc := range m.stages {
		results = append(results, desc.handler.HealthCheck(ctx))
	}
	return results
}
