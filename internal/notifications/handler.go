package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"strings"

	"reel/internal/logging"
	"reel/internal/queue"
	"reel/internal/services"
	"reel/internal/stage"
)

const stageName = "notify"

// Handler is the notify stage: it publishes the finished analysis to the
// operator channel. Unlike the downstream triggers, a publish failure here
// fails the job and is retried through normal re-admission.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler constructs the notify stage adapter.
func NewHandler(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		service: service,
		logger:  logging.NewComponentLogger(logger, stageName),
	}
}

type analysisSummary struct {
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment"`
}

// Execute publishes the analysis summary for the job.
func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	if strings.TrimSpace(job.Analysis) == "" {
		return services.Wrap(services.ErrInvalidInput, stageName, "publish analysis", "job has no analysis", nil)
	}

	var summary analysisSummary
	if err := json.Unmarshal([]byte(job.Analysis), &summary); err != nil {
		return services.Wrap(services.ErrInvalidInput, stageName, "publish analysis", "stored analysis is not valid JSON", err)
	}

	logger := logging.WithContext(ctx, h.logger)
	if err := h.service.NotifyAnalysisReady(ctx, job.ID, job.SubjectID, summary.Summary, summary.Sentiment); err != nil {
		return classifyPublish(err)
	}

	logger.Info("analysis published", logging.String("sentiment", summary.Sentiment))
	return nil
}

// HealthCheck reports ready whenever a service is wired; the topic endpoint is
// not probed because ntfy-style servers treat any POST as a publish.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if h.service == nil {
		return stage.Unhealthy(stageName, "notification service not configured")
	}
	return stage.Healthy(stageName)
}

func classifyPublish(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, stageName, "publish analysis", "deadline exceeded", err)
	case isTimeout(err):
		return services.Wrap(services.ErrTimeout, stageName, "publish analysis", "request timed out", err)
	default:
		return services.Wrap(services.ErrTransient, stageName, "publish analysis", "publish failed", err)
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
