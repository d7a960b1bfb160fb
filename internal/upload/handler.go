package upload

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/queue"
	"reel/internal/services"
	"reel/internal/services/blobstore"
	"reel/internal/stage"
)

const stageName = "store"

// Uploader is the slice of the blob storage client this stage depends on.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Handler pushes the transcoded artifact to durable blob storage.
type Handler struct {
	client Uploader
	logger *slog.Logger
}

// NewHandler constructs the store stage adapter with the production client.
func NewHandler(cfg *config.Config, logger *slog.Logger) *Handler {
	client := blobstore.NewClient(blobstore.Config{
		BaseURL:        cfg.Storage.BaseURL,
		APIToken:       cfg.Storage.APIToken,
		Folder:         cfg.Storage.Folder,
		TimeoutSeconds: cfg.Timeouts.UploadSeconds,
	})
	return NewHandlerWithClient(client, logger)
}

// NewHandlerWithClient constructs the stage around an explicit client.
func NewHandlerWithClient(client Uploader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		client: client,
		logger: logging.NewComponentLogger(logger, stageName),
	}
}

// Execute uploads job.TranscodedRef and records the durable URL the storage
// service assigned.
func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	path := strings.TrimSpace(job.TranscodedRef)
	if path == "" {
		return services.Wrap(services.ErrInvalidInput, stageName, "storage upload", "job has no transcoded artifact", nil)
	}

	logger := logging.WithContext(ctx, h.logger)
	logger.Info("uploading artifact", logging.String("path", path))

	url, err := h.client.Upload(ctx, path)
	if err != nil {
		return err
	}

	job.StoredRef = url
	logger.Info("artifact stored", logging.String("url", url))
	return nil
}

// HealthCheck probes storage reachability.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.client.HealthCheck(probeCtx); err != nil {
		return stage.Unhealthy(stageName, err.Error())
	}
	return stage.Healthy(stageName)
}
