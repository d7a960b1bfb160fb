package transcription

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/queue"
	"reel/internal/services"
	"reel/internal/services/speech"
	"reel/internal/stage"
)

const stageName = "transcribe"

// Transcriber is the slice of the speech client this stage depends on.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (speech.Result, error)
	HealthCheck(ctx context.Context) error
}

// Handler produces a transcript for the stored recording.
type Handler struct {
	client Transcriber
	logger *slog.Logger
}

// NewHandler constructs the transcribe stage adapter with the production client.
func NewHandler(cfg *config.Config, logger *slog.Logger) *Handler {
	client := speech.NewClient(speech.Config{
		APIKey:         cfg.Transcription.APIKey,
		BaseURL:        cfg.Transcription.BaseURL,
		Model:          cfg.Transcription.Model,
		TimeoutSeconds: cfg.Timeouts.TranscribeSeconds,
	})
	return NewHandlerWithClient(client, logger)
}

// NewHandlerWithClient constructs the stage around an explicit client.
func NewHandlerWithClient(client Transcriber, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		client: client,
		logger: logging.NewComponentLogger(logger, stageName),
	}
}

// Execute posts the stored audio reference to the speech service and records
// the transcript plus a normalized language tag.
func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	audioURL := strings.TrimSpace(job.StoredRef)
	if audioURL == "" {
		return services.Wrap(services.ErrInvalidInput, stageName, "speech request", "job has no stored audio reference", nil)
	}

	logger := logging.WithContext(ctx, h.logger)
	logger.Info("requesting transcript", logging.String("audio_url", audioURL))

	result, err := h.client.Transcribe(ctx, audioURL)
	if err != nil {
		return err
	}

	job.Transcript = result.Text
	job.Language = NormalizeLanguage(result.Language)
	logger.Info("transcript recorded",
		logging.Int("transcript_chars", len(result.Text)),
		logging.String("language", job.Language))
	return nil
}

// HealthCheck probes speech API reachability.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.client.HealthCheck(probeCtx); err != nil {
		return stage.Unhealthy(stageName, err.Error())
	}
	return stage.Healthy(stageName)
}
