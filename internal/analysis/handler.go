package analysis

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/queue"
	"reel/internal/services"
	"reel/internal/services/llm"
	"reel/internal/stage"
)

const stageName = "analyze"

// Completer is the slice of the LLM client this stage depends on.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Report is the structured analysis the LLM must return for a transcript.
type Report struct {
	Summary     string   `json:"summary"`
	Sentiment   string   `json:"sentiment"`
	ActionItems []string `json:"action_items"`
	Topics      []string `json:"topics"`
}

// Handler derives a structured analysis report from the transcript.
type Handler struct {
	client Completer
	logger *slog.Logger
}

// NewHandler constructs the analyze stage adapter with the production client.
func NewHandler(cfg *config.Config, logger *slog.Logger) *Handler {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.Analysis.APIKey,
		BaseURL:        cfg.Analysis.BaseURL,
		Model:          cfg.Analysis.Model,
		TimeoutSeconds: cfg.Timeouts.AnalyzeSeconds,
	})
	return NewHandlerWithClient(client, logger)
}

// NewHandlerWithClient constructs the stage around an explicit client.
func NewHandlerWithClient(client Completer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		client: client,
		logger: logging.NewComponentLogger(logger, stageName),
	}
}

// Execute sends the transcript to the LLM and records the validated analysis
// JSON. The stored payload is the canonical re-marshaled report, not the raw
// completion, so downstream consumers never see fence markers or extra keys.
func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	transcript := strings.TrimSpace(job.Transcript)
	if transcript == "" {
		return services.Wrap(services.ErrInvalidInput, stageName, "analysis request", "job has no transcript", nil)
	}

	logger := logging.WithContext(ctx, h.logger)
	logger.Info("requesting analysis", logging.Int("transcript_chars", len(transcript)))

	content, err := h.client.CompleteJSON(ctx, llm.CallAnalysisPrompt, transcript)
	if err != nil {
		return err
	}

	report, err := parseReport(content)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(report)
	if err != nil {
		return services.Wrap(services.ErrInvalidInput, stageName, "analysis request", "encode report", err)
	}

	job.Analysis = string(encoded)
	logger.Info("analysis recorded",
		logging.String("sentiment", report.Sentiment),
		logging.Int("action_items", len(report.ActionItems)))
	return nil
}

// HealthCheck probes LLM API reachability.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.client.HealthCheck(probeCtx); err != nil {
		return stage.Unhealthy(stageName, err.Error())
	}
	return stage.Healthy(stageName)
}

var validSentiments = map[string]struct{}{
	"positive": {},
	"neutral":  {},
	"negative": {},
}

// parseReport decodes and validates the completion. A completion that decodes
// but misses the required shape is an upstream rejection: the service answered,
// just not with what was asked for, and a retry against the same transcript is
// unlikely to do better.
func parseReport(content string) (Report, error) {
	var report Report
	if err := llm.DecodeJSON(content, &report); err != nil {
		return Report{}, services.Wrap(services.ErrUpstreamRejected, stageName, "analysis request", "malformed completion", err)
	}
	report.Summary = strings.TrimSpace(report.Summary)
	report.Sentiment = strings.ToLower(strings.TrimSpace(report.Sentiment))
	if report.Summary == "" {
		return Report{}, services.Wrap(services.ErrUpstreamRejected, stageName, "analysis request", "completion missing summary", nil)
	}
	if _, ok := validSentiments[report.Sentiment]; !ok {
		return Report{}, services.Wrap(services.ErrUpstreamRejected, stageName, "analysis request", "unrecognized sentiment "+strconv.Quote(report.Sentiment), nil)
	}
	if report.ActionItems == nil {
		report.ActionItems = []string{}
	}
	if report.Topics == nil {
		report.Topics = []string{}
	}
	return report, nil
}
