package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"reel/internal/config"
	"reel/internal/logging"
)

// Event types carried by downstream triggers.
const (
	EventLeadAnalysis = "lead-analysis"
	EventNudge        = "event-nudge"
)

type triggerPayload struct {
	EventType string            `json:"event_type"`
	SubjectID string            `json:"subject_id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// TriggerClient fires best-effort completion events at downstream systems.
// Failures are logged and swallowed: triggers must never affect job outcome.
type TriggerClient struct {
	endpoints map[string]string
	client    *http.Client
	logger    *slog.Logger
}

// NewTriggerClient builds a trigger client from the configured downstream
// URLs. Unconfigured endpoints are simply absent.
func NewTriggerClient(cfg *config.Config, logger *slog.Logger) *TriggerClient {
	if logger == nil {
		logger = logging.NewNop()
	}
	endpoints := make(map[string]string, 2)
	if url := strings.TrimSpace(cfg.Notifications.LeadAnalysisURL); url != "" {
		endpoints[EventLeadAnalysis] = url
	}
	if url := strings.TrimSpace(cfg.Notifications.EventNudgeURL); url != "" {
		endpoints[EventNudge] = url
	}
	return &TriggerClient{
		endpoints: endpoints,
		client:    &http.Client{Timeout: cfg.TriggerTimeout()},
		logger:    logging.NewComponentLogger(logger, "triggers"),
	}
}

// Fire posts the completion event for subjectID to every configured endpoint.
// It always returns; a failed endpoint is logged with its reason.
func (t *TriggerClient) Fire(ctx context.Context, subjectID string, metadata map[string]string) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" || len(t.endpoints) == 0 {
		return
	}
	for _, event := range []string{EventLeadAnalysis, EventNudge} {
		endpoint, ok := t.endpoints[event]
		if !ok {
			continue
		}
		if err := t.post(ctx, endpoint, triggerPayload{
			EventType: event,
			SubjectID: subjectID,
			Metadata:  metadata,
		}); err != nil {
			t.logger.Warn("downstream trigger failed",
				logging.String("event_type", event),
				logging.String(logging.FieldSubjectID, subjectID),
				logging.Error(err))
			continue
		}
		t.logger.Info("downstream trigger fired",
			logging.String("event_type", event),
			logging.String(logging.FieldSubjectID, subjectID))
	}
}

func (t *TriggerClient) post(ctx context.Context, endpoint string, payload triggerPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal trigger payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build trigger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send trigger: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("trigger endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// Timeout exposes the trigger HTTP deadline for callers sizing their contexts.
func (t *TriggerClient) Timeout() time.Duration {
	return t.client.Timeout
}
