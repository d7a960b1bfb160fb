package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reel/internal/config"
)

const userAgent = "Reel/0.1.0"

// Service defines the operator notification surface.
type Service interface {
	NotifyAnalysisReady(ctx context.Context, jobID, subjectID, summary, sentiment string) error
	NotifyJobFailed(ctx context.Context, jobID, reason string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by an ntfy-style topic.
// When no topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.TopicURL)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Timeouts.NotifySeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &topicService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type topicService struct {
	endpoint string
	client   *http.Client
}

func (s *topicService) NotifyAnalysisReady(ctx context.Context, jobID, subjectID, summary, sentiment string) error {
	summary = strings.TrimSpace(summary)
	sentiment = strings.TrimSpace(sentiment)
	if sentiment == "" {
		sentiment = "unknown"
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "Call analysis ready (%s)", cases.Title(language.English).String(sentiment))
	if subjectID = strings.TrimSpace(subjectID); subjectID != "" {
		fmt.Fprintf(&builder, "\nSubject: %s", subjectID)
	}
	if summary != "" {
		fmt.Fprintf(&builder, "\n%s", summary)
	}
	fmt.Fprintf(&builder, "\nJob: %s", jobID)

	data := payload{
		title:   "Reel - Analysis Ready",
		message: builder.String(),
		tags:    []string{"reel", "analysis", "completed"},
	}
	return s.send(ctx, data)
}

func (s *topicService) NotifyJobFailed(ctx context.Context, jobID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "Reel - Job Failed",
		message:  fmt.Sprintf("Job %s failed: %s", jobID, reason),
		tags:     []string{"reel", "error", "alert"},
		priority: "high",
	}
	return s.send(ctx, data)
}

func (s *topicService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Reel - Test",
		message:  "Notification system test",
		tags:     []string{"reel", "test"},
		priority: "low",
	}
	return s.send(ctx, data)
}

func (s *topicService) send(ctx context.Context, data payload) error {
	if s == nil || s.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("notification topic returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyAnalysisReady(context.Context, string, string, string, string) error {
	return nil
}

func (noopService) NotifyJobFailed(context.Context, string, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
