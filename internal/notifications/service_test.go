package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reel/internal/notifications"
	"reel/internal/testsupport"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.TopicURL = ""
	svc := notifications.NewService(cfg)
	if err := svc.NotifyAnalysisReady(context.Background(), "job-1", "subj-1", "Summary.", "neutral"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestTopicServiceFormatsMessages(t *testing.T) {
	var gotTitle, gotTags, gotPriority, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		gotPriority = r.Header.Get("Priority")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.TopicURL = server.URL
	svc := notifications.NewService(cfg)

	if err := svc.NotifyAnalysisReady(context.Background(), "job-1", "subj-9", "Customer wants a quote.", "positive"); err != nil {
		t.Fatalf("NotifyAnalysisReady: %v", err)
	}
	if gotTitle != "Reel - Analysis Ready" {
		t.Errorf("unexpected title %q", gotTitle)
	}
	if gotTags != "reel,analysis,completed" {
		t.Errorf("unexpected tags %q", gotTags)
	}
	if !strings.Contains(gotBody, "Customer wants a quote.") || !strings.Contains(gotBody, "subj-9") {
		t.Errorf("unexpected body %q", gotBody)
	}
	if !strings.Contains(gotBody, "(Positive)") {
		t.Errorf("sentiment should be title-cased in body %q", gotBody)
	}

	if err := svc.NotifyJobFailed(context.Background(), "job-1", "transcode failed"); err != nil {
		t.Fatalf("NotifyJobFailed: %v", err)
	}
	if gotPriority != "high" {
		t.Errorf("expected high priority for failure, got %q", gotPriority)
	}
	if !strings.Contains(gotBody, "transcode failed") {
		t.Errorf("unexpected failure body %q", gotBody)
	}
}

func TestTopicServiceReportsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.TopicURL = server.URL
	svc := notifications.NewService(cfg)

	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx topic response")
	}
}
