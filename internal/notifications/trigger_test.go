package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"reel/internal/testsupport"
)

func TestFirePostsConfiguredEndpoints(t *testing.T) {
	var mu sync.Mutex
	received := make(map[string]triggerPayload)
	handler := func(w http.ResponseWriter, r *http.Request) {
		var payload triggerPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode trigger payload: %v", err)
		}
		mu.Lock()
		received[payload.EventType] = payload
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}
	leadServer := httptest.NewServer(http.HandlerFunc(handler))
	defer leadServer.Close()
	nudgeServer := httptest.NewServer(http.HandlerFunc(handler))
	defer nudgeServer.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.LeadAnalysisURL = leadServer.URL
	cfg.Notifications.EventNudgeURL = nudgeServer.URL

	client := NewTriggerClient(cfg, nil)
	client.Fire(context.Background(), "subj-3", map[string]string{"job_id": "job-1"})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("expected both endpoints hit, got %v", received)
	}
	lead := received[EventLeadAnalysis]
	if lead.SubjectID != "subj-3" || lead.Metadata["job_id"] != "job-1" {
		t.Fatalf("unexpected lead payload %+v", lead)
	}
	if _, ok := received[EventNudge]; !ok {
		t.Fatal("expected event-nudge trigger")
	}
}

func TestFireSwallowsEndpointFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.LeadAnalysisURL = server.URL

	client := NewTriggerClient(cfg, nil)
	// Must not panic or propagate the failure.
	client.Fire(context.Background(), "subj-3", nil)
}

func TestFireSkipsBlankSubject(t *testing.T) {
	var hit bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.LeadAnalysisURL = server.URL

	client := NewTriggerClient(cfg, nil)
	client.Fire(context.Background(), "   ", nil)
	if hit {
		t.Fatal("expected no trigger for blank subject")
	}
}
