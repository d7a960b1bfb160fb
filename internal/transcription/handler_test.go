package transcription

import (
	"context"
	"errors"
	"testing"

	"reel/internal/queue"
	"reel/internal/services"
	"reel/internal/services/speech"
)

type fakeTranscriber struct {
	result    speech.Result
	err       error
	healthErr error
	gotURL    string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioURL string) (speech.Result, error) {
	f.gotURL = audioURL
	return f.result, f.err
}

func (f *fakeTranscriber) HealthCheck(ctx context.Context) error {
	return f.healthErr
}

func TestExecuteRecordsTranscriptAndLanguage(t *testing.T) {
	client := &fakeTranscriber{result: speech.Result{Text: "hello world", Language: "EN-us"}}
	handler := NewHandlerWithClient(client, nil)
	job := &queue.Job{ID: "job-1", Status: queue.StatusProcessing, StoredRef: "https://store.example/rec.mp3"}

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if client.gotURL != job.StoredRef {
		t.Fatalf("unexpected audio url %q", client.gotURL)
	}
	if job.Transcript != "hello world" {
		t.Fatalf("unexpected transcript %q", job.Transcript)
	}
	if job.Language != "en-US" {
		t.Fatalf("unexpected language %q", job.Language)
	}
}

func TestExecuteRequiresStoredRef(t *testing.T) {
	handler := NewHandlerWithClient(&fakeTranscriber{}, nil)
	job := &queue.Job{ID: "job-1", Status: queue.StatusProcessing}

	err := handler.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestExecutePropagatesClientError(t *testing.T) {
	clientErr := services.Wrap(services.ErrTimeout, "transcribe", "speech request", "deadline exceeded", nil)
	handler := NewHandlerWithClient(&fakeTranscriber{err: clientErr}, nil)
	job := &queue.Job{ID: "job-1", Status: queue.StatusProcessing, StoredRef: "https://store.example/rec.mp3"}

	err := handler.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"en-US", "en-US"},
		{"eng", "en"},
		{"English", "en"},
		{"pt-BR", "pt-BR"},
		{"", ""},
		{"  ", ""},
		{"klingon", "klingon"},
	}
	for _, tc := range cases {
		if got := NormalizeLanguage(tc.in); got != tc.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHealthCheckReflectsClient(t *testing.T) {
	if health := NewHandlerWithClient(&fakeTranscriber{}, nil).HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy stage, got %+v", health)
	}
	down := NewHandlerWithClient(&fakeTranscriber{healthErr: errors.New("unreachable")}, nil)
	if health := down.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy stage")
	}
}
