package workflow

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reel/internal/config"
	"reel/internal/queue"
	"reel/internal/services"
	"reel/internal/stage"
	"reel/internal/testsupport"
)

// recordingHandler is a scriptable stage fake. Its apply function mutates the
// job the way the real stage would; a nil apply leaves the job untouched.
type recordingHandler struct {
	name  string
	mu    sync.Mutex
	calls int
	fail  error
	apply func(*queue.Job)
	block chan struct{}
}

func (h *recordingHandler) Execute(ctx context.Context, job *queue.Job) error {
	h.mu.Lock()
	h.calls++
	fail := h.fail
	apply := h.apply
	block := h.block
	h.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail != nil {
		return fail
	}
	if apply != nil {
		apply(job)
	}
	return nil
}

func (h *recordingHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(h.name)
}

func (h *recordingHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func (h *recordingHandler) setFailure(err error) {
	h.mu.Lock()
	h.fail = err
	h.mu.Unlock()
}

// fakeNotifier records operator-channel publishes.
type fakeNotifier struct {
	mu      sync.Mutex
	failed  []string
	reasons []string
}

func (f *fakeNotifier) NotifyAnalysisReady(context.Context, string, string, string, string) error {
	return nil
}

func (f *fakeNotifier) NotifyJobFailed(_ context.Context, jobID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, jobID)
	f.reasons = append(f.reasons, reason)
	return nil
}

func (f *fakeNotifier) TestNotification(context.Context) error { return nil }

func (f *fakeNotifier) failedJobs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.failed...)
}

type stageFixture struct {
	transcode  *recordingHandler
	store      *recordingHandler
	transcribe *recordingHandler
	analyze    *recordingHandler
	notify     *recordingHandler
}

func newStageFixture(t *testing.T) *stageFixture {
	t.Helper()
	workDir := t.TempDir()
	return &stageFixture{
		transcode: &recordingHandler{name: StageTranscode, apply: func(job *queue.Job) {
			path := filepath.Join(workDir, job.ID+".mp3")
			if err := os.WriteFile(path, []byte("mp3"), 0o644); err != nil {
				t.Errorf("write transcode output: %v", err)
			}
			job.TranscodedRef = path
			job.DurationSeconds = 12.5
		}},
		store: &recordingHandler{name: StageStore, apply: func(job *queue.Job) {
			job.StoredRef = "https://store.example/" + job.ID + ".mp3"
		}},
		transcribe: &recordingHandler{name: StageTranscribe, apply: func(job *queue.Job) {
			job.Transcript = "hello world"
			job.Language = "en"
		}},
		analyze: &recordingHandler{name: StageAnalyze, apply: func(job *queue.Job) {
			job.Analysis = `{"summary": "A call.", "sentiment": "neutral", "action_items": [], "topics": []}`
		}},
		notify: &recordingHandler{name: StageNotify},
	}
}

func (f *stageFixture) set() StageSet {
	return StageSet{
		Transcode:  f.transcode,
		Store:      f.store,
		Transcribe: f.transcribe,
		Analyze:    f.analyze,
		Notify:     f.notify,
	}
}

func newTestManager(t *testing.T, cfg *config.Config, fixture *stageFixture) (*Manager, *queue.Store) {
	t.Helper()
	store := testsupport.MustOpenStore(t, cfg)
	manager := NewManagerWithStages(cfg, store, nil, fixture.set())
	manager.notifier = &fakeNotifier{}
	return manager, store
}

func waitForStatus(t *testing.T, store *queue.Store, jobID string, want queue.Status) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), jobID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestManagerRunsPipelineToCompletion(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPollInterval(20))
	fixture := newStageFixture(t)
	manager, store := newTestManager(t, cfg, fixture)

	job := testsupport.NewJob(t, store, "/recordings/call.wav", "subj-1")

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop(context.Background())

	final := waitForStatus(t, store, job.ID, queue.StatusCompleted)
	if final.CompletedAt == nil {
		t.Fatal("expected completed_at set")
	}
	if final.StoredRef == "" || final.Transcript == "" || final.Analysis == "" {
		t.Fatalf("expected full payload, got %+v", final)
	}
	for _, handler := range []*recordingHandler{fixture.transcode, fixture.store, fixture.transcribe, fixture.analyze, fixture.notify} {
		if got := handler.callCount(); got != 1 {
			t.Errorf("stage %s executed %d times, want 1", handler.name, got)
		}
	}
}

func TestManagerResumesInsteadOfRestarting(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPollInterval(20), testsupport.WithMaxRetries(100))
	fixture := newStageFixture(t)
	fixture.transcribe.setFailure(services.Wrap(services.ErrTransient, StageTranscribe, "speech request", "service unavailable", nil))
	manager, store := newTestManager(t, cfg, fixture)

	job := testsupport.NewJob(t, store, "/recordings/call.wav", "subj-1")

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop(context.Background())

	failed := waitForStatus(t, store, job.ID, queue.StatusFailed)
	if failed.TranscodedRef == "" || failed.StoredRef == "" {
		t.Fatalf("expected partial payload persisted on failure, got %+v", failed)
	}
	if failed.RetryCount < 1 {
		t.Fatalf("expected retry_count incremented, got %d", failed.RetryCount)
	}

	fixture.transcribe.setFailure(nil)
	waitForStatus(t, store, job.ID, queue.StatusCompleted)

	// The earlier stages must not have run again on resume.
	if got := fixture.transcode.callCount(); got != 1 {
		t.Errorf("transcode executed %d times, want 1", got)
	}
	if got := fixture.store.callCount(); got != 1 {
		t.Errorf("store executed %d times, want 1", got)
	}
	if fixture.transcribe.callCount() < 2 {
		t.Errorf("transcribe should have re-run on resume")
	}
}

func TestManagerStopsRetryingAtCeiling(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPollInterval(20), testsupport.WithMaxRetries(2))
	fixture := newStageFixture(t)
	fixture.transcode.setFailure(services.Wrap(services.ErrInvalidInput, StageTranscode, "transcode audio", "garbage input", nil))
	manager, store := newTestManager(t, cfg, fixture)

	job := testsupport.NewJob(t, store, "/recordings/call.wav", "subj-1")

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		current, err := store.GetByID(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if current.FailedPermanently(cfg.Pipeline.MaxRetries) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Give the scheduler extra cycles to prove it no longer admits the job.
	time.Sleep(200 * time.Millisecond)
	if got := fixture.transcode.callCount(); got != cfg.Pipeline.MaxRetries {
		t.Fatalf("transcode executed %d times, want exactly %d", got, cfg.Pipeline.MaxRetries)
	}

	final, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if final.Status != queue.StatusFailed {
		t.Fatalf("expected job parked in failed, got %s", final.Status)
	}
}

func TestManagerNotifiesOnTerminalFailureOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPollInterval(20), testsupport.WithMaxRetries(2))
	fixture := newStageFixture(t)
	fixture.transcode.setFailure(services.Wrap(services.ErrInvalidInput, StageTranscode, "transcode audio", "garbage input", nil))
	manager, store := newTestManager(t, cfg, fixture)
	notifier := manager.notifier.(*fakeNotifier)

	job := testsupport.NewJob(t, store, "/recordings/call.wav", "subj-1")

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		current, err := store.GetByID(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if current.FailedPermanently(cfg.Pipeline.MaxRetries) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	// Extra cycles so a notification per attempt, if any, would have landed.
	time.Sleep(200 * time.Millisecond)

	failed := notifier.failedJobs()
	if len(failed) != 1 || failed[0] != job.ID {
		t.Fatalf("operator notifications = %v, want exactly one for %s", failed, job.ID)
	}
	notifier.mu.Lock()
	reason := notifier.reasons[0]
	notifier.mu.Unlock()
	if !strings.Contains(reason, StageTranscode) || !strings.Contains(reason, services.CategoryInvalidInput) {
		t.Fatalf("reason %q should name the stage and category", reason)
	}
}

func TestManagerHonorsConcurrencyBudget(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPollInterval(20), testsupport.WithMaxConcurrent(2))
	fixture := newStageFixture(t)

	release := make(chan struct{})
	var peak atomic.Int64
	var current atomic.Int64
	fixture.transcode.block = release
	originalApply := fixture.transcode.apply
	fixture.transcode.apply = func(job *queue.Job) {
		value := current.Add(1)
		for {
			max := peak.Load()
			if value <= max || peak.CompareAndSwap(max, value) {
				break
			}
		}
		defer current.Add(-1)
		originalApply(job)
	}

	manager, store := newTestManager(t, cfg, fixture)
	for i := 0; i < 6; i++ {
		testsupport.NewJob(t, store, fmt.Sprintf("/recordings/call-%d.wav", i), fmt.Sprintf("subj-%d", i))
	}

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && manager.Active() < 2 {
		time.Sleep(10 * time.Millisecond)
	}
	if got := manager.Active(); got != 2 {
		t.Fatalf("expected 2 in-flight jobs, got %d", got)
	}

	// More polls must not admit beyond the budget while stages are blocked.
	time.Sleep(100 * time.Millisecond)
	if got := manager.Active(); got > 2 {
		t.Fatalf("concurrency budget exceeded: %d active", got)
	}

	close(release)
	deadline = time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		stats, err := store.Stats(context.Background())
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if stats[queue.StatusCompleted] == 6 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if got := peak.Load(); got > 2 {
		t.Fatalf("observed %d concurrent transcodes, budget is 2", got)
	}
}

func TestManagerFiresDebouncedTriggers(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithPollInterval(20))
	cfg.Notifications.LeadAnalysisURL = server.URL
	fixture := newStageFixture(t)
	manager, store := newTestManager(t, cfg, fixture)

	// Same subject twice inside the debounce window: one trigger.
	first := testsupport.NewJob(t, store, "/recordings/a.wav", "subj-1")
	second := testsupport.NewJob(t, store, "/recordings/b.wav", "subj-1")

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop(context.Background())

	waitForStatus(t, store, first.ID, queue.StatusCompleted)
	waitForStatus(t, store, second.ID, queue.StatusCompleted)

	time.Sleep(100 * time.Millisecond)
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected 1 debounced trigger, got %d", got)
	}
}

func TestManagerStopDrainsInFlightJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPollInterval(20))
	fixture := newStageFixture(t)
	release := make(chan struct{})
	fixture.analyze.block = release

	manager, store := newTestManager(t, cfg, fixture)
	job := testsupport.NewJob(t, store, "/recordings/call.wav", "subj-1")

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && manager.Active() == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	if manager.Active() != 1 {
		t.Fatal("expected a job in flight before stopping")
	}

	stopErr := make(chan error, 1)
	go func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		stopErr <- manager.Stop(stopCtx)
	}()

	// Let the drain begin, then release the blocked stage.
	time.Sleep(50 * time.Millisecond)
	close(release)

	if err := <-stopErr; err != nil {
		t.Fatalf("Stop: %v", err)
	}

	final, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if final.Status != queue.StatusCompleted {
		t.Fatalf("expected drained job to complete, got %s", final.Status)
	}
}

func TestManagerStopTimesOutOnStuckJob(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPollInterval(20))
	fixture := newStageFixture(t)
	release := make(chan struct{})
	fixture.transcode.block = release

	manager, store := newTestManager(t, cfg, fixture)
	testsupport.NewJob(t, store, "/recordings/call.wav", "subj-1")

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && manager.Active() == 0 {
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := manager.Stop(stopCtx); err == nil {
		t.Fatal("expected drain timeout error")
	}

	// Release the stuck stage and let its goroutine finish before cleanup
	// tears down the store and temp directories.
	close(release)
	deadline = time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && manager.Active() != 0 {
		time.Sleep(10 * time.Millisecond)
	}
}

func TestManagerSkipsBlockedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPollInterval(20))
	fixture := newStageFixture(t)
	manager, store := newTestManager(t, cfg, fixture)

	job := testsupport.NewJob(t, store, "/recordings/call.wav", "subj-1")
	if err := store.MarkAwaitingInput(context.Background(), job.ID, "waiting on consent form"); err != nil {
		t.Fatalf("MarkAwaitingInput: %v", err)
	}

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop(context.Background())

	time.Sleep(200 * time.Millisecond)
	if got := fixture.transcode.callCount(); got != 0 {
		t.Fatalf("blocked job was admitted %d times", got)
	}

	if err := store.ClearAwaitingInput(context.Background(), job.ID); err != nil {
		t.Fatalf("ClearAwaitingInput: %v", err)
	}
	waitForStatus(t, store, job.ID, queue.StatusCompleted)
}

func TestManagerStageTimeoutFailsJob(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPollInterval(20), testsupport.WithMaxRetries(1))
	cfg.Timeouts.TranscodeSeconds = 1
	fixture := newStageFixture(t)
	fixture.transcode.block = make(chan struct{})

	manager, store := newTestManager(t, cfg, fixture)
	job := testsupport.NewJob(t, store, "/recordings/call.wav", "subj-1")

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop(context.Background())

	failed := waitForStatus(t, store, job.ID, queue.StatusFailed)
	if failed.ErrorMessage == "" {
		t.Fatal("expected error message recorded")
	}
}

func TestManagerStartTwiceFails(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPollInterval(20))
	fixture := newStageFixture(t)
	manager, _ := newTestManager(t, cfg, fixture)

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop(context.Background())

	if err := manager.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

func TestManagerHealthCoversAllStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fixture := newStageFixture(t)
	manager, _ := newTestManager(t, cfg, fixture)

	results := manager.Health(context.Background())
	if len(results) != len(StageOrder) {
		t.Fatalf("expected %d health records, got %d", len(StageOrder), len(results))
	}
	for i, health := range results {
		if health.Name != StageOrder[i] {
			t.Errorf("health[%d] = %s, want %s", i, health.Name, StageOrder[i])
		}
		if !health.Ready {
			t.Errorf("stage %s unexpectedly unhealthy", health.Name)
		}
	}
}
