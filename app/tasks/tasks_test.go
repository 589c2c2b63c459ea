package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/complaint-comb/app/analysis"
	"github.com/lysyi3m/complaint-comb/app/cache"
	"github.com/lysyi3m/complaint-comb/app/refresh"
)

type mockProcessor struct {
	outcome analysis.Outcome
	panics  bool
	prompts []string
}

func (m *mockProcessor) Process(ctx context.Context, prompt string) analysis.Outcome {
	m.prompts = append(m.prompts, prompt)
	if m.panics {
		panic("processor exploded")
	}
	return m.outcome
}

type mockRefresher struct {
	calls atomic.Int32
	fail  atomic.Int32
}

func (m *mockRefresher) Refresh(ctx context.Context) (refresh.Progress, error) {
	m.calls.Add(1)
	if m.fail.Load() > 0 {
		m.fail.Add(-1)
		return refresh.Progress{}, errors.New("site down")
	}
	return refresh.Progress{ItemsScraped: 1}, nil
}

type countingTask struct {
	Task
	mu   sync.Mutex
	runs int
	err  error
	done chan struct{}
}

func (t *countingTask) Execute(ctx context.Context) error {
	t.mu.Lock()
	t.runs++
	t.mu.Unlock()
	t.done <- struct{}{}
	return t.err
}

func getResult(t *testing.T, store cache.Store, id string) Result {
	t.Helper()

	var result Result
	if err := store.Get(context.Background(), ResultKey(id), &result); err != nil {
		t.Fatalf("Expected result for %s, got %v", id, err)
	}
	return result
}

func TestNewTask(t *testing.T) {
	a := NewTask(TaskTypeRefresh)
	b := NewTask(TaskTypeRefresh)

	if a.ID == b.ID {
		t.Error("Expected unique task IDs")
	}
	if a.MaxRetries != DefaultMaxRetries || !a.CanRetry() {
		t.Errorf("Expected retryable task with %d retries, got %+v", DefaultMaxRetries, a)
	}
	if a.GetDuration() != 0 {
		t.Error("Expected zero duration before start")
	}
}

func TestAnalyzeTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(0)
	processor := &mockProcessor{outcome: analysis.Outcome{Type: analysis.TypeAnalysis, Success: true, TotalFound: 4}}

	task := NewAnalyzeTask("son 4 şikayet", processor, store, time.Minute)

	if task.CanRetry() {
		t.Error("Expected analyze tasks not to be retried")
	}

	if err := task.MarkProcessing(ctx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := getResult(t, store, task.GetID()); got.Status != StatusProcessing || got.Prompt != "son 4 şikayet" {
		t.Errorf("Expected processing result, got %+v", got)
	}

	task.Start()
	if err := task.Execute(ctx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got := getResult(t, store, task.GetID())
	if got.Status != StatusCompleted || got.Outcome == nil || got.Outcome.TotalFound != 4 {
		t.Errorf("Expected completed result with outcome, got %+v", got)
	}

	var latest analysis.Outcome
	if err := store.Get(ctx, LatestKey, &latest); err != nil {
		t.Fatalf("Expected latest analysis, got %v", err)
	}
	if latest.TotalFound != 4 {
		t.Errorf("Expected latest analysis to be stored, got %+v", latest)
	}
}

func TestAnalyzeTaskChatDoesNotReplaceLatest(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(0)
	processor := &mockProcessor{outcome: analysis.Outcome{Type: analysis.TypeChat, Success: true, Message: "Merhaba"}}

	task := NewAnalyzeTask("selam", processor, store, time.Minute)
	if err := task.Execute(ctx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var latest analysis.Outcome
	if err := store.Get(ctx, LatestKey, &latest); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("Expected no latest analysis after chat, got %v", err)
	}
}

func TestAnalyzeTaskPanicPublishesError(t *testing.T) {
	store := cache.NewMemoryStore(0)
	task := NewAnalyzeTask("x", &mockProcessor{panics: true}, store, time.Minute)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected panic to be absorbed, got %v", err)
	}

	got := getResult(t, store, task.GetID())
	if got.Status != StatusError || got.Error == "" {
		t.Errorf("Expected error result, got %+v", got)
	}
}

func TestSchedulerRunsTasks(t *testing.T) {
	s := NewScheduler(nil, 2, 0, time.Second)
	s.Start()
	defer s.Stop()

	task := &countingTask{Task: NewTask(TaskTypeAnalyze), done: make(chan struct{}, 1)}
	task.MaxRetries = 0

	if err := s.EnqueueTask(task); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	select {
	case <-task.done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected task to run")
	}
}

func TestSchedulerRetriesFailedTask(t *testing.T) {
	s := NewScheduler(nil, 1, 0, time.Second)
	s.Start()
	defer s.Stop()

	task := &countingTask{Task: NewTask(TaskTypeRefresh), err: errors.New("boom"), done: make(chan struct{}, 4)}
	task.MaxRetries = 1

	if err := s.EnqueueTask(task); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-task.done:
		case <-time.After(3 * time.Second):
			t.Fatalf("Expected run %d", i+1)
		}
	}

	task.mu.Lock()
	defer task.mu.Unlock()
	if task.runs != 2 {
		t.Errorf("Expected 2 runs, got %d", task.runs)
	}
}

func TestSchedulerQueueFull(t *testing.T) {
	s := NewScheduler(nil, 1, 0, time.Second)

	for i := 0; i < queueSize; i++ {
		if err := s.EnqueueTask(NewRefreshTask(&mockRefresher{})); err != nil {
			t.Fatalf("Expected room in queue at %d, got %v", i, err)
		}
	}

	if err := s.EnqueueTask(NewRefreshTask(&mockRefresher{})); err == nil {
		t.Error("Expected error when queue is full")
	}

	s.Stop()
	if err := s.EnqueueTask(NewRefreshTask(&mockRefresher{})); err == nil {
		t.Error("Expected error after stop")
	}
}

func TestSchedulerPeriodicRefresh(t *testing.T) {
	refresher := &mockRefresher{}
	s := NewScheduler(refresher, 1, 20*time.Millisecond, time.Second)
	s.Start()

	deadline := time.Now().Add(2 * time.Second)
	for refresher.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	if refresher.calls.Load() < 2 {
		t.Errorf("Expected startup and periodic refreshes, got %d", refresher.calls.Load())
	}
}

func TestRefreshTaskError(t *testing.T) {
	refresher := &mockRefresher{}
	refresher.fail.Store(1)

	if err := NewRefreshTask(refresher).Execute(context.Background()); err == nil {
		t.Error("Expected refresh error to surface")
	}
	if err := NewRefreshTask(refresher).Execute(context.Background()); err != nil {
		t.Errorf("Expected second refresh to succeed, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewRefreshTask(refresher).Execute(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected cancelled context error, got %v", err)
	}
}
