package tasks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/race-comb/app/ingest"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   int
	filters [][]string
	err     error
	block   chan struct{}
}

func (r *fakeRunner) Run(ctx context.Context, filter []string) (*ingest.RunReport, error) {
	r.mu.Lock()
	r.calls++
	r.filters = append(r.filters, filter)
	block, err := r.block, r.err
	r.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &ingest.RunReport{RunID: "run-1"}, nil
}

func (r *fakeRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeReloader struct {
	calls    atomic.Int32
	failures int32
}

func (r *fakeReloader) Run() error {
	if r.calls.Add(1) <= r.failures {
		return errors.New("providers/ativo.yml: yaml: line 3: did not find expected key")
	}
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met in time")
}

func TestSchedulerRunsPeriodically(t *testing.T) {
	runner := &fakeRunner{}
	reloader := &fakeReloader{}
	s := newScheduler(runner, reloader, 20*time.Millisecond)

	s.Start()
	waitFor(t, func() bool { return runner.Calls() >= 3 })
	s.Stop()

	if reloader.calls.Load() < 3 {
		t.Errorf("Expected provider reload before each run, got %d reloads", reloader.calls.Load())
	}
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if runner.filters[0] != nil {
		t.Errorf("Expected scheduled runs over all providers, got %v", runner.filters[0])
	}
}

func TestSchedulerDisabled(t *testing.T) {
	runner := &fakeRunner{}
	s := newScheduler(runner, nil, 0)

	s.Start()
	time.Sleep(30 * time.Millisecond)

	if err := s.EnqueueTask(NewIngestTask(runner, []string{"corridasbr"})); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return runner.Calls() == 1 })
	s.Stop()

	if err := s.EnqueueTask(NewIngestTask(runner, nil)); err == nil {
		t.Error("Expected enqueue after stop to fail")
	}
}

func TestSchedulerCoalescesQueuedRuns(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	s := newScheduler(runner, nil, time.Hour)

	s.wg.Add(1)
	go s.worker()

	s.enqueueTasks()
	waitFor(t, func() bool { return runner.Calls() == 1 })

	// the worker is busy; the first tick queues a run, the rest coalesce
	s.enqueueTasks()
	s.enqueueTasks()
	s.enqueueTasks()
	if len(s.taskQueue) != 1 {
		t.Errorf("Expected one queued run, got %d", len(s.taskQueue))
	}

	close(runner.block)
	waitFor(t, func() bool { return runner.Calls() == 2 })
	s.Stop()
}

func TestSchedulerRetriesFailedReload(t *testing.T) {
	reloader := &fakeReloader{failures: 2}
	s := newScheduler(&fakeRunner{}, reloader, 0)
	s.retryBase = time.Millisecond

	s.Start()
	if err := s.EnqueueTask(NewReloadProvidersTask(reloader)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return reloader.calls.Load() == 3 })
	s.Stop()
}

func TestIngestTaskCoalescesActiveRun(t *testing.T) {
	runner := &fakeRunner{err: ingest.ErrRunInProgress}
	task := NewIngestTask(runner, nil)

	if err := task.Execute(context.Background()); err != nil {
		t.Errorf("Expected active run to absorb the task, got %v", err)
	}
	if task.CanRetry() {
		t.Error("Expected ingest tasks not to retry")
	}
	if task.GetScope() != "all" || task.GetType() != TaskTypeIngestRun {
		t.Errorf("Unexpected task identity %s/%s", task.GetType(), task.GetScope())
	}

	runner.err = errors.New("boom")
	if err := task.Execute(context.Background()); err == nil {
		t.Error("Expected other runner errors to surface")
	}
}

func TestTaskRetryBookkeeping(t *testing.T) {
	task := NewTask(TaskTypeReloadProviders, "providers")
	if task.ID == "" || task.GetDuration() != 0 {
		t.Errorf("Unexpected new task %+v", task)
	}
	for i := 0; i < DefaultMaxRetries; i++ {
		if !task.CanRetry() {
			t.Fatalf("Expected retry %d to be allowed", i)
		}
		task.IncrementRetryCount()
	}
	if task.CanRetry() {
		t.Error("Expected retries exhausted")
	}
	task.Start()
	if task.StartedAt == nil {
		t.Error("Expected start time recorded")
	}
}
