package ingest

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/lysyi3m/race-comb/app/metrics"
)

var ErrRunInProgress = errors.New("an ingestion run is already in progress")

const historySize = 20

type RunState string

const (
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
)

// RunStatus is what callers can see about a run while it is active and
// after it finished.
type RunStatus struct {
	ID        string     `json:"run_id"`
	State     RunState   `json:"status"`
	Providers []string   `json:"providers,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	Report    *RunReport `json:"report,omitempty"`
}

// Tracker guards against concurrent runs and remembers the most recent ones
// in memory.
type Tracker struct {
	mu      sync.RWMutex
	active  string
	runs    map[string]*RunStatus
	history []string
}

func NewTracker() *Tracker {
	return &Tracker{runs: make(map[string]*RunStatus)}
}

func (t *Tracker) begin(filter []string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != "" {
		metrics.RunsTotal.WithLabelValues("rejected").Inc()
		return "", ErrRunInProgress
	}

	id := newRunID()
	t.active = id
	t.runs[id] = &RunStatus{
		ID:        id,
		State:     StateRunning,
		Providers: slices.Clone(filter),
		StartedAt: time.Now().UTC(),
	}
	t.history = append(t.history, id)
	if len(t.history) > historySize {
		delete(t.runs, t.history[0])
		t.history = t.history[1:]
	}
	return id, nil
}

func (t *Tracker) finish(id string, report *RunReport) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.runs[id]; ok {
		s.State = StateCompleted
		s.Report = report
	}
	if t.active == id {
		t.active = ""
	}
}

// Get returns a copy of the status of a known run.
func (t *Tracker) Get(id string) (RunStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.runs[id]
	if !ok {
		return RunStatus{}, false
	}
	return *s, true
}

// Active returns the identifier of the running run, or "".
func (t *Tracker) Active() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// Recent lists the remembered runs, newest first.
func (t *Tracker) Recent() []RunStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]RunStatus, 0, len(t.history))
	for i := len(t.history) - 1; i >= 0; i-- {
		out = append(out, *t.runs[t.history[i]])
	}
	return out
}
