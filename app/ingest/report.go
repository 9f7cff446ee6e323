package ingest

import (
	"sort"
	"time"

	"github.com/lysyi3m/race-comb/app/source"
)

// Counters are the per-provider tallies of one run. Failed counts item
// failures (fetch, extraction, persistence) plus one for a provider-level
// failure.
type Counters struct {
	Fetched    int `json:"fetched"`
	Normalized int `json:"normalized"`
	Rejected   int `json:"rejected"`
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

func (c *Counters) add(o Counters) {
	c.Fetched += o.Fetched
	c.Normalized += o.Normalized
	c.Rejected += o.Rejected
	c.Created += o.Created
	c.Updated += o.Updated
	c.Skipped += o.Skipped
	c.Failed += o.Failed
}

type ProviderReport struct {
	Counters
	Rejections map[string]int `json:"rejections"`
	// CleanupEligible tells an external retention process whether this
	// provider's stale events may be removed after this run. It is false
	// whenever the provider failed as a whole or produced nothing.
	CleanupEligible bool    `json:"cleanup_eligible"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type FailureEntry struct {
	Provider string             `json:"provider"`
	Kind     source.FailureKind `json:"kind"`
	URL      string             `json:"url,omitempty"`
	Reason   string             `json:"reason"`
}

type Totals struct {
	Counters
	Rejections map[string]int `json:"rejections"`
}

// RunReport is the result of one ingestion run. It is always produced, even
// when every provider failed.
type RunReport struct {
	RunID      string                     `json:"run_id"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
	DryRun     bool                       `json:"dry_run,omitempty"`
	Providers  map[string]*ProviderReport `json:"providers"`
	Failures   []FailureEntry             `json:"failures"`
	Totals     Totals                     `json:"totals"`
}

func newRunReport(id string, dryRun bool) *RunReport {
	return &RunReport{
		RunID:     id,
		StartedAt: time.Now().UTC(),
		DryRun:    dryRun,
		Providers: make(map[string]*ProviderReport),
		Failures:  []FailureEntry{},
		Totals:    Totals{Rejections: make(map[string]int)},
	}
}

func newProviderReport() *ProviderReport {
	return &ProviderReport{Rejections: make(map[string]int)}
}

func (r *RunReport) finish() {
	r.FinishedAt = time.Now().UTC()
	r.Totals = Totals{Rejections: make(map[string]int)}
	for _, p := range r.Providers {
		r.Totals.add(p.Counters)
		for reason, n := range p.Rejections {
			r.Totals.Rejections[reason] += n
		}
	}
	sort.SliceStable(r.Failures, func(i, j int) bool {
		return r.Failures[i].Provider < r.Failures[j].Provider
	})
}

// ProviderNames lists the providers in the report in lexical order.
func (r *RunReport) ProviderNames() []string {
	names := make([]string, 0, len(r.Providers))
	for name := range r.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllFailed reports whether every provider in the run failed as a whole.
// A run with no providers did not fail.
func (r *RunReport) AllFailed() bool {
	if len(r.Providers) == 0 {
		return false
	}
	failed := make(map[string]bool)
	for _, f := range r.Failures {
		if f.Kind == source.ProviderFailure || f.Kind == source.Timeout {
			failed[f.Provider] = true
		}
	}
	for name := range r.Providers {
		if !failed[name] {
			return false
		}
	}
	return true
}
