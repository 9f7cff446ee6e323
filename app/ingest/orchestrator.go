package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/race-comb/app/dedup"
	"github.com/lysyi3m/race-comb/app/event"
	"github.com/lysyi3m/race-comb/app/metrics"
	"github.com/lysyi3m/race-comb/app/normalize"
	"github.com/lysyi3m/race-comb/app/providers"
	"github.com/lysyi3m/race-comb/app/source"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

var errDisabledProvider = errors.New("provider is disabled")

// ConfigSource is the provider configuration surface the orchestrator reads
// at the start of every run.
type ConfigSource interface {
	GetConfigs() map[string]*providers.Config
}

type Options struct {
	// BrowserPool serves providers with browser: true. Without one those
	// providers fail.
	BrowserPool     source.BrowserPool
	HTTPConcurrency int
	AdapterTimeout  time.Duration
	FetchAttempts   int
	RetryInterval   time.Duration
	UserAgent       string
	HTTPClient      *http.Client
	// DryRun decides create/update/skip without writing.
	DryRun bool
}

// Orchestrator runs the configured adapters for one ingestion cycle and
// feeds their candidates through normalization and dedup. At most one run
// is active at a time.
type Orchestrator struct {
	configs    ConfigSource
	registry   *source.Registry
	normalizer *normalize.Normalizer
	engine     *dedup.Engine
	opts       Options
	tracker    *Tracker
}

func New(configs ConfigSource, registry *source.Registry, normalizer *normalize.Normalizer,
	engine *dedup.Engine, opts Options) *Orchestrator {
	if opts.HTTPConcurrency <= 0 {
		opts.HTTPConcurrency = 6
	}
	if opts.AdapterTimeout <= 0 {
		opts.AdapterTimeout = 5 * time.Minute
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	return &Orchestrator{
		configs:    configs,
		registry:   registry,
		normalizer: normalizer,
		engine:     engine,
		opts:       opts,
		tracker:    NewTracker(),
	}
}

func (o *Orchestrator) Tracker() *Tracker {
	return o.tracker
}

// Run executes one ingestion run synchronously. An empty filter runs every
// enabled provider. ErrRunInProgress is returned when another run is active.
func (o *Orchestrator) Run(ctx context.Context, filter []string) (*RunReport, error) {
	id, err := o.tracker.begin(filter)
	if err != nil {
		return nil, err
	}
	report := o.run(ctx, id, filter)
	o.tracker.finish(id, report)
	return report, nil
}

// Start launches a run in the background and returns its identifier. The
// channel receives the report once and is then closed.
func (o *Orchestrator) Start(ctx context.Context, filter []string) (string, <-chan *RunReport, error) {
	id, err := o.tracker.begin(filter)
	if err != nil {
		return "", nil, err
	}

	done := make(chan *RunReport, 1)
	go func() {
		defer close(done)
		report := o.run(ctx, id, filter)
		o.tracker.finish(id, report)
		done <- report
	}()

	return id, done, nil
}

// Wait blocks until no run is active or ctx ends. Shutdown calls it after
// cancelling the run context so the store and browser pool outlive the run.
func (o *Orchestrator) Wait(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for o.tracker.Active() != "" {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, id string, filter []string) *RunReport {
	report := newRunReport(id, o.opts.DryRun)
	metrics.RunInProgress.Set(1)
	defer metrics.RunInProgress.Set(0)

	selected, failures := o.selectProviders(filter)
	slog.Info("Ingestion run started", "run_id", id, "providers", len(selected), "dry_run", o.opts.DryRun)

	for _, f := range failures {
		report.Providers[f.Provider] = &ProviderReport{Counters: Counters{Failed: 1}, Rejections: map[string]int{}}
		report.Failures = append(report.Failures, f)
		slog.Error("Provider not runnable", "run_id", id, "provider", f.Provider, "reason", f.Reason)
	}

	httpSlots := semaphore.NewWeighted(int64(o.opts.HTTPConcurrency))
	var mu sync.Mutex
	var g errgroup.Group

	for _, config := range selected {
		g.Go(func() error {
			pr, entries := o.runProvider(ctx, id, config, httpSlots)
			mu.Lock()
			report.Providers[config.Name] = pr
			report.Failures = append(report.Failures, entries...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report.finish()
	metrics.RunsTotal.WithLabelValues("completed").Inc()

	t := report.Totals
	slog.Info("Ingestion run completed", "run_id", id,
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
		"fetched", t.Fetched, "created", t.Created, "updated", t.Updated,
		"skipped", t.Skipped, "rejected", t.Rejected, "failed", t.Failed)
	return report
}

// selectProviders resolves the filter against the loaded configs. Names in
// the filter that are unknown or disabled become failures.
func (o *Orchestrator) selectProviders(filter []string) ([]*providers.Config, []FailureEntry) {
	configs := o.configs.GetConfigs()
	var selected []*providers.Config
	var failures []FailureEntry

	if len(filter) == 0 {
		for _, c := range configs {
			if c.Enabled {
				selected = append(selected, c)
			}
		}
	} else {
		seen := make(map[string]bool)
		for _, name := range filter {
			if seen[name] {
				continue
			}
			seen[name] = true

			c, ok := configs[name]
			switch {
			case !ok:
				failures = append(failures, FailureEntry{Provider: name, Kind: source.ProviderFailure, Reason: source.ErrUnknownProvider.Error()})
			case !c.Enabled:
				failures = append(failures, FailureEntry{Provider: name, Kind: source.ProviderFailure, Reason: errDisabledProvider.Error()})
			default:
				selected = append(selected, c)
			}
		}
	}

	sort.Slice(selected, func(i, j int) bool { return selected[i].Name < selected[j].Name })
	return selected, failures
}

type adapterResult struct {
	stats source.Stats
	err   error
}

// providerRun is the state of one adapter invocation inside a run.
type providerRun struct {
	runID    string
	provider string
	report   *ProviderReport
	failures []FailureEntry
	seen     map[string]bool
}

func (p *providerRun) fail(kind source.FailureKind, url string, err error) {
	p.report.Failed++
	p.failures = append(p.failures, FailureEntry{Provider: p.provider, Kind: kind, URL: url, Reason: err.Error()})
	metrics.ProviderFailures.WithLabelValues(p.provider, string(kind)).Inc()
}

func (o *Orchestrator) runProvider(ctx context.Context, runID string, config *providers.Config,
	httpSlots *semaphore.Weighted) (*ProviderReport, []FailureEntry) {
	p := &providerRun{
		runID:    runID,
		provider: config.Name,
		report:   newProviderReport(),
		seen:     make(map[string]bool),
	}

	start := time.Now()
	defer func() {
		d := time.Since(start)
		p.report.DurationSeconds = d.Seconds()
		metrics.AdapterDuration.WithLabelValues(config.Name).Observe(d.Seconds())
	}()

	providerErr := o.invoke(ctx, p, config, httpSlots)
	if providerErr == nil && p.report.Fetched == 0 {
		providerErr = &source.Failure{Kind: source.ProviderFailure, Provider: config.Name, Err: source.ErrNoCandidates}
	}

	if providerErr != nil {
		kind := source.KindOf(providerErr)
		if kind != source.Timeout {
			kind = source.ProviderFailure
			if errors.Is(providerErr, context.DeadlineExceeded) {
				kind = source.Timeout
			}
		}
		p.fail(kind, "", providerErr)
		slog.Error("Provider failed", "run_id", runID, "provider", config.Name, "kind", kind, "error", providerErr)
	}

	p.report.CleanupEligible = providerErr == nil && p.report.Fetched > 0

	slog.Info("Provider completed", "run_id", runID, "provider", config.Name,
		"fetched", p.report.Fetched, "normalized", p.report.Normalized, "rejected", p.report.Rejected,
		"created", p.report.Created, "updated", p.report.Updated, "skipped", p.report.Skipped,
		"failed", p.report.Failed)
	return p.report, p.failures
}

// invoke acquires the adapter's resource slot, runs the adapter under the
// wall-clock timeout and consumes its candidates. The returned error is the
// provider-level failure, if any.
func (o *Orchestrator) invoke(ctx context.Context, p *providerRun, config *providers.Config,
	httpSlots *semaphore.Weighted) error {
	adapter, err := o.registry.Build(config)
	if err != nil {
		return err
	}

	var getter source.Getter
	if adapter.UsesBrowser() {
		if o.opts.BrowserPool == nil {
			return errors.New("provider needs a browser but no browser pool is configured")
		}
		session, err := o.opts.BrowserPool.Acquire(ctx)
		if err != nil {
			return err
		}
		defer o.opts.BrowserPool.Release(session)
		getter = &source.SessionGetter{Session: session, RenderDelay: config.RenderDelay(), Timeout: config.RequestTimeout()}
	} else {
		if err := httpSlots.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("failed to acquire HTTP slot: %w", err)
		}
		defer httpSlots.Release(1)
		getter = &source.HTTPGetter{Client: o.opts.HTTPClient, UserAgent: o.opts.UserAgent, Timeout: config.RequestTimeout()}
	}

	loader := source.NewFetcher(config.Name, getter, source.FetchOptions{
		Attempts:          o.opts.FetchAttempts,
		RetryInterval:     o.opts.RetryInterval,
		RequestsPerSecond: config.RequestsPerSecond,
	})

	actx, cancel := context.WithTimeout(ctx, o.opts.AdapterTimeout)
	defer cancel()

	candidates := make(chan event.RawCandidate)
	done := make(chan adapterResult, 1)

	emit := func(c event.RawCandidate) bool {
		select {
		case candidates <- c:
			return true
		case <-actx.Done():
			return false
		}
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Adapter panicked", "provider", config.Name, "panic", r, "stack", string(debug.Stack()))
				done <- adapterResult{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		stats, err := adapter.Extract(actx, loader, emit)
		done <- adapterResult{stats: stats, err: err}
	}()

	for {
		select {
		case c := <-candidates:
			o.process(ctx, p, c)

		case res := <-done:
			return o.collect(p, res)

		case <-actx.Done():
			// the adapter may have finished right at the deadline
			select {
			case res := <-done:
				return o.collect(p, res)
			default:
			}
			if ctx.Err() != nil {
				return fmt.Errorf("run cancelled: %w", ctx.Err())
			}
			// abandoned: the adapter goroutine exits on its own once its
			// context-aware loads return; candidates already consumed are kept
			return &source.Failure{Kind: source.Timeout, Provider: config.Name,
				Err: fmt.Errorf("adapter exceeded %s", o.opts.AdapterTimeout)}
		}
	}
}

// collect folds the adapter's own stats into the report and returns its
// provider-level error.
func (o *Orchestrator) collect(p *providerRun, res adapterResult) error {
	for _, f := range res.stats.Failures {
		p.fail(f.Kind, f.URL, f)
		slog.Warn("Item failed", "run_id", p.runID, "provider", p.provider, "kind", f.Kind, "url", f.URL, "error", f.Err)
	}
	return res.err
}

func (o *Orchestrator) process(ctx context.Context, p *providerRun, c event.RawCandidate) {
	p.report.Fetched++
	metrics.ProviderCandidates.WithLabelValues(p.provider, "fetched").Inc()

	ev, rejection := o.normalizer.Run(c)
	if rejection != nil {
		p.report.Rejected++
		p.report.Rejections[string(rejection.Reason)]++
		metrics.ProviderCandidates.WithLabelValues(p.provider, "rejected").Inc()
		slog.Debug("Candidate rejected", "provider", p.provider, "reason", rejection.Reason, "detail", rejection.Detail, "url", c.DetailURL)
		return
	}
	p.report.Normalized++
	metrics.ProviderCandidates.WithLabelValues(p.provider, "normalized").Inc()

	key := ev.Key().String()
	if p.seen[key] {
		p.report.Skipped++
		metrics.ProviderDecisions.WithLabelValues(p.provider, string(dedup.Skip)).Inc()
		slog.Debug("Duplicate candidate in run", "provider", p.provider, "key", key)
		return
	}
	p.seen[key] = true

	var outcome dedup.Outcome
	var err error
	if o.opts.DryRun {
		outcome, _, err = o.engine.Decide(ctx, ev)
	} else {
		outcome, err = o.engine.Apply(ctx, ev)
	}
	if err != nil {
		p.fail(source.PersistenceFailure, ev.SourceURL, err)
		slog.Error("Failed to persist event", "run_id", p.runID, "provider", p.provider, "key", key, "error", err)
		return
	}

	switch outcome.Decision {
	case dedup.Create:
		p.report.Created++
	case dedup.Update:
		p.report.Updated++
	case dedup.Skip:
		p.report.Skipped++
	}
	metrics.ProviderDecisions.WithLabelValues(p.provider, string(outcome.Decision)).Inc()
}

func newRunID() string {
	return uuid.NewString()
}
