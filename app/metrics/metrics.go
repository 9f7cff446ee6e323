package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "race_comb_runs_total",
			Help: "Ingestion runs by final status",
		},
		[]string{"status"}, // "completed", "rejected"
	)

	RunInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "race_comb_run_in_progress",
			Help: "1 while an ingestion run is active",
		},
	)

	ProviderCandidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "race_comb_provider_candidates_total",
			Help: "Candidates per provider by normalization outcome",
		},
		[]string{"provider", "outcome"}, // "fetched", "normalized", "rejected"
	)

	ProviderDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "race_comb_provider_decisions_total",
			Help: "Dedup decisions per provider",
		},
		[]string{"provider", "decision"},
	)

	ProviderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "race_comb_provider_failures_total",
			Help: "Failures per provider by kind",
		},
		[]string{"provider", "kind"},
	)

	AdapterDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "race_comb_adapter_duration_seconds",
			Help:    "Wall-clock duration of one adapter invocation",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"provider"},
	)

	PageFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "race_comb_page_fetches_total",
			Help: "Page loads per provider by result",
		},
		[]string{"provider", "result"}, // "success", "retry", "failure"
	)

	BrowserSlotsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "race_comb_browser_slots_in_use",
			Help: "Headless browser sessions currently held",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "race_comb_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
