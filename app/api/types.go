package api

import (
	"context"

	"github.com/lysyi3m/race-comb/app/event"
	"github.com/lysyi3m/race-comb/app/ingest"
	"github.com/lysyi3m/race-comb/app/providers"
)

// RunStarter is the trigger surface of the orchestrator.
type RunStarter interface {
	Start(ctx context.Context, filter []string) (string, <-chan *ingest.RunReport, error)
	Tracker() *ingest.Tracker
}

type ProviderConfigs interface {
	GetConfigs() map[string]*providers.Config
	GetConfigCount() int
}

type EventReader interface {
	CountEvents(ctx context.Context) (int, error)
	CountEventsByPlatform(ctx context.Context) (map[string]int, error)
	GetEvent(ctx context.Context, id int64) (*event.CanonicalEvent, error)
}

type Handler struct {
	// runCtx outlives requests; background runs are bound to it
	runCtx      context.Context
	runner      RunStarter
	configCache ProviderConfigs
	events      EventReader
}

type startRunRequest struct {
	Providers []string `json:"providers"`
}

type providerInfo struct {
	Name             string   `json:"name"`
	Kind             string   `json:"kind"`
	Enabled          bool     `json:"enabled"`
	Browser          bool     `json:"browser"`
	URLs             []string `json:"urls"`
	RegionFilter     string   `json:"region_filter,omitempty"`
	RequestTimeoutMs int      `json:"request_timeout_ms"`
	Events           int      `json:"events"`
}
