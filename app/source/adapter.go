package source

import (
	"context"

	"github.com/lysyi3m/race-comb/app/event"
	"github.com/lysyi3m/race-comb/app/providers"
)

// Page is one loaded document.
type Page struct {
	URL         string
	Body        []byte
	ContentType string
}

// Loader fetches pages for an adapter. The orchestrator decides whether it
// is backed by plain HTTP or a headless browser session.
type Loader interface {
	Load(ctx context.Context, url string) (*Page, error)
}

// Emit hands one candidate to the pipeline. A false return means the
// consumer stopped and the adapter should return.
type Emit func(event.RawCandidate) bool

// Adapter extracts raw candidates for one provider. Each call re-fetches
// from scratch; candidates are emitted in discovery order. Per-item
// failures go into Stats; an error return means the provider as a whole
// failed.
type Adapter interface {
	Provider() string
	UsesBrowser() bool
	Extract(ctx context.Context, load Loader, emit Emit) (Stats, error)
}

// Factory builds an adapter from its provider config.
type Factory func(config *providers.Config) (Adapter, error)

type base struct {
	config *providers.Config
}

func (b base) Provider() string {
	return b.config.Name
}

func (b base) UsesBrowser() bool {
	return b.config.Browser
}
