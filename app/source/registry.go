package source

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lysyi3m/race-comb/app/providers"
)

const (
	KindText  = "text"
	KindCards = "cards"
	KindJSON  = "json"
	KindFeed  = "feed"
)

// builtinProviders are the sites whose strategy is known without a kind in
// their YAML file.
var builtinProviders = map[string]string{
	"corridasbr":       KindText,
	"brasilcorrida":    KindText,
	"corridasdorio":    KindText,
	"ticketsports":     KindCards,
	"minhasinscricoes": KindCards,
	"ativo":            KindCards,
	"sportsmania":      KindCards,
	"centraldacorrida": KindJSON,
	"runnerbrasil":     KindFeed,
}

// Registry maps provider identifiers to extraction strategies and builds
// adapters for them.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	providers map[string]string
}

func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		providers: make(map[string]string),
	}
	r.Register(KindText, NewTextAdapter)
	r.Register(KindCards, NewCardsAdapter)
	r.Register(KindJSON, NewJSONAdapter)
	r.Register(KindFeed, NewFeedAdapter)
	for name, kind := range builtinProviders {
		r.RegisterProvider(name, kind)
	}
	return r
}

func (r *Registry) Register(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

func (r *Registry) RegisterProvider(name, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = kind
}

// KindFor resolves the strategy for a provider: an explicit kind wins,
// otherwise the provider must be known to the registry.
func (r *Registry) KindFor(name, kind string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if kind != "" {
		if _, ok := r.factories[kind]; !ok {
			return "", fmt.Errorf("provider %s: unsupported kind %q", name, kind)
		}
		return kind, nil
	}
	if k, ok := r.providers[name]; ok {
		return k, nil
	}
	return "", fmt.Errorf("provider %s: %w (set kind explicitly)", name, ErrUnknownProvider)
}

func (r *Registry) Build(config *providers.Config) (Adapter, error) {
	kind, err := r.KindFor(config.Name, config.Kind)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	factory := r.factories[kind]
	r.mu.RUnlock()

	adapter, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s adapter for %s: %w", kind, config.Name, err)
	}
	return adapter, nil
}

// Kinds lists the registered strategy kinds.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
