package dedup

import (
	"context"
	"fmt"

	"github.com/lysyi3m/race-comb/app/event"
)

type Decision string

const (
	Create Decision = "create"
	Update Decision = "update"
	Skip   Decision = "skip"
)

type Outcome struct {
	Decision Decision
	ID       int64
	Key      event.IdentityKey
}

type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Decide looks the event up by its identity key without writing anything.
func (e *Engine) Decide(ctx context.Context, ev event.CanonicalEvent) (Outcome, *event.CanonicalEvent, error) {
	key := ev.Key()
	existing, err := e.store.FindByIdentityKey(ctx, key)
	if err != nil {
		return Outcome{}, nil, fmt.Errorf("failed to look up %s: %w", key, err)
	}
	if existing == nil {
		return Outcome{Decision: Create, Key: key}, nil, nil
	}
	if existing.Mutable().Equal(ev.Mutable()) {
		return Outcome{Decision: Skip, ID: existing.ID, Key: key}, existing, nil
	}
	return Outcome{Decision: Update, ID: existing.ID, Key: key}, existing, nil
}

// Apply decides and performs the write. On Update only the mutable fields
// are sent to the store.
func (e *Engine) Apply(ctx context.Context, ev event.CanonicalEvent) (Outcome, error) {
	outcome, _, err := e.Decide(ctx, ev)
	if err != nil {
		return Outcome{}, err
	}

	switch outcome.Decision {
	case Create:
		id, err := e.store.CreateEvent(ctx, ev)
		if err != nil {
			return Outcome{}, fmt.Errorf("failed to create %s: %w", outcome.Key, err)
		}
		outcome.ID = id
	case Update:
		if err := e.store.UpdateEvent(ctx, outcome.ID, ev.Mutable()); err != nil {
			return Outcome{}, fmt.Errorf("failed to update %s: %w", outcome.Key, err)
		}
	}

	return outcome, nil
}
