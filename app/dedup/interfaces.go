package dedup

import (
	"context"

	"github.com/lysyi3m/race-comb/app/event"
)

// Store is the persisted-event collaborator. FindByIdentityKey returns
// (nil, nil) when nothing matches. The engine never deletes.
type Store interface {
	FindByIdentityKey(ctx context.Context, key event.IdentityKey) (*event.CanonicalEvent, error)
	CreateEvent(ctx context.Context, e event.CanonicalEvent) (int64, error)
	UpdateEvent(ctx context.Context, id int64, fields event.MutableFields) error
}
