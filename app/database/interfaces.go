package database

import (
	"context"

	"github.com/lysyi3m/race-comb/app/dedup"
	"github.com/lysyi3m/race-comb/app/event"
)

var _ EventRepository = (*SQLEventRepository)(nil)

type EventRepository interface {
	dedup.Store

	CountEvents(ctx context.Context) (int, error)
	CountEventsByPlatform(ctx context.Context) (map[string]int, error)
	GetEvent(ctx context.Context, id int64) (*event.CanonicalEvent, error)
}
