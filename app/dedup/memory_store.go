package dedup

import (
	"context"
	"fmt"
	"sync"

	"github.com/lysyi3m/race-comb/app/event"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps events in process memory. It backs dry runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	events map[int64]event.CanonicalEvent
	byKey  map[event.IdentityKey]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[int64]event.CanonicalEvent),
		byKey:  make(map[event.IdentityKey]int64),
	}
}

func (s *MemoryStore) FindByIdentityKey(_ context.Context, key event.IdentityKey) (*event.CanonicalEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[key]
	if !ok {
		return nil, nil
	}
	e := s.events[id]
	return &e, nil
}

func (s *MemoryStore) CreateEvent(_ context.Context, e event.CanonicalEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := e.Key()
	if _, exists := s.byKey[key]; exists {
		return 0, fmt.Errorf("event %s already exists", key)
	}

	s.nextID++
	e.ID = s.nextID
	s.events[e.ID] = e
	s.byKey[key] = e.ID
	return e.ID, nil
}

func (s *MemoryStore) UpdateEvent(_ context.Context, id int64, fields event.MutableFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return fmt.Errorf("event %d not found", id)
	}

	e.Apply(fields)
	s.events[id] = e
	return nil
}

func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *MemoryStore) Get(id int64) (event.CanonicalEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	return e, ok
}
