package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Snapshot
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Snapshot),
	}
}

// Save persists the snapshot in memory.
func (s *Store) Save(ctx context.Context, sessionKey string, snapshot *domain.Snapshot) error {
	// Copy to ensure isolation, similar to serialization
	copied := snapshot.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionKey] = copied
	return nil
}

// Load retrieves the snapshot from memory.
func (s *Store) Load(ctx context.Context, sessionKey string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[sessionKey]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	// Copy on read so callers can't mutate store state through the pointer
	return snap.Clone(), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(ctx context.Context, sessionKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionKey)
	return nil
}

// List returns stored session keys in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
