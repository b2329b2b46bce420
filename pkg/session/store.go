package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// Store persists committed payloads so an interrupted wizard can resume.
type Store struct {
	*Manager
}

// NewStore wraps a snapshot backend.
func NewStore(backend ports.SnapshotStore, opts ...Option) *Store {
	return &Store{Manager: NewManager(backend, opts...)}
}

// NewStoreFromManager reuses an existing Manager, sharing its locks.
func NewStoreFromManager(m *Manager) *Store {
	return &Store{Manager: m}
}

// SavePayloads overwrites the snapshot for key. Last writer wins.
func (s *Store) SavePayloads(ctx context.Context, key string, payloads domain.Payloads, currentIndex int) error {
	snap := &domain.Snapshot{
		SessionKey:   key,
		Payloads:     payloads.Clone(),
		CurrentIndex: currentIndex,
		SavedAt:      s.cfg.now().UTC(),
	}
	if err := s.Save(ctx, key, snap); err != nil {
		return fmt.Errorf("save snapshot %q: %w", key, err)
	}
	return nil
}

// LoadPayloads returns the saved payloads for key.
// A missing or corrupt snapshot reports found=false; corrupt entries are
// deleted so they are not read again. Other I/O errors propagate.
func (s *Store) LoadPayloads(ctx context.Context, key string) (domain.Payloads, bool, error) {
	var (
		payloads domain.Payloads
		found    bool
	)
	err := s.WithLock(ctx, key, func(ctx context.Context) error {
		snap, err := s.store.Load(ctx, key)
		switch {
		case err == nil:
			payloads, found = snap.Payloads, true
			return nil
		case errors.Is(err, domain.ErrSessionNotFound):
			return nil
		case errors.Is(err, domain.ErrSnapshotCorrupt):
			s.cfg.logger.Warn("Discarding unreadable snapshot",
				"session_key", key,
				"err", err,
			)
			if delErr := s.store.Delete(ctx, key); delErr != nil {
				s.cfg.logger.Warn("Failed to delete unreadable snapshot",
					"session_key", key,
					"err", delErr,
				)
			}
			return nil
		default:
			return fmt.Errorf("load snapshot %q: %w", key, err)
		}
	})
	if err != nil {
		return nil, false, err
	}
	if payloads == nil && found {
		payloads = domain.Payloads{}
	}
	return payloads, found, nil
}

// Clear removes the snapshot for key. Clearing an absent key is a no-op.
func (s *Store) Clear(ctx context.Context, key string) error {
	if err := s.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return fmt.Errorf("clear snapshot %q: %w", key, err)
	}
	return nil
}
