package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/stepwise/internal/logging"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serialises snapshot access per session key.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.SnapshotStore
	cfg   config

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // active locks by session key
}

// NewManager creates a new Manager over the given snapshot store.
func NewManager(store ports.SnapshotStore, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		locks: make(map[string]*lockEntry),
		cfg: config{
			lockTTL: defaultLockTTL,
			logger:  logging.NewNop(),
			now:     time.Now,
		},
	}
	for _, opt := range opts {
		opt(&m.cfg)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// Load retrieves a snapshot under the session lock.
func (m *Manager) Load(ctx context.Context, key string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, key)
		return err
	})
	return snap, err
}

// Save persists a snapshot under the session lock.
func (m *Manager) Save(ctx context.Context, key string, snap *domain.Snapshot) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		return m.store.Save(ctx, key, snap)
	})
}

// Delete removes a snapshot under the session lock.
func (m *Manager) Delete(ctx context.Context, key string) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		return m.store.Delete(ctx, key)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Backend returns the underlying snapshot store.
func (m *Manager) Backend() ports.SnapshotStore {
	return m.store
}

// WithLock executes fn while holding the lock for the session key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.cfg.locker != nil {
		unlock, err := m.cfg.locker.Lock(ctx, key, m.cfg.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// A canceled request context must not leave the lock held until TTL.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.cfg.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
