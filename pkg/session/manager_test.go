package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingLocker records lock usage and detects overlapping holders.
type countingLocker struct {
	mu      sync.Mutex
	held    bool
	overlap bool
	locks   int
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		l.overlap = true
	}
	l.held = true
	l.locks++
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		return nil
	}, nil
}

func TestManager_SerialisesReadModifyWrite(t *testing.T) {
	mgr := session.NewManager(memory.NewStore())
	ctx := context.Background()
	key := "race-test"

	require.NoError(t, mgr.Save(ctx, key, &domain.Snapshot{SessionKey: key, Payloads: domain.Payloads{}}))

	var wg sync.WaitGroup
	const writers = 20
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithLock(ctx, key, func(ctx context.Context) error {
				snap, err := mgr.Backend().Load(ctx, key)
				if err != nil {
					return err
				}
				time.Sleep(time.Millisecond)
				snap.CurrentIndex++
				return mgr.Backend().Save(ctx, key, snap)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := mgr.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, writers, snap.CurrentIndex, "no update may be lost")
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &countingLocker{}
	mgr := session.NewManager(memory.NewStore(), session.WithLocker(locker))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.Save(ctx, "k", &domain.Snapshot{SessionKey: "k"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, locker.locks)
	assert.False(t, locker.overlap, "local mutex must serialise distributed lock holders")
}
