package session

import (
	"log/slog"
	"time"

	"github.com/aretw0/stepwise/pkg/ports"
)

const defaultLockTTL = 30 * time.Second

type config struct {
	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Manager or a Store.
type Option func(*config)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(c *config) {
		c.locker = locker
	}
}

// WithLockTTL sets how long a distributed lock survives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for internal events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the clock used to stamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}
