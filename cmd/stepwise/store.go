package main

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/stepwise/internal/config"
	"github.com/aretw0/stepwise/pkg/adapters/file"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
	redisadapter "github.com/aretw0/stepwise/pkg/adapters/redis"
	"github.com/aretw0/stepwise/pkg/adapters/sqlite"
	"github.com/aretw0/stepwise/pkg/persistence/middleware"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/aretw0/stepwise/pkg/session"
)

// storage bundles the opened snapshot backend with the session store on top.
type storage struct {
	backend ports.SnapshotStore
	store   *session.Store
	close   func() error
}

// openStorage builds the configured backend and wraps it with redaction and
// encryption. Redaction runs first so masked values are what gets encrypted.
func openStorage(c config.StoreConfig, logger *slog.Logger) (*storage, error) {
	var (
		raw     ports.SnapshotStore
		closeFn = func() error { return nil }
		opts    = []session.Option{session.WithLogger(logger)}
	)

	switch c.Backend {
	case "memory":
		raw = memory.NewStore()
	case "file":
		raw = file.New(c.Path)
	case "sqlite":
		s, err := sqlite.New(c.Path)
		if err != nil {
			return nil, err
		}
		raw, closeFn = s, s.Close
	case "redis":
		s := redisadapter.New(c.Redis.Addr, c.Redis.Password, c.Redis.DB,
			redisadapter.WithPrefix(c.Redis.Prefix),
			redisadapter.WithTTL(c.Redis.TTL),
		)
		raw, closeFn = s, s.Close
		opts = append(opts,
			session.WithLocker(redisadapter.NewLocker(s.Client(), s.Prefix())),
			session.WithLockTTL(c.Redis.LockTTL),
		)
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Backend)
	}

	var mws []middleware.Middleware
	if len(c.Redact) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(c.Redact))
	}
	key, err := c.Key()
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	if key != nil {
		fallback, err := c.FallbackKeys()
		if err != nil {
			_ = closeFn()
			return nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    key,
			FallbackKeys: fallback,
		}))
	}

	backend := middleware.Chain(raw, mws...)
	logger.Debug("storage opened", "backend", c.Backend, "encrypted", key != nil, "redacted", len(c.Redact))
	return &storage{
		backend: backend,
		store:   session.NewStore(backend, opts...),
		close:   closeFn,
	}, nil
}
