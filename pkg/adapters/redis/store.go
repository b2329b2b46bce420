package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "stepwise:session:"

// noExpiry is the index score used when sessions never expire (2100-01-01).
const noExpiry = 4102444800

// Store implements ports.SnapshotStore using Redis.
// Snapshots live under <prefix><key>; a sorted set at <prefix>index tracks
// live keys scored by their expiry so List can prune lazily.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Store)

// WithTTL sets the expiration for snapshots.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for snapshots.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithClock overrides the clock used to score the expiry index.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: defaultPrefix,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client so a Locker can share the connection.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Prefix returns the configured key prefix.
func (s *Store) Prefix() string {
	return s.prefix
}

func (s *Store) key(sessionKey string) string {
	return s.prefix + sessionKey
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the snapshot to Redis.
func (s *Store) Save(ctx context.Context, sessionKey string, snapshot *domain.Snapshot) error {
	data, err := domain.MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}

	score := float64(s.now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = noExpiry
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(sessionKey), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: sessionKey})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the snapshot from Redis.
func (s *Store) Load(ctx context.Context, sessionKey string) (*domain.Snapshot, error) {
	val, err := s.client.Get(ctx, s.key(sessionKey)).Bytes()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	return domain.UnmarshalSnapshot(val)
}

// Delete removes the snapshot and its index entry.
func (s *Store) Delete(ctx context.Context, sessionKey string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(sessionKey))
	pipe.ZRem(ctx, s.indexKey(), sessionKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// List returns live session keys, pruning expired index entries first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(s.now().Unix(), 10)
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", "("+now).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	keys, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return keys, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
