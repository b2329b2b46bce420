package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const busyRetries = 3

// Store implements ports.SnapshotStore on a single SQLite file in WAL mode.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (creating if needed) the database at dbPath.
func New(dbPath string) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS snapshots (
		session_key TEXT PRIMARY KEY,
		body        BLOB NOT NULL,
		saved_at    TEXT NOT NULL
	);`)
	return err
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the snapshot row.
func (s *Store) Save(ctx context.Context, sessionKey string, snapshot *domain.Snapshot) error {
	data, err := domain.MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}

	savedAt := snapshot.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	return withBusyRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO snapshots (session_key, body, saved_at) VALUES (?, ?, ?)
			ON CONFLICT(session_key) DO UPDATE SET body = excluded.body, saved_at = excluded.saved_at`,
			sessionKey, data, savedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		return nil
	})
}

// Load reads the snapshot row.
func (s *Store) Load(ctx context.Context, sessionKey string) (*domain.Snapshot, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM snapshots WHERE session_key = ?`, sessionKey).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		if isCorruption(err) {
			return nil, fmt.Errorf("%w: %w", domain.ErrSnapshotCorrupt, err)
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return domain.UnmarshalSnapshot(body)
}

// Delete removes the snapshot row. Missing rows are not an error.
func (s *Store) Delete(ctx context.Context, sessionKey string) error {
	return withBusyRetry(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE session_key = ?`, sessionKey); err != nil {
			return fmt.Errorf("delete snapshot: %w", err)
		}
		return nil
	})
}

// List returns stored keys ordered by key.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_key FROM snapshots ORDER BY session_key`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan snapshot key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// busy_timeout covers most contention; the retry handles the rest under
// heavy WAL checkpointing.
func withBusyRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < busyRetries; attempt++ {
		if err = fn(); err == nil || !isBusy(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		}
	}
	return err
}

func isBusy(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_BUSY
	}
	return false
}

func isCorruption(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_CORRUPT || code == sqlite3.SQLITE_NOTADB
	}
	return false
}
