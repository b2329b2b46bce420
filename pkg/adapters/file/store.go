package file

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
)

const ext = ".json"

// Store implements ports.SnapshotStore using the local filesystem.
// It stores one JSON file per session key in a configured directory.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".stepwise/sessions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".stepwise", "sessions")
	}
	return &Store{BasePath: basePath}
}

// Session keys are caller supplied and often contain ':' or '/', so the file
// name is the base64url form of the key.
func fileName(sessionKey string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(sessionKey)) + ext
}

func (s *Store) path(sessionKey string) string {
	return filepath.Join(s.BasePath, fileName(sessionKey))
}

// Save persists the snapshot to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, sessionKey string, snapshot *domain.Snapshot) error {
	if sessionKey == "" {
		return fmt.Errorf("sessionKey cannot be empty")
	}

	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	data, err := domain.MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}

	// Same directory keeps us on one filesystem, which rename requires.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op after a successful rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	destPath := s.path(sessionKey)
	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing snapshot for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to snapshot: %w", err)
	}
	return nil
}

// Load retrieves the snapshot from its JSON file.
func (s *Store) Load(ctx context.Context, sessionKey string) (*domain.Snapshot, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("sessionKey cannot be empty")
	}

	data, err := os.ReadFile(s.path(sessionKey))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	return domain.UnmarshalSnapshot(data)
}

// Delete removes the snapshot file.
func (s *Store) Delete(ctx context.Context, sessionKey string) error {
	if sessionKey == "" {
		return fmt.Errorf("sessionKey cannot be empty")
	}

	err := os.Remove(s.path(sessionKey))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot file: %w", err)
	}
	return nil
}

// List returns all stored session keys.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, ext))
		if err != nil {
			continue // not ours
		}
		keys = append(keys, string(raw))
	}
	sort.Strings(keys)
	return keys, nil
}
