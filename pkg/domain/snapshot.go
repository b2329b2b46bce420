package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the durable form of a session: its committed payloads.
type Snapshot struct {
	SessionKey string   `json:"session_key"`
	Payloads   Payloads `json:"payloads"`

	// CurrentIndex is informational; Resume derives the position from Payloads.
	CurrentIndex int       `json:"current_index"`
	SavedAt      time.Time `json:"saved_at"`
}

// Clone returns a copy so stores never share payload maps with callers.
func (s *Snapshot) Clone() *Snapshot {
	out := *s
	out.Payloads = s.Payloads.Clone()
	return &out
}

// MarshalSnapshot encodes a snapshot as JSON.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot decodes a snapshot. Any structural problem is reported as
// ErrSnapshotCorrupt so stores and the session layer can treat it as absent.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotCorrupt, err)
	}
	if s.SessionKey == "" {
		return nil, fmt.Errorf("%w: missing session key", ErrSnapshotCorrupt)
	}
	if s.Payloads == nil {
		s.Payloads = Payloads{}
	}
	return &s, nil
}
