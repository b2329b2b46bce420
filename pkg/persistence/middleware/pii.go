package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// Mask replaces redacted field values in stored snapshots.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SnapshotStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks field values whose key matches
// any of the patterns before the snapshot reaches the store. Selection payloads
// are ids only and pass through untouched. On load, a fields payload holding a
// masked value is dropped, so a resumed session asks for that step again
// instead of committing the mask.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SnapshotStore) ports.SnapshotStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, sessionKey string, snapshot *domain.Snapshot) error {
	cloned := snapshot.Clone()
	for stepID, p := range cloned.Payloads {
		fields, ok := p.(domain.FieldsPayload)
		if !ok {
			continue
		}
		values := deepCopyMap(fields.Values)
		maskMap(values, m.patterns)
		cloned.Payloads[stepID] = domain.NewFieldsPayload(values)
	}
	return m.next.Save(ctx, sessionKey, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionKey string) (*domain.Snapshot, error) {
	snap, err := m.next.Load(ctx, sessionKey)
	if err != nil || snap == nil {
		return snap, err
	}
	snap = snap.Clone()
	for stepID, p := range snap.Payloads {
		if fields, ok := p.(domain.FieldsPayload); ok && hasMask(fields.Values, m.patterns) {
			delete(snap.Payloads, stepID)
		}
	}
	return snap, nil
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionKey string) error {
	return m.next.Delete(ctx, sessionKey)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}

		if subMap, ok := v.(map[string]any); ok && !masked {
			maskMap(subMap, patterns)
		}
	}
}

func hasMask(m map[string]any, patterns []*regexp.Regexp) bool {
	for k, v := range m {
		if v == Mask {
			for _, p := range patterns {
				if p.MatchString(k) {
					return true
				}
			}
		}
		if subMap, ok := v.(map[string]any); ok && hasMask(subMap, patterns) {
			return true
		}
	}
	return false
}
