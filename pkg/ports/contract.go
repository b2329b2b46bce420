package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore
// implementation adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	sessionKey := "contract-test-session-" + time.Now().Format("20060102150405")

	newSnapshot := func(key string) *domain.Snapshot {
		return &domain.Snapshot{
			SessionKey: key,
			Payloads: domain.Payloads{
				"modules": domain.NewSelectionPayload("hr", "finance"),
				"profile": domain.NewFieldsPayload(map[string]any{"name": "Ada", "age": 36}),
			},
			CurrentIndex: 2,
			SavedAt:      time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		snap := newSnapshot(sessionKey)

		err := store.Save(ctx, sessionKey, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionKey)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionKey, loaded.SessionKey)
		assert.Equal(t, 2, loaded.CurrentIndex)

		sel, ok := loaded.Payloads.Selection("modules")
		require.True(t, ok, "selection payload should keep its variant")
		assert.Equal(t, []string{"finance", "hr"}, sel.IDs())

		fields, ok := loaded.Payloads["profile"].(domain.FieldsPayload)
		require.True(t, ok, "fields payload should keep its variant")
		assert.Equal(t, "Ada", fields.Values["name"])
		// JSON persistence turns ints into float64; only check presence.
		assert.NotNil(t, fields.Values["age"])
	})

	t.Run("Overwrite", func(t *testing.T) {
		first := newSnapshot(sessionKey)
		second := newSnapshot(sessionKey)
		second.Payloads = domain.Payloads{"modules": domain.NewSelectionPayload("ops")}

		require.NoError(t, store.Save(ctx, sessionKey, first))
		require.NoError(t, store.Save(ctx, sessionKey, second))

		loaded, err := store.Load(ctx, sessionKey)
		require.NoError(t, err)
		sel, _ := loaded.Payloads.Selection("modules")
		assert.Equal(t, []string{"ops"}, sel.IDs(), "last writer wins")
		assert.NotContains(t, loaded.Payloads, "profile")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionKey)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionKey, newSnapshot(sessionKey))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionKey)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionKey)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionKey), "Delete should be idempotent")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionKey + "-1"
		id2 := sessionKey + "-2"
		_ = store.Save(ctx, id1, newSnapshot(id1))
		_ = store.Save(ctx, id2, newSnapshot(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
