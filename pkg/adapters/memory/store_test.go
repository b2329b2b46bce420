package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSnapshotStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	snap := &domain.Snapshot{SessionKey: "k", Payloads: domain.Payloads{"a": domain.NewSelectionPayload("1")}}
	require.NoError(t, store.Save(ctx, "k", snap))

	snap.Payloads["b"] = domain.NewSelectionPayload("2")

	loaded, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Len(t, loaded.Payloads, 1, "caller mutation must not leak into the store")

	loaded.Payloads["c"] = domain.NewSelectionPayload("3")
	again, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Len(t, again.Payloads, 1)
}
