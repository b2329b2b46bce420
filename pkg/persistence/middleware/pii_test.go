package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewStore()
	secure := middleware.NewPIIMiddleware([]string{"password", "ssn"})(underlying)
	ctx := context.Background()

	values := map[string]any{
		"username":      "jdoe",
		"user_password": "secret123",
		"details": map[string]any{
			"address":    "123 St",
			"ssn_number": "999-99-9999",
		},
	}
	snap := &domain.Snapshot{
		SessionKey: "pii",
		Payloads: domain.Payloads{
			"basic-info": domain.NewFieldsPayload(values),
			"modules":    domain.NewSelectionPayload("password-reset"),
		},
	}

	require.NoError(t, secure.Save(ctx, "pii", snap))

	original := snap.Payloads["basic-info"].(domain.FieldsPayload)
	assert.Equal(t, "secret123", original.Values["user_password"], "in-memory snapshot must not change")
	assert.Equal(t, "999-99-9999", original.Values["details"].(map[string]any)["ssn_number"])

	stored, err := underlying.Load(ctx, "pii")
	require.NoError(t, err)
	fields := stored.Payloads["basic-info"].(domain.FieldsPayload)
	assert.Equal(t, "jdoe", fields.Values["username"])
	assert.Equal(t, middleware.Mask, fields.Values["user_password"])
	assert.Equal(t, middleware.Mask, fields.Values["details"].(map[string]any)["ssn_number"])
	assert.Equal(t, "123 St", fields.Values["details"].(map[string]any)["address"])

	sel, ok := stored.Payloads.Selection("modules")
	require.True(t, ok)
	assert.True(t, sel.Has("password-reset"), "selection ids are never masked")
}

func TestChain_Order(t *testing.T) {
	underlying := memory.NewStore()
	key := generateKey(t)
	store := middleware.Chain(underlying,
		middleware.NewPIIMiddleware([]string{"secret"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s", profileSnapshot("s", "hidden")))

	decrypted, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})(underlying).Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, decrypted.Payloads["profile"].(domain.FieldsPayload).Values["secret"],
		"masking runs before encryption")

	loaded, err := store.Load(ctx, "s")
	require.NoError(t, err)
	assert.NotContains(t, loaded.Payloads, "profile")
}

func TestPIIMiddleware_LoadDropsMaskedPayloads(t *testing.T) {
	underlying := memory.NewStore()
	store := middleware.NewPIIMiddleware([]string{"ssn"})(underlying)
	ctx := context.Background()

	snap := &domain.Snapshot{
		SessionKey: "k",
		Payloads: domain.Payloads{
			"modules":  domain.NewSelectionPayload("hr"),
			"identity": domain.NewFieldsPayload(map[string]any{"name": "Ann", "ssn": "123-45-6789"}),
			"notes":    domain.NewFieldsPayload(map[string]any{"reason": "audit"}),
			"literal":  domain.NewFieldsPayload(map[string]any{"comment": middleware.Mask}),
		},
	}
	require.NoError(t, store.Save(ctx, "k", snap))

	loaded, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.NotContains(t, loaded.Payloads, "identity")
	assert.Contains(t, loaded.Payloads, "modules")
	assert.Contains(t, loaded.Payloads, "notes")
	assert.Contains(t, loaded.Payloads, "literal", "only keys matching a pattern count as masked")

	raw, err := underlying.Load(ctx, "k")
	require.NoError(t, err)
	assert.Contains(t, raw.Payloads, "identity", "the stored snapshot is left alone")
}
