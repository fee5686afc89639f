package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/persistence/middleware"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func secretState(projectID string) *domain.BuilderState {
	return &domain.BuilderState{
		ProjectID: projectID,
		Version:   domain.DefaultVersion,
		Nodes: []domain.Node{{
			ID:    "billing",
			Type:  domain.NodeTypePayment,
			Props: map[string]any{"provider": "stripe", "api_key": "sk_live_123"},
			Meta:  map[string]any{},
		}},
		Edges:    []domain.Edge{},
		Metadata: map[string]any{"owner": "ana"},
	}
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunProjectStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	secure := mw(underlying)
	ctx := context.Background()

	require.NoError(t, secure.Put(ctx, "shop", secretState("shop")))

	stored, err := underlying.Get(ctx, "shop")
	require.NoError(t, err)
	assert.Empty(t, stored.Nodes)
	assert.NotContains(t, stored.Metadata, "owner")
	assert.Contains(t, stored.Metadata, "__encrypted__")
	assert.Equal(t, "shop", stored.ProjectID)

	loaded, err := secure.Get(ctx, "shop")
	require.NoError(t, err)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, "sk_live_123", loaded.Nodes[0].Props["api_key"])
	assert.Equal(t, "ana", loaded.Metadata["owner"])
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	oldStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	require.NoError(t, oldStore.Put(ctx, "shop", secretState("shop")))

	rotated := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)

	loaded, err := rotated.Get(ctx, "shop")
	require.NoError(t, err, "fallback key should decrypt old data")
	assert.Equal(t, "stripe", loaded.Nodes[0].Props["provider"])

	require.NoError(t, rotated.Put(ctx, "shop", loaded))
	_, err = oldStore.Get(ctx, "shop")
	assert.Error(t, err, "old key alone cannot read data written with the new key")
}

func TestEncryptionMiddleware_RejectsPlainState(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Put(ctx, "shop", secretState("shop")))

	secure := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err := secure.Get(ctx, "shop")
	assert.ErrorContains(t, err, "missing encrypted data envelope")

	_, err = secure.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
	_, err := middleware.NewEncryptedBlobStore(memory.NewBlobStore(), middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.ErrorIs(t, err, middleware.ErrKeySize)
}

func TestEncryptedBlobStore(t *testing.T) {
	underlying := memory.NewBlobStore()
	store, err := middleware.NewEncryptedBlobStore(underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	ports.RunBlobStoreContract(t, store)

	ctx := context.Background()
	data := []byte("PK\x03\x04 archive")
	require.NoError(t, store.Store(ctx, "shop/b1.zip", data, domain.ArchiveMIME))

	raw, mime, err := underlying.Fetch(ctx, "shop/b1.zip")
	require.NoError(t, err)
	assert.NotEqual(t, data, raw)
	assert.Equal(t, domain.ArchiveMIME, mime)

	got, _, err := store.Fetch(ctx, "shop/b1.zip")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
