package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractState(projectID string) *domain.BuilderState {
	return &domain.BuilderState{
		ProjectID: projectID,
		Version:   domain.DefaultVersion,
		Nodes: []domain.Node{
			{
				ID:    "posts",
				Type:  domain.NodeTypeDBTable,
				Props: map[string]any{"name": "posts", "columns": []any{map[string]any{"name": "id", "type": "INTEGER"}}},
				Meta:  map[string]any{},
			},
			{
				ID:    "home",
				Type:  domain.NodeTypeUIPage,
				Props: map[string]any{"name": "Home", "route": "/", "bind_table": "posts"},
				Meta:  map[string]any{"x": 10.0},
			},
		},
		Edges:    []domain.Edge{{Source: "posts", Target: "home", Kind: domain.EdgeKindDataFlow}},
		Metadata: map[string]any{"owner": "contract"},
		Exists:   true,
	}
}

// RunProjectStoreContract runs a suite of tests to verify that a ProjectStore implementation
// adheres to the defined interface contract.
func RunProjectStoreContract(t *testing.T, store ProjectStore) {
	ctx := context.Background()
	projectID := "contract-project-" + time.Now().Format("20060102150405")

	t.Run("Put and Get", func(t *testing.T) {
		state := contractState(projectID)
		require.NoError(t, store.Put(ctx, projectID, state), "Put should not return error")

		loaded, err := store.Get(ctx, projectID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, projectID, loaded.ProjectID)
		assert.Equal(t, domain.DefaultVersion, loaded.Version)
		require.Len(t, loaded.Nodes, 2)
		assert.Equal(t, "home", loaded.Nodes[1].ID)
		assert.Equal(t, domain.NodeTypeUIPage, loaded.Nodes[1].Type)
		assert.Equal(t, "posts", loaded.Nodes[1].Props["bind_table"])
		require.Len(t, loaded.Edges, 1)
		assert.Equal(t, domain.EdgeKindDataFlow, loaded.Edges[0].Kind)
		assert.Equal(t, "contract", loaded.Metadata["owner"])
		assert.True(t, loaded.Exists)
	})

	t.Run("Put Isolates Caller", func(t *testing.T) {
		state := contractState(projectID)
		require.NoError(t, store.Put(ctx, projectID, state))
		state.Nodes[0].Props["name"] = "mutated"

		loaded, err := store.Get(ctx, projectID)
		require.NoError(t, err)
		assert.Equal(t, "posts", loaded.Nodes[0].Props["name"])
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+projectID)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, projectID, contractState(projectID)))
		require.NoError(t, store.Delete(ctx, projectID), "Delete should not return error")

		_, err := store.Get(ctx, projectID)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound, "Get after Delete should return ErrProjectNotFound")

		assert.NoError(t, store.Delete(ctx, projectID), "Delete of a missing project is a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := projectID + "-1"
		id2 := projectID + "-2"
		require.NoError(t, store.Put(ctx, id1, contractState(id1)))
		require.NoError(t, store.Put(ctx, id2, contractState(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		projects, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, projects, id1)
		assert.Contains(t, projects, id2)
	})
}

// RunBlobStoreContract verifies that a BlobStore implementation adheres to the interface contract.
func RunBlobStoreContract(t *testing.T, store BlobStore) {
	ctx := context.Background()
	key := "contract-project/" + time.Now().Format("20060102150405") + ".zip"

	t.Run("Store and Fetch", func(t *testing.T) {
		data := []byte("PK\x03\x04 archive bytes")
		require.NoError(t, store.Store(ctx, key, data, domain.ArchiveMIME))

		got, mime, err := store.Fetch(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, data, got)
		assert.Equal(t, domain.ArchiveMIME, mime)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Store(ctx, key, []byte("v2"), "text/plain"))
		got, mime, err := store.Fetch(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
		assert.Equal(t, "text/plain", mime)
	})

	t.Run("Fetch Non-Existent", func(t *testing.T) {
		_, _, err := store.Fetch(ctx, "contract-project/missing.zip")
		assert.ErrorIs(t, err, domain.ErrBlobNotFound)
	})
}

// RunLockerContract verifies mutual exclusion and release for a DistributedLocker.
func RunLockerContract(t *testing.T, locker DistributedLocker) {
	ctx := context.Background()
	key := "contract-lock-" + time.Now().Format("20060102150405")

	unlock, err := locker.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, unlock)

	blocked, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(blocked, key, 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "second Lock must block while the first is held")

	require.NoError(t, unlock(ctx))

	unlock2, err := locker.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.NoError(t, unlock2(ctx))
}
