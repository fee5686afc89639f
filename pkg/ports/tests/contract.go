package tests

import (
	"context"
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GraphSourceContractTest verifies that a GraphSource yields a raw state holding exactly
// the expected node ids with their types, for a project id it has to carry through.
func GraphSourceContractTest(t *testing.T, source ports.GraphSource, projectID string, want map[string]domain.NodeType) {
	t.Helper()

	raw, err := source.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, raw)

	t.Run("ProjectID", func(t *testing.T) {
		assert.Equal(t, projectID, raw.ProjectID)
	})

	t.Run("Nodes", func(t *testing.T) {
		got := make(map[string]domain.NodeType, len(raw.Nodes))
		for _, n := range raw.Nodes {
			got[n.ID] = n.Type
		}
		assert.Equal(t, want, got)
	})

	t.Run("EdgesReferenceKnownNodes", func(t *testing.T) {
		for i, e := range raw.Edges {
			assert.Contains(t, want, e.Source, "edge %d source", i)
			assert.Contains(t, want, e.Target, "edge %d target", i)
		}
	})
}
