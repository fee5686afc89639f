package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *BuilderState {
	return &BuilderState{
		ProjectID: "p1",
		Version:   "1",
		Nodes: []Node{
			{ID: "page", Type: NodeTypeUIPage, Props: map[string]any{"name": "Home", "form": map[string]any{"fields": []any{"a"}}}},
			{ID: "table", Type: NodeTypeDBTable, Props: map[string]any{"name": "posts"}},
			{ID: "lonely", Type: NodeTypeAgentTool, Props: map[string]any{}},
		},
		Edges: []Edge{
			{Source: "page", Target: "table", Kind: EdgeKindDataFlow},
		},
		Metadata: map[string]any{"owner": "me"},
	}
}

func TestBuilderState_CloneIsDeep(t *testing.T) {
	s := sampleState()
	c := s.Clone()

	c.Nodes[0].Props["name"] = "Changed"
	c.Nodes[0].Props["form"].(map[string]any)["fields"].([]any)[0] = "b"
	c.Metadata["owner"] = "you"
	c.Edges[0].Kind = "other"

	assert.Equal(t, "Home", s.Nodes[0].Props["name"])
	assert.Equal(t, "a", s.Nodes[0].Props["form"].(map[string]any)["fields"].([]any)[0])
	assert.Equal(t, "me", s.Metadata["owner"])
	assert.Equal(t, EdgeKindDataFlow, s.Edges[0].Kind)
}

func TestBuilderState_Raw(t *testing.T) {
	s := sampleState()
	raw := s.Raw()
	assert.Equal(t, s.ProjectID, raw.ProjectID)
	assert.Len(t, raw.Nodes, 3)

	raw.Nodes[0].Props["name"] = "X"
	assert.Equal(t, "Home", s.Nodes[0].Props["name"])
}

func TestArena(t *testing.T) {
	a := sampleState().Arena()

	i, ok := a.Index("table")
	require.True(t, ok)
	assert.Equal(t, 1, i)

	n, ok := a.Lookup("page")
	require.True(t, ok)
	assert.Equal(t, NodeTypeUIPage, n.Type)

	_, ok = a.Lookup("ghost")
	assert.False(t, ok)

	require.Len(t, a.Edges, 1)
	assert.Equal(t, EdgeRef{From: 0, To: 1, Kind: EdgeKindDataFlow}, a.Edges[0])
	assert.True(t, a.HasEdge(0, 1, EdgeKindDataFlow))
	assert.True(t, a.HasEdge(0, 1, ""))
	assert.False(t, a.HasEdge(1, 0, ""))
	assert.Equal(t, 0, a.Degree(2))
}

type countingVisitor struct{ seen []NodeType }

func (v *countingVisitor) VisitUIPage(n *Node) error    { return v.add(n) }
func (v *countingVisitor) VisitRestAPI(n *Node) error   { return v.add(n) }
func (v *countingVisitor) VisitDBTable(n *Node) error   { return v.add(n) }
func (v *countingVisitor) VisitAuth(n *Node) error      { return v.add(n) }
func (v *countingVisitor) VisitPayment(n *Node) error   { return v.add(n) }
func (v *countingVisitor) VisitFileStore(n *Node) error { return v.add(n) }
func (v *countingVisitor) VisitAgentTool(n *Node) error { return v.add(n) }
func (v *countingVisitor) add(n *Node) error {
	v.seen = append(v.seen, n.Type)
	return nil
}

func TestNode_Accept(t *testing.T) {
	v := &countingVisitor{}
	for _, typ := range NodeTypes {
		n := &Node{ID: string(typ), Type: typ}
		require.NoError(t, n.Accept(v))
	}
	assert.Equal(t, NodeTypes, v.seen)

	err := (&Node{ID: "x", Type: "not_a_real_type"}).Accept(v)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchema)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "type", schemaErr.Field)
}

func TestErrors_Unwrap(t *testing.T) {
	cause := errors.New("boom")

	assert.ErrorIs(t, &GraphIntegrityError{Edge: 0, NodeID: "x", Reason: "unknown target"}, ErrGraphIntegrity)
	assert.ErrorIs(t, &GenerationError{Generator: "db", NodeID: "t", Err: cause}, ErrGeneration)
	assert.ErrorIs(t, &GenerationError{Generator: "db", NodeID: "t", Err: cause}, cause)
	assert.ErrorIs(t, &PackagingError{Path: "a", Reason: "collision"}, ErrPackaging)

	err := &GraphIntegrityError{Edge: 2, NodeID: "ghost", Reason: "unknown target"}
	assert.Equal(t, `graph integrity error: edge 2: unknown target "ghost"`, err.Error())
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := LifecycleHooks{OnStageEnter: func(_ context.Context, e *StageEvent) { calls = append(calls, "a") }}
	b := LifecycleHooks{OnStageEnter: func(_ context.Context, e *StageEvent) { calls = append(calls, "b") }}

	merged := a.Merge(b)
	merged.OnStageEnter(context.Background(), &StageEvent{})
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Nil(t, merged.OnCompileDone)
}
