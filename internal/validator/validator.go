package validator

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/registry"
	"github.com/google/uuid"
)

// Normalizer turns raw graphs into BuilderStates.
type Normalizer struct {
	registry *registry.Registry
	newID    func() string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithIDGenerator replaces the UUID generator used for nodes without an id.
func WithIDGenerator(fn func() string) Option {
	return func(n *Normalizer) { n.newID = fn }
}

// WithRegistry replaces the built-in type registry.
func WithRegistry(r *registry.Registry) Option {
	return func(n *Normalizer) { n.registry = r }
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		registry: registry.New(),
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var defaultNormalizer = New()

// Normalize builds a BuilderState with the default Normalizer.
func Normalize(raw *domain.RawState) (*domain.BuilderState, error) {
	return defaultNormalizer.Normalize(raw)
}

// FromState re-normalizes an existing state. For a normalized state the result is equal to the input.
func FromState(s *domain.BuilderState) (*domain.BuilderState, error) {
	return defaultNormalizer.Normalize(s.Raw())
}

// Normalize validates raw and returns the canonical state.
// The input is not modified. The first violation aborts with a
// *domain.SchemaError or *domain.GraphIntegrityError.
func (n *Normalizer) Normalize(raw *domain.RawState) (*domain.BuilderState, error) {
	if raw == nil {
		return nil, &domain.SchemaError{Field: "state", Reason: "missing"}
	}
	if raw.ProjectID == "" {
		return nil, &domain.SchemaError{Field: "project_id", Reason: "required"}
	}

	state := &domain.BuilderState{
		ProjectID: raw.ProjectID,
		Version:   raw.Version,
		Nodes:     make([]domain.Node, 0, len(raw.Nodes)),
		Edges:     make([]domain.Edge, 0, len(raw.Edges)),
		Metadata:  domain.CopyMap(raw.Metadata),
		Exists:    raw.Exists,
	}
	if state.Version == "" {
		state.Version = domain.DefaultVersion
	}
	if state.Metadata == nil {
		state.Metadata = make(map[string]any)
	}

	for i := range raw.Nodes {
		node, err := n.node(&raw.Nodes[i])
		if err != nil {
			return nil, err
		}
		state.Nodes = append(state.Nodes, node)
	}

	for _, e := range raw.Edges {
		if e.Kind == "" {
			e.Kind = domain.EdgeKindDefault
		}
		state.Edges = append(state.Edges, e)
	}

	if err := checkIntegrity(state); err != nil {
		return nil, err
	}
	return state, nil
}

func (n *Normalizer) node(raw *domain.Node) (domain.Node, error) {
	if !raw.Type.Valid() {
		return domain.Node{}, &domain.SchemaError{
			NodeID: raw.ID,
			Field:  "type",
			Reason: fmt.Sprintf("unknown node type %q", raw.Type),
		}
	}

	node := domain.Node{
		ID:   raw.ID,
		Type: raw.Type,
		Meta: domain.CopyMap(raw.Meta),
	}
	if node.ID == "" {
		node.ID = n.newID()
	}
	if node.Meta == nil {
		node.Meta = make(map[string]any)
	}

	props, err := n.registry.Coerce(&domain.Node{ID: node.ID, Type: raw.Type, Props: raw.Props})
	if err != nil {
		return domain.Node{}, err
	}
	node.Props = props
	return node, nil
}

// checkIntegrity verifies that node ids are unique and that every edge endpoint exists.
func checkIntegrity(s *domain.BuilderState) error {
	ids := make(map[string]struct{}, len(s.Nodes))
	for _, node := range s.Nodes {
		if _, dup := ids[node.ID]; dup {
			return &domain.GraphIntegrityError{Edge: -1, NodeID: node.ID, Reason: "duplicate node id"}
		}
		ids[node.ID] = struct{}{}
	}

	for i, e := range s.Edges {
		if _, ok := ids[e.Source]; !ok {
			return &domain.GraphIntegrityError{Edge: i, NodeID: e.Source, Reason: "unknown source"}
		}
		if _, ok := ids[e.Target]; !ok {
			return &domain.GraphIntegrityError{Edge: i, NodeID: e.Target, Reason: "unknown target"}
		}
	}
	return nil
}
