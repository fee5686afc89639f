package domain

// RawState is an unvalidated graph as produced by a planner, a file or a store.
// It shares the wire shape of BuilderState but none of its invariants.
type RawState struct {
	ProjectID string         `json:"project_id" yaml:"project_id"`
	Version   string         `json:"version,omitempty" yaml:"version,omitempty"`
	Nodes     []Node         `json:"nodes" yaml:"nodes"`
	Edges     []Edge         `json:"edges" yaml:"edges"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Exists    bool           `json:"exists,omitempty" yaml:"exists,omitempty"`
}

// BuilderState is the canonical, validated graph.
// Instances are only produced by normalization; see internal/validator.
type BuilderState struct {
	ProjectID string         `json:"project_id" yaml:"project_id"`
	Version   string         `json:"version" yaml:"version"`
	Nodes     []Node         `json:"nodes" yaml:"nodes"`
	Edges     []Edge         `json:"edges" yaml:"edges"`
	Metadata  map[string]any `json:"metadata" yaml:"metadata"`
	Exists    bool           `json:"exists" yaml:"exists"`
}

// Raw returns a deep copy of the state as raw input, suitable for re-normalization.
func (s *BuilderState) Raw() *RawState {
	c := s.Clone()
	return &RawState{
		ProjectID: c.ProjectID,
		Version:   c.Version,
		Nodes:     c.Nodes,
		Edges:     c.Edges,
		Metadata:  c.Metadata,
		Exists:    c.Exists,
	}
}

// Clone returns a deep copy. Each compile works on its own clone.
func (s *BuilderState) Clone() *BuilderState {
	out := &BuilderState{
		ProjectID: s.ProjectID,
		Version:   s.Version,
		Nodes:     make([]Node, len(s.Nodes)),
		Edges:     make([]Edge, len(s.Edges)),
		Metadata:  CopyMap(s.Metadata),
		Exists:    s.Exists,
	}
	for i, n := range s.Nodes {
		out.Nodes[i] = Node{
			ID:    n.ID,
			Type:  n.Type,
			Props: CopyMap(n.Props),
			Meta:  CopyMap(n.Meta),
		}
	}
	copy(out.Edges, s.Edges)
	return out
}

// NodeByID returns the node with the given id.
func (s *BuilderState) NodeByID(id string) (*Node, bool) {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i], true
		}
	}
	return nil, false
}

// EdgeRef is an edge expressed as indices into Arena.Nodes.
type EdgeRef struct {
	From int
	To   int
	Kind string
}

// Arena is an index-addressed view of a BuilderState.
// Nodes keep insertion order; edges are index pairs.
type Arena struct {
	Nodes []*Node
	Edges []EdgeRef
	ids   map[string]int
}

// Arena builds the index view. Edges with unknown endpoints are skipped,
// which cannot happen for a normalized state.
func (s *BuilderState) Arena() *Arena {
	a := &Arena{
		Nodes: make([]*Node, len(s.Nodes)),
		Edges: make([]EdgeRef, 0, len(s.Edges)),
		ids:   make(map[string]int, len(s.Nodes)),
	}
	for i := range s.Nodes {
		a.Nodes[i] = &s.Nodes[i]
		a.ids[s.Nodes[i].ID] = i
	}
	for _, e := range s.Edges {
		from, ok1 := a.ids[e.Source]
		to, ok2 := a.ids[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		a.Edges = append(a.Edges, EdgeRef{From: from, To: to, Kind: e.Kind})
	}
	return a
}

// Index returns the arena index of a node id.
func (a *Arena) Index(id string) (int, bool) {
	i, ok := a.ids[id]
	return i, ok
}

// Lookup returns the node with the given id.
func (a *Arena) Lookup(id string) (*Node, bool) {
	i, ok := a.ids[id]
	if !ok {
		return nil, false
	}
	return a.Nodes[i], true
}

// HasEdge reports whether an edge of the given kind links from → to.
// An empty kind matches any kind.
func (a *Arena) HasEdge(from, to int, kind string) bool {
	for _, e := range a.Edges {
		if e.From == from && e.To == to && (kind == "" || e.Kind == kind) {
			return true
		}
	}
	return false
}

// Degree returns the number of edges touching node i.
func (a *Arena) Degree(i int) int {
	d := 0
	for _, e := range a.Edges {
		if e.From == i || e.To == i {
			d++
		}
	}
	return d
}

// CopyMap deep-copies maps and slices nested in m. Scalars are shared.
func CopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CopyValue(v)
	}
	return out
}

// CopyValue deep-copies the JSON-like value v.
func CopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CopyValue(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = CopyMap(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
