package domain

import "sort"

// DocumentEdge is an outgoing edge declared inside a node document.
type DocumentEdge struct {
	Target string `json:"target" yaml:"target" mapstructure:"target"`
	Kind   string `json:"kind,omitempty" yaml:"kind,omitempty" mapstructure:"kind"`
}

// NodeDocument is the one-node-per-file form of the IR used by directory graph sources.
// Edges leave the node the document describes.
type NodeDocument struct {
	ID    string         `json:"id" yaml:"id" mapstructure:"id"`
	Type  NodeType       `json:"type" yaml:"type" mapstructure:"type"`
	Props map[string]any `json:"props,omitempty" yaml:"props,omitempty" mapstructure:"props"`
	Meta  map[string]any `json:"meta,omitempty" yaml:"meta,omitempty" mapstructure:"meta"`
	Edges []DocumentEdge `json:"edges,omitempty" yaml:"edges,omitempty" mapstructure:"edges"`
}

// Assemble builds a raw state from node documents, ordered by id.
func Assemble(projectID string, docs []NodeDocument) *RawState {
	sorted := append([]NodeDocument(nil), docs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	raw := &RawState{
		ProjectID: projectID,
		Nodes:     make([]Node, 0, len(sorted)),
		Edges:     []Edge{},
	}
	for _, d := range sorted {
		raw.Nodes = append(raw.Nodes, Node{ID: d.ID, Type: d.Type, Props: CopyMap(d.Props), Meta: CopyMap(d.Meta)})
		for _, e := range d.Edges {
			raw.Edges = append(raw.Edges, Edge{Source: d.ID, Target: e.Target, Kind: e.Kind})
		}
	}
	return raw
}
