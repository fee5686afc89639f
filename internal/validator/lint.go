package validator

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
)

// Lint reports non-fatal findings on a normalized state:
// page bindings without a data_flow edge, and nodes with no edges
// in a graph that has some.
func Lint(s *domain.BuilderState) []string {
	arena := s.Arena()
	var warnings []string

	for i, node := range arena.Nodes {
		if node.Type != domain.NodeTypeUIPage {
			continue
		}
		for _, ref := range bindings(node) {
			j, ok := arena.Index(ref.id)
			if !ok {
				// Reported by the UI generator.
				continue
			}
			if !arena.HasEdge(i, j, domain.EdgeKindDataFlow) && !arena.HasEdge(j, i, domain.EdgeKindDataFlow) {
				warnings = append(warnings, fmt.Sprintf("node %q: %s %q has no data_flow edge", node.ID, ref.prop, ref.id))
			}
		}
	}

	if len(arena.Edges) > 0 {
		for i, node := range arena.Nodes {
			if arena.Degree(i) == 0 {
				warnings = append(warnings, fmt.Sprintf("node %q is not connected to the graph", node.ID))
			}
		}
	}
	return warnings
}

type bindingRef struct {
	prop string
	id   string
}

func bindings(node *domain.Node) []bindingRef {
	var refs []bindingRef
	for _, prop := range []string{"bind_table", "bind_file_store"} {
		if id, ok := node.Props[prop].(string); ok && id != "" {
			refs = append(refs, bindingRef{prop: prop, id: id})
		}
	}
	switch consumes := node.Props["consumes"].(type) {
	case []any:
		for _, c := range consumes {
			if id, ok := c.(string); ok && id != "" {
				refs = append(refs, bindingRef{prop: "consumes", id: id})
			}
		}
	case []string:
		for _, id := range consumes {
			if id != "" {
				refs = append(refs, bindingRef{prop: "consumes", id: id})
			}
		}
	}
	return refs
}
