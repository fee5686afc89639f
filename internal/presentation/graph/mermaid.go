package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
)

// GraphOverlay contains compile results to visualize on the graph.
type GraphOverlay struct {
	GeneratedNodes []string
	FailedNodes    []string
}

// GenerateMermaid produces a Mermaid flowchart of a state.
// Node shapes follow the node type:
// - ui_page: [Rectangle]
// - rest_api: >Flag]
// - db_table: [(Cylinder)]
// - auth: {{Hexagon}}
// - payment: ([Stadium])
// - file_store: [/Parallelogram/]
// - agent_tool: [[Subroutine]]
// Output order follows state.Nodes and state.Edges, so equal states render equal text.
func GenerateMermaid(state *domain.BuilderState, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range state.Nodes {
		opener, closer := shape(node.Type)
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(node.ID), opener, label(&node), closer)
	}

	for _, e := range state.Edges {
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.Source), arrow(e.Kind), sanitizeMermaidID(e.Target))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Compile Results\n")
		sb.WriteString("    classDef generated fill:#e8f5e9,stroke:#1b5e20,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffebee,stroke:#b71c1c,stroke-width:4px,color:#000;\n")
		writeClass(&sb, overlay.GeneratedNodes, "generated")
		writeClass(&sb, overlay.FailedNodes, "failed")
	}

	return sb.String()
}

func writeClass(sb *strings.Builder, ids []string, class string) {
	seen := make(map[string]bool)
	for _, id := range ids {
		safeID := sanitizeMermaidID(id)
		if safeID == "" || seen[safeID] {
			continue
		}
		seen[safeID] = true
		fmt.Fprintf(sb, "    class %s %s;\n", safeID, class)
	}
}

func shape(t domain.NodeType) (string, string) {
	switch t {
	case domain.NodeTypeRestAPI:
		return ">", "]"
	case domain.NodeTypeDBTable:
		return "[(", ")]"
	case domain.NodeTypeAuth:
		return "{{", "}}"
	case domain.NodeTypePayment:
		return "([", "])"
	case domain.NodeTypeFileStore:
		return "[/", "/]"
	case domain.NodeTypeAgentTool:
		return "[[", "]]"
	default:
		return "[", "]"
	}
}

func label(node *domain.Node) string {
	text := node.ID
	if name, ok := node.Props["name"].(string); ok && name != "" && name != node.ID {
		text = name + " <br/> " + node.ID
	}
	if route, ok := node.Props["route"].(string); ok && route != "" {
		text += " <br/> " + route
	}
	return strings.ReplaceAll(text, "\"", "'")
}

func arrow(kind string) string {
	switch kind {
	case domain.EdgeKindDataFlow:
		return "-->"
	case domain.EdgeKindAuth:
		return "-. auth .->"
	case domain.EdgeKindUINavigation:
		return "==>"
	case domain.EdgeKindDefault, "":
		return "---"
	default:
		return fmt.Sprintf("-- \"%s\" -->", strings.ReplaceAll(kind, "\"", "'"))
	}
}

func sanitizeMermaidID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_")
	return r.Replace(id)
}
