package domain

// NodeType identifies the kind of unit a node describes.
// The set is closed: see NodeTypes.
type NodeType string

const (
	// NodeTypeUIPage is a rendered page bound to tables, file stores or APIs.
	NodeTypeUIPage NodeType = "ui_page"
	// NodeTypeRestAPI is a single REST endpoint.
	NodeTypeRestAPI NodeType = "rest_api"
	// NodeTypeDBTable is a database table with its columns.
	NodeTypeDBTable NodeType = "db_table"
	// NodeTypeAuth configures user accounts and the users table.
	NodeTypeAuth NodeType = "auth"
	// NodeTypePayment configures a payment provider and subscription plans.
	NodeTypePayment NodeType = "payment"
	// NodeTypeFileStore configures an upload location.
	NodeTypeFileStore NodeType = "file_store"
	// NodeTypeAgentTool declares a tool exposed to agents.
	NodeTypeAgentTool NodeType = "agent_tool"
)

// NodeTypes lists every valid node type in declaration order.
var NodeTypes = []NodeType{
	NodeTypeUIPage,
	NodeTypeRestAPI,
	NodeTypeDBTable,
	NodeTypeAuth,
	NodeTypePayment,
	NodeTypeFileStore,
	NodeTypeAgentTool,
}

// Valid reports whether t belongs to the closed set of node types.
func (t NodeType) Valid() bool {
	for _, known := range NodeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Node represents a typed unit in the graph.
type Node struct {
	ID   string   `json:"id" yaml:"id"`
	Type NodeType `json:"type" yaml:"type"`

	// Props holds the type-specific properties.
	// After normalization it contains the full required-field set for Type.
	Props map[string]any `json:"props" yaml:"props"`

	// Meta is opaque to the compiler and carried through untouched.
	Meta map[string]any `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Visitor dispatches on the closed set of node types.
// Adding a node type adds a method here, so every implementation
// must handle it before the module compiles again.
type Visitor interface {
	VisitUIPage(n *Node) error
	VisitRestAPI(n *Node) error
	VisitDBTable(n *Node) error
	VisitAuth(n *Node) error
	VisitPayment(n *Node) error
	VisitFileStore(n *Node) error
	VisitAgentTool(n *Node) error
}

// Accept calls the Visitor method matching the node's type.
// Unknown types yield a *SchemaError.
func (n *Node) Accept(v Visitor) error {
	switch n.Type {
	case NodeTypeUIPage:
		return v.VisitUIPage(n)
	case NodeTypeRestAPI:
		return v.VisitRestAPI(n)
	case NodeTypeDBTable:
		return v.VisitDBTable(n)
	case NodeTypeAuth:
		return v.VisitAuth(n)
	case NodeTypePayment:
		return v.VisitPayment(n)
	case NodeTypeFileStore:
		return v.VisitFileStore(n)
	case NodeTypeAgentTool:
		return v.VisitAgentTool(n)
	default:
		return &SchemaError{NodeID: n.ID, Field: "type", Reason: "unknown node type " + quote(string(n.Type))}
	}
}

// Edge kinds used by the builder.
const (
	EdgeKindDefault      = "default"
	EdgeKindDataFlow     = "data_flow"
	EdgeKindAuth         = "auth"
	EdgeKindUINavigation = "ui_navigation"
)

// Edge is a typed relation between two nodes.
type Edge struct {
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
	Kind   string `json:"kind" yaml:"kind"`
}
