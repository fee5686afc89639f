package dsl

import "github.com/aretw0/lattice/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
// Values are stored in their JSON-decoded forms so the registry validates them as it would a file.
type NodeBuilder struct {
	doc     domain.NodeDocument
	builder *Builder
}

// Prop sets a property.
func (n *NodeBuilder) Prop(key string, value any) *NodeBuilder {
	n.doc.Props[key] = value
	return n
}

// Meta sets a meta entry, such as canvas coordinates.
func (n *NodeBuilder) Meta(key string, value any) *NodeBuilder {
	n.doc.Meta[key] = value
	return n
}

// Name sets the display name.
func (n *NodeBuilder) Name(name string) *NodeBuilder { return n.Prop("name", name) }

// Route sets the page or endpoint route.
func (n *NodeBuilder) Route(route string) *NodeBuilder { return n.Prop("route", route) }

// Method sets the HTTP method of a rest_api node.
func (n *NodeBuilder) Method(method string) *NodeBuilder { return n.Prop("method", method) }

// Title sets the page title.
func (n *NodeBuilder) Title(title string) *NodeBuilder { return n.Prop("title", title) }

// Content sets the page body.
func (n *NodeBuilder) Content(content string) *NodeBuilder { return n.Prop("content", content) }

// BindTable binds a page to a table by node id or table name.
func (n *NodeBuilder) BindTable(table string) *NodeBuilder { return n.Prop("bind_table", table) }

// BindFileStore binds a page to a file store node.
func (n *NodeBuilder) BindFileStore(store string) *NodeBuilder {
	return n.Prop("bind_file_store", store)
}

// Consumes appends rest_api node ids the page calls.
func (n *NodeBuilder) Consumes(apis ...string) *NodeBuilder {
	list, _ := n.doc.Props["consumes"].([]any)
	for _, api := range apis {
		list = append(list, api)
	}
	return n.Prop("consumes", list)
}

// RequiresAuth marks a page or endpoint as requiring a signed-in user.
func (n *NodeBuilder) RequiresAuth() *NodeBuilder { return n.Prop("requires_auth", true) }

// Column appends a column to a db_table node.
func (n *NodeBuilder) Column(name, sqlType string) *NodeBuilder {
	cols, _ := n.doc.Props["columns"].([]any)
	cols = append(cols, map[string]any{"name": name, "type": sqlType})
	return n.Prop("columns", cols)
}

// Plan appends a subscription plan to a payment node.
func (n *NodeBuilder) Plan(name string, price float64, interval string) *NodeBuilder {
	plans, _ := n.doc.Props["plans"].([]any)
	plans = append(plans, map[string]any{"name": name, "price": price, "interval": interval})
	return n.Prop("plans", plans)
}

// To adds an edge from this node to target.
func (n *NodeBuilder) To(target, kind string) *NodeBuilder {
	n.doc.Edges = append(n.doc.Edges, domain.DocumentEdge{Target: target, Kind: kind})
	return n
}

// Build returns a copy of the underlying node document.
func (n *NodeBuilder) Build() domain.NodeDocument {
	doc := n.doc
	doc.Props = domain.CopyMap(n.doc.Props)
	doc.Meta = domain.CopyMap(n.doc.Meta)
	doc.Edges = append([]domain.DocumentEdge(nil), n.doc.Edges...)
	return doc
}
