package dsl

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	projectID string
	order     []string
	nodes     map[string]*NodeBuilder
	metadata  map[string]any
}

// New creates a new graph builder for a project.
func New(projectID string) *Builder {
	return &Builder{
		projectID: projectID,
		nodes:     make(map[string]*NodeBuilder),
		metadata:  make(map[string]any),
	}
}

// Add creates a new node of type t in the graph.
// If the node already exists, it returns the existing builder with its type replaced.
func (b *Builder) Add(id string, t domain.NodeType) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		nb.doc.Type = t
		return nb
	}
	nb := &NodeBuilder{
		doc: domain.NodeDocument{
			ID:    id,
			Type:  t,
			Props: make(map[string]any),
			Meta:  make(map[string]any),
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Page adds a ui_page node.
func (b *Builder) Page(id string) *NodeBuilder { return b.Add(id, domain.NodeTypeUIPage) }

// API adds a rest_api node.
func (b *Builder) API(id string) *NodeBuilder { return b.Add(id, domain.NodeTypeRestAPI) }

// Table adds a db_table node named after id.
func (b *Builder) Table(id string) *NodeBuilder {
	nb := b.Add(id, domain.NodeTypeDBTable)
	if _, ok := nb.doc.Props["name"]; !ok {
		nb.doc.Props["name"] = id
	}
	return nb
}

// Auth adds an auth node with a strategy.
func (b *Builder) Auth(id, strategy string) *NodeBuilder {
	return b.Add(id, domain.NodeTypeAuth).Prop("strategy", strategy)
}

// Payment adds a payment node with a provider.
func (b *Builder) Payment(id, provider string) *NodeBuilder {
	return b.Add(id, domain.NodeTypePayment).Prop("provider", provider)
}

// FileStore adds a file_store node.
func (b *Builder) FileStore(id string) *NodeBuilder { return b.Add(id, domain.NodeTypeFileStore) }

// Tool adds an agent_tool node.
func (b *Builder) Tool(id, description string) *NodeBuilder {
	return b.Add(id, domain.NodeTypeAgentTool).Prop("description", description)
}

// Edge connects two nodes. Both must exist by the time the graph is normalized.
func (b *Builder) Edge(source, target, kind string) *Builder {
	nb, ok := b.nodes[source]
	if !ok {
		nb = b.Add(source, "")
	}
	nb.To(target, kind)
	return b
}

// Metadata sets a project metadata entry.
func (b *Builder) Metadata(key string, value any) *Builder {
	b.metadata[key] = value
	return b
}

// Documents returns the node documents in insertion order.
func (b *Builder) Documents() []domain.NodeDocument {
	docs := make([]domain.NodeDocument, 0, len(b.order))
	for _, id := range b.order {
		docs = append(docs, b.nodes[id].Build())
	}
	return docs
}

// Raw assembles the graph into raw IR, ordered by node id.
func (b *Builder) Raw() *domain.RawState {
	raw := domain.Assemble(b.projectID, b.Documents())
	if len(b.metadata) > 0 {
		raw.Metadata = domain.CopyMap(b.metadata)
	}
	return raw
}

// Build compiles the graph into an in-memory ports.GraphSource.
func (b *Builder) Build() (*memory.Source, error) {
	source, err := memory.NewFromDocuments(b.projectID, b.Documents()...)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory source: %w", err)
	}
	return source, nil
}
