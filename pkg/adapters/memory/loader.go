package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
)

// Source implements ports.GraphSource over in-memory node documents.
type Source struct {
	projectID string
	docs      []domain.NodeDocument
}

// NewSource creates a Source from raw JSON node documents keyed by node id.
func NewSource(projectID string, data map[string]string) (*Source, error) {
	docs := make([]domain.NodeDocument, 0, len(data))
	for id, body := range data {
		var doc domain.NodeDocument
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode node %s: %w", id, err)
		}
		if doc.ID == "" {
			doc.ID = id
		}
		docs = append(docs, doc)
	}
	return &Source{projectID: projectID, docs: docs}, nil
}

// NewFromDocuments creates a Source from decoded documents.
func NewFromDocuments(projectID string, docs ...domain.NodeDocument) (*Source, error) {
	for _, d := range docs {
		if d.ID == "" {
			return nil, fmt.Errorf("node document missing ID")
		}
	}
	return &Source{projectID: projectID, docs: docs}, nil
}

// Load assembles the documents into a raw state, ordered by node id.
func (s *Source) Load(ctx context.Context) (*domain.RawState, error) {
	return domain.Assemble(s.projectID, s.docs), nil
}

// StaticPlanner implements ports.Planner by returning fixed IR for every goal.
type StaticPlanner struct {
	Raw *domain.RawState
}

// Plan returns a deep copy of the configured IR.
func (p StaticPlanner) Plan(ctx context.Context, goal string) (*domain.RawState, error) {
	if p.Raw == nil {
		return nil, fmt.Errorf("no plan configured for goal %q", goal)
	}
	c := *p.Raw
	c.Nodes = make([]domain.Node, len(p.Raw.Nodes))
	for i, n := range p.Raw.Nodes {
		c.Nodes[i] = domain.Node{ID: n.ID, Type: n.Type, Props: domain.CopyMap(n.Props), Meta: domain.CopyMap(n.Meta)}
	}
	c.Edges = append([]domain.Edge(nil), p.Raw.Edges...)
	c.Metadata = domain.CopyMap(p.Raw.Metadata)
	return &c, nil
}
