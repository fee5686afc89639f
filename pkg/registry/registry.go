package registry

import (
	"fmt"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/schema"
	"github.com/mitchellh/mapstructure"
)

// TypeSpec describes one node type: the properties every node of that type
// carries after defaulting, and their types.
type TypeSpec struct {
	Type        domain.NodeType `json:"type"`
	Description string          `json:"description"`
	Schema      schema.Schema   `json:"schema"`
}

// Registry holds the specs of the closed set of node types.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	specs map[domain.NodeType]TypeSpec
}

// New creates a registry with the built-in node types.
func New() *Registry {
	r := &Registry{specs: make(map[domain.NodeType]TypeSpec, len(domain.NodeTypes))}
	for _, spec := range builtinSpecs() {
		r.specs[spec.Type] = spec
	}
	return r
}

// Spec returns the spec of a node type.
func (r *Registry) Spec(t domain.NodeType) (TypeSpec, bool) {
	spec, ok := r.specs[t]
	return spec, ok
}

// Specs returns every spec in domain.NodeTypes order.
func (r *Registry) Specs() []TypeSpec {
	out := make([]TypeSpec, 0, len(r.specs))
	for _, t := range domain.NodeTypes {
		out = append(out, r.specs[t])
	}
	return out
}

// Coerce returns the node's defaulted props and checks them against the type's schema.
// Unknown types and mistyped properties yield a *domain.SchemaError.
func (r *Registry) Coerce(node *domain.Node) (map[string]any, error) {
	props, err := CoerceDefaults(node)
	if err != nil {
		return nil, err
	}
	spec, ok := r.specs[node.Type]
	if !ok {
		return nil, &domain.SchemaError{NodeID: node.ID, Field: "type", Reason: fmt.Sprintf("no spec for node type %q", node.Type)}
	}
	if err := schema.Validate(spec.Schema, props); err != nil {
		return nil, &domain.SchemaError{NodeID: node.ID, Field: "props", Err: err}
	}
	return props, nil
}

// Decode converts a defaulted props map into its typed view, e.g. Decode[domain.DBTable].
func Decode[T any](props map[string]any) (*T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create props decoder: %w", err)
	}
	if err := dec.Decode(props); err != nil {
		return nil, fmt.Errorf("failed to decode props: %w", err)
	}
	return &out, nil
}

func builtinSpecs() []TypeSpec {
	return []TypeSpec{
		{
			Type:        domain.NodeTypeUIPage,
			Description: "A page rendered from a template, optionally bound to a table, a file store and APIs.",
			Schema: schema.Schema{
				"name":                  schema.String(),
				"title":                 schema.String(),
				"route":                 schema.String(),
				"content":               schema.String(),
				"consumes":              schema.Slice(schema.String()),
				"bind_table":            schema.Nullable(schema.String()),
				"bind_file_store":       schema.Nullable(schema.String()),
				"form":                  schema.Map(),
				"requires_auth":         schema.Bool(),
				"requires_subscription": schema.Bool(),
			},
		},
		{
			Type:        domain.NodeTypeRestAPI,
			Description: "A REST endpoint served under /api/.",
			Schema: schema.Schema{
				"name":            schema.String(),
				"method":          schema.String(),
				"route":           schema.String(),
				"sample_response": schema.String(),
				"requires_auth":   schema.Bool(),
			},
		},
		{
			Type:        domain.NodeTypeDBTable,
			Description: "A database table with a model and a migration.",
			Schema: schema.Schema{
				"name":    schema.String(),
				"columns": schema.Slice(schema.Map()),
			},
		},
		{
			Type:        domain.NodeTypeAuth,
			Description: "User accounts, roles and the users table.",
			Schema: schema.Schema{
				"name":         schema.String(),
				"strategy":     schema.String(),
				"roles":        schema.Slice(schema.String()),
				"user_table":   schema.String(),
				"user_columns": schema.Slice(schema.Map()),
			},
		},
		{
			Type:        domain.NodeTypePayment,
			Description: "A payment provider with subscription plans.",
			Schema: schema.Schema{
				"name":       schema.String(),
				"provider":   schema.String(),
				"plans":      schema.Slice(schema.Map()),
				"trial_days": schema.Int(),
				"currency":   schema.String(),
			},
		},
		{
			Type:        domain.NodeTypeFileStore,
			Description: "An upload location on local disk or in a bucket.",
			Schema: schema.Schema{
				"name":          schema.String(),
				"provider":      schema.String(),
				"local_path":    schema.String(),
				"allowed_types": schema.Slice(schema.String()),
				"max_size_mb":   schema.Int(),
				"bucket":        schema.Nullable(schema.String()),
			},
		},
		{
			Type:        domain.NodeTypeAgentTool,
			Description: "A tool the generated application exposes to agents.",
			Schema: schema.Schema{
				"name":        schema.String(),
				"description": schema.String(),
			},
		},
	}
}
