package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a raw graph document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// DetectFormat picks the format from a file extension. Unknown extensions read as JSON.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".hcl":
		return FormatHCL
	default:
		return FormatJSON
	}
}

// Parser decodes raw bytes into a RawState.
// It performs no validation beyond the document's syntax; see internal/validator.
type Parser struct{}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes data in the given format.
func (p *Parser) Parse(data []byte, format Format) (*domain.RawState, error) {
	var (
		raw domain.RawState
		err error
	)
	switch format {
	case FormatJSON, "":
		dec := json.NewDecoder(bytes.NewReader(data))
		err = dec.Decode(&raw)
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatHCL:
		err = decodeHCL(data, &raw)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s graph: %w", format, err)
	}
	return &raw, nil
}

// ParseFile is Parse with the format detected from path.
func (p *Parser) ParseFile(path string, data []byte) (*domain.RawState, error) {
	return p.Parse(data, DetectFormat(path))
}

type hclGraphFile struct {
	ProjectID string     `hcl:"project_id,optional"`
	Version   string     `hcl:"version,optional"`
	Metadata  cty.Value  `hcl:"metadata,optional"`
	Nodes     []*hclNode `hcl:"node,block"`
	Edges     []*hclEdge `hcl:"edge,block"`
}

type hclNode struct {
	Type  string    `hcl:"type,label"`
	ID    string    `hcl:"id,label"`
	Props cty.Value `hcl:"props,optional"`
	Meta  cty.Value `hcl:"meta,optional"`
}

type hclEdge struct {
	Source string `hcl:"source"`
	Target string `hcl:"target"`
	Kind   string `hcl:"kind,optional"`
}

func decodeHCL(data []byte, raw *domain.RawState) error {
	file, diags := hclparse.NewParser().ParseHCL(data, "graph.hcl")
	if diags.HasErrors() {
		return diags
	}

	var parsed hclGraphFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return diags
	}

	metadata, err := ctyObject(parsed.Metadata)
	if err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	raw.ProjectID = parsed.ProjectID
	raw.Version = parsed.Version
	raw.Metadata = metadata

	for _, n := range parsed.Nodes {
		props, err := ctyObject(n.Props)
		if err != nil {
			return fmt.Errorf("node %q props: %w", n.ID, err)
		}
		meta, err := ctyObject(n.Meta)
		if err != nil {
			return fmt.Errorf("node %q meta: %w", n.ID, err)
		}
		raw.Nodes = append(raw.Nodes, domain.Node{
			ID:    n.ID,
			Type:  domain.NodeType(n.Type),
			Props: props,
			Meta:  meta,
		})
	}
	for _, e := range parsed.Edges {
		raw.Edges = append(raw.Edges, domain.Edge{Source: e.Source, Target: e.Target, Kind: e.Kind})
	}
	return nil
}

// ctyObject converts an object or map value into a plain map.
// A missing attribute yields nil.
func ctyObject(v cty.Value) (map[string]any, error) {
	if v.Type() == cty.NilType || v.IsNull() {
		return nil, nil
	}
	native, err := ctyToNative(v)
	if err != nil {
		return nil, err
	}
	m, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %s", v.Type().FriendlyName())
	}
	return m, nil
}

// ctyToNative converts a cty value into the shapes encoding/json produces:
// numbers become float64, lists and tuples []any, objects and maps map[string]any.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, err
		}
		return f, nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
	}
}
