package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

const bearerScheme = "bearerAuth"

// buildOpenAPI describes the generated REST endpoints as an OpenAPI 3 document in YAML.
func buildOpenAPI(project, version string, apis []apiEntry) ([]byte, error) {
	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:   project,
			Version: version,
		},
		Paths: openapi3.NewPaths(),
	}

	for _, api := range apis {
		op := openapi3.NewOperation()
		op.OperationID = api.Func
		op.Summary = api.Name

		path := flaskParam.ReplaceAllString(api.FlaskRoute, "{$1}")
		for _, name := range api.Params {
			param := openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema())
			op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: param})
		}

		content := openapi3.NewContentWithJSONSchema(sampleSchema(api.Sample))
		content.Get("application/json").Example = api.Sample
		resp := openapi3.NewResponse().WithDescription("Sample response")
		resp.Content = content
		op.Responses = openapi3.NewResponses(openapi3.WithStatus(200, &openapi3.ResponseRef{Value: resp}))

		if api.RequiresAuth {
			op.Security = &openapi3.SecurityRequirements{{bearerScheme: []string{}}}
			if doc.Components == nil {
				doc.Components = &openapi3.Components{
					SecuritySchemes: openapi3.SecuritySchemes{
						bearerScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
					},
				}
			}
		}

		item := doc.Paths.Value(path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(path, item)
		}
		item.SetOperation(api.Method, op)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal openapi document: %w", err)
	}
	return jsonToYAML(data)
}

// ValidateOpenAPI loads an openapi.yaml produced by Generate and validates it.
func ValidateOpenAPI(ctx context.Context, data []byte) error {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("failed to load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return fmt.Errorf("invalid openapi document: %w", err)
	}
	return nil
}

// sampleSchema infers a schema from a decoded JSON sample.
func sampleSchema(v any) *openapi3.Schema {
	switch t := v.(type) {
	case map[string]any:
		s := openapi3.NewObjectSchema()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s.WithProperty(k, sampleSchema(t[k]))
		}
		return s
	case []any:
		items := openapi3.NewSchema()
		if len(t) > 0 {
			items = sampleSchema(t[0])
		}
		return openapi3.NewArraySchema().WithItems(items)
	case string:
		return openapi3.NewStringSchema()
	case bool:
		return openapi3.NewBoolSchema()
	case float64:
		if t == float64(int64(t)) {
			return openapi3.NewIntegerSchema()
		}
		return openapi3.NewFloat64Schema()
	default:
		s := openapi3.NewSchema()
		s.Nullable = true
		return s
	}
}

// jsonToYAML re-encodes a JSON document as block-style YAML, keeping key order.
func jsonToYAML(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	clearStyle(&node)
	return yaml.Marshal(&node)
}

func clearStyle(n *yaml.Node) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		n.Style = 0
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		n.Style = 0
	}
	for _, c := range n.Content {
		clearStyle(c)
	}
}
