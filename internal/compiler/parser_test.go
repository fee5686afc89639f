package compiler

import (
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonGraph = `{
  "project_id": "blog",
  "nodes": [
    {"id": "posts", "type": "db_table", "props": {"name": "Posts", "columns": [{"name": "title", "type": "string"}]}},
    {"id": "home", "type": "ui_page", "props": {"name": "Home", "bind_table": "posts", "requires_auth": true}}
  ],
  "edges": [{"source": "posts", "target": "home", "kind": "data_flow"}],
  "metadata": {"owner": "team"}
}`

const yamlGraph = `
project_id: blog
nodes:
  - id: posts
    type: db_table
    props:
      name: Posts
      columns:
        - name: title
          type: string
  - id: home
    type: ui_page
    props:
      name: Home
      bind_table: posts
      requires_auth: true
edges:
  - source: posts
    target: home
    kind: data_flow
metadata:
  owner: team
`

const hclGraph = `
project_id = "blog"
metadata = { owner = "team" }

node "db_table" "posts" {
  props = {
    name    = "Posts"
    columns = [{ name = "title", type = "string" }]
  }
}

node "ui_page" "home" {
  props = {
    name          = "Home"
    bind_table    = "posts"
    requires_auth = true
  }
}

edge {
  source = "posts"
  target = "home"
  kind   = "data_flow"
}
`

func TestParser_FormatsAgree(t *testing.T) {
	p := NewParser()

	fromJSON, err := p.Parse([]byte(jsonGraph), FormatJSON)
	require.NoError(t, err)
	fromYAML, err := p.Parse([]byte(yamlGraph), FormatYAML)
	require.NoError(t, err)
	fromHCL, err := p.Parse([]byte(hclGraph), FormatHCL)
	require.NoError(t, err)

	assert.Equal(t, fromJSON, fromYAML)
	assert.Equal(t, fromJSON, fromHCL)

	assert.Equal(t, "blog", fromJSON.ProjectID)
	require.Len(t, fromJSON.Nodes, 2)
	assert.Equal(t, domain.NodeTypeUIPage, fromJSON.Nodes[1].Type)
	assert.Equal(t, []domain.Edge{{Source: "posts", Target: "home", Kind: domain.EdgeKindDataFlow}}, fromJSON.Edges)
}

func TestParser_HCLNumbersAreFloats(t *testing.T) {
	raw, err := NewParser().Parse([]byte(`
project_id = "shop"
node "payment" "pay" {
  props = { trial_days = 7 }
}
`), FormatHCL)
	require.NoError(t, err)
	require.Len(t, raw.Nodes, 1)
	assert.Equal(t, float64(7), raw.Nodes[0].Props["trial_days"])
	assert.Nil(t, raw.Nodes[0].Meta)
	assert.Empty(t, raw.Edges)
}

func TestParser_Errors(t *testing.T) {
	p := NewParser()

	_, err := p.Parse([]byte(`{"project_id": `), FormatJSON)
	assert.Error(t, err)

	_, err = p.Parse([]byte(`node "ui_page" {`), FormatHCL)
	assert.Error(t, err)

	_, err = p.Parse([]byte(`project_id = "x"
node "ui_page" "home" {
  props = "not an object"
}`), FormatHCL)
	assert.ErrorContains(t, err, "expected an object")

	_, err = p.Parse([]byte(`{}`), "toml")
	assert.ErrorContains(t, err, "unsupported format")
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("graph.yml"))
	assert.Equal(t, FormatYAML, DetectFormat("graph.YAML"))
	assert.Equal(t, FormatHCL, DetectFormat("dir/graph.hcl"))
	assert.Equal(t, FormatJSON, DetectFormat("graph.json"))
	assert.Equal(t, FormatJSON, DetectFormat("graph"))
}
