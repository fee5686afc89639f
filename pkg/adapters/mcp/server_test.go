package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blogJSON = `{
  "project_id": "blog",
  "nodes": [
    {"id": "posts", "type": "db_table", "props": {"name": "posts"}},
    {"id": "home", "type": "ui_page", "props": {"name": "Home", "route": "/", "bind_table": "posts"}}
  ],
  "edges": [{"source": "posts", "target": "home", "kind": "data_flow"}]
}`

const blogYAML = `project_id: blog
nodes:
  - id: api
    type: rest_api
    props:
      name: Posts
`

func newServer() *Server {
	return NewServer(lattice.New(lattice.WithBuildIDGenerator(func() string { return "build-1" })))
}

func TestHandleCompile(t *testing.T) {
	s := newServer()
	res, err := s.handleCompile(context.Background(), mcp.CallToolRequest{}, GraphArgs{Graph: blogJSON})
	require.NoError(t, err)
	assert.True(t, res.Success, "errors: %v", res.Errors)
	assert.Equal(t, "blog", res.ProjectID)
	assert.Equal(t, "build-1", res.BuildID)
	assert.NotEmpty(t, res.PreviewURLs)

	res, err = s.handleCompile(context.Background(), mcp.CallToolRequest{}, GraphArgs{Graph: blogYAML, Format: "yaml"})
	require.NoError(t, err)
	assert.True(t, res.Success, "errors: %v", res.Errors)

	_, err = s.handleCompile(context.Background(), mcp.CallToolRequest{}, GraphArgs{Graph: "  "})
	assert.Error(t, err)

	_, err = s.handleCompile(context.Background(), mcp.CallToolRequest{}, GraphArgs{Graph: "{", Format: "json"})
	assert.Error(t, err)
}

func TestHandleValidate(t *testing.T) {
	s := newServer()

	resp, err := s.handleValidate(context.Background(), mcp.CallToolRequest{}, GraphArgs{Graph: blogJSON})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, 2, resp.Nodes)
	assert.Equal(t, 1, resp.Edges)
	assert.NotNil(t, resp.Warnings)

	resp, err = s.handleValidate(context.Background(), mcp.CallToolRequest{}, GraphArgs{
		Graph: `{"project_id":"p","nodes":[{"id":"x","type":"spaceship"}]}`,
	})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Contains(t, resp.Error, "spaceship")
}

func TestHandleSlugify(t *testing.T) {
	resp, err := newServer().handleSlugify(context.Background(), mcp.CallToolRequest{}, SlugArgs{Text: "Blog Posts"})
	require.NoError(t, err)
	assert.Equal(t, SlugResponse{Slug: "blog-posts", Table: "blog_posts"}, resp)
}

// call sends one JSON-RPC request through the server and decodes the result.
func call(t *testing.T, s *Server, method string, params any) map[string]any {
	t.Helper()
	req, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	require.NoError(t, err)

	out, err := json.Marshal(s.MCPServer().HandleMessage(context.Background(), req))
	require.NoError(t, err)

	var resp struct {
		Result map[string]any `json:"result"`
		Error  any            `json:"error"`
	}
	require.NoError(t, json.Unmarshal(out, &resp))
	require.Nil(t, resp.Error, string(out))
	return resp.Result
}

func initialize(t *testing.T, s *Server) {
	t.Helper()
	call(t, s, "initialize", map[string]any{
		"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "test", "version": "0"},
	})
}

func TestToolsList(t *testing.T) {
	s := newServer()
	initialize(t, s)

	result := call(t, s, "tools/list", map[string]any{})
	tools, ok := result["tools"].([]any)
	require.True(t, ok)

	var names []string
	for _, tool := range tools {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	assert.ElementsMatch(t, []string{"compile_graph", "validate_graph", "slugify"}, names)
}

func TestNodeTypesResource(t *testing.T) {
	s := newServer()
	initialize(t, s)

	result := call(t, s, "resources/read", map[string]any{"uri": NodeTypesURI})
	contents, ok := result["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 1)

	text := contents[0].(map[string]any)["text"].(string)
	var specs []struct {
		Type domain.NodeType `json:"type"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &specs))
	require.Len(t, specs, len(domain.NodeTypes))
	for i, spec := range specs {
		assert.Equal(t, domain.NodeTypes[i], spec.Type)
	}
}
