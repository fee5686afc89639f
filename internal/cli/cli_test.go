package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/lattice/internal/testutils"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopJSON = `{
  "project_id": "shop",
  "nodes": [
    {"id": "products", "type": "db_table", "props": {"name": "products"}},
    {"id": "catalog", "type": "ui_page", "props": {"name": "Catalog", "bind_table": "products"}}
  ],
  "edges": [{"source": "products", "target": "catalog", "kind": "data_flow"}]
}`

const shopYAML = `project_id: shop
nodes:
  - id: products
    type: db_table
    props:
      name: products
`

var shopDocs = map[string]string{
	"products.json": `{"type": "db_table", "props": {"name": "products"}}`,
	"catalog.md": `---
type: ui_page
props:
  name: Catalog
  bind_table: products
edges:
  - to: products
    kind: data_flow
---`,
}

func writeGraph(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadGraph(t *testing.T) {
	ctx := context.Background()

	raw, err := LoadGraph(ctx, writeGraph(t, "shop.json", shopJSON), "")
	require.NoError(t, err)
	assert.Equal(t, "shop", raw.ProjectID)
	assert.Len(t, raw.Nodes, 2)

	raw, err = LoadGraph(ctx, writeGraph(t, "shop.yaml", shopYAML), "store")
	require.NoError(t, err)
	assert.Equal(t, "store", raw.ProjectID)
	assert.Len(t, raw.Nodes, 1)

	dir, _ := testutils.SetupTestRepo(t, shopDocs)
	raw, err = LoadGraph(ctx, dir, "shop")
	require.NoError(t, err)
	assert.Equal(t, "shop", raw.ProjectID)
	require.Len(t, raw.Nodes, 2)
	assert.Equal(t, "catalog", raw.Nodes[0].ID)

	_, err = LoadGraph(ctx, filepath.Join(t.TempDir(), "absent.json"), "")
	assert.Error(t, err)
}

func TestRunCompile_WritesOutputs(t *testing.T) {
	out := filepath.Join(t.TempDir(), "scaffold")
	archive := filepath.Join(t.TempDir(), "shop.zip")
	var stdout, stderr bytes.Buffer

	err := RunCompile(context.Background(), CompileOptions{
		Path:    writeGraph(t, "shop.json", shopJSON),
		Out:     out,
		Archive: archive,
		JSON:    true,
	}, &stdout, &stderr)
	require.NoError(t, err)

	var res domain.Result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Contains(t, res.Files, "app.py")

	_, err = os.Stat(filepath.Join(out, "app.py"))
	assert.NoError(t, err)
	data, err := os.ReadFile(archive)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]))
	assert.Equal(t, res.Archive.ByteSize, int64(len(data)))
}

func TestRunCompile_TextAndReadme(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := RunCompile(context.Background(), CompileOptions{
		Path:          writeGraph(t, "shop.json", shopJSON),
		Readme:        true,
		EngineOptions: EngineOptions{Smoke: true},
	}, &stdout, &stderr)
	require.NoError(t, err)

	out := stdout.String()
	assert.True(t, strings.HasPrefix(out, "OK shop"), out)
	assert.Contains(t, out, "stage done")
	assert.Contains(t, out, "Generated application")
	assert.NotContains(t, out, "\x1b[")
}

func TestRunCompile_Failure(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := RunCompile(context.Background(), CompileOptions{
		Path: writeGraph(t, "bad.json", `{"project_id":"bad","nodes":[{"id":"x","type":"spaceship"}]}`),
	}, &stdout, &stderr)
	assert.ErrorIs(t, err, ErrCompileFailed)
	assert.Contains(t, stdout.String(), "FAILED bad")
}

func TestRunWatch_RejectsFile(t *testing.T) {
	err := RunWatch(context.Background(), CompileOptions{Path: writeGraph(t, "shop.json", shopJSON)}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "needs a directory")
}

func TestRunValidate(t *testing.T) {
	path := writeGraph(t, "shop.json", shopJSON)

	var text bytes.Buffer
	require.NoError(t, RunValidate(context.Background(), path, "", false, &text))
	assert.Contains(t, text.String(), "Graph shop is valid: 2 nodes, 1 edges")

	var js bytes.Buffer
	require.NoError(t, RunValidate(context.Background(), path, "", true, &js))
	var report map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &report))
	assert.Equal(t, "shop", report["project_id"])
	assert.Equal(t, 2.0, report["nodes"])

	bad := writeGraph(t, "bad.json", `{"project_id":"p","nodes":[{"id":"a","type":"db_table"}],"edges":[{"source":"a","target":"ghost"}]}`)
	err := RunValidate(context.Background(), bad, "", false, &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrGraphIntegrity)
}

func TestRunGraph(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunGraph(context.Background(), writeGraph(t, "shop.json", shopJSON), "", true, &out))
	mermaid := out.String()
	assert.True(t, strings.HasPrefix(mermaid, "graph TD\n"))
	assert.Contains(t, mermaid, "products")
	assert.Contains(t, mermaid, "catalog")
}

func TestCompileOverlay(t *testing.T) {
	res := &domain.Result{
		Artifacts: []domain.Artifact{{ID: "a"}, {ID: "b"}, {ID: "a"}, {Type: domain.ArtifactConfig}},
		Causes: []error{
			&domain.GenerationError{Generator: "ui", NodeID: "b"},
			&domain.GenerationError{Generator: "ui", NodeID: "b"},
		},
	}
	ov := compileOverlay(res)
	assert.Equal(t, []string{"a"}, ov.GeneratedNodes)
	assert.Equal(t, []string{"b"}, ov.FailedNodes)
}

func TestCreateEngine_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	engine, closeFn, err := createEngine(EngineOptions{RedisAddr: mr.Addr()}, createLogger(&bytes.Buffer{}, false, false))
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	raw, err := LoadGraph(context.Background(), writeGraph(t, "shop.json", shopJSON), "")
	require.NoError(t, err)
	_, err = engine.PutProject(context.Background(), raw)
	require.NoError(t, err)
	res, err := engine.CompileProject(context.Background(), "shop")
	require.NoError(t, err)
	require.True(t, res.Success, "errors: %v", res.Errors)

	assert.True(t, mr.Exists("lattice:project:shop"))
	assert.True(t, mr.Exists("lattice:blob:"+res.Archive.Key))
}

func TestCreateEngine_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, _, err := createEngine(EngineOptions{RedisAddr: addr}, createLogger(&bytes.Buffer{}, false, false))
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestCreateEngine_FileStores(t *testing.T) {
	storeDir, archiveDir := t.TempDir(), t.TempDir()
	engine, closeFn, err := createEngine(EngineOptions{StoreDir: storeDir, ArchiveDir: archiveDir}, createLogger(&bytes.Buffer{}, true, true))
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	raw, err := LoadGraph(context.Background(), writeGraph(t, "shop.json", shopJSON), "")
	require.NoError(t, err)
	_, err = engine.PutProject(context.Background(), raw)
	require.NoError(t, err)
	res, err := engine.CompileProject(context.Background(), "shop")
	require.NoError(t, err)
	require.True(t, res.Success, "errors: %v", res.Errors)

	_, err = os.Stat(filepath.Join(storeDir, "shop.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(archiveDir, filepath.FromSlash(res.Archive.Key)))
	assert.NoError(t, err)
}

func TestCreateEngine_Encrypted(t *testing.T) {
	storeDir, archiveDir := t.TempDir(), t.TempDir()
	key := bytes.Repeat([]byte{7}, 32)
	engine, closeFn, err := createEngine(EngineOptions{
		StoreDir:      storeDir,
		ArchiveDir:    archiveDir,
		EncryptionKey: key,
		Redact:        true,
		Smoke:         true,
	}, createLogger(&bytes.Buffer{}, false, false))
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	ctx := context.Background()
	raw, err := LoadGraph(ctx, writeGraph(t, "shop.json", shopJSON), "")
	require.NoError(t, err)
	_, err = engine.PutProject(ctx, raw)
	require.NoError(t, err)
	res, err := engine.CompileProject(ctx, "shop")
	require.NoError(t, err)
	require.True(t, res.Success, "errors: %v", res.Errors)

	stored, err := os.ReadFile(filepath.Join(storeDir, "shop.json"))
	require.NoError(t, err)
	assert.Contains(t, string(stored), "__encrypted__")
	assert.NotContains(t, string(stored), "Catalog")

	onDisk, err := os.ReadFile(filepath.Join(archiveDir, filepath.FromSlash(res.Archive.Key)))
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(onDisk, []byte("PK")))

	data, _, err := engine.Archive(ctx, res.Archive.Key)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))

	state, err := engine.GetProject(ctx, "shop")
	require.NoError(t, err)
	assert.Len(t, state.Nodes, 2)
}

func TestParseEncryptionKey(t *testing.T) {
	key, err := ParseEncryptionKey("")
	require.NoError(t, err)
	assert.Nil(t, key)

	key, err = ParseEncryptionKey(strings.Repeat("ab", 32))
	require.NoError(t, err)
	assert.Len(t, key, 32)

	_, err = ParseEncryptionKey("abcd")
	assert.ErrorContains(t, err, "32 bytes")
	_, err = ParseEncryptionKey("zz")
	assert.ErrorContains(t, err, "invalid encryption key")
}

func TestCreateLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	createLogger(&buf, true, true).Debug("hello", "error", "boom")
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "boom", record["err"])
}

func TestNewServeHandler(t *testing.T) {
	handler, closeFn, err := NewServeHandler(ServeOptions{}, &bytes.Buffer{})
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	req := httptest.NewRequest(http.MethodPost, "/compile", strings.NewReader(shopJSON))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lattice_compiles_total")
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRunMCP_UnknownTransport(t *testing.T) {
	err := RunMCP(context.Background(), "carrier-pigeon", 0, EngineOptions{}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown transport")
}

func TestDrain(t *testing.T) {
	events := make(chan string, 3)
	events <- "a"
	events <- "b"
	events <- "c"

	start := time.Now()
	drain(context.Background(), events, 20*time.Millisecond)
	assert.Empty(t, events)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
