package lattice_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/testutils"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func fixedOptions() []lattice.Option {
	return []lattice.Option{
		lattice.WithClock(func() time.Time { return fixedNow }),
		lattice.WithBuildIDGenerator(func() string { return "build-1" }),
	}
}

func shop() *domain.RawState {
	return &domain.RawState{
		ProjectID: "shop",
		Nodes: []domain.Node{
			{ID: "products", Type: domain.NodeTypeDBTable, Props: map[string]any{"name": "products"}},
			{ID: "catalog", Type: domain.NodeTypeUIPage, Props: map[string]any{"name": "Catalog", "bind_table": "products"}},
		},
		Edges: []domain.Edge{{Source: "products", Target: "catalog", Kind: domain.EdgeKindDataFlow}},
	}
}

func TestEngine_CompileProject(t *testing.T) {
	store := memory.NewStore()
	eng := lattice.New(append(fixedOptions(), lattice.WithProjectStore(store))...)
	ctx := context.Background()

	_, err := eng.PutProject(ctx, shop())
	require.NoError(t, err)

	res, err := eng.CompileProject(ctx, "shop")
	require.NoError(t, err)
	require.True(t, res.Success, "errors: %v", res.Errors)

	saved, err := eng.GetProject(ctx, "shop")
	require.NoError(t, err)
	assert.True(t, saved.Exists)
	assert.Equal(t, "2025-03-14T15:09:26Z", saved.Metadata[domain.KeyCompiledAt])
	assert.Equal(t, "build-1", saved.Metadata[domain.KeyLastBuild])

	ids, err := eng.ListProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"shop"}, ids)
}

func TestEngine_CompileProject_Missing(t *testing.T) {
	_, err := lattice.New().CompileProject(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestEngine_CompileProject_FailureIsNotSaved(t *testing.T) {
	store := memory.NewStore()
	eng := lattice.New(lattice.WithProjectStore(store))
	ctx := context.Background()

	broken := &domain.BuilderState{
		ProjectID: "broken",
		Version:   "1",
		Nodes: []domain.Node{
			{ID: "a", Type: domain.NodeTypeRestAPI, Props: map[string]any{"name": "Api"}},
			{ID: "b", Type: domain.NodeTypeRestAPI, Props: map[string]any{"name": "Api"}},
		},
		Metadata: map[string]any{},
	}
	require.NoError(t, store.Put(ctx, "broken", broken))

	res, err := eng.CompileProject(ctx, "broken")
	require.NoError(t, err)
	assert.False(t, res.Success)

	saved, err := store.Get(ctx, "broken")
	require.NoError(t, err)
	assert.False(t, saved.Exists)
	assert.NotContains(t, saved.Metadata, domain.KeyLastBuild)
}

func TestEngine_PutProject_RejectsInvalid(t *testing.T) {
	_, err := lattice.New().PutProject(context.Background(), &domain.RawState{ProjectID: "p", Nodes: []domain.Node{{Type: "widget"}}})
	assert.ErrorIs(t, err, domain.ErrSchema)
}

func TestEngine_Plan(t *testing.T) {
	planner := memory.StaticPlanner{Raw: shop()}
	eng := lattice.New(append(fixedOptions(), lattice.WithPlanner(planner))...)

	res, err := eng.Plan(context.Background(), "a product catalog")
	require.NoError(t, err)
	assert.True(t, res.Success, "errors: %v", res.Errors)
	assert.Equal(t, "shop", res.ProjectID)

	_, err = lattice.New().Plan(context.Background(), "anything")
	assert.ErrorIs(t, err, lattice.ErrNoPlanner)
}

func TestEngine_Archive(t *testing.T) {
	blobs := memory.NewBlobStore()
	eng := lattice.New(append(fixedOptions(), lattice.WithBlobStore(blobs), lattice.WithSmokeTest(true))...)
	ctx := context.Background()

	res := eng.Compile(ctx, shop())
	require.True(t, res.Success, "errors: %v", res.Errors)
	require.Equal(t, "shop/build-1.zip", res.Archive.Key)

	data, mime, err := eng.Archive(ctx, res.Archive.Key)
	require.NoError(t, err)
	assert.Equal(t, domain.ArchiveMIME, mime)
	assert.Equal(t, res.Archive.ByteSize, int64(len(data)))

	_, _, err = lattice.New().Archive(ctx, res.Archive.Key)
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
}

func TestEngine_Validate(t *testing.T) {
	raw := shop()
	raw.Edges = nil

	state, warnings, err := lattice.New().Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, "shop", state.ProjectID)
	assert.NotEmpty(t, warnings)
}

func TestEngine_HooksAreMerged(t *testing.T) {
	var first, second int
	eng := lattice.New(
		lattice.WithLifecycleHooks(domain.LifecycleHooks{OnCompileDone: func(context.Context, *domain.Result) { first++ }}),
		lattice.WithLifecycleHooks(domain.LifecycleHooks{OnCompileDone: func(context.Context, *domain.Result) { second++ }}),
	)
	eng.Compile(context.Background(), shop())
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestEngine_CompileDir(t *testing.T) {
	dir, _ := testutils.SetupTestRepo(t, map[string]string{
		"home.md": "---\ntype: ui_page\nprops:\n  name: Home\n---\nHello from Loam.",
	})

	build, err := lattice.New(fixedOptions()...).CompileDir(context.Background(), dir, "site")
	require.NoError(t, err)
	require.True(t, build.Result.Success, "errors: %v", build.Result.Errors)
	assert.Equal(t, "site", build.Result.ProjectID)

	page, ok := build.Package.Tree.Get("templates/home.html")
	require.True(t, ok)
	assert.Contains(t, string(page.Content), "Hello from Loam.")
}
