package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("build-%d", n.Add(1)) }
}

func newCompiler(opts ...runtime.Option) *runtime.Compiler {
	base := []runtime.Option{
		runtime.WithClock(func() time.Time { return fixedNow }),
		runtime.WithBuildIDGenerator(sequentialIDs()),
	}
	return runtime.NewCompiler(append(base, opts...)...)
}

func helloWorld() *domain.RawState {
	return &domain.RawState{
		ProjectID: "p1",
		Nodes:     []domain.Node{{ID: "hello", Type: domain.NodeTypeUIPage, Props: map[string]any{"name": "HelloPage"}}},
	}
}

func blog() *domain.RawState {
	return &domain.RawState{
		ProjectID: "blog",
		Nodes: []domain.Node{
			{ID: "posts", Type: domain.NodeTypeDBTable, Props: map[string]any{"name": "blog_posts"}},
			{ID: "list", Type: domain.NodeTypeRestAPI, Props: map[string]any{"name": "Posts", "route": "/api/posts"}},
			{ID: "home", Type: domain.NodeTypeUIPage, Props: map[string]any{
				"name": "Home", "route": "/", "bind_table": "posts", "consumes": "list",
			}},
		},
		Edges: []domain.Edge{
			{Source: "posts", Target: "home", Kind: domain.EdgeKindDataFlow},
			{Source: "list", Target: "home", Kind: domain.EdgeKindDataFlow},
		},
	}
}

func TestCompile_HelloWorld(t *testing.T) {
	res := newCompiler().Compile(context.Background(), helloWorld())

	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.Equal(t, domain.StageDone, res.Stage)
	assert.Equal(t, "p1", res.ProjectID)
	assert.Equal(t, "build-1", res.BuildID)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "/ui/hello-page", res.DefaultPreviewURL)
	assert.Contains(t, res.Files, "app.py")
	assert.Contains(t, res.Files, "templates/hello-page.html")
	require.NotNil(t, res.Archive)
	assert.Empty(t, res.Archive.Key, "no blob store configured")
	assert.Len(t, res.Archive.SHA256, 64)
}

func TestCompile_NormalizationFailure(t *testing.T) {
	tests := []struct {
		name string
		raw  *domain.RawState
		want error
	}{
		{"nil state", nil, domain.ErrSchema},
		{"missing project id", &domain.RawState{}, domain.ErrSchema},
		{"unknown type", &domain.RawState{ProjectID: "p", Nodes: []domain.Node{{ID: "x", Type: "widget"}}}, domain.ErrSchema},
		{"duplicate ids", &domain.RawState{ProjectID: "p", Nodes: []domain.Node{
			{ID: "x", Type: domain.NodeTypeAuth}, {ID: "x", Type: domain.NodeTypePayment},
		}}, domain.ErrGraphIntegrity},
		{"dangling edge", &domain.RawState{ProjectID: "p",
			Nodes: []domain.Node{{ID: "x", Type: domain.NodeTypeAuth}},
			Edges: []domain.Edge{{Source: "x", Target: "ghost"}},
		}, domain.ErrGraphIntegrity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			build := newCompiler().Execute(context.Background(), tt.raw)
			res := build.Result

			assert.False(t, res.Success)
			assert.Equal(t, domain.StageFailed, res.Stage)
			assert.Empty(t, res.Artifacts)
			assert.Nil(t, res.Archive)
			assert.Nil(t, build.State)
			require.Len(t, res.Causes, 1)
			assert.ErrorIs(t, res.Causes[0], tt.want)
		})
	}
}

func TestCompile_RouteCollisionKeepsArtifacts(t *testing.T) {
	raw := &domain.RawState{
		ProjectID: "p",
		Nodes: []domain.Node{
			{ID: "a", Type: domain.NodeTypeRestAPI, Props: map[string]any{"name": "Api"}},
			{ID: "b", Type: domain.NodeTypeRestAPI, Props: map[string]any{"name": "Api"}},
		},
	}
	res := newCompiler().Compile(context.Background(), raw)

	assert.False(t, res.Success)
	assert.Equal(t, domain.StageFailed, res.Stage)
	require.NotEmpty(t, res.Causes)
	assert.ErrorIs(t, res.Causes[len(res.Causes)-1], domain.ErrPackaging)
	assert.Contains(t, res.Errors[len(res.Errors)-1], "handlers/get_api_api.py")

	var rest int
	for _, a := range res.Artifacts {
		if a.Type == string(domain.NodeTypeRestAPI) {
			rest++
			assert.Equal(t, "/api/api", a.Route)
		}
	}
	assert.Equal(t, 2, rest)
	assert.Nil(t, res.Archive)
}

func TestCompile_GenerationErrorsAreCollected(t *testing.T) {
	raw := &domain.RawState{
		ProjectID: "p",
		Nodes: []domain.Node{
			{ID: "bad", Type: domain.NodeTypeDBTable, Props: map[string]any{
				"name": "broken", "columns": []any{map[string]any{"name": "x", "type": "varchar(10"}},
			}},
			{ID: "good", Type: domain.NodeTypeDBTable, Props: map[string]any{"name": "fine"}},
		},
	}
	var events []*domain.GenerationEvent
	hooks := domain.LifecycleHooks{
		OnGenerationError: func(ctx context.Context, e *domain.GenerationEvent) { events = append(events, e) },
	}
	res := newCompiler(runtime.WithLifecycleHooks(hooks)).Compile(context.Background(), raw)

	assert.False(t, res.Success)
	assert.Equal(t, domain.StageDone, res.Stage, "generation errors do not stop packaging")
	require.Len(t, res.Causes, 1)
	assert.ErrorIs(t, res.Causes[0], domain.ErrGeneration)
	assert.Contains(t, res.Files, "models/fine.py")
	assert.NotContains(t, res.Files, "models/broken.py")

	require.Len(t, events, 1)
	assert.Equal(t, "bad", events[0].NodeID)
	assert.Equal(t, "build-1", events[0].BuildID)
}

func TestCompile_LintWarnings(t *testing.T) {
	raw := blog()
	raw.Edges = nil
	res := newCompiler().Compile(context.Background(), raw)

	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.NotEmpty(t, res.Warnings)
}

func TestCompile_StageHooks(t *testing.T) {
	var mu sync.Mutex
	var trail []string
	var done *domain.Result
	hooks := domain.LifecycleHooks{
		OnStageEnter: func(ctx context.Context, e *domain.StageEvent) {
			mu.Lock()
			defer mu.Unlock()
			trail = append(trail, "+"+string(e.Stage))
		},
		OnStageLeave: func(ctx context.Context, e *domain.StageEvent) {
			mu.Lock()
			defer mu.Unlock()
			trail = append(trail, "-"+string(e.Stage))
		},
		OnCompileDone: func(ctx context.Context, r *domain.Result) { done = r },
	}

	res := newCompiler(runtime.WithLifecycleHooks(hooks), runtime.WithSmokeTest(true)).
		Compile(context.Background(), blog())
	require.True(t, res.Success, "errors: %v", res.Errors)

	assert.Equal(t, []string{
		"+received", "-received",
		"+normalized", "-normalized",
		"+generated", "-generated",
		"+packaged", "-packaged",
		"+tested", "-tested",
		"+done",
	}, trail)
	assert.Same(t, res, done)
}

func TestCompile_BlobStore(t *testing.T) {
	blobs := memory.NewBlobStore()
	build := newCompiler(runtime.WithBlobStore(blobs), runtime.WithSmokeTest(true)).
		Execute(context.Background(), blog())
	res := build.Result
	require.True(t, res.Success, "errors: %v", res.Errors)

	require.NotNil(t, res.Archive)
	assert.Equal(t, "blog/build-1.zip", res.Archive.Key)

	data, mime, err := blobs.Fetch(context.Background(), res.Archive.Key)
	require.NoError(t, err)
	assert.Equal(t, domain.ArchiveMIME, mime)
	assert.Equal(t, build.Package.Bytes, data)
	assert.Equal(t, "blog", build.State.ProjectID)
}

type failingBlobStore struct{}

func (failingBlobStore) Store(ctx context.Context, key string, data []byte, mime string) error {
	return errors.New("disk full")
}

func (failingBlobStore) Fetch(ctx context.Context, key string) ([]byte, string, error) {
	return nil, "", domain.ErrBlobNotFound
}

func TestCompile_BlobStoreFailure(t *testing.T) {
	res := newCompiler(runtime.WithBlobStore(failingBlobStore{})).Compile(context.Background(), helloWorld())

	assert.False(t, res.Success)
	assert.Equal(t, domain.StageFailed, res.Stage)
	require.Len(t, res.Causes, 1)
	assert.ErrorIs(t, res.Causes[0], domain.ErrPackaging)
	assert.NotEmpty(t, res.Artifacts)
}

// corruptingBlobStore returns archives whose first half is bit-flipped.
type corruptingBlobStore struct{ *memory.BlobStore }

func (c corruptingBlobStore) Fetch(ctx context.Context, key string) ([]byte, string, error) {
	data, mime, err := c.BlobStore.Fetch(ctx, key)
	if err != nil {
		return nil, "", err
	}
	for i := 0; i < len(data)/2; i++ {
		data[i] ^= 0xff
	}
	return data, mime, nil
}

func TestCompile_SmokeTestDetectsCorruption(t *testing.T) {
	store := corruptingBlobStore{memory.NewBlobStore()}
	res := newCompiler(runtime.WithBlobStore(store), runtime.WithSmokeTest(true)).
		Compile(context.Background(), blog())

	assert.False(t, res.Success)
	assert.Equal(t, domain.StageFailed, res.Stage)
	require.NotEmpty(t, res.Causes)
	assert.ErrorIs(t, res.Causes[len(res.Causes)-1], domain.ErrSmokeTest)
}

func TestCompile_RecoversPanics(t *testing.T) {
	hooks := domain.LifecycleHooks{
		OnStageEnter: func(ctx context.Context, e *domain.StageEvent) {
			if e.Stage == domain.StageGenerated {
				panic("boom")
			}
		},
	}
	var res *domain.Result
	require.NotPanics(t, func() {
		res = newCompiler(runtime.WithLifecycleHooks(hooks)).Compile(context.Background(), helloWorld())
	})

	assert.False(t, res.Success)
	assert.Equal(t, domain.StageFailed, res.Stage)
	require.NotEmpty(t, res.Errors)
	assert.Contains(t, res.Errors[len(res.Errors)-1], "panic during generated stage: boom")
}

func TestCompile_Deterministic(t *testing.T) {
	first := newCompiler().Compile(context.Background(), blog())
	second := newCompiler().Compile(context.Background(), blog())

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, first.Archive.SHA256, second.Archive.SHA256)
	assert.Equal(t, first.Files, second.Files)
}

func TestCompile_DoesNotMutateInput(t *testing.T) {
	raw := blog()
	newCompiler().Compile(context.Background(), raw)
	assert.Equal(t, blog(), raw)
}

// trackingBlobStore records how many writes overlap.
type trackingBlobStore struct {
	*memory.BlobStore
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (s *trackingBlobStore) Store(ctx context.Context, key string, data []byte, mime string) error {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return s.BlobStore.Store(ctx, key, data, mime)
}

func TestCompile_SameProjectWritesSerialize(t *testing.T) {
	store := &trackingBlobStore{BlobStore: memory.NewBlobStore()}
	c := newCompiler(runtime.WithBlobStore(store))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := c.Compile(context.Background(), helloWorld())
			assert.True(t, res.Success, "errors: %v", res.Errors)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.maxSeen.Load())
	assert.Equal(t, 8, store.Len(), "every build gets its own key")
}
