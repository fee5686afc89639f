package lattice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/internal/validator"
	loamAdapter "github.com/aretw0/lattice/pkg/adapters/loam"
	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/project"
)

// ErrNoPlanner is returned by Plan when no planner was configured.
var ErrNoPlanner = errors.New("no planner configured")

// Build is everything one compile produced: the result, the normalized state and the package.
type Build = runtime.Build

// Engine is the high-level entry point for the Lattice library.
// It wraps the compile pipeline and the project store behind a simplified API.
type Engine struct {
	compiler *runtime.Compiler
	projects *project.Manager
	blobs    ports.BlobStore
	planner  ports.Planner

	store      ports.ProjectStore
	locker     ports.DistributedLocker
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	now        func() time.Time
	newBuildID func() string
	smoke      bool
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithProjectStore sets where builder states are persisted (default: in memory).
func WithProjectStore(store ports.ProjectStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithBlobStore stores every packaged archive.
func WithBlobStore(store ports.BlobStore) Option {
	return func(e *Engine) {
		e.blobs = store
	}
}

// WithLocker enables distributed locking of projects across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithPlanner sets the planner used by Plan.
func WithPlanner(planner ports.Planner) Option {
	return func(e *Engine) {
		e.planner = planner
	}
}

// WithClock injects the clock used for migration timestamps and compile metadata.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithBuildIDGenerator replaces the UUID build id generator.
func WithBuildIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		e.newBuildID = fn
	}
}

// WithSmokeTest re-reads every archive after packaging and validates it.
func WithSmokeTest(enabled bool) Option {
	return func(e *Engine) {
		e.smoke = enabled
	}
}

// New initializes a new Lattice Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	managerOpts := []project.Option{project.WithLogger(eng.logger)}
	if eng.locker != nil {
		managerOpts = append(managerOpts, project.WithLocker(eng.locker))
	}
	eng.projects = project.NewManager(eng.store, managerOpts...)

	runtimeOpts := []runtime.Option{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
		runtime.WithClock(eng.now),
		runtime.WithProjectLocker(eng.projects),
		runtime.WithSmokeTest(eng.smoke),
	}
	if eng.blobs != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithBlobStore(eng.blobs))
	}
	if eng.newBuildID != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithBuildIDGenerator(eng.newBuildID))
	}
	eng.compiler = runtime.NewCompiler(runtimeOpts...)

	return eng
}

// Compile runs the full pipeline on raw IR. Failures are reported in the result.
func (e *Engine) Compile(ctx context.Context, raw *domain.RawState) *domain.Result {
	return e.compiler.Compile(ctx, raw)
}

// Build runs the full pipeline and also returns the normalized state and package.
func (e *Engine) Build(ctx context.Context, raw *domain.RawState) *Build {
	return e.compiler.Execute(ctx, raw)
}

// CompileDir reads a directory of node documents through Loam and compiles it.
func (e *Engine) CompileDir(ctx context.Context, dir, projectID string) (*Build, error) {
	loader, err := loamAdapter.Open(dir, projectID)
	if err != nil {
		return nil, err
	}
	raw, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return e.Build(ctx, raw), nil
}

// Validate normalizes raw IR without generating anything and returns lint warnings.
func (e *Engine) Validate(raw *domain.RawState) (*domain.BuilderState, []string, error) {
	state, err := validator.Normalize(raw)
	if err != nil {
		return nil, nil, err
	}
	return state, validator.Lint(state), nil
}

// PutProject normalizes raw IR and stores it under its project id.
func (e *Engine) PutProject(ctx context.Context, raw *domain.RawState) (*domain.BuilderState, error) {
	state, err := validator.Normalize(raw)
	if err != nil {
		return nil, err
	}
	if err := e.projects.Put(ctx, state.ProjectID, state); err != nil {
		return nil, fmt.Errorf("failed to store project %s: %w", state.ProjectID, err)
	}
	return state, nil
}

// GetProject loads a stored project.
func (e *Engine) GetProject(ctx context.Context, projectID string) (*domain.BuilderState, error) {
	return e.projects.Get(ctx, projectID)
}

// ListProjects returns the ids of stored projects.
func (e *Engine) ListProjects(ctx context.Context) ([]string, error) {
	return e.projects.List(ctx)
}

// CompileProject compiles a stored project. On success the normalized state is
// saved back with Exists set and the build recorded in its metadata.
// The error reports store failures only; compile failures are in the result.
func (e *Engine) CompileProject(ctx context.Context, projectID string) (*domain.Result, error) {
	stored, err := e.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	build := e.compiler.Execute(ctx, stored.Raw())
	if !build.Result.Success {
		return build.Result, nil
	}

	state := build.State
	state.Exists = true
	state.Metadata[domain.KeyCompiledAt] = e.now().UTC().Format(time.RFC3339)
	state.Metadata[domain.KeyLastBuild] = build.Result.BuildID
	if err := e.projects.Put(ctx, projectID, state); err != nil {
		return build.Result, fmt.Errorf("failed to save project %s: %w", projectID, err)
	}
	return build.Result, nil
}

// Plan asks the configured planner for raw IR and compiles it.
func (e *Engine) Plan(ctx context.Context, goal string) (*domain.Result, error) {
	if e.planner == nil {
		return nil, ErrNoPlanner
	}
	raw, err := e.planner.Plan(ctx, goal)
	if err != nil {
		return nil, fmt.Errorf("planner failed: %w", err)
	}
	return e.Compile(ctx, raw), nil
}

// Archive fetches a stored archive by key.
func (e *Engine) Archive(ctx context.Context, key string) ([]byte, string, error) {
	if e.blobs == nil {
		return nil, "", domain.ErrBlobNotFound
	}
	return e.blobs.Fetch(ctx, key)
}
