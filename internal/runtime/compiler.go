package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/lattice/internal/generator"
	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/internal/packager"
	"github.com/aretw0/lattice/internal/validator"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/project"
	"github.com/google/uuid"
)

// ProjectLocker serializes work on one project. *project.Manager implements it.
type ProjectLocker interface {
	WithLock(ctx context.Context, projectID string, fn func(context.Context) error) error
}

// Compiler runs the compile pipeline: normalize, generate, package, optionally smoke test.
// A Compiler is safe for concurrent use; each compile works on its own state and tree.
type Compiler struct {
	normalizer *validator.Normalizer
	blobs      ports.BlobStore
	locker     ProjectLocker
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	now        func() time.Time
	newBuildID func() string
	smoke      bool
}

// Option configures the Compiler.
type Option func(*Compiler)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Compiler) {
		c.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock injects the clock used for migration timestamps and stage durations.
func WithClock(now func() time.Time) Option {
	return func(c *Compiler) {
		c.now = now
	}
}

// WithBuildIDGenerator replaces the UUID build id generator.
func WithBuildIDGenerator(fn func() string) Option {
	return func(c *Compiler) {
		c.newBuildID = fn
	}
}

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n *validator.Normalizer) Option {
	return func(c *Compiler) {
		c.normalizer = n
	}
}

// WithBlobStore stores every packaged archive under <project_id>/<build_id>.zip.
func WithBlobStore(store ports.BlobStore) Option {
	return func(c *Compiler) {
		c.blobs = store
	}
}

// WithProjectLocker sets the lock held while writing archives.
func WithProjectLocker(locker ProjectLocker) Option {
	return func(c *Compiler) {
		c.locker = locker
	}
}

// WithSmokeTest re-reads every archive after packaging and checks it against the tree.
func WithSmokeTest(enabled bool) Option {
	return func(c *Compiler) {
		c.smoke = enabled
	}
}

// NewCompiler creates a compiler with the given options.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		logger:     logging.NewNop(),
		now:        time.Now,
		newBuildID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.normalizer == nil {
		c.normalizer = validator.New()
	}
	if c.locker == nil {
		c.locker = project.NewManager(nil, project.WithLogger(c.logger))
	}
	return c
}

// Build is everything one compile produced.
// State and Package are nil when the pipeline failed before producing them.
type Build struct {
	Result  *domain.Result
	State   *domain.BuilderState
	Package *packager.Package
}

// ArchiveKey returns the blob store key of a build's archive.
func ArchiveKey(projectID, buildID string) string {
	return projectID + "/" + buildID + ".zip"
}

// Compile runs the pipeline and returns its structured result. It never panics.
func (c *Compiler) Compile(ctx context.Context, raw *domain.RawState) *domain.Result {
	return c.Execute(ctx, raw).Result
}

// Execute runs the pipeline and returns the result together with the normalized
// state and the package, for callers that persist or materialize them.
func (c *Compiler) Execute(ctx context.Context, raw *domain.RawState) (b *Build) {
	r := c.start(ctx, raw)
	b = &Build{Result: r.result}

	defer func() {
		if p := recover(); p != nil {
			r.fail(fmt.Errorf("panic during %s stage: %v", r.stage, p))
		}
		r.finish()
	}()

	state, err := c.normalizer.Normalize(raw)
	if err != nil {
		r.fail(err)
		return b
	}
	r.result.ProjectID = state.ProjectID
	r.log = logging.Build(c.logger, state.ProjectID, r.result.BuildID)
	r.result.Warnings = validator.Lint(state)
	for _, w := range r.result.Warnings {
		r.log.Warn("Graph lint", "warning", w)
	}
	b.State = state
	if !r.advance(domain.StageNormalized) {
		return b
	}

	out := generator.Generate(state.Clone(), generator.Options{Now: r.started, Logger: r.log})
	r.result.Artifacts = out.Artifacts
	r.result.PreviewURLs = out.PreviewURLs
	r.result.DefaultPreviewURL = out.DefaultPreviewURL
	for _, genErr := range out.Errors {
		r.generationError(genErr)
	}
	if !r.advance(domain.StageGenerated) {
		return b
	}

	pkg, err := packager.Build(out.Files)
	if err != nil {
		r.fail(err)
		return b
	}
	b.Package = pkg
	desc := pkg.Descriptor
	r.result.Archive = &desc
	r.result.Files = pkg.Tree.Paths()
	if c.blobs != nil {
		if err := c.store(ctx, r.result, pkg); err != nil {
			r.fail(err)
			return b
		}
	}
	if !r.advance(domain.StagePackaged) {
		return b
	}

	if c.smoke {
		if err := c.smokeTest(ctx, r.result, pkg); err != nil {
			r.fail(err)
			return b
		}
		if !r.advance(domain.StageTested) {
			return b
		}
	}

	r.advance(domain.StageDone)
	return b
}

func (c *Compiler) store(ctx context.Context, res *domain.Result, pkg *packager.Package) error {
	key := ArchiveKey(res.ProjectID, res.BuildID)
	err := c.locker.WithLock(ctx, res.ProjectID, func(ctx context.Context) error {
		return c.blobs.Store(ctx, key, pkg.Bytes, pkg.Descriptor.MIME)
	})
	if err != nil {
		return &domain.PackagingError{Path: key, Reason: "failed to store archive", Err: err}
	}
	res.Archive.Key = key
	return nil
}

// run tracks one compile through the stage machine.
type run struct {
	ctx     context.Context
	c       *Compiler
	log     *slog.Logger
	result  *domain.Result
	stage   domain.Stage
	entered time.Time
	started time.Time
}

func (c *Compiler) start(ctx context.Context, raw *domain.RawState) *run {
	r := &run{
		ctx: ctx,
		c:   c,
		result: &domain.Result{
			BuildID:     c.newBuildID(),
			Stage:       domain.StageReceived,
			Artifacts:   []domain.Artifact{},
			PreviewURLs: []string{},
			Errors:      []string{},
		},
		stage:   domain.StageReceived,
		started: c.now(),
	}
	if raw != nil {
		r.result.ProjectID = raw.ProjectID
	}
	r.log = logging.Build(c.logger, r.result.ProjectID, r.result.BuildID)
	r.enter(domain.StageReceived)
	return r
}

func (r *run) event(stage domain.Stage) *domain.StageEvent {
	return &domain.StageEvent{
		Timestamp: r.c.now(),
		ProjectID: r.result.ProjectID,
		BuildID:   r.result.BuildID,
		Stage:     stage,
	}
}

func (r *run) enter(stage domain.Stage) {
	r.stage = stage
	r.result.Stage = stage
	r.entered = r.c.now()
	r.log.Debug("Stage entered", "stage", stage)
	if r.c.hooks.OnStageEnter != nil {
		r.c.hooks.OnStageEnter(r.ctx, r.event(stage))
	}
}

func (r *run) leave(err error) {
	e := r.event(r.stage)
	e.Duration = e.Timestamp.Sub(r.entered)
	e.Err = err
	if r.c.hooks.OnStageLeave != nil {
		r.c.hooks.OnStageLeave(r.ctx, e)
	}
}

// advance moves to the next stage. It reports false when the move was refused,
// in which case the run has failed.
func (r *run) advance(to domain.Stage) bool {
	if err := checkTransition(r.stage, to); err != nil {
		r.fail(err)
		return false
	}
	r.leave(nil)
	r.enter(to)
	return true
}

func (r *run) fail(err error) {
	r.result.Fail(err)
	if Terminal(r.stage) {
		return
	}
	r.log.Error("Compile failed", "stage", r.stage, "err", err)
	r.leave(err)
	r.enter(domain.StageFailed)
}

func (r *run) generationError(err *domain.GenerationError) {
	r.result.Fail(err)
	r.log.Warn("Generation failed", "generator", err.Generator, "node_id", err.NodeID, "err", err.Err)
	if r.c.hooks.OnGenerationError != nil {
		r.c.hooks.OnGenerationError(r.ctx, &domain.GenerationEvent{
			Timestamp: r.c.now(),
			ProjectID: r.result.ProjectID,
			BuildID:   r.result.BuildID,
			Generator: err.Generator,
			NodeID:    err.NodeID,
			Err:       err,
		})
	}
}

func (r *run) finish() {
	r.result.Success = r.stage == domain.StageDone && len(r.result.Errors) == 0
	r.log.Info("Compile finished",
		"success", r.result.Success,
		"stage", r.result.Stage,
		"artifacts", len(r.result.Artifacts),
		"errors", len(r.result.Errors),
	)
	if r.c.hooks.OnCompileDone != nil {
		r.c.hooks.OnCompileDone(r.ctx, r.result)
	}
}
