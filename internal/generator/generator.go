package generator

import (
	"log/slog"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
)

// Generator names, as reported in GenerationError.Generator and File.Generator.
const (
	GenREST         = "rest"
	GenDB           = "db"
	GenIntegrations = "integrations"
	GenUI           = "ui"
	GenConfig       = "config"
)

// Options configures a generation run.
type Options struct {
	// Now stamps migrations. Identical state and Now give identical output.
	Now    time.Time
	Logger *slog.Logger
}

// Output is everything a run produced. Files and Artifacts only hold the
// results of nodes that generated without error.
type Output struct {
	Files             []domain.File
	Artifacts         []domain.Artifact
	Errors            []*domain.GenerationError
	PreviewURLs       []string
	DefaultPreviewURL string
	// Generated and Failed list node ids by outcome, in generation order.
	Generated []string
	Failed    []string
}

// Generate runs the passes REST, DB, Integrations, UI and Config over a
// normalized state. Per-node failures are collected in Output.Errors
// and never stop the run.
func Generate(state *domain.BuilderState, opts Options) *Output {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Unix(0, 0)
	}

	r := &run{
		state: state,
		arena: state.Arena(),
		opts:  opts,
		out:   &Output{},
		index: newIndex(),
	}

	plan := planPasses(state)
	r.restPass(plan.rest)
	r.dbPass(plan.db)
	r.integrationsPass(plan.integrations)
	r.uiPass(plan.ui)
	r.configPass()
	return r.out
}

// run carries the state of one Generate call.
type run struct {
	state *domain.BuilderState
	arena *domain.Arena
	opts  Options
	out   *Output
	index *index

	// migrations are chained: each revises the previous one.
	migrationSeq int
	lastRevision string
}

// nodeResult is what one node contributes once it generated successfully.
type nodeResult struct {
	files    []domain.File
	artifact *domain.Artifact
}

func (r *run) file(node *domain.Node, generator, path string, content []byte) domain.File {
	f := domain.File{Path: path, Content: content, Generator: generator}
	if node != nil {
		f.NodeID = node.ID
	}
	return f
}

// commit records one node's outcome. A failed node contributes nothing.
func (r *run) commit(node *domain.Node, generator string, res *nodeResult, err error) bool {
	if err != nil {
		genErr := &domain.GenerationError{Generator: generator, NodeID: node.ID, Err: err}
		r.out.Errors = append(r.out.Errors, genErr)
		r.out.Failed = append(r.out.Failed, node.ID)
		r.opts.Logger.Warn("node generation failed", "generator", generator, "node_id", node.ID, "error", err)
		return false
	}
	r.out.Files = append(r.out.Files, res.files...)
	if res.artifact != nil {
		res.artifact.Files = paths(res.files)
		r.out.Artifacts = append(r.out.Artifacts, *res.artifact)
	}
	r.out.Generated = append(r.out.Generated, node.ID)
	r.opts.Logger.Debug("node generated", "generator", generator, "node_id", node.ID, "files", len(res.files))
	return true
}

// fail records an error not tied to a single node.
func (r *run) fail(generator string, err error) {
	r.out.Errors = append(r.out.Errors, &domain.GenerationError{Generator: generator, Err: err})
	r.opts.Logger.Warn("generation failed", "generator", generator, "error", err)
}

func paths(files []domain.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}
