package observability

import (
	"context"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of compile spans.
const TracerName = "github.com/aretw0/lattice"

// buildSpans tracks the open spans of one compile.
type buildSpans struct {
	ctx   context.Context
	root  trace.Span
	stage trace.Span
}

// Tracer emits one root span per compile and one child span per stage.
// Spans are correlated by build id, so one Tracer serves concurrent compiles.
type Tracer struct {
	tracer trace.Tracer

	mu     sync.Mutex
	builds map[string]*buildSpans
}

// NewTracer creates a Tracer from the given provider.
func NewTracer(tp trace.TracerProvider) *Tracer {
	return &Tracer{
		tracer: tp.Tracer(TracerName),
		builds: make(map[string]*buildSpans),
	}
}

// Hooks returns lifecycle hooks that open and close spans.
func (t *Tracer) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageEnter:      t.stageEnter,
		OnStageLeave:      t.stageLeave,
		OnGenerationError: t.generationError,
		OnCompileDone:     t.compileDone,
	}
}

func (t *Tracer) stageEnter(ctx context.Context, e *domain.StageEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.builds[e.BuildID]
	if !ok {
		rootCtx, root := t.tracer.Start(ctx, "lattice.compile",
			trace.WithTimestamp(e.Timestamp),
			trace.WithAttributes(
				attribute.String("lattice.project_id", e.ProjectID),
				attribute.String("lattice.build_id", e.BuildID),
			),
		)
		b = &buildSpans{ctx: rootCtx, root: root}
		t.builds[e.BuildID] = b
	}
	if b.stage != nil {
		b.stage.End()
	}
	_, b.stage = t.tracer.Start(b.ctx, "lattice.stage."+string(e.Stage),
		trace.WithTimestamp(e.Timestamp),
		trace.WithAttributes(attribute.String("lattice.stage", string(e.Stage))),
	)
}

func (t *Tracer) stageLeave(ctx context.Context, e *domain.StageEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.builds[e.BuildID]
	if !ok || b.stage == nil {
		return
	}
	if e.Err != nil {
		b.stage.RecordError(e.Err)
		b.stage.SetStatus(codes.Error, e.Err.Error())
	}
	b.stage.End(trace.WithTimestamp(e.Timestamp))
	b.stage = nil
}

func (t *Tracer) generationError(ctx context.Context, e *domain.GenerationEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.builds[e.BuildID]
	if !ok {
		return
	}
	b.root.AddEvent("generation_error", trace.WithAttributes(
		attribute.String("lattice.generator", e.Generator),
		attribute.String("lattice.node_id", e.NodeID),
		attribute.String("error", e.Err.Error()),
	))
}

func (t *Tracer) compileDone(ctx context.Context, r *domain.Result) {
	t.mu.Lock()
	b, ok := t.builds[r.BuildID]
	delete(t.builds, r.BuildID)
	t.mu.Unlock()
	if !ok {
		return
	}

	if b.stage != nil {
		b.stage.End()
	}
	b.root.SetAttributes(
		attribute.Bool("lattice.success", r.Success),
		attribute.String("lattice.stage", string(r.Stage)),
		attribute.Int("lattice.artifacts", len(r.Artifacts)),
	)
	if !r.Success {
		msg := "compile failed"
		if len(r.Errors) > 0 {
			msg = r.Errors[0]
		}
		b.root.SetStatus(codes.Error, msg)
	}
	b.root.End()
}
