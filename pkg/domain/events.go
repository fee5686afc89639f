package domain

import (
	"context"
	"time"
)

// StageEvent is emitted when the compile pipeline enters or leaves a stage.
type StageEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	ProjectID string        `json:"project_id"`
	BuildID   string        `json:"build_id"`
	Stage     Stage         `json:"stage"`
	Duration  time.Duration `json:"duration,omitempty"` // set on leave
	Err       error         `json:"-"`                  // set on leave when the stage failed
}

// GenerationEvent is emitted for each per-node generation failure.
type GenerationEvent struct {
	Timestamp time.Time `json:"timestamp"`
	ProjectID string    `json:"project_id"`
	BuildID   string    `json:"build_id"`
	Generator string    `json:"generator"`
	NodeID    string    `json:"node_id"`
	Err       error     `json:"-"`
}

// LifecycleHooks defines callbacks for compiler observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnStageEnter      func(context.Context, *StageEvent)
	OnStageLeave      func(context.Context, *StageEvent)
	OnGenerationError func(context.Context, *GenerationEvent)
	OnCompileDone     func(context.Context, *Result)
}

// Merge returns hooks that call h first, then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStageEnter:      chain(h.OnStageEnter, other.OnStageEnter),
		OnStageLeave:      chain(h.OnStageLeave, other.OnStageLeave),
		OnGenerationError: chain(h.OnGenerationError, other.OnGenerationError),
		OnCompileDone:     chain(h.OnCompileDone, other.OnCompileDone),
	}
}

func chain[T any](a, b func(context.Context, T)) func(context.Context, T) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e T) {
		a(ctx, e)
		b(ctx, e)
	}
}
