package ports

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
)

// GraphSource produces raw IR from an external document set.
type GraphSource interface {
	// Load reads every node document and assembles them into a raw state.
	Load(ctx context.Context) (*domain.RawState, error)
}

// Planner turns a goal into raw IR. The planning heuristics are opaque to the compiler.
type Planner interface {
	Plan(ctx context.Context, goal string) (*domain.RawState, error)
}
