package ports

import (
	"context"

	"github.com/aretw0/lattice/pkg/domain"
)

// ProjectStore persists builder states keyed by project id.
type ProjectStore interface {
	// Get retrieves the state for a project.
	// Returns domain.ErrProjectNotFound if the project does not exist.
	Get(ctx context.Context, projectID string) (*domain.BuilderState, error)

	// Put persists the state for a project, replacing any previous one.
	Put(ctx context.Context, projectID string, state *domain.BuilderState) error

	// Delete removes a project. Deleting a missing project is not an error.
	Delete(ctx context.Context, projectID string) error

	// List returns the ids of every stored project.
	List(ctx context.Context) ([]string, error)
}

// BlobStore stores opaque archives keyed by path-like keys.
type BlobStore interface {
	// Store writes data under key, replacing any previous value.
	Store(ctx context.Context, key string, data []byte, mime string) error

	// Fetch returns the data and media type stored under key.
	// Returns domain.ErrBlobNotFound if nothing is stored there.
	Fetch(ctx context.Context, key string) ([]byte, string, error)
}
