package project

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
)

type nopStore struct{}

func (nopStore) Get(ctx context.Context, id string) (*domain.BuilderState, error) {
	return nil, domain.ErrProjectNotFound
}
func (nopStore) Put(ctx context.Context, id string, s *domain.BuilderState) error { return nil }
func (nopStore) Delete(ctx context.Context, id string) error                      { return nil }
func (nopStore) List(ctx context.Context) ([]string, error)                       { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		id := fmt.Sprintf("project-%d", i)
		_ = mgr.Put(ctx, id, &domain.BuilderState{ProjectID: id})
		_ = mgr.Delete(ctx, id)
	}

	assert.Empty(t, mgr.locks, "lock entries must be released once unused")
}
