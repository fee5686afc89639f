package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
)

// Store implements ports.ProjectStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.BuilderState
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.BuilderState),
	}
}

// Put stores a deep copy of the state.
func (s *Store) Put(ctx context.Context, projectID string, state *domain.BuilderState) error {
	copied := state.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[projectID] = copied
	return nil
}

// Get returns a deep copy so callers can't mutate the stored state.
func (s *Store) Get(ctx context.Context, projectID string) (*domain.BuilderState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[projectID]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return state.Clone(), nil
}

// Delete removes the project.
func (s *Store) Delete(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, projectID)
	return nil
}

// List returns stored project ids, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
