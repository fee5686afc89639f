package project_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
	"github.com/aretw0/lattice/pkg/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke lost updates if locking is missing.
type SlowStore struct {
	mu   sync.Mutex
	data map[string]*domain.BuilderState
}

func (s *SlowStore) Get(ctx context.Context, id string) (*domain.BuilderState, error) {
	time.Sleep(2 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.data[id]; ok {
		return st.Clone(), nil
	}
	return nil, domain.ErrProjectNotFound
}

func (s *SlowStore) Put(ctx context.Context, id string, st *domain.BuilderState) error {
	time.Sleep(2 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]*domain.BuilderState)
	}
	s.data[id] = st.Clone()
	return nil
}

func (s *SlowStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) { return nil, nil }

func TestManager_WithLockSerializes(t *testing.T) {
	store := &SlowStore{}
	mgr := project.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	require.NoError(t, mgr.Put(ctx, id, &domain.BuilderState{ProjectID: id, Metadata: map[string]any{"n": 0}}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithLock(ctx, id, func(ctx context.Context) error {
				st, err := store.Get(ctx, id)
				if err != nil {
					return err
				}
				st.Metadata["n"] = st.Metadata["n"].(int) + 1
				return store.Put(ctx, id, st)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := mgr.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10, st.Metadata["n"], "read-modify-write under the lock must not lose updates")
}

func TestManager_GetMissing(t *testing.T) {
	mgr := project.NewManager(&SlowStore{})
	_, err := mgr.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

type recordingLocker struct {
	mu        sync.Mutex
	keys      []string
	ttls      []time.Duration
	unlockErr error
	lockErr   error
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lockErr != nil {
		return nil, l.lockErr
	}
	l.keys = append(l.keys, key)
	l.ttls = append(l.ttls, ttl)
	return func(ctx context.Context) error { return l.unlockErr }, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &recordingLocker{unlockErr: errors.New("lost connection")}
	mgr := project.NewManager(&SlowStore{}, project.WithLocker(locker), project.WithLockTTL(time.Second))

	called := false
	err := mgr.WithLock(context.Background(), "p1", func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err, "unlock failures are logged, not returned")
	assert.True(t, called)
	assert.Equal(t, []string{"p1"}, locker.keys)
	assert.Equal(t, []time.Duration{time.Second}, locker.ttls)
}

func TestManager_DistributedLockFailure(t *testing.T) {
	locker := &recordingLocker{lockErr: errors.New("redis down")}
	mgr := project.NewManager(&SlowStore{}, project.WithLocker(locker))

	err := mgr.WithLock(context.Background(), "p1", func(ctx context.Context) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.ErrorContains(t, err, "failed to acquire distributed lock")
}
