// Package project serializes access to stored projects.
package project

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lattice/internal/logging"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates project access, ensuring same-project operations never interleave.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.ProjectStore

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // active locks by project id

	locker  ports.DistributedLocker // optional
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over the given project store.
func NewManager(store ports.ProjectStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST lock entry.mu, and then call release(projectID) after unlocking.
func (m *Manager) acquire(projectID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[projectID]
	if !exists {
		entry = &lockEntry{}
		m.locks[projectID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[projectID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, projectID)
	}
}

// Get loads a project from the store.
func (m *Manager) Get(ctx context.Context, projectID string) (*domain.BuilderState, error) {
	var state *domain.BuilderState
	err := m.WithLock(ctx, projectID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Get(ctx, projectID)
		return err
	})
	return state, err
}

// Put persists a project.
func (m *Manager) Put(ctx context.Context, projectID string, state *domain.BuilderState) error {
	return m.WithLock(ctx, projectID, func(ctx context.Context) error {
		return m.store.Put(ctx, projectID, state)
	})
}

// Delete removes a project from the store.
func (m *Manager) Delete(ctx context.Context, projectID string) error {
	return m.WithLock(ctx, projectID, func(ctx context.Context) error {
		return m.store.Delete(ctx, projectID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying project store.
func (m *Manager) Store() ports.ProjectStore {
	return m.store
}

// WithLock executes fn while holding the lock for the project.
// WithLock is not reentrant: fn must not call back into the Manager for the same project.
func (m *Manager) WithLock(ctx context.Context, projectID string, fn func(context.Context) error) error {
	entry := m.acquire(projectID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(projectID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, projectID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"project_id", projectID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
