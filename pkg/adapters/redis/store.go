package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "lattice:"

// noExpiry is the index score of projects stored without a TTL (2100-01-01).
const noExpiry = 4102444800

// Store implements ports.ProjectStore using Redis.
// Projects are JSON strings; a ZSET indexes them by expiry for List.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Redis store.
type Option func(*Store)

// WithTTL sets the expiration for projects.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client returns the underlying client, to share it with a BlobStore or Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(projectID string) string {
	return s.prefix + "project:" + projectID
}

func (s *Store) indexKey() string {
	return s.prefix + "project:index"
}

// Put persists the state as JSON and indexes it.
func (s *Store) Put(ctx context.Context, projectID string, state *domain.BuilderState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	score := float64(noExpiry)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).Unix())
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(projectID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: projectID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Get retrieves the state from Redis.
func (s *Store) Get(ctx context.Context, projectID string) (*domain.BuilderState, error) {
	val, err := s.client.Get(ctx, s.key(projectID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var state domain.BuilderState
	if err := json.Unmarshal(val, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// Delete removes the project and its index entry.
func (s *Store) Delete(ctx context.Context, projectID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(projectID))
	pipe.ZRem(ctx, s.indexKey(), projectID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns live projects, pruning index entries whose TTL has passed.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired projects: %w", err)
	}

	projects, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
