package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// BlobStore implements ports.BlobStore with one Redis hash per archive
// holding the bytes and the media type.
type BlobStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// NewBlobStore creates a blob store sharing client. A zero ttl keeps archives forever.
func NewBlobStore(client *backend.Client, prefix string, ttl time.Duration) *BlobStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &BlobStore{client: client, prefix: prefix, ttl: ttl}
}

func (b *BlobStore) key(key string) string {
	return b.prefix + "blob:" + key
}

// Store writes data and mime under key.
func (b *BlobStore) Store(ctx context.Context, key string, data []byte, mime string) error {
	k := b.key(key)
	pipe := b.client.TxPipeline()
	pipe.Del(ctx, k)
	pipe.HSet(ctx, k, "data", data, "mime", mime)
	if b.ttl > 0 {
		pipe.Expire(ctx, k, b.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store blob %s: %w", key, err)
	}
	return nil
}

// Fetch returns the data and mime stored under key.
func (b *BlobStore) Fetch(ctx context.Context, key string) ([]byte, string, error) {
	vals, err := b.client.HMGet(ctx, b.key(key), "data", "mime").Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, "", domain.ErrBlobNotFound
		}
		return nil, "", fmt.Errorf("failed to fetch blob %s: %w", key, err)
	}
	data, ok := vals[0].(string)
	if !ok {
		return nil, "", domain.ErrBlobNotFound
	}
	mime, _ := vals[1].(string)
	return []byte(data), mime, nil
}
