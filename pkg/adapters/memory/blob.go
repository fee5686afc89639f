package memory

import (
	"context"
	"sync"

	"github.com/aretw0/lattice/pkg/domain"
)

type blob struct {
	data []byte
	mime string
}

// BlobStore implements ports.BlobStore in memory.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

// NewBlobStore creates an empty blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]blob)}
}

// Store keeps a copy of data under key.
func (b *BlobStore) Store(ctx context.Context, key string, data []byte, mime string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[key] = blob{data: append([]byte(nil), data...), mime: mime}
	return nil
}

// Fetch returns a copy of the data under key.
func (b *BlobStore) Fetch(ctx context.Context, key string) ([]byte, string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.blobs[key]
	if !ok {
		return nil, "", domain.ErrBlobNotFound
	}
	return append([]byte(nil), v.data...), v.mime, nil
}

// Len returns the number of stored blobs.
func (b *BlobStore) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.blobs)
}
