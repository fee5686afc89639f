package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
)

const mimeSuffix = ".mime"

// BlobStore implements ports.BlobStore on a directory. Keys map to relative
// paths; the media type is kept in a sidecar file next to the blob.
type BlobStore struct {
	BasePath string
}

// NewBlobStore creates a blob store rooted at basePath (default ".lattice/archives").
func NewBlobStore(basePath string) *BlobStore {
	if basePath == "" {
		basePath = filepath.Join(".lattice", "archives")
	}
	return &BlobStore{BasePath: basePath}
}

func (b *BlobStore) path(key string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(key, "\\", "/"))
	if key == "" || clean == "." || strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	if strings.HasSuffix(clean, mimeSuffix) {
		return "", fmt.Errorf("blob key %q uses reserved suffix %s", key, mimeSuffix)
	}
	return filepath.Join(b.BasePath, filepath.FromSlash(clean)), nil
}

// Store writes data and its mime sidecar under key.
func (b *BlobStore) Store(ctx context.Context, key string, data []byte, mime string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := writeAtomic(p, data); err != nil {
		return fmt.Errorf("failed to store blob %s: %w", key, err)
	}
	if err := writeAtomic(p+mimeSuffix, []byte(mime)); err != nil {
		return fmt.Errorf("failed to store blob %s: %w", key, err)
	}
	return nil
}

// Fetch reads the blob and its mime. A missing sidecar yields an empty mime.
func (b *BlobStore) Fetch(ctx context.Context, key string) ([]byte, string, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", domain.ErrBlobNotFound
		}
		return nil, "", fmt.Errorf("failed to fetch blob %s: %w", key, err)
	}
	mime, err := os.ReadFile(p + mimeSuffix)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, "", fmt.Errorf("failed to fetch blob %s: %w", key, err)
	}
	return data, string(mime), nil
}
