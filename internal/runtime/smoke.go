package runtime

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aretw0/lattice/internal/generator"
	"github.com/aretw0/lattice/internal/packager"
	"github.com/aretw0/lattice/pkg/domain"
)

// OpenAPIPath is the generated OpenAPI document checked by the smoke test.
const OpenAPIPath = "openapi.yaml"

// smokeTest re-opens the archive, from the blob store when one is configured,
// and checks that it reproduces the packaged tree byte for byte.
func (c *Compiler) smokeTest(ctx context.Context, res *domain.Result, pkg *packager.Package) error {
	data := pkg.Bytes
	if c.blobs != nil && res.Archive != nil && res.Archive.Key != "" {
		fetched, _, err := c.blobs.Fetch(ctx, res.Archive.Key)
		if err != nil {
			return fmt.Errorf("%w: failed to fetch %q: %w", domain.ErrSmokeTest, res.Archive.Key, err)
		}
		data = fetched
	}
	return Verify(ctx, data, pkg.Tree)
}

// Verify checks that archive unpacks to exactly want and that its OpenAPI document is valid.
func Verify(ctx context.Context, archive []byte, want *packager.Tree) error {
	got, err := packager.Unpack(archive)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSmokeTest, err)
	}
	if got.Len() != want.Len() {
		return fmt.Errorf("%w: archive holds %d files, tree holds %d", domain.ErrSmokeTest, got.Len(), want.Len())
	}
	for _, f := range want.Files() {
		entry, ok := got.Get(f.Path)
		if !ok {
			return fmt.Errorf("%w: %q missing from archive", domain.ErrSmokeTest, f.Path)
		}
		if !bytes.Equal(entry.Content, f.Content) {
			return fmt.Errorf("%w: %q differs from the generated file", domain.ErrSmokeTest, f.Path)
		}
	}
	if doc, ok := got.Get(OpenAPIPath); ok {
		if err := generator.ValidateOpenAPI(ctx, doc.Content); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrSmokeTest, err)
		}
	}
	return nil
}
