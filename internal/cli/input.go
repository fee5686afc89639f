package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/lattice/internal/compiler"
	loamAdapter "github.com/aretw0/lattice/pkg/adapters/loam"
	"github.com/aretw0/lattice/pkg/domain"
)

// LoadGraph reads raw IR from path: a directory of node documents read through
// Loam, or a single JSON, YAML or HCL graph file. A non-empty projectID
// overrides the one in the document.
func LoadGraph(ctx context.Context, path, projectID string) (*domain.RawState, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph: %w", err)
	}

	var raw *domain.RawState
	if info.IsDir() {
		loader, err := loamAdapter.Open(path, projectID)
		if err != nil {
			return nil, err
		}
		raw, err = loader.Load(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read graph: %w", err)
		}
		raw, err = compiler.NewParser().ParseFile(path, data)
		if err != nil {
			return nil, err
		}
	}

	if projectID != "" {
		raw.ProjectID = projectID
	}
	return raw, nil
}
