package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
)

// Store implements ports.ProjectStore using the local filesystem.
// It stores builder states as JSON files in a configured directory.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".lattice/projects".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".lattice", "projects")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(projectID string) (string, error) {
	if projectID == "" {
		return "", fmt.Errorf("projectID cannot be empty")
	}
	if strings.ContainsAny(projectID, `/\`) || projectID == "." || projectID == ".." {
		return "", fmt.Errorf("invalid projectID %q", projectID)
	}
	return filepath.Join(s.BasePath, projectID+".json"), nil
}

// Put persists the builder state to a JSON file atomically.
func (s *Store) Put(ctx context.Context, projectID string, state *domain.BuilderState) error {
	dest, err := s.path(projectID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := writeAtomic(dest, data); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}
	return nil
}

// Get retrieves the builder state from a JSON file.
func (s *Store) Get(ctx context.Context, projectID string) (*domain.BuilderState, error) {
	p, err := s.path(projectID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	var state domain.BuilderState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal project state: %w", err)
	}
	return &state, nil
}

// Delete removes the project file.
func (s *Store) Delete(ctx context.Context, projectID string) error {
	p, err := s.path(projectID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete project file: %w", err)
	}
	return nil
}

// List returns all stored project IDs, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	projects := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		projects = append(projects, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(projects)
	return projects, nil
}

// writeAtomic writes to a temp file in the destination directory, syncs it and renames it over dest.
func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "tmp-"+filepath.Base(dest)+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	// Windows cannot rename an open file.
	if err := tmp.Close(); err != nil {
		return err
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return err
		}
	}
	return os.Rename(tmpPath, dest)
}
