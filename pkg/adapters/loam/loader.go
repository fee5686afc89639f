package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/loam"
)

// Loader adapts a Loam repository of node documents to ports.GraphSource.
// Each document describes one node; its id defaults to the file name without extension.
type Loader struct {
	Repo      *loam.TypedRepository[NodeMetadata]
	ProjectID string
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[NodeMetadata], projectID string) *Loader {
	return &Loader{
		Repo:      repo,
		ProjectID: projectID,
	}
}

// Open initializes a read-only, strict Loam repository at dir.
// The project id defaults to the directory name.
func Open(dir, projectID string) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if projectID == "" {
		projectID = filepath.Base(absPath)
	}

	// Strict mode makes every adapter return json.Number for numbers;
	// ReadOnly keeps Loam from touching the graph directory.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[NodeMetadata](repo), projectID), nil
}

// Load reads every document and assembles the raw state, ordered by node id.
func (l *Loader) Load(ctx context.Context) (*domain.RawState, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	nodes := make([]domain.NodeDocument, 0, len(docs))
	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID

		node, err := buildDocument(id, doc.Data, doc.Content)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
		nodes = append(nodes, node)
	}
	return domain.Assemble(l.ProjectID, nodes), nil
}

// ListNodes returns the ids of every node document, sorted.
func (l *Loader) ListNodes(ctx context.Context) ([]string, error) {
	raw, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(raw.Nodes))
	for i, n := range raw.Nodes {
		ids[i] = n.ID
	}
	sort.Strings(ids)
	return ids, nil
}

func buildDocument(id string, meta NodeMetadata, body string) (domain.NodeDocument, error) {
	props, err := nativeMap(meta.Props)
	if err != nil {
		return domain.NodeDocument{}, fmt.Errorf("props: %w", err)
	}
	nodeMeta, err := nativeMap(meta.Meta)
	if err != nil {
		return domain.NodeDocument{}, fmt.Errorf("meta: %w", err)
	}

	// A Markdown body is the page content unless props already carry one.
	body = strings.TrimSpace(body)
	if domain.NodeType(meta.Type) == domain.NodeTypeUIPage && body != "" {
		if props == nil {
			props = make(map[string]any)
		}
		if _, ok := props["content"]; !ok {
			props["content"] = body
		}
	}

	doc := domain.NodeDocument{
		ID:    id,
		Type:  domain.NodeType(meta.Type),
		Props: props,
		Meta:  nodeMeta,
	}
	for i, e := range meta.Edges {
		target := e.Target
		if target == "" {
			target = e.To
		}
		if target == "" {
			return domain.NodeDocument{}, fmt.Errorf("edge %d has no target", i)
		}
		doc.Edges = append(doc.Edges, domain.DocumentEdge{Target: trimExtension(target), Kind: e.Kind})
	}
	return doc, nil
}

func nativeMap(m map[string]any) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		nv, err := native(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

// native converts json.Number and YAML's map[any]any into the JSON-decoded forms
// the registry validates against.
func native(v any) (any, error) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case map[string]any:
		return nativeMap(val)
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, sub := range val {
			m[fmt.Sprintf("%v", k)] = sub
		}
		return nativeMap(m)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			nv, err := native(item)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	default:
		return v, nil
	}
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch signals the id of every changed node document until ctx is done.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
