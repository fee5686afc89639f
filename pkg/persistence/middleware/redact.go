package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

// DefaultSecretPatterns match prop and metadata keys that usually carry credentials,
// such as payment provider keys or storage secrets.
var DefaultSecretPatterns = []string{`(?i)secret`, `(?i)api_?key`, `(?i)password`, `(?i)token`}

type redactMiddleware struct {
	next     ports.ProjectStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that masks node props, node meta and
// project metadata whose keys match one of the patterns before they are stored.
// Masking is one-way: a later Get returns the mask, not the original value.
func NewRedactMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.ProjectStore) ports.ProjectStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactMiddleware) Put(ctx context.Context, projectID string, state *domain.BuilderState) error {
	// The caller keeps using state, so only the clone is masked.
	cloned := state.Clone()
	for i := range cloned.Nodes {
		m.mask(cloned.Nodes[i].Props)
		m.mask(cloned.Nodes[i].Meta)
	}
	m.mask(cloned.Metadata)
	return m.next.Put(ctx, projectID, cloned)
}

func (m *redactMiddleware) Get(ctx context.Context, projectID string) (*domain.BuilderState, error) {
	return m.next.Get(ctx, projectID)
}

func (m *redactMiddleware) Delete(ctx context.Context, projectID string) error {
	return m.next.Delete(ctx, projectID)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactMiddleware) mask(v map[string]any) {
	for k, val := range v {
		if m.matches(k) {
			v[k] = Mask
			continue
		}
		maskValue(m, val)
	}
}

func maskValue(m *redactMiddleware, v any) {
	switch t := v.(type) {
	case map[string]any:
		m.mask(t)
	case []any:
		for _, item := range t {
			maskValue(m, item)
		}
	}
}

func (m *redactMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
