package domain

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrSchema marks structural input errors: unknown node types, missing project ids,
	// wrong-typed properties.
	ErrSchema = errors.New("schema error")
	// ErrGraphIntegrity marks dangling edges and duplicate node ids.
	ErrGraphIntegrity = errors.New("graph integrity error")
	// ErrGeneration marks a failure of one generator for one node.
	ErrGeneration = errors.New("generation error")
	// ErrPackaging marks file collisions and archive failures.
	ErrPackaging = errors.New("packaging error")
	// ErrSmokeTest marks a packaged archive that does not reproduce its file tree.
	ErrSmokeTest = errors.New("smoke test failed")

	// ErrProjectNotFound is returned when a project id cannot be found in the store.
	ErrProjectNotFound = errors.New("project not found")
	// ErrBlobNotFound is returned when an archive key cannot be found in the blob store.
	ErrBlobNotFound = errors.New("blob not found")
)

// SchemaError reports a structural problem detected while constructing a node or state.
type SchemaError struct {
	NodeID string
	Field  string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	msg := ErrSchema.Error()
	if e.NodeID != "" {
		msg += ": node " + quote(e.NodeID)
	}
	if e.Field != "" {
		msg += ": field " + quote(e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSchema, e.Err}
	}
	return []error{ErrSchema}
}

// GraphIntegrityError reports an edge pointing at a missing node or a duplicated node id.
type GraphIntegrityError struct {
	// Edge is the index of the offending edge, or -1 when the error concerns nodes.
	Edge   int
	NodeID string
	Reason string
}

func (e *GraphIntegrityError) Error() string {
	if e.Edge >= 0 {
		return fmt.Sprintf("%s: edge %d: %s %q", ErrGraphIntegrity, e.Edge, e.Reason, e.NodeID)
	}
	return fmt.Sprintf("%s: %s %q", ErrGraphIntegrity, e.Reason, e.NodeID)
}

func (e *GraphIntegrityError) Unwrap() error { return ErrGraphIntegrity }

// GenerationError reports that one generator failed for one node.
// It is collected into the compile result, never thrown.
type GenerationError struct {
	Generator string
	NodeID    string
	Err       error
}

func (e *GenerationError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("%s: %s: %v", ErrGeneration, e.Generator, e.Err)
	}
	return fmt.Sprintf("%s: %s: node %q: %v", ErrGeneration, e.Generator, e.NodeID, e.Err)
}

func (e *GenerationError) Unwrap() []error { return []error{ErrGeneration, e.Err} }

// PackagingError reports a file collision or an archive write failure.
type PackagingError struct {
	Path   string
	Reason string
	Err    error
}

func (e *PackagingError) Error() string {
	msg := ErrPackaging.Error()
	if e.Path != "" {
		msg += ": " + quote(e.Path)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PackagingError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrPackaging, e.Err}
	}
	return []error{ErrPackaging}
}

func quote(s string) string { return strconv.Quote(s) }
