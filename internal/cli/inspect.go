package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/presentation/graph"
	"github.com/aretw0/lattice/pkg/domain"
)

// RunValidate normalizes the graph at path and reports lint warnings.
func RunValidate(ctx context.Context, path, projectID string, asJSON bool, stdout io.Writer) error {
	raw, err := LoadGraph(ctx, path, projectID)
	if err != nil {
		return err
	}
	state, warnings, err := lattice.New().Validate(raw)
	if err != nil {
		return err
	}
	if warnings == nil {
		warnings = []string{}
	}

	if asJSON {
		return json.NewEncoder(stdout).Encode(map[string]any{
			"project_id": state.ProjectID,
			"nodes":      len(state.Nodes),
			"edges":      len(state.Edges),
			"warnings":   warnings,
		})
	}
	fmt.Fprintf(stdout, "Graph %s is valid: %d nodes, %d edges\n", state.ProjectID, len(state.Nodes), len(state.Edges))
	for _, w := range warnings {
		fmt.Fprintf(stdout, "  warning: %s\n", w)
	}
	return nil
}

// RunGraph prints the normalized graph as a Mermaid flowchart. With overlay,
// the graph is compiled and nodes are classed by whether generation succeeded.
func RunGraph(ctx context.Context, path, projectID string, overlay bool, stdout io.Writer) error {
	raw, err := LoadGraph(ctx, path, projectID)
	if err != nil {
		return err
	}
	engine := lattice.New()
	state, _, err := engine.Validate(raw)
	if err != nil {
		return err
	}

	var ov *graph.GraphOverlay
	if overlay {
		ov = compileOverlay(engine.Compile(ctx, raw))
	}
	_, err = fmt.Fprint(stdout, graph.GenerateMermaid(state, ov))
	return err
}

func compileOverlay(res *domain.Result) *graph.GraphOverlay {
	failed := map[string]bool{}
	ov := &graph.GraphOverlay{}
	for _, cause := range res.Causes {
		var genErr *domain.GenerationError
		if errors.As(cause, &genErr) && genErr.NodeID != "" && !failed[genErr.NodeID] {
			failed[genErr.NodeID] = true
			ov.FailedNodes = append(ov.FailedNodes, genErr.NodeID)
		}
	}
	seen := map[string]bool{}
	for _, a := range res.Artifacts {
		if a.ID == "" || failed[a.ID] || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		ov.GeneratedNodes = append(ov.GeneratedNodes, a.ID)
	}
	return ov
}
