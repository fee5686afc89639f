package tui

import (
	"fmt"
	"io"

	"github.com/aretw0/lattice/pkg/domain"
)

const (
	green  = "#22c55e"
	red    = "#ef4444"
	yellow = "#eab308"
)

// PrintResult writes a human summary of a compile result.
func PrintResult(w io.Writer, res *domain.Result, styled bool) {
	p := newPainter(w, styled)

	status := p.bold("OK", green)
	if !res.Success {
		status = p.bold("FAILED", red)
	}
	fmt.Fprintf(w, "%s %s (build %s, stage %s)\n", status, res.ProjectID, res.BuildID, res.Stage)

	for _, a := range res.Artifacts {
		label := a.Name
		if a.Route != "" {
			label += " " + a.Route
		}
		fmt.Fprintf(w, "  %-10s %s\n", a.Type, label)
	}
	for _, url := range res.PreviewURLs {
		fmt.Fprintf(w, "  preview    %s\n", url)
	}
	if res.Archive != nil {
		fmt.Fprintf(w, "  archive    %d bytes sha256:%s\n", res.Archive.ByteSize, res.Archive.SHA256)
	}
	for _, warning := range res.Warnings {
		fmt.Fprintln(w, p.color("  warning: "+warning, yellow))
	}
	for _, e := range res.Errors {
		fmt.Fprintln(w, p.color("  error: "+e, red))
	}
}
