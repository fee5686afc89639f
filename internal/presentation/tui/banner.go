package tui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`  _          _   _   _`, "#818cf8"},
	{` | |    __ _| |_| |_(_) ___ ___`, "#a78bfa"},
	{` | |   / _' | __| __| |/ __/ _ \`, "#c084fc"},
	{` | |__| (_| | |_| |_| | (_|  __/`, "#e879f9"},
	{` |_____\__,_|\__|\__|_|\___\___|`, "#f472b6"},
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// PrintBanner writes the Lattice banner and version to w, colored when styled.
func PrintBanner(w io.Writer, version string, styled bool) {
	p := newPainter(w, styled)

	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, p.color(line.text, line.color))
	}
	fmt.Fprintln(w, p.faint("  "+version))
	fmt.Fprintln(w)
}
