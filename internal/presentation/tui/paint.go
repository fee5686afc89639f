package tui

import (
	"io"

	"github.com/muesli/termenv"
)

// painter colors text for a terminal, or leaves it plain.
type painter struct {
	out    *termenv.Output
	styled bool
}

func newPainter(w io.Writer, styled bool) painter {
	return painter{out: termenv.NewOutput(w), styled: styled}
}

func (p painter) color(s, hex string) string {
	if !p.styled {
		return s
	}
	return p.out.String(s).Foreground(p.out.Color(hex)).String()
}

func (p painter) bold(s, hex string) string {
	if !p.styled {
		return s
	}
	return p.out.String(s).Foreground(p.out.Color(hex)).Bold().String()
}

func (p painter) faint(s string) string {
	if !p.styled {
		return s
	}
	return p.out.String(s).Faint().String()
}
