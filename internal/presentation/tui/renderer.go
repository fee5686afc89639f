package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// Unstyled renderers return the markdown unchanged.
func NewRenderer(styled bool, width int) (func(string) (string, error), error) {
	if !styled {
		return func(markdown string) (string, error) { return markdown, nil }, nil
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}
