package logging

import (
	"io"
	"log/slog"
	"os"
)

// Format selects the handler used by the logger.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// New creates the compiler's logger on Stderr, so Stdout stays free for
// reports and the MCP stdio transport.
func New(level slog.Level) *slog.Logger {
	return NewWriter(os.Stderr, level, FormatText)
}

// NewWriter creates a logger writing to w in the given format.
// The "error" key is renamed to "err" in both formats.
func NewWriter(w io.Writer, level slog.Level, format Format) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Build returns a child logger tagged with a project and build id.
func Build(logger *slog.Logger, projectID, buildID string) *slog.Logger {
	return logger.With(slog.String("project_id", projectID), slog.String("build_id", buildID))
}
