package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/packager"
	"github.com/aretw0/lattice/internal/presentation/tui"
	loamAdapter "github.com/aretw0/lattice/pkg/adapters/loam"
)

// CompileOptions configures the compile command.
type CompileOptions struct {
	EngineOptions

	Path      string
	ProjectID string
	// Out materializes the scaffold tree in a directory.
	Out string
	// Archive writes the zip archive to a file.
	Archive string
	// Readme renders the generated README after the summary.
	Readme bool
	JSON   bool
}

// RunCompile compiles the graph at opts.Path once.
// It returns ErrCompileFailed when the result is not successful.
func RunCompile(ctx context.Context, opts CompileOptions, stdout, stderr io.Writer) error {
	logger := createLogger(stderr, opts.Debug, opts.JSON)
	engine, closeFn, err := createEngine(opts.EngineOptions, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	return compileOnce(ctx, engine, opts, stdout)
}

func compileOnce(ctx context.Context, engine *lattice.Engine, opts CompileOptions, stdout io.Writer) error {
	raw, err := LoadGraph(ctx, opts.Path, opts.ProjectID)
	if err != nil {
		return err
	}
	build := engine.Build(ctx, raw)

	if pkg := build.Package; pkg != nil {
		if opts.Out != "" {
			if err := packager.WriteDir(pkg.Tree, opts.Out); err != nil {
				return fmt.Errorf("failed to write scaffold: %w", err)
			}
		}
		if opts.Archive != "" {
			if err := os.WriteFile(opts.Archive, pkg.Bytes, 0o644); err != nil {
				return fmt.Errorf("failed to write archive: %w", err)
			}
		}
	}

	if opts.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(build.Result); err != nil {
			return err
		}
	} else {
		styled := isTerminal(stdout)
		tui.PrintResult(stdout, build.Result, styled)
		if opts.Readme && build.Package != nil {
			if err := printReadme(stdout, build.Package, styled); err != nil {
				return err
			}
		}
	}

	if !build.Result.Success {
		return ErrCompileFailed
	}
	return nil
}

func printReadme(w io.Writer, pkg *packager.Package, styled bool) error {
	readme, ok := pkg.Tree.Get("README.md")
	if !ok {
		return nil
	}
	render, err := tui.NewRenderer(styled, 100)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := render(string(readme.Content))
	if err != nil {
		return fmt.Errorf("failed to render README: %w", err)
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && tui.IsTerminal(f)
}

// watchDebounce collapses bursts of file events into one recompile.
const watchDebounce = 150 * time.Millisecond

// RunWatch compiles the node directory at opts.Path, then recompiles on every
// change until ctx is done.
func RunWatch(ctx context.Context, opts CompileOptions, stdout, stderr io.Writer) error {
	logger := createLogger(stderr, opts.Debug, opts.JSON)
	if isTerminal(stdout) && !opts.JSON {
		tui.PrintBanner(stdout, lattice.Version, true)
	}

	info, err := os.Stat(opts.Path)
	if err != nil {
		return fmt.Errorf("failed to open graph: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch needs a directory of node documents, got file %s", opts.Path)
	}

	engine, closeFn, err := createEngine(opts.EngineOptions, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	loader, err := loamAdapter.Open(opts.Path, opts.ProjectID)
	if err != nil {
		return err
	}
	events, err := loader.Watch(ctx)
	if err != nil {
		return err
	}
	logger.Info("Starting watcher", "path", opts.Path)

	recompile := func() {
		if err := compileOnce(ctx, engine, opts, stdout); err != nil {
			logger.Warn("Compile failed, waiting for changes", "err", err)
		}
	}
	recompile()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping watcher")
			return nil
		case id, ok := <-events:
			if !ok {
				return nil
			}
			logger.Info("Change detected", "node_id", id)
			drain(ctx, events, watchDebounce)
			recompile()
		}
	}
}

// drain discards events arriving within quiet of each other.
func drain(ctx context.Context, events <-chan string, quiet time.Duration) {
	timer := time.NewTimer(quiet)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(quiet)
		}
	}
}
