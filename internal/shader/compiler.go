package shader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/schaermu/assetstage/internal/digest"
	"github.com/schaermu/assetstage/internal/report"
)

// Backend turns one source file into one artifact
type Backend interface {
	// Command returns the invocation that compiles src into dst. It is
	// what report-only mode prints and what Compile runs.
	Command(src, dst string) []string
	// Compile compiles src into dst, blocking until done.
	Compile(ctx context.Context, src, dst string) error
}

// Compiler compiles every shader source of a directory
type Compiler struct {
	backend Backend
	logger  *slog.Logger
	dryRun  bool
}

// NewCompiler creates a compiler using backend. In dry-run mode it only
// reports the commands it would run.
func NewCompiler(backend Backend, logger *slog.Logger, dryRun bool) *Compiler {
	return &Compiler{
		backend: backend,
		logger:  logger,
		dryRun:  dryRun,
	}
}

// CompileDir compiles each recognized source in srcDir into outDir.
// outDir must already exist. Failures are recorded per file and never stop
// the remaining compilations.
func (c *Compiler) CompileDir(ctx context.Context, srcDir, outDir string) *report.Report {
	rep := &report.Report{}

	c.logger.Info("compiling shaders", "source", srcDir, "output", outDir, "dry_run", c.dryRun)

	found, err := Discover(srcDir, outDir)
	if err != nil {
		c.logger.Error("failed to list shader directory", "dir", srcDir, "error", err)
		rep.Fail(report.StageCompile, srcDir, outDir, report.IOErr(srcDir, err))
		return rep
	}

	for _, path := range found.Ignored {
		c.logger.Debug("ignoring non-shader entry", "path", path)
	}

	for _, u := range found.Units {
		rep.Add(c.compileUnit(ctx, u))
	}

	c.logger.Info("shader compilation finished",
		"units", len(found.Units),
		"failed", rep.Count(report.Failed))

	return rep
}

func (c *Compiler) compileUnit(ctx context.Context, u Unit) report.Record {
	rec := report.Record{
		Stage:       report.StageCompile,
		Source:      u.Source,
		Destination: u.Destination,
	}

	if c.dryRun {
		c.logger.Info("[dry-run] would compile",
			"stage", u.Stage.String(),
			"command", strings.Join(c.backend.Command(u.Source, u.Destination), " "))
		rec.Outcome = report.Planned
		return rec
	}

	if err := checkOutputDir(u.Destination); err != nil {
		return c.failed(rec, report.IOErr(u.Destination, err))
	}

	if err := c.backend.Compile(ctx, u.Source, u.Destination); err != nil {
		var kinded *report.Error
		if !errors.As(err, &kinded) {
			err = report.CompileErr(u.Source, err)
		}
		return c.failed(rec, err)
	}

	sum, err := digest.File(u.Destination)
	if err != nil {
		return c.failed(rec, report.IOErr(u.Destination, fmt.Errorf("compiler produced no readable output: %w", err)))
	}

	c.logger.Info("compiled shader", "source", u.Name, "stage", u.Stage.String(), "dest", u.Destination)
	rec.Outcome = report.Compiled
	rec.Digest = sum
	return rec
}

func (c *Compiler) failed(rec report.Record, err error) report.Record {
	c.logger.Error("failed to compile shader", "source", rec.Source, "error", err)
	rec.Outcome = report.Failed
	rec.Err = err
	rec.Reason = err.Error()
	return rec
}

// checkOutputDir verifies the directory of dst exists before a compiler is
// pointed at it.
func checkOutputDir(dst string) error {
	dir := filepath.Dir(dst)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path %s is not a directory", dir)
	}
	return nil
}
