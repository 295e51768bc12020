// Package pipeline sequences path resolution, shader compilation and
// artifact copies for each staging variant.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/schaermu/assetstage/internal/config"
	"github.com/schaermu/assetstage/internal/copier"
	"github.com/schaermu/assetstage/internal/layout"
	"github.com/schaermu/assetstage/internal/report"
	"github.com/schaermu/assetstage/internal/shader"
)

// Kind names a pipeline variant
type Kind string

const (
	// KindCompile only compiles shaders into the shader output directory.
	KindCompile Kind = "compile"

	// KindDeploy compiles and pushes shaders, textures and binaries from
	// the producer into the consumer tree.
	KindDeploy Kind = "deploy"

	// KindIngest pulls binaries and assets from the consumer tree into the
	// build output directory.
	KindIngest Kind = "ingest"
)

// NeedsCompiler reports whether the variant compiles shaders
func (k Kind) NeedsCompiler() bool {
	return k == KindCompile || k == KindDeploy
}

// Engine orchestrates a staging run
type Engine struct {
	cfg      *config.Config
	dirs     layout.DirectorySet
	compiler *shader.Compiler
	copier   *copier.Copier
	logger   *slog.Logger
	dryRun   bool
}

// NewEngine creates a staging engine. backend may be nil for variants
// that do not compile.
func NewEngine(cfg *config.Config, dirs layout.DirectorySet, backend shader.Backend, logger *slog.Logger, dryRun bool) *Engine {
	e := &Engine{
		cfg:    cfg,
		dirs:   dirs,
		copier: copier.New(logger, dryRun),
		logger: logger,
		dryRun: dryRun,
	}
	if backend != nil {
		e.compiler = shader.NewCompiler(backend, logger, dryRun)
	}
	return e
}

// NewBackend returns the shader backend selected by cfg
func NewBackend(cfg *config.Config, dirs layout.DirectorySet) (shader.Backend, error) {
	switch cfg.Compiler.Backend {
	case config.BackendGLSLC:
		if dirs.Compiler == "" {
			return nil, report.Configf("environment variable %s is not set", cfg.Compiler.SDKEnv)
		}
		return shader.NewGLSLC(dirs.Compiler), nil
	case config.BackendNaga:
		return shader.NewNaga(cfg.Compiler.Validate), nil
	default:
		return nil, report.Configf("invalid compiler.backend: %s", cfg.Compiler.Backend)
	}
}

// Run executes the given variant. File-level failures are collected in
// the returned report; the error is only set when the variant could not
// run at all.
func (e *Engine) Run(ctx context.Context, kind Kind) (*report.Report, error) {
	e.logger.Info("starting staging",
		"pipeline", string(kind),
		"dry_run", e.dryRun)

	if kind.NeedsCompiler() && e.compiler == nil {
		return nil, report.Configf("pipeline %s needs a shader compiler", kind)
	}

	// Mappings are checked before anything touches disk
	assets, err := e.assetMappings()
	if err != nil {
		return nil, err
	}

	var rep *report.Report
	switch kind {
	case KindCompile:
		rep = e.compile(ctx)
	case KindDeploy:
		rep = e.deploy(ctx, assets)
	case KindIngest:
		rep = e.ingest()
	default:
		return nil, report.Configf("unknown pipeline: %s", kind)
	}

	e.logSummary(kind, rep)
	return rep, nil
}

// compile makes sure the shader output directory exists, then compiles
func (e *Engine) compile(ctx context.Context) *report.Report {
	rep := &report.Report{}
	rep.Merge(e.copier.EnsureDirs(e.dirs.ShaderOutput))
	rep.Merge(e.compiler.CompileDir(ctx, e.dirs.ShaderSource, e.dirs.ShaderOutput))
	return rep
}

// deploy compiles, then pushes assets and producer binaries into the
// consumer tree. Copies always follow compilation since the shader copy
// reads the compiler's output directory.
func (e *Engine) deploy(ctx context.Context, assets []copier.Mapping) *report.Report {
	rep := e.compile(ctx)

	rep.Merge(e.copier.Run(copier.Job{
		Root: e.dirs.ConsumerAssets,
		Mappings: []copier.Mapping{{
			Source:   e.dirs.ShaderOutput,
			Subdir:   "shaders",
			Produced: true,
			Pending:  plannedOutputs(rep),
		}},
		Filter: e.cfg.Filters.Shaders,
	}))
	rep.Merge(e.copier.Run(copier.Job{
		Root:     e.dirs.ConsumerAssets,
		Mappings: []copier.Mapping{{Source: e.dirs.Textures, Subdir: "textures"}},
		Filter:   e.cfg.Filters.Textures,
	}))
	if len(assets) > 0 {
		rep.Merge(e.copier.Run(copier.Job{
			Root:     e.dirs.ConsumerAssets,
			Mappings: assets,
		}))
	}

	files := make([]copier.File, 0, len(e.cfg.Binaries.Producer))
	for _, name := range e.cfg.Binaries.Producer {
		files = append(files, copier.File{
			Source:      filepath.Join(e.dirs.BuildOutput, name),
			Destination: filepath.Join(e.dirs.ConsumerBinaries, name),
		})
	}
	rep.Merge(e.copier.CopyFiles(files))

	return rep
}

// plannedOutputs returns the artifact names report-only compilation would
// have written
func plannedOutputs(rep *report.Report) []string {
	var names []string
	for _, rec := range rep.Records {
		if rec.Stage == report.StageCompile && rec.Outcome == report.Planned {
			names = append(names, filepath.Base(rec.Destination))
		}
	}
	return names
}

// assetMappings pairs the configured extra asset directories with their
// destination subdirectories
func (e *Engine) assetMappings() ([]copier.Mapping, error) {
	sources := make([]string, len(e.cfg.Assets.Sources))
	for i, rel := range e.cfg.Assets.Sources {
		sources[i] = e.dirs.ProjectPath(rel)
	}
	return copier.Pair(sources, e.cfg.Assets.Subdirs)
}

// ingest pulls producer binaries, extra thirdparty binaries and assets
// into the build output directory
func (e *Engine) ingest() *report.Report {
	rep := &report.Report{}

	files := make([]copier.File, 0, len(e.cfg.Binaries.Producer)+len(e.cfg.Binaries.Extra))
	for _, name := range e.cfg.Binaries.Producer {
		files = append(files, copier.File{
			Source:      filepath.Join(e.dirs.ConsumerBinaries, name),
			Destination: filepath.Join(e.dirs.BuildOutput, name),
		})
	}
	for _, rel := range e.cfg.Binaries.Extra {
		src := e.dirs.ExtraBinary(rel)
		files = append(files, copier.File{
			Source:      src,
			Destination: filepath.Join(e.dirs.BuildOutput, filepath.Base(src)),
		})
	}
	rep.Merge(e.copier.CopyFiles(files))

	rep.Merge(e.copier.Run(copier.Job{
		Root:     e.dirs.BuildOutput,
		Mappings: []copier.Mapping{{Source: e.dirs.ConsumerShaders, Subdir: "shaders"}},
		Filter:   e.cfg.Filters.Shaders,
	}))
	rep.Merge(e.copier.Run(copier.Job{
		Root:     e.dirs.BuildOutput,
		Mappings: []copier.Mapping{{Source: e.dirs.ConsumerTextures, Subdir: "textures"}},
		Filter:   e.cfg.Filters.Textures,
	}))

	return rep
}

// LogDirectories logs the resolved directory set
func (e *Engine) LogDirectories() {
	for _, entry := range e.dirs.Entries() {
		e.logger.Info("directory", "role", string(entry.Role), "path", entry.Path)
	}
}

// logSummary logs counts and every failed file
func (e *Engine) logSummary(kind Kind, rep *report.Report) {
	for _, rec := range rep.Failures() {
		e.logger.Error("file failed",
			"stage", string(rec.Stage),
			"source", rec.Source,
			"dest", rec.Destination,
			"reason", rec.Reason)
	}

	attrs := []any{
		"pipeline", string(kind),
		"compiled", rep.Count(report.Compiled),
		"copied", rep.Count(report.Copied),
		"skipped", rep.Count(report.Skipped),
		"failed", rep.Count(report.Failed),
	}
	if e.dryRun {
		attrs = append(attrs, "planned", rep.Count(report.Planned))
		e.logger.Info("dry-run complete, no changes applied", attrs...)
		return
	}
	if n := rep.Count(report.Failed); n > 0 {
		e.logger.Warn(fmt.Sprintf("staging finished with %d failure(s)", n), attrs...)
		return
	}
	e.logger.Info("staging completed successfully", attrs...)
}
