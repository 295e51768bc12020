package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/schaermu/assetstage/internal/config"
	"github.com/schaermu/assetstage/internal/layout"
	"github.com/schaermu/assetstage/internal/pipeline"
	"github.com/schaermu/assetstage/internal/report"
	"github.com/schaermu/assetstage/internal/shader"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile    string
	logLevel   string
	logFormat  string
	workDir    string
	dryRun     bool
	reportFile string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps a run error to the process exit status: 2 for
// configuration errors, 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, report.ErrConfiguration) {
		return 2
	}
	return 1
}

var rootCmd = &cobra.Command{
	Use:   "assetstage",
	Short: "Compile shaders and stage render system artifacts",
	Long: `assetstage compiles shader sources to SPIR-V and keeps the compiled shaders,
textures and prebuilt render system binaries in sync between a producer
project, its build output and the shared thirdparty tree.

It is meant to run as a pre- or post-build step. Directories are derived from
the working directory; the shader compiler is located through the VULKAN_SDK
environment variable.`,
	SilenceUsage: true,
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile every vertex and fragment shader into the spv directory",
	RunE:  runPipeline(pipeline.KindCompile),
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Compile shaders and push assets and binaries into the thirdparty tree",
	Long: `Deploy compiles the shaders of the producer project, then copies the compiled
shaders and textures into <thirdparty>/<consumer>/assets and the render system
binaries from the build output into <thirdparty>/<consumer>/bin/Debug64.

Failures are reported per file; the remaining files are still processed and
the command exits non-zero if any file failed.`,
	RunE: runPipeline(pipeline.KindDeploy),
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Pull render system binaries and assets into the build output",
	Long: `Ingest copies the render system binaries, any configured extra thirdparty
binaries and the published shaders and textures from the thirdparty tree into
the build output directory of the consuming project. It never compiles.`,
	RunE: runPipeline(pipeline.KindIngest),
}

var dirsCmd = &cobra.Command{
	Use:   "dirs",
	Short: "Print the resolved directories",
	RunE:  runDirs,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("assetstage %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (.yaml, .yml, .json or .jsonc; default is the built-in layout)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json, auto)")
	rootCmd.PersistentFlags().StringVar(&workDir, "workdir", "", "directory to resolve paths from (default is the current directory)")

	// Pipeline command flags
	for _, cmd := range []*cobra.Command{compileCmd, deployCmd, ingestCmd} {
		addRunFlags(cmd.Flags())
	}

	// Add commands
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(dirsCmd)
	rootCmd.AddCommand(versionCmd)
}

func addRunFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&dryRun, "dry-run", false, "show what would be done without making changes")
	fs.StringVar(&reportFile, "report", "", "write a run summary to this file (.json, .yaml, .yml or .cbor)")
}

func runPipeline(kind pipeline.Kind) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := setupSignalHandler()
		defer cancel()

		// Setup logger
		logger := setupLogger()

		if reportFile != "" {
			if err := report.CheckFormat(reportFile); err != nil {
				logger.Error("invalid report file", "path", reportFile, "error", err)
				return err
			}
		}

		// Environment is read once, here
		env := config.Environ()

		cfg, err := loadConfig(logger, env)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		dirs, err := resolveDirs(cfg, env, kind.NeedsCompiler())
		if err != nil {
			logger.Error("failed to resolve directories", "error", err)
			return err
		}

		var backend shader.Backend
		if kind.NeedsCompiler() {
			backend, err = pipeline.NewBackend(cfg, dirs)
			if err != nil {
				return err
			}
		}

		engine := pipeline.NewEngine(cfg, dirs, backend, logger, dryRun)
		engine.LogDirectories()

		rep, err := engine.Run(ctx, kind)
		if err != nil {
			logger.Error("staging failed", "error", err)
			return err
		}

		if reportFile != "" {
			if err := rep.Summarize(string(kind), dryRun).WriteFile(reportFile); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			logger.Info("wrote run summary", "path", reportFile)
		}

		return rep.Err()
	}
}

func runDirs(cmd *cobra.Command, args []string) error {
	logger := setupLogger()
	env := config.Environ()

	cfg, err := loadConfig(logger, env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dirs, err := resolveDirs(cfg, env, false)
	if err != nil {
		return err
	}

	for _, entry := range dirs.Entries() {
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", entry.Role, entry.Path)
	}
	return nil
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	format := logFormat
	if format == "auto" {
		// Build systems usually pipe our output; keep it machine-readable there
		format = "json"
		if term.IsTerminal(int(os.Stdout.Fd())) {
			format = "text"
		}
	}

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func loadConfig(logger *slog.Logger, env config.Env) (*config.Config, error) {
	if cfgFile == "" {
		logger.Debug("no config file given, using built-in layout")
		return config.Default(), nil
	}

	logger.Info("loading configuration", "path", cfgFile)

	cfg, err := config.Load(cfgFile, env)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded",
		"project_root", cfg.Paths.ProjectRoot,
		"thirdparty", cfg.Paths.ThirdParty,
		"consumer", cfg.Paths.Consumer,
		"backend", cfg.Compiler.Backend)

	return cfg, nil
}

func resolveDirs(cfg *config.Config, env config.Env, needCompiler bool) (layout.DirectorySet, error) {
	dir := workDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return layout.DirectorySet{}, fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	return layout.Resolve(cfg, layout.Anchors{
		WorkDir:      absPath(dir),
		Env:          env,
		NeedCompiler: needCompiler,
	})
}

// absPath makes a relative --workdir absolute; resolution rejects it if
// that is not possible.
func absPath(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	// stop unregisters the handler and releases the context
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
