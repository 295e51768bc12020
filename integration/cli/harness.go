//go:build integration

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

const (
	binaryName     = "assetstage"
	defaultTimeout = 2 * time.Minute
)

// Harness builds the assetstage binary once and runs it against scratch
// workspaces, so exit statuses can be asserted end to end.
type Harness struct {
	t      *testing.T
	binary string
	env    []string
}

// NewHarness creates a harness whose child processes start from the
// current environment with the SDK variable removed.
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	var env []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "VULKAN_SDK=") {
			continue
		}
		env = append(env, kv)
	}
	return &Harness{t: t, env: env}
}

// Build compiles cmd/assetstage into a temporary directory.
func (h *Harness) Build(ctx context.Context) error {
	h.t.Helper()

	projectRoot, err := findProjectRoot()
	if err != nil {
		return fmt.Errorf("get project root: %w", err)
	}

	out := filepath.Join(h.t.TempDir(), binaryName)
	if runtime.GOOS == "windows" {
		out += ".exe"
	}

	h.t.Logf("Building %s", out)
	cmd := exec.CommandContext(ctx, "go", "build", "-o", out, "./cmd/assetstage")
	cmd.Dir = projectRoot
	cmd.Stdout = &testWriter{t: h.t, prefix: "[build] "}
	cmd.Stderr = &testWriter{t: h.t, prefix: "[build] "}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go build: %w", err)
	}

	h.binary = out
	return nil
}

// Setenv adds a variable to the environment of subsequent runs.
func (h *Harness) Setenv(key, value string) {
	h.env = append(h.env, key+"="+value)
}

// Run executes the binary in dir and returns its output and exit status.
func (h *Harness) Run(ctx context.Context, dir string, args ...string) (string, string, int, error) {
	h.t.Helper()
	if h.binary == "" {
		return "", "", 0, fmt.Errorf("binary not built")
	}

	cmd := exec.CommandContext(ctx, h.binary, args...)
	cmd.Dir = dir
	cmd.Env = h.env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return "", "", 0, fmt.Errorf("exec failed: %w", err)
		}
	}

	return stdout.String(), stderr.String(), exitCode, nil
}

// MustRun runs the binary and fails the test unless it exits with want.
func (h *Harness) MustRun(ctx context.Context, want int, dir string, args ...string) string {
	h.t.Helper()
	stdout, stderr, exitCode, err := h.Run(ctx, dir, args...)
	if err != nil {
		h.t.Fatalf("run failed: %v", err)
	}
	if exitCode != want {
		h.t.Fatalf("exit code %d, want %d\nstdout: %s\nstderr: %s\nargs: %v",
			exitCode, want, stdout, stderr, args)
	}
	return stdout
}

// testWriter wraps test logging for command output
type testWriter struct {
	t      *testing.T
	prefix string
}

func (w *testWriter) Write(p []byte) (n int, err error) {
	lines := strings.Split(string(p), "\n")
	for _, line := range lines {
		if line != "" {
			w.t.Log(w.prefix + line)
		}
	}
	return len(p), nil
}

var _ io.Writer = (*testWriter)(nil)

// findProjectRoot walks up the directory tree from the current file to find go.mod
func findProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to get caller information")
	}

	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}
