package shader

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// GLSLC compiles shaders by shelling out to an external compiler that
// takes (input, "-o", output)
type GLSLC struct {
	path string
}

// NewGLSLC creates a backend running the compiler at path
func NewGLSLC(path string) *GLSLC {
	return &GLSLC{path: path}
}

// Command returns the compiler invocation for src -> dst
func (g *GLSLC) Command(src, dst string) []string {
	return []string{g.path, src, "-o", dst}
}

// Compile runs the compiler and fails on a non-zero exit status
func (g *GLSLC) Compile(ctx context.Context, src, dst string) error {
	args := g.Command(src, dst)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", filepath.Base(g.path), err, strings.TrimSpace(string(output)))
	}
	return nil
}
