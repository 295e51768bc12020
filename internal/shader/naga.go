package shader

import (
	"context"
	"fmt"
	"os"

	"github.com/gogpu/naga"

	"github.com/schaermu/assetstage/internal/report"
)

// Naga compiles WGSL sources to SPIR-V in-process. Sources keep the
// .vert/.frag naming so discovery and artifact names do not change.
type Naga struct {
	opts naga.CompileOptions
}

// NewNaga creates an in-process backend. validate runs IR validation
// before SPIR-V generation.
func NewNaga(validate bool) *Naga {
	opts := naga.DefaultOptions()
	opts.Validate = validate
	return &Naga{opts: opts}
}

// Command describes the in-process compilation the same way a CLI call
// would look
func (n *Naga) Command(src, dst string) []string {
	return []string{"naga", src, "-o", dst}
}

// Compile reads src, compiles it and writes the SPIR-V module to dst
func (n *Naga) Compile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	source, err := os.ReadFile(src)
	if err != nil {
		return report.IOErr(src, err)
	}

	spv, err := naga.CompileWithOptions(string(source), n.opts)
	if err != nil {
		return fmt.Errorf("naga: %w", err)
	}

	if err := os.WriteFile(dst, spv, 0644); err != nil {
		return report.IOErr(dst, err)
	}
	return nil
}
