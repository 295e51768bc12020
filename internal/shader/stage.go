// Package shader discovers shader sources and compiles each one into a
// SPIR-V artifact.
package shader

import (
	"strings"
)

// Stage is the pipeline stage a shader source targets
type Stage int

const (
	Vertex Stage = iota + 1
	Fragment
)

// CompiledExt is the extension of every compiled artifact.
const CompiledExt = ".spv"

var stages = []struct {
	stage Stage
	ext   string
	tag   string
	name  string
}{
	{Vertex, ".vert", "Vert", "vertex"},
	{Fragment, ".frag", "Frag", "fragment"},
}

// Ext returns the source file suffix of the stage
func (s Stage) Ext() string {
	for _, st := range stages {
		if st.stage == s {
			return st.ext
		}
	}
	return ""
}

// Tag returns the stage tag placed before CompiledExt in artifact names
func (s Stage) Tag() string {
	for _, st := range stages {
		if st.stage == s {
			return st.tag
		}
	}
	return ""
}

func (s Stage) String() string {
	for _, st := range stages {
		if st.stage == s {
			return st.name
		}
	}
	return "unknown"
}

// Classify returns the stage of a source file name, or false when the
// name is not a recognized shader source
func Classify(name string) (Stage, bool) {
	for _, st := range stages {
		if strings.HasSuffix(name, st.ext) && len(name) > len(st.ext) {
			return st.stage, true
		}
	}
	return 0, false
}

// CompiledName derives the artifact name for a source of the given stage.
// For example: light.vert -> lightVert.spv
func CompiledName(name string, stage Stage) string {
	return strings.TrimSuffix(name, stage.Ext()) + stage.Tag() + CompiledExt
}
