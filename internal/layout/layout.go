// Package layout derives every directory a staging run touches from the
// working directory, the configuration and the environment snapshot.
// Resolution is pure string composition and never touches the filesystem;
// the stage that first uses a path is the one that finds out it is missing.
package layout

import (
	"path/filepath"

	"github.com/schaermu/assetstage/internal/config"
	"github.com/schaermu/assetstage/internal/report"
)

// Role names a directory in a DirectorySet.
type Role string

const (
	RoleWorkDir          Role = "workDir"
	RoleProjectRoot      Role = "projectRoot"
	RoleShaderSource     Role = "shaderSourceDir"
	RoleShaderOutput     Role = "shaderOutputDir"
	RoleTextures         Role = "textureDir"
	RoleIncludes         Role = "includesDir"
	RoleBuildOutput      Role = "binaryOutputDir"
	RoleThirdParty       Role = "thirdPartyDir"
	RoleConsumer         Role = "consumerDir"
	RoleConsumerAssets   Role = "consumerAssetDir"
	RoleConsumerShaders  Role = "consumerShaderDir"
	RoleConsumerTextures Role = "consumerTextureDir"
	RoleConsumerBinaries Role = "consumerBinaryDir"
	RoleSDKRoot          Role = "sdkRoot"
	RoleCompiler         Role = "compiler"
)

// Anchors are the inputs resolution starts from.
type Anchors struct {
	// WorkDir is the absolute working directory of the invoking process.
	WorkDir string

	Env config.Env

	// NeedCompiler makes a missing SDK variable fatal. Pipelines that do
	// not compile leave it false.
	NeedCompiler bool
}

// DirectorySet holds absolute paths by role. It is a value; copies are
// independent and nothing mutates it after Resolve.
type DirectorySet struct {
	WorkDir          string
	ProjectRoot      string
	ShaderSource     string
	ShaderOutput     string
	Textures         string
	Includes         string
	BuildOutput      string
	ThirdParty       string
	Consumer         string
	ConsumerAssets   string
	ConsumerShaders  string
	ConsumerTextures string
	ConsumerBinaries string

	// SDKRoot and Compiler are empty unless the glslc backend is selected
	// and the SDK variable is set.
	SDKRoot  string
	Compiler string
}

// Entry is one role/path pair.
type Entry struct {
	Role Role
	Path string
}

// Resolve builds the DirectorySet for cfg.
func Resolve(cfg *config.Config, a Anchors) (DirectorySet, error) {
	if !filepath.IsAbs(a.WorkDir) {
		return DirectorySet{}, report.Configf("working directory must be absolute: %q", a.WorkDir)
	}

	p := cfg.Paths
	var d DirectorySet
	d.WorkDir = filepath.Clean(a.WorkDir)
	d.ProjectRoot = under(d.WorkDir, p.ProjectRoot)
	d.ShaderSource = under(d.ProjectRoot, p.ShaderSource)
	d.ShaderOutput = under(d.ShaderSource, p.ShaderOutput)
	d.Textures = under(d.ProjectRoot, p.Textures)
	d.Includes = under(d.ProjectRoot, p.Includes)
	d.BuildOutput = under(d.ProjectRoot, p.BuildOutput)
	d.ThirdParty = under(d.ProjectRoot, p.ThirdParty)
	d.Consumer = under(d.ThirdParty, p.Consumer)
	d.ConsumerAssets = filepath.Join(d.Consumer, "assets")
	d.ConsumerShaders = filepath.Join(d.ConsumerAssets, "shaders")
	d.ConsumerTextures = filepath.Join(d.ConsumerAssets, "textures")
	d.ConsumerBinaries = under(d.Consumer, p.ConsumerBinaries)

	if cfg.Compiler.Backend == config.BackendGLSLC {
		sdk, ok := a.Env.Lookup(cfg.Compiler.SDKEnv)
		switch {
		case ok && sdk != "":
			d.SDKRoot = filepath.Clean(sdk)
			d.Compiler = under(d.SDKRoot, cfg.Compiler.Executable)
		case a.NeedCompiler:
			return DirectorySet{}, report.Configf("environment variable %s is not set", cfg.Compiler.SDKEnv)
		}
	}

	return d, nil
}

// ExtraBinary returns the absolute source path of a thirdparty-relative
// binary.
func (d DirectorySet) ExtraBinary(rel string) string {
	return filepath.Join(d.ThirdParty, filepath.FromSlash(rel))
}

// ProjectPath resolves a project-relative directory.
func (d DirectorySet) ProjectPath(rel string) string {
	return under(d.ProjectRoot, rel)
}

// Entries lists every resolved role in a stable order, skipping unset ones.
func (d DirectorySet) Entries() []Entry {
	all := []Entry{
		{RoleWorkDir, d.WorkDir},
		{RoleProjectRoot, d.ProjectRoot},
		{RoleSDKRoot, d.SDKRoot},
		{RoleCompiler, d.Compiler},
		{RoleShaderSource, d.ShaderSource},
		{RoleShaderOutput, d.ShaderOutput},
		{RoleTextures, d.Textures},
		{RoleIncludes, d.Includes},
		{RoleBuildOutput, d.BuildOutput},
		{RoleThirdParty, d.ThirdParty},
		{RoleConsumer, d.Consumer},
		{RoleConsumerAssets, d.ConsumerAssets},
		{RoleConsumerShaders, d.ConsumerShaders},
		{RoleConsumerTextures, d.ConsumerTextures},
		{RoleConsumerBinaries, d.ConsumerBinaries},
	}
	entries := all[:0]
	for _, e := range all {
		if e.Path != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

// Get returns the path for role and whether it is set.
func (d DirectorySet) Get(role Role) (string, bool) {
	for _, e := range d.Entries() {
		if e.Role == role {
			return e.Path, true
		}
	}
	return "", false
}

// under joins rel onto base unless rel is already absolute.
func under(base, rel string) string {
	rel = filepath.FromSlash(rel)
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(base, rel)
}
