package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/schaermu/assetstage/internal/report"
)

// Backend selects how shader sources are compiled
type Backend string

const (
	BackendGLSLC Backend = "glslc"
	BackendNaga  Backend = "naga"
)

// Config represents the complete assetstage configuration
type Config struct {
	Paths    PathsConfig    `yaml:"paths" json:"paths"`
	Compiler CompilerConfig `yaml:"compiler" json:"compiler"`
	Binaries BinariesConfig `yaml:"binaries" json:"binaries"`
	Assets   AssetsConfig   `yaml:"assets" json:"assets"`
	Filters  FiltersConfig  `yaml:"filters" json:"filters"`
}

// PathsConfig configures the source, build and consumer layout.
// Relative entries are resolved against the entry they hang off:
// project_root against the working directory, thirdparty and the
// project-local directories against project_root, consumer against
// thirdparty and consumer_binaries against consumer.
type PathsConfig struct {
	ProjectRoot      string `yaml:"project_root" json:"project_root"`
	ShaderSource     string `yaml:"shader_source" json:"shader_source"`
	ShaderOutput     string `yaml:"shader_output" json:"shader_output"` // relative to shader_source
	Textures         string `yaml:"textures" json:"textures"`
	Includes         string `yaml:"includes" json:"includes"`
	BuildOutput      string `yaml:"build_output" json:"build_output"`
	ThirdParty       string `yaml:"thirdparty" json:"thirdparty"`
	Consumer         string `yaml:"consumer" json:"consumer"`
	ConsumerBinaries string `yaml:"consumer_binaries" json:"consumer_binaries"`
}

// CompilerConfig configures the shader compiler
type CompilerConfig struct {
	Backend Backend `yaml:"backend" json:"backend"`

	// SDKEnv names the environment variable holding the SDK root.
	SDKEnv string `yaml:"sdk_env" json:"sdk_env"`

	// Executable is the compiler path relative to the SDK root.
	Executable string `yaml:"executable" json:"executable"`

	// Validate enables IR validation in the naga backend.
	Validate bool `yaml:"validate" json:"validate"`
}

// BinariesConfig lists the prebuilt files kept in sync between the
// producer build output and the consumer tree
type BinariesConfig struct {
	// Producer are file names shared by the build output and the
	// consumer binary directory.
	Producer []string `yaml:"producer" json:"producer"`

	// Extra are files relative to the thirdparty root, pulled flat into
	// the build output on ingest.
	Extra []string `yaml:"extra" json:"extra"`
}

// AssetsConfig lists additional project directories published into the
// consumer asset directory on deploy. Subdirs pairs with Sources by index.
type AssetsConfig struct {
	// Sources are directories relative to project_root.
	Sources []string `yaml:"sources" json:"sources"`

	// Subdirs name the destination subdirectory of each source. Leave
	// empty to copy every source flat into the asset directory.
	Subdirs []string `yaml:"subdirs" json:"subdirs"`
}

// FiltersConfig restricts asset copies to names containing a substring
type FiltersConfig struct {
	Shaders  string `yaml:"shaders" json:"shaders"`
	Textures string `yaml:"textures" json:"textures"`
}

// Default returns the layout the render system projects use.
func Default() *Config {
	exe := "bin/glslc"
	if runtime.GOOS == "windows" {
		exe = "Bin/glslc.exe"
	}
	return &Config{
		Paths: PathsConfig{
			ProjectRoot:      "..",
			ShaderSource:     "src/shaders",
			ShaderOutput:     "spv",
			Textures:         "src/textures",
			Includes:         "src",
			BuildOutput:      "i386/x64/Debug",
			ThirdParty:       "../thirdparty",
			Consumer:         "rendersystem",
			ConsumerBinaries: "bin/Debug64",
		},
		Compiler: CompilerConfig{
			Backend:    BackendGLSLC,
			SDKEnv:     "VULKAN_SDK",
			Executable: exe,
			Validate:   true,
		},
		Binaries: BinariesConfig{
			Producer: []string{"VkRenderSystem.dll", "VkRenderSystem.lib", "VkRenderSystem.pdb"},
		},
	}
}

// Load reads a YAML or JSONC configuration file and overlays it on the
// defaults. ${VAR} references are expanded from env.
func Load(path string, env Env) (*Config, error) {
	path = os.Expand(path, env.Get)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, report.Configf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, report.Configf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, report.Configf("failed to parse config file: %w", err)
		}
	}

	cfg.expandEnv(env)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// expandEnv expands environment references in all path fields
func (c *Config) expandEnv(env Env) {
	for _, p := range []*string{
		&c.Paths.ProjectRoot,
		&c.Paths.ShaderSource,
		&c.Paths.ShaderOutput,
		&c.Paths.Textures,
		&c.Paths.Includes,
		&c.Paths.BuildOutput,
		&c.Paths.ThirdParty,
		&c.Paths.Consumer,
		&c.Paths.ConsumerBinaries,
		&c.Compiler.Executable,
	} {
		*p = os.Expand(*p, env.Get)
	}
	for i := range c.Binaries.Extra {
		c.Binaries.Extra[i] = os.Expand(c.Binaries.Extra[i], env.Get)
	}
	for i := range c.Assets.Sources {
		c.Assets.Sources[i] = os.Expand(c.Assets.Sources[i], env.Get)
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	required := []struct {
		name, value string
	}{
		{"paths.project_root", c.Paths.ProjectRoot},
		{"paths.shader_source", c.Paths.ShaderSource},
		{"paths.shader_output", c.Paths.ShaderOutput},
		{"paths.textures", c.Paths.Textures},
		{"paths.build_output", c.Paths.BuildOutput},
		{"paths.thirdparty", c.Paths.ThirdParty},
		{"paths.consumer", c.Paths.Consumer},
		{"paths.consumer_binaries", c.Paths.ConsumerBinaries},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return report.Configf("%s is required", r.name)
		}
	}

	switch c.Compiler.Backend {
	case BackendGLSLC:
		if c.Compiler.SDKEnv == "" {
			return report.Configf("compiler.sdk_env is required for the %s backend", BackendGLSLC)
		}
		if c.Compiler.Executable == "" {
			return report.Configf("compiler.executable is required for the %s backend", BackendGLSLC)
		}
	case BackendNaga:
		// in-process, nothing to locate
	default:
		return report.Configf("invalid compiler.backend: %s (must be glslc or naga)", c.Compiler.Backend)
	}

	for _, name := range c.Binaries.Producer {
		if name == "" || filepath.Base(name) != name {
			return report.Configf("binaries.producer entries must be plain file names: %q", name)
		}
	}
	for _, rel := range c.Binaries.Extra {
		if rel == "" || filepath.IsAbs(rel) {
			return report.Configf("binaries.extra entries must be relative to the thirdparty root: %q", rel)
		}
	}

	if n := len(c.Assets.Subdirs); n != 0 && n != len(c.Assets.Sources) {
		return report.Configf("assets.subdirs has %d entries but assets.sources has %d", n, len(c.Assets.Sources))
	}

	return nil
}
