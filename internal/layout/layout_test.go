package layout

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/schaermu/assetstage/internal/config"
	"github.com/schaermu/assetstage/internal/report"
)

func TestResolve_DefaultLayout(t *testing.T) {
	root := t.TempDir()
	workDir := filepath.Join(root, "RenderSystem", "scripts")

	d, err := Resolve(config.Default(), Anchors{
		WorkDir:      workDir,
		Env:          config.Env{"VULKAN_SDK": "/opt/vulkan"},
		NeedCompiler: true,
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	project := filepath.Join(root, "RenderSystem")
	consumer := filepath.Join(root, "thirdparty", "rendersystem")

	want := map[Role]string{
		RoleWorkDir:          workDir,
		RoleProjectRoot:      project,
		RoleShaderSource:     filepath.Join(project, "src", "shaders"),
		RoleShaderOutput:     filepath.Join(project, "src", "shaders", "spv"),
		RoleTextures:         filepath.Join(project, "src", "textures"),
		RoleIncludes:         filepath.Join(project, "src"),
		RoleBuildOutput:      filepath.Join(project, "i386", "x64", "Debug"),
		RoleThirdParty:       filepath.Join(root, "thirdparty"),
		RoleConsumer:         consumer,
		RoleConsumerAssets:   filepath.Join(consumer, "assets"),
		RoleConsumerShaders:  filepath.Join(consumer, "assets", "shaders"),
		RoleConsumerTextures: filepath.Join(consumer, "assets", "textures"),
		RoleConsumerBinaries: filepath.Join(consumer, "bin", "Debug64"),
		RoleSDKRoot:          filepath.Clean("/opt/vulkan"),
		RoleCompiler:         filepath.Join("/opt/vulkan", filepath.FromSlash(config.Default().Compiler.Executable)),
	}

	for role, path := range want {
		got, ok := d.Get(role)
		if !ok {
			t.Errorf("role %s not resolved", role)
			continue
		}
		if got != path {
			t.Errorf("role %s: got %s, want %s", role, got, path)
		}
	}
}

func TestResolve_IsPure(t *testing.T) {
	anchors := Anchors{
		WorkDir: "/does/not/exist/scripts",
		Env:     config.Env{"VULKAN_SDK": "/sdk"},
	}

	first, err := Resolve(config.Default(), anchors)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Resolve(config.Default(), anchors)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("resolution is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestResolve_MissingSDK(t *testing.T) {
	tests := []struct {
		name         string
		env          config.Env
		needCompiler bool
		wantErr      bool
	}{
		{name: "required and unset", env: config.Env{}, needCompiler: true, wantErr: true},
		{name: "required and empty", env: config.Env{"VULKAN_SDK": ""}, needCompiler: true, wantErr: true},
		{name: "not required", env: config.Env{}, needCompiler: false, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Resolve(config.Default(), Anchors{
				WorkDir:      "/work/scripts",
				Env:          tt.env,
				NeedCompiler: tt.needCompiler,
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, report.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
			if err == nil && d.Compiler != "" {
				t.Errorf("expected no compiler path, got %s", d.Compiler)
			}
		})
	}
}

func TestResolve_NagaIgnoresSDK(t *testing.T) {
	cfg := config.Default()
	cfg.Compiler.Backend = config.BackendNaga

	d, err := Resolve(cfg, Anchors{WorkDir: "/work/scripts", Env: config.Env{}, NeedCompiler: true})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, ok := d.Get(RoleCompiler); ok {
		t.Error("naga backend should not resolve a compiler executable")
	}
}

func TestResolve_RelativeWorkDir(t *testing.T) {
	_, err := Resolve(config.Default(), Anchors{WorkDir: "scripts"})
	if !errors.Is(err, report.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestResolve_AbsoluteOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ThirdParty = "/shared/thirdparty"
	cfg.Paths.BuildOutput = "/builds/out"

	d, err := Resolve(cfg, Anchors{WorkDir: "/work/scripts"})
	if err != nil {
		t.Fatal(err)
	}
	if d.ThirdParty != filepath.Clean("/shared/thirdparty") {
		t.Errorf("expected absolute thirdparty to be kept, got %s", d.ThirdParty)
	}
	if d.Consumer != filepath.Join("/shared/thirdparty", "rendersystem") {
		t.Errorf("expected consumer under absolute thirdparty, got %s", d.Consumer)
	}
	if d.BuildOutput != filepath.Clean("/builds/out") {
		t.Errorf("expected absolute build output to be kept, got %s", d.BuildOutput)
	}
	if got := d.ExtraBinary("assimp/win32/bin/Debug/assimp-vc143-mtd.dll"); got != filepath.Join("/shared/thirdparty", "assimp", "win32", "bin", "Debug", "assimp-vc143-mtd.dll") {
		t.Errorf("unexpected extra binary path %s", got)
	}
}

func TestDirectorySet_ProjectPath(t *testing.T) {
	d := DirectorySet{ProjectRoot: filepath.Join("/work", "RenderSystem")}

	if got, want := d.ProjectPath("src/fonts"), filepath.Join("/work", "RenderSystem", "src", "fonts"); got != want {
		t.Errorf("ProjectPath(relative) = %q, want %q", got, want)
	}

	abs := filepath.Join(t.TempDir(), "shared")
	if got := d.ProjectPath(abs); got != abs {
		t.Errorf("ProjectPath(absolute) = %q, want %q", got, abs)
	}
}
