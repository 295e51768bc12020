package copier

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/schaermu/assetstage/internal/report"
	"github.com/schaermu/assetstage/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPair(t *testing.T) {
	tests := []struct {
		name    string
		sources []string
		subdirs []string
		want    []Mapping
		wantErr bool
	}{
		{
			name:    "one to one",
			sources: []string{"/src/spv", "/src/textures"},
			subdirs: []string{"shaders", "textures"},
			want:    []Mapping{{Source: "/src/spv", Subdir: "shaders"}, {Source: "/src/textures", Subdir: "textures"}},
		},
		{
			name:    "flat",
			sources: []string{"/src/a", "/src/b"},
			want:    []Mapping{{Source: "/src/a"}, {Source: "/src/b"}},
		},
		{
			name:    "too few subdirs",
			sources: []string{"/src/a", "/src/b"},
			subdirs: []string{"a"},
			wantErr: true,
		},
		{
			name:    "too many subdirs",
			sources: []string{"/src/a"},
			subdirs: []string{"a", "b"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Pair(tt.sources, tt.subdirs)
			if tt.wantErr {
				if !errors.Is(err, report.ErrConfiguration) {
					t.Fatalf("expected configuration error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("Pair() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	spv := filepath.Join(dir, "src", "shaders", "spv")
	textures := filepath.Join(dir, "src", "textures")
	root := filepath.Join(dir, "thirdparty", "assets")

	testutil.WriteTree(t, spv, map[string]string{"lightVert.spv": "v", "lightFrag.spv": "f"})
	testutil.WriteTree(t, textures, map[string]string{"wood.png": "png", "sub/skip.png": "nested"})

	mappings, err := Pair([]string{spv, textures}, []string{"shaders", "textures"})
	if err != nil {
		t.Fatal(err)
	}

	rep := New(testLogger(), false).Run(Job{Root: root, Mappings: mappings})
	if err := rep.Err(); err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}

	if got := testutil.ReadTree(t, filepath.Join(root, "shaders")); len(got) != 2 || got["lightVert.spv"] != "v" {
		t.Errorf("unexpected shaders: %v", got)
	}
	if got := testutil.ReadTree(t, filepath.Join(root, "textures")); len(got) != 1 || got["wood.png"] != "png" {
		t.Errorf("unexpected textures: %v", got)
	}
	if _, err := os.Stat(filepath.Join(root, "textures", "sub")); !os.IsNotExist(err) {
		t.Error("subdirectories must not be copied")
	}
	if rep.Count(report.Copied) != 3 {
		t.Errorf("expected 3 copied records, got %d", rep.Count(report.Copied))
	}
	if rep.Count(report.Skipped) != 1 {
		t.Errorf("expected the nested directory to be skipped, got %d", rep.Count(report.Skipped))
	}
}

func TestRun_Flat(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	root := filepath.Join(dir, "out")
	testutil.WriteTree(t, src, map[string]string{"a.txt": "a"})

	rep := New(testLogger(), false).Run(Job{Root: root, Mappings: []Mapping{{Source: src}}})
	if err := rep.Err(); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ReadTree(t, root); got["a.txt"] != "a" {
		t.Errorf("expected a.txt directly under root, got %v", got)
	}
}

func TestRun_Filter(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "textures")
	root := filepath.Join(dir, "out")
	testutil.WriteTree(t, src, map[string]string{"a.png": "png", "a.txt": "txt"})

	rep := New(testLogger(), false).Run(Job{
		Root:     root,
		Mappings: []Mapping{{Source: src, Subdir: "textures"}},
		Filter:   ".png",
	})
	if err := rep.Err(); err != nil {
		t.Fatal(err)
	}

	got := testutil.ReadTree(t, filepath.Join(root, "textures"))
	if len(got) != 1 || got["a.png"] != "png" {
		t.Errorf("expected only a.png, got %v", got)
	}
}

func TestRun_Overwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	root := filepath.Join(dir, "out")
	testutil.WriteTree(t, src, map[string]string{"a.txt": "new"})
	testutil.WriteTree(t, filepath.Join(root, "sub"), map[string]string{"a.txt": "old", "stale.txt": "stale"})

	rep := New(testLogger(), false).Run(Job{Root: root, Mappings: []Mapping{{Source: src, Subdir: "sub"}}})
	if err := rep.Err(); err != nil {
		t.Fatal(err)
	}

	got := testutil.ReadTree(t, filepath.Join(root, "sub"))
	if got["a.txt"] != "new" {
		t.Errorf("expected a.txt to be overwritten, got %q", got["a.txt"])
	}
	// copies are not additive-only nor pruning
	if got["stale.txt"] != "stale" {
		t.Errorf("unrelated destination files must be left alone, got %v", got)
	}
}

func TestRun_Idempotent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	root := filepath.Join(dir, "out")
	testutil.WriteTree(t, src, map[string]string{"a.bin": "aaa", "b.bin": "bbb"})
	job := Job{Root: root, Mappings: []Mapping{{Source: src, Subdir: "bin"}}}

	first := New(testLogger(), false).Run(job)
	after1 := testutil.ReadTree(t, filepath.Join(root, "bin"))
	second := New(testLogger(), false).Run(job)
	after2 := testutil.ReadTree(t, filepath.Join(root, "bin"))

	if first.Err() != nil || second.Err() != nil {
		t.Fatalf("unexpected failures: %v / %v", first.Err(), second.Err())
	}
	if fmt.Sprint(after1) != fmt.Sprint(after2) {
		t.Errorf("second run changed the tree: %v -> %v", after1, after2)
	}
	for i := range first.Records {
		if first.Records[i].Digest != second.Records[i].Digest {
			t.Errorf("digest changed for %s", first.Records[i].Source)
		}
	}
}

func TestRun_MissingSourceDir(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good")
	root := filepath.Join(dir, "out")
	testutil.WriteTree(t, good, map[string]string{"a.txt": "a"})

	mappings := []Mapping{
		{Source: filepath.Join(dir, "missing"), Subdir: "missing"},
		{Source: good, Subdir: "good"},
	}
	rep := New(testLogger(), false).Run(Job{Root: root, Mappings: mappings})

	failed := rep.Failures()
	if len(failed) != 1 || !errors.Is(failed[0].Err, report.ErrIO) {
		t.Fatalf("expected one io failure, got %+v", failed)
	}
	if got := testutil.ReadTree(t, filepath.Join(root, "good")); got["a.txt"] != "a" {
		t.Errorf("the second mapping should still be copied, got %v", got)
	}
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on Windows")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	root := filepath.Join(dir, "out")
	testutil.WriteTree(t, src, map[string]string{"1.txt": "1", "3.txt": "3", "4.txt": "4", "5.txt": "5"})
	// 2.txt is listed but its target does not exist
	if err := os.Symlink(filepath.Join(dir, "nowhere"), filepath.Join(src, "2.txt")); err != nil {
		t.Fatal(err)
	}

	rep := New(testLogger(), false).Run(Job{Root: root, Mappings: []Mapping{{Source: src}}})

	failed := rep.Failures()
	if len(failed) != 1 || filepath.Base(failed[0].Source) != "2.txt" {
		t.Fatalf("expected exactly 2.txt to fail, got %+v", failed)
	}
	got := testutil.ReadTree(t, root)
	for _, name := range []string{"1.txt", "3.txt", "4.txt", "5.txt"} {
		if got[name] == "" {
			t.Errorf("%s was not copied", name)
		}
	}
}

func TestCopyFiles(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, filepath.Join(dir, "build"), map[string]string{
		"VkRenderSystem.dll": "dll",
		"VkRenderSystem.pdb": "pdb",
		"VkRenderSystem.exp": "exp",
		"VkRenderSystem.ilk": "ilk",
	})
	// a destination path occupied by a directory cannot be written
	if err := os.MkdirAll(filepath.Join(dir, "bin", "VkRenderSystem.ilk"), 0755); err != nil {
		t.Fatal(err)
	}

	var files []File
	for _, name := range []string{"VkRenderSystem.dll", "VkRenderSystem.lib", "VkRenderSystem.pdb", "VkRenderSystem.exp", "VkRenderSystem.ilk"} {
		files = append(files, File{
			Source:      filepath.Join(dir, "build", name),
			Destination: filepath.Join(dir, "bin", name),
		})
	}

	rep := New(testLogger(), false).CopyFiles(files)

	failed := rep.Failures()
	if len(failed) != 2 {
		t.Fatalf("expected 2 failures (.lib missing, .ilk unwritable), got %+v", failed)
	}
	for _, rec := range failed {
		if rec.Stage != report.StageBinary || !errors.Is(rec.Err, report.ErrIO) {
			t.Errorf("unexpected failure record %+v", rec)
		}
	}
	got := testutil.ReadTree(t, filepath.Join(dir, "bin"))
	if got["VkRenderSystem.dll"] != "dll" || got["VkRenderSystem.pdb"] != "pdb" || got["VkRenderSystem.exp"] != "exp" {
		t.Errorf("files after the failure should still be copied, got %v", got)
	}
}

func TestDryRunMatchesExecution(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	root := filepath.Join(dir, "out")
	testutil.WriteTree(t, src, map[string]string{"a.png": "a", "b.png": "b", "c.txt": "c", "d/e.png": "e"})
	job := Job{Root: root, Mappings: []Mapping{{Source: src, Subdir: "textures"}}, Filter: ".png"}

	dry := New(testLogger(), true).Run(job)
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Fatalf("dry-run touched the destination: %v", err)
	}

	executed := New(testLogger(), false).Run(job)

	planned := make(map[[2]string]bool)
	for _, p := range dry.Transfers() {
		planned[p] = true
	}
	copied := executed.Transfers()
	if len(planned) != len(copied) || len(copied) != 2 {
		t.Fatalf("planned %v, copied %v", dry.Transfers(), copied)
	}
	for _, p := range copied {
		if !planned[p] {
			t.Errorf("copied %v was not planned", p)
		}
	}
}

func TestDryRun_PendingFiles(t *testing.T) {
	dir := t.TempDir()
	spv := filepath.Join(dir, "spv")
	root := filepath.Join(dir, "out")
	mapping := Mapping{Source: spv, Subdir: "shaders", Produced: true, Pending: []string{"aVert.spv", "aFrag.spv"}}

	// the source directory does not exist until compilation runs
	dry := New(testLogger(), true).Run(Job{Root: root, Mappings: []Mapping{mapping}})
	if err := dry.Err(); err != nil {
		t.Fatalf("produced source directory must not fail a dry run: %v", err)
	}

	testutil.WriteTree(t, spv, map[string]string{"aVert.spv": "v", "aFrag.spv": "f"})
	executed := New(testLogger(), false).Run(Job{Root: root, Mappings: []Mapping{mapping}})
	if err := executed.Err(); err != nil {
		t.Fatal(err)
	}

	planned := make(map[[2]string]bool)
	for _, p := range dry.Transfers() {
		planned[p] = true
	}
	copied := executed.Transfers()
	if len(planned) != 2 || len(copied) != 2 {
		t.Fatalf("planned %v, copied %v", dry.Transfers(), copied)
	}
	for _, p := range copied {
		if !planned[p] {
			t.Errorf("copied %v was not planned", p)
		}
	}
}

func TestDryRun_PendingMergesWithExisting(t *testing.T) {
	dir := t.TempDir()
	spv := filepath.Join(dir, "spv")
	testutil.WriteTree(t, spv, map[string]string{"aVert.spv": "old", "bVert.spv": "stale", "notes.txt": "n"})

	rep := New(testLogger(), true).Run(Job{
		Root:     filepath.Join(dir, "out"),
		Mappings: []Mapping{{Source: spv, Produced: true, Pending: []string{"aVert.spv", "aFrag.spv"}}},
		Filter:   ".spv",
	})

	// aVert once, bVert from disk, aFrag pending; notes.txt filtered
	if n := rep.Count(report.Planned); n != 3 {
		t.Errorf("expected 3 planned copies, got %d: %+v", n, rep.Records)
	}
	if n := rep.Count(report.Skipped); n != 1 {
		t.Errorf("expected notes.txt to be filtered, got %d skipped", n)
	}
}

func TestDryRun_MissingSourceFails(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "out")

	files := []File{{Source: filepath.Join(dir, "missing.dll"), Destination: filepath.Join(root, "bin", "missing.dll")}}
	rep := New(testLogger(), true).CopyFiles(files)
	if len(rep.Failures()) != 1 || rep.Count(report.Planned) != 0 {
		t.Errorf("a missing binary must fail the dry run, got %+v", rep.Records)
	}

	// not produced by an earlier stage, so its absence is a real failure
	job := Job{Root: root, Mappings: []Mapping{{Source: filepath.Join(dir, "assets", "shaders"), Subdir: "shaders"}}}
	dry := New(testLogger(), true).Run(job)
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Error("dry-run touched the destination")
	}
	executed := New(testLogger(), false).Run(job)

	if len(dry.Failures()) != 1 || !errors.Is(dry.Err(), report.ErrIO) {
		t.Errorf("expected one io failure in dry-run, got %+v", dry.Failures())
	}
	if len(dry.Failures()) != len(executed.Failures()) {
		t.Errorf("dry-run found %d failures, execution %d", len(dry.Failures()), len(executed.Failures()))
	}
}
