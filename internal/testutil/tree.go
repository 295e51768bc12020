// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// WriteTree creates dir and writes files (name -> content) into it.
// Names may contain slashes to create nested files.
func WriteTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

// ReadTree returns the regular files directly under dir (name -> content).
// A missing directory yields an empty map.
func ReadTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return files
	}
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		files[e.Name()] = string(data)
	}
	return files
}

// FakeCompiler writes an executable shell script standing in for glslc and
// returns its path. The script receives (input, "-o", output). Tests using
// it are skipped on Windows.
func FakeCompiler(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell compiler shim requires a POSIX shell")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "glslc")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

// CopyingCompiler is a FakeCompiler body that "compiles" by prefixing the
// source bytes with SPV: so outputs are recognisable.
const CopyingCompiler = `[ "$2" = "-o" ] || { echo "usage: glslc <in> -o <out>" >&2; exit 2; }
{ printf 'SPV:'; cat "$1"; } > "$3"`

// FailingCompiler is a FakeCompiler body that always reports a syntax error.
const FailingCompiler = `echo "$1:1: error: syntax error" >&2
exit 1`
