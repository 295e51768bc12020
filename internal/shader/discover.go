package shader

import (
	"os"
	"path/filepath"
)

// Unit is one recognized shader source and where its artifact goes
type Unit struct {
	Name        string
	Source      string
	Stage       Stage
	Destination string
}

// Discovery is the result of listing a shader source directory
type Discovery struct {
	Units []Unit
	// Ignored are entries that are not shader sources (headers,
	// subdirectories, ...).
	Ignored []string
}

// Discover lists srcDir (non-recursively) and maps every recognized
// source to its artifact path in outDir
func Discover(srcDir, outDir string) (*Discovery, error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, err
	}

	d := &Discovery{}
	for _, e := range entries {
		name := e.Name()
		stage, ok := Classify(name)
		if !ok || e.IsDir() {
			d.Ignored = append(d.Ignored, filepath.Join(srcDir, name))
			continue
		}
		d.Units = append(d.Units, Unit{
			Name:        name,
			Source:      filepath.Join(srcDir, name),
			Stage:       stage,
			Destination: filepath.Join(outDir, CompiledName(name, stage)),
		})
	}

	return d, nil
}
