package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Summary is the machine-readable account of a run.
type Summary struct {
	Pipeline string         `json:"pipeline" yaml:"pipeline"`
	DryRun   bool           `json:"dry_run" yaml:"dry_run"`
	Counts   map[string]int `json:"counts" yaml:"counts"`
	Failed   int            `json:"failed" yaml:"failed"`
	Records  []Record       `json:"records" yaml:"records"`
}

// Summarize builds the summary of r.
func (r *Report) Summarize(pipeline string, dryRun bool) Summary {
	counts := make(map[string]int)
	for _, rec := range r.Records {
		counts[string(rec.Outcome)]++
	}
	records := r.Records
	if records == nil {
		records = []Record{}
	}
	return Summary{
		Pipeline: pipeline,
		DryRun:   dryRun,
		Counts:   counts,
		Failed:   counts[string(Failed)],
		Records:  records,
	}
}

// CheckFormat returns a configuration error unless the extension of path
// names a summary encoding.
func CheckFormat(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml", ".cbor":
		return nil
	}
	return Configf("unsupported summary format %q (must be .json, .yaml, .yml or .cbor)", filepath.Ext(path))
}

// Encode serializes s in the format named by ext (".json", ".yaml", ".yml"
// or ".cbor").
func (s Summary) Encode(ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".json":
		return json.MarshalIndent(s, "", "  ")
	case ".yaml", ".yml":
		return yaml.Marshal(s)
	case ".cbor":
		return cbor.Marshal(s)
	default:
		return nil, CheckFormat(ext)
	}
}

// WriteFile writes s to path, picking the encoding from the file extension.
func (s Summary) WriteFile(path string) error {
	data, err := s.Encode(filepath.Ext(path))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create summary directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
