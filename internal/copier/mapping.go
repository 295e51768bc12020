package copier

import (
	"github.com/schaermu/assetstage/internal/report"
)

// Mapping sends every file of Source into Subdir of the job root. An
// empty Subdir copies flat into the root.
type Mapping struct {
	Source string
	Subdir string

	// Produced marks a Source that an earlier stage of the same run
	// creates. Report-only runs accept it missing.
	Produced bool

	// Pending are file names that earlier stage writes into Source.
	// Report-only runs plan them alongside what Source already holds.
	Pending []string
}

// Pair zips parallel source/subdirectory lists into mappings. subdirs must
// be empty (flat copy) or exactly as long as sources.
func Pair(sources, subdirs []string) ([]Mapping, error) {
	if len(subdirs) != 0 && len(subdirs) != len(sources) {
		return nil, report.Configf("copy mapping has %d source directories but %d destination subdirectories", len(sources), len(subdirs))
	}

	mappings := make([]Mapping, len(sources))
	for i, src := range sources {
		mappings[i] = Mapping{Source: src}
		if len(subdirs) != 0 {
			mappings[i].Subdir = subdirs[i]
		}
	}
	return mappings, nil
}

// Job describes one directory replication
type Job struct {
	Root     string
	Mappings []Mapping

	// Filter keeps only entries whose name contains it. Empty copies all.
	Filter string
}

// File is a single file transfer
type File struct {
	Source      string
	Destination string
}
