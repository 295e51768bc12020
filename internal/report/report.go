// Package report accumulates the per-file outcomes of a staging run and
// renders them as a summary.
package report

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step a record belongs to.
type Stage string

const (
	StageCompile Stage = "compile"
	StageCopy    Stage = "copy"
	StageBinary  Stage = "binary"
)

// Outcome is what happened to a single file.
type Outcome string

const (
	Compiled Outcome = "compiled"
	Copied   Outcome = "copied"
	Planned  Outcome = "planned" // report-only mode
	Skipped  Outcome = "skipped"
	Failed   Outcome = "failed"
)

// Record is one file handled by a component.
type Record struct {
	Stage       Stage   `json:"stage" yaml:"stage"`
	Source      string  `json:"source" yaml:"source"`
	Destination string  `json:"destination,omitempty" yaml:"destination,omitempty"`
	Outcome     Outcome `json:"outcome" yaml:"outcome"`
	Digest      string  `json:"digest,omitempty" yaml:"digest,omitempty"` // BLAKE3 of the written bytes
	Reason      string  `json:"reason,omitempty" yaml:"reason,omitempty"`
	Err         error   `json:"-" yaml:"-" cbor:"-"`
}

// Report is the accumulating result of a run. The zero value is ready to use.
type Report struct {
	Records []Record
}

// Add appends a record.
func (r *Report) Add(rec Record) {
	if rec.Err != nil && rec.Reason == "" {
		rec.Reason = rec.Err.Error()
	}
	r.Records = append(r.Records, rec)
}

// Fail records a failed file.
func (r *Report) Fail(stage Stage, src, dst string, err error) {
	r.Add(Record{Stage: stage, Source: src, Destination: dst, Outcome: Failed, Err: err})
}

// Merge appends every record of other.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Records = append(r.Records, other.Records...)
}

// Count returns the number of records with the given outcome.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, rec := range r.Records {
		if rec.Outcome == o {
			n++
		}
	}
	return n
}

// Failures returns the failed records in the order they were added.
func (r *Report) Failures() []Record {
	var failed []Record
	for _, rec := range r.Records {
		if rec.Outcome == Failed {
			failed = append(failed, rec)
		}
	}
	return failed
}

// Transfers returns the (source, destination) pairs that were moved, or in
// report-only mode would have been.
func (r *Report) Transfers() [][2]string {
	var pairs [][2]string
	for _, rec := range r.Records {
		switch rec.Outcome {
		case Copied, Compiled, Planned:
			pairs = append(pairs, [2]string{rec.Source, rec.Destination})
		}
	}
	return pairs
}

// Err joins every file-level failure, or returns nil when there were none.
func (r *Report) Err() error {
	failed := r.Failures()
	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(failed))
	for _, rec := range failed {
		if rec.Err != nil {
			errs = append(errs, rec.Err)
			continue
		}
		errs = append(errs, fmt.Errorf("%s %s: %s", rec.Stage, rec.Source, rec.Reason))
	}
	return fmt.Errorf("%d file(s) failed: %w", len(failed), errors.Join(errs...))
}
