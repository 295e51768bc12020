// Package copier replicates staged artifacts between the source tree, the
// build output and the consumer tree. Copies always overwrite, so running
// a job twice leaves the same tree as running it once.
package copier

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/schaermu/assetstage/internal/digest"
	"github.com/schaermu/assetstage/internal/report"
)

// Copier performs copy jobs
type Copier struct {
	logger *slog.Logger
	dryRun bool
}

// New creates a copier. In dry-run mode it logs what it would do and
// touches nothing.
func New(logger *slog.Logger, dryRun bool) *Copier {
	return &Copier{
		logger: logger,
		dryRun: dryRun,
	}
}

// EnsureDirs creates each directory that does not exist yet.
func (c *Copier) EnsureDirs(dirs ...string) *report.Report {
	rep := &report.Report{}
	for _, dir := range dirs {
		if c.dryRun {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				c.logger.Info("[dry-run] would create directory", "dir", dir)
			}
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			c.logger.Error("failed to create directory", "dir", dir, "error", err)
			rep.Fail(report.StageCopy, "", dir, report.IOErr(dir, err))
		}
	}
	return rep
}

// Run prepares the destination subdirectories of job and copies every
// matching file. A failing file or source directory is recorded and the
// remaining transfers still run.
func (c *Copier) Run(job Job) *report.Report {
	rep := &report.Report{}

	var dirs []string
	for _, m := range job.Mappings {
		if m.Subdir != "" {
			dirs = append(dirs, filepath.Join(job.Root, m.Subdir))
		}
	}
	rep.Merge(c.EnsureDirs(dirs...))

	for _, m := range job.Mappings {
		c.copyMapping(rep, job, m)
	}

	return rep
}

func (c *Copier) copyMapping(rep *report.Report, job Job, m Mapping) {
	destDir := filepath.Join(job.Root, m.Subdir)
	c.logger.Info("copying directory", "source", m.Source, "dest", destDir, "filter", job.Filter)

	entries, err := os.ReadDir(m.Source)
	if err != nil && c.dryRun && m.Produced && os.IsNotExist(err) {
		c.logger.Info("[dry-run] source directory is created by an earlier stage", "dir", m.Source)
		entries, err = nil, nil
	}
	if err != nil {
		c.logger.Error("failed to list source directory", "dir", m.Source, "error", err)
		rep.Fail(report.StageCopy, m.Source, destDir, report.IOErr(m.Source, err))
		return
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		seen[e.Name()] = true
		src := filepath.Join(m.Source, e.Name())

		if e.IsDir() {
			c.logger.Debug("skipping subdirectory", "path", src)
			rep.Add(report.Record{Stage: report.StageCopy, Source: src, Outcome: report.Skipped, Reason: "directory"})
			continue
		}
		if c.filtered(rep, job, src) {
			continue
		}
		rep.Add(c.transfer(report.StageCopy, src, filepath.Join(destDir, e.Name())))
	}

	if !c.dryRun {
		return
	}
	for _, name := range m.Pending {
		if seen[name] {
			continue
		}
		seen[name] = true
		src := filepath.Join(m.Source, name)
		if c.filtered(rep, job, src) {
			continue
		}
		rep.Add(c.plan(report.StageCopy, src, filepath.Join(destDir, name)))
	}
}

// filtered records src as skipped when the job filter excludes it.
func (c *Copier) filtered(rep *report.Report, job Job, src string) bool {
	if job.Filter == "" || strings.Contains(filepath.Base(src), job.Filter) {
		return false
	}
	c.logger.Debug("skipping filtered file", "path", src, "filter", job.Filter)
	rep.Add(report.Record{Stage: report.StageCopy, Source: src, Outcome: report.Skipped, Reason: "filtered"})
	return true
}

// CopyFiles copies individual files, creating destination directories as
// needed.
func (c *Copier) CopyFiles(files []File) *report.Report {
	rep := &report.Report{}
	for _, f := range files {
		rep.Add(c.transfer(report.StageBinary, f.Source, f.Destination))
	}
	return rep
}

func (c *Copier) transfer(stage report.Stage, src, dst string) report.Record {
	if c.dryRun {
		// the source must already be readable
		if info, err := os.Stat(src); err != nil || info.IsDir() {
			if err == nil {
				err = fmt.Errorf("%s is a directory", src)
			}
			return c.failed(report.Record{Stage: stage, Source: src, Destination: dst}, err)
		}
		return c.plan(stage, src, dst)
	}

	rec := report.Record{Stage: stage, Source: src, Destination: dst}
	sum, err := copyFile(src, dst)
	if err != nil {
		return c.failed(rec, err)
	}

	c.logger.Info("copied file", "source", src, "dest", dst)
	rec.Outcome = report.Copied
	rec.Digest = sum
	return rec
}

// plan records a transfer report-only mode would perform.
func (c *Copier) plan(stage report.Stage, src, dst string) report.Record {
	c.logger.Info("[dry-run] would copy", "source", src, "dest", dst)
	return report.Record{Stage: stage, Source: src, Destination: dst, Outcome: report.Planned}
}

func (c *Copier) failed(rec report.Record, err error) report.Record {
	c.logger.Error("failed to copy file", "source", rec.Source, "dest", rec.Destination, "error", err)
	rec.Outcome = report.Failed
	rec.Err = report.IOErr(rec.Source, fmt.Errorf("copy to %s: %w", rec.Destination, err))
	rec.Reason = rec.Err.Error()
	return rec
}

// copyFile copies a file from src to dst with atomic write and returns the
// digest of the copied bytes
func copyFile(src, dst string) (string, error) {
	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	// Open source
	srcFile, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return "", err
	}
	if srcInfo.IsDir() {
		return "", fmt.Errorf("%s is a directory", src)
	}

	// Create temp file in destination directory
	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".assetstage-tmp-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	// Copy content, hashing on the way
	h := digest.New()
	if _, err := io.Copy(tmpFile, io.TeeReader(srcFile, h)); err != nil {
		_ = tmpFile.Close()
		return "", err
	}

	if err := tmpFile.Chmod(srcInfo.Mode()); err != nil {
		_ = tmpFile.Close()
		return "", err
	}

	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	// Atomic rename
	if err := os.Rename(tmpPath, dst); err != nil {
		return "", err
	}

	return digest.Hex(h), nil
}
