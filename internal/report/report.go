// Package report fans validation results out to link occurrences and renders
// the resulting per-file report as text, JSON or Markdown.
package report

import (
	"time"

	"git.home.luguber.info/inful/checklinks/internal/links"
)

// Entry is one occurrence together with its outcome. The outcome carries the
// fragment verdict of this occurrence, so two occurrences of the same key may
// differ in FragmentPresent.
type Entry struct {
	File    string
	Line    int
	Column  int
	Raw     string
	Target  links.Target
	Outcome links.Outcome
}

// FileReport lists the entries of one source file in position order.
type FileReport struct {
	Path    string
	Entries []Entry
}

// FileError records a file that could not be scanned.
type FileError struct {
	Path    string
	Message string
}

// Summary holds the run totals. Counts of broken, skipped and warning links
// are per occurrence.
type Summary struct {
	TotalOccurrences int
	UniqueTargets    int
	Broken           int
	Skipped          int
	Warnings         int
	FileErrors       int
	Elapsed          time.Duration
	RunID            string
}

// Report is the result of one run.
type Report struct {
	Files      []FileReport
	FileErrors []FileError
	Summary    Summary
}

// HasBroken reports whether any occurrence is broken.
func (r *Report) HasBroken() bool { return r.Summary.Broken > 0 }

// Broken returns the broken entries in report order.
func (r *Report) Broken() []Entry {
	var out []Entry
	for _, f := range r.Files {
		for _, e := range f.Entries {
			if e.Outcome.Status == links.StatusBroken {
				out = append(out, e)
			}
		}
	}
	return out
}
