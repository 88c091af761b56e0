package report

import (
	"cmp"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/checklinks/internal/linkverify"
	"git.home.luguber.info/inful/checklinks/internal/links"
)

// Options carries run-level inputs of Aggregate.
type Options struct {
	// StrictFragments reports a missing fragment as broken instead of a warning.
	StrictFragments bool
	FileErrors      []FileError
	Elapsed         time.Duration
	RunID           string
	// BaseDir, when set, shortens source paths below it to relative form.
	BaseDir string
}

// Aggregate attaches the outcome of each key to every occurrence sharing it,
// checks fragments per occurrence and orders the result by file path, then
// line, column and raw text. Keys missing from results are reported as
// skipped by the run timeout.
func Aggregate(resolved []links.Resolved, groups *links.Groups, results map[links.DedupKey]linkverify.Result, opts Options) *Report {
	byFile := make(map[string][]Entry)
	sum := Summary{
		TotalOccurrences: len(resolved),
		RunID:            opts.RunID,
		Elapsed:          opts.Elapsed,
	}
	if groups != nil {
		sum.UniqueTargets = len(groups.Keys)
	}

	for _, r := range resolved {
		res, ok := results[r.Target.Key()]
		if !ok {
			res = linkverify.Result{Outcome: links.Skipped(links.SkipRunTimeout)}
		}
		out := checkFragment(r.Target, res, opts.StrictFragments)

		switch out.Status {
		case links.StatusBroken:
			sum.Broken++
		case links.StatusSkipped:
			sum.Skipped++
		case links.StatusOK:
			if out.IsWarning() {
				sum.Warnings++
			}
		}

		occ := r.Occurrence
		file := displayPath(occ.SourceFile, opts.BaseDir)
		byFile[file] = append(byFile[file], Entry{
			File:    file,
			Line:    occ.Line,
			Column:  occ.Column,
			Raw:     occ.Raw,
			Target:  r.Target,
			Outcome: out,
		})
	}

	rep := &Report{Files: make([]FileReport, 0, len(byFile))}
	for path, entries := range byFile {
		slices.SortStableFunc(entries, compareEntries)
		rep.Files = append(rep.Files, FileReport{Path: path, Entries: entries})
	}
	slices.SortFunc(rep.Files, func(a, b FileReport) int { return cmp.Compare(a.Path, b.Path) })

	rep.FileErrors = make([]FileError, 0, len(opts.FileErrors))
	for _, fe := range opts.FileErrors {
		rep.FileErrors = append(rep.FileErrors, FileError{Path: displayPath(fe.Path, opts.BaseDir), Message: fe.Message})
	}
	slices.SortStableFunc(rep.FileErrors, func(a, b FileError) int { return cmp.Compare(a.Path, b.Path) })
	sum.FileErrors = len(rep.FileErrors)

	rep.Summary = sum
	return rep
}

func displayPath(path, base string) string {
	if base == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

func compareEntries(a, b Entry) int {
	return cmp.Or(
		cmp.Compare(a.Line, b.Line),
		cmp.Compare(a.Column, b.Column),
		cmp.Compare(a.Raw, b.Raw),
	)
}

// checkFragment derives the outcome of one occurrence from its key's result.
func checkFragment(t links.Target, res linkverify.Result, strict bool) links.Outcome {
	out := res.Outcome
	out.FragmentPresent = nil
	if out.Status != links.StatusOK || !t.HasFragment || res.Anchors == nil {
		return out
	}

	present := res.Anchors.Has(t.Fragment)
	out.FragmentPresent = &present
	if !present && strict {
		broken := links.Broken(links.ErrFragmentMissing, "#"+t.Fragment)
		broken.StatusCode = out.StatusCode
		broken.Latency = out.Latency
		broken.RetriesUsed = out.RetriesUsed
		broken.FragmentPresent = &present
		return broken
	}
	return out
}
