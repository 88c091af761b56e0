// Package pipeline runs one link check: discovery, extraction, resolution,
// deduplication, validation and aggregation.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/checklinks/internal/config"
	"git.home.luguber.info/inful/checklinks/internal/discovery"
	"git.home.luguber.info/inful/checklinks/internal/extract"
	ferrors "git.home.luguber.info/inful/checklinks/internal/foundation/errors"
	"git.home.luguber.info/inful/checklinks/internal/links"
	"git.home.luguber.info/inful/checklinks/internal/linkverify"
	"git.home.luguber.info/inful/checklinks/internal/logfields"
	"git.home.luguber.info/inful/checklinks/internal/metrics"
	"git.home.luguber.info/inful/checklinks/internal/report"
)

// Checker runs link checks with a fixed configuration. A Checker may be
// reused for several runs; each run gets its own validator state.
type Checker struct {
	cfg              *config.Config
	root             string
	baseDir          string
	skip             []*regexp.Regexp
	recorder         metrics.Recorder
	logger           *slog.Logger
	validatorOptions []linkverify.Option
}

// Option configures a Checker.
type Option func(*Checker)

// WithRecorder injects a metrics recorder for probes and runs.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Checker) { c.recorder = r }
}

// WithLogger sets the logger (slog.Default otherwise).
func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) { c.logger = l }
}

// WithValidatorOptions passes options through to every validator.
func WithValidatorOptions(opts ...linkverify.Option) Option {
	return func(c *Checker) { c.validatorOptions = append(c.validatorOptions, opts...) }
}

// WithBaseDir sets the directory report paths are shown relative to
// (the working directory otherwise).
func WithBaseDir(dir string) Option {
	return func(c *Checker) { c.baseDir = dir }
}

// New prepares a Checker. cfg must already be validated.
func New(cfg *config.Config, options ...Option) (*Checker, error) {
	skip, err := cfg.Check.SkipMatchers()
	if err != nil {
		return nil, err
	}

	root := cfg.Check.Root
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid check.root").
			WithContext("path", root).
			Fatal().
			Build()
	}

	c := &Checker{
		cfg:      cfg,
		root:     absRoot,
		skip:     skip,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	if wd, err := os.Getwd(); err == nil {
		c.baseDir = wd
	}
	for _, o := range options {
		o(c)
	}
	return c, nil
}

// Run checks the documentation under paths and returns the report. Only
// setup failures (nothing readable to scan, missing paths) are returned as errors;
// broken links are part of the report.
func (c *Checker) Run(ctx context.Context, paths []string) (*report.Report, error) {
	runID := uuid.NewString()
	start := time.Now()
	logger := c.logger.With(logfields.RunID(runID))

	found, err := discovery.Discover(ctx, paths, discovery.OptionsFromConfig(c.cfg.Files))
	if err != nil {
		return nil, err
	}

	resolved, readable, fileErrors := c.extract(found, logger)
	if readable == 0 {
		return nil, ferrors.NoInputError("no readable documentation files").
			WithContext("file_errors", len(fileErrors)).
			Build()
	}

	groups := links.Dedup(resolved)
	tasks, bypass := groups.Tasks(links.TaskOptions{
		FollowLocalAnchors: c.cfg.Check.FollowLocalAnchors,
		Skip:               c.skipped,
	})
	logger.Info("Validating targets",
		logfields.Count(len(resolved)),
		slog.Int("unique", len(groups.Keys)),
		slog.Int("tasks", len(tasks)))

	vctx := ctx
	if c.cfg.Check.RunTimeout > 0 {
		var cancel context.CancelFunc
		vctx, cancel = context.WithTimeout(ctx, c.cfg.Check.RunTimeout)
		defer cancel()
	}

	options := append([]linkverify.Option{
		linkverify.WithRecorder(c.recorder),
		linkverify.WithLogger(logger),
	}, c.validatorOptions...)
	validator := linkverify.New(linkverify.OptionsFromConfig(c.cfg.Check), options...)
	results := validator.Run(vctx, tasks)
	for key, out := range bypass {
		results[key] = linkverify.Result{Outcome: out}
	}

	elapsed := time.Since(start)
	rep := report.Aggregate(resolved, groups, results, report.Options{
		StrictFragments: c.cfg.Check.StrictFragments,
		FileErrors:      fileErrors,
		Elapsed:         elapsed,
		RunID:           runID,
		BaseDir:         c.baseDir,
	})

	c.recorder.ObserveRun(elapsed, rep.Summary.TotalOccurrences, rep.Summary.Broken)
	logger.Info("Link check finished",
		logfields.Duration(elapsed),
		logfields.Count(rep.Summary.TotalOccurrences),
		slog.Int("broken", rep.Summary.Broken),
		slog.Int("warnings", rep.Summary.Warnings),
		slog.Int("skipped", rep.Summary.Skipped))
	return rep, nil
}

// extract scans every input and resolves its occurrences. Files that fail
// to scan become file errors; their partial occurrences are dropped. The
// count is the number of inputs scanned successfully.
func (c *Checker) extract(found *discovery.Result, logger *slog.Logger) ([]links.Resolved, int, []report.FileError) {
	resolver := links.NewResolver(c.root)

	fileErrors := make([]report.FileError, 0, len(found.Failures))
	for _, f := range found.Failures {
		logger.Warn("Skipping unreadable file", logfields.File(f.Path), logfields.Error(f.Err))
		fileErrors = append(fileErrors, report.FileError{Path: c.absPath(f.Path), Message: f.Err.Error()})
	}

	var resolved []links.Resolved
	readable := 0
	for _, in := range found.Inputs {
		in.Path = c.absPath(in.Path)
		occs, err := extract.Collect(extract.Extract(in))
		if err != nil {
			logger.Warn("Skipping file", logfields.File(in.Path), logfields.Error(err))
			fileErrors = append(fileErrors, report.FileError{Path: in.Path, Message: err.Error()})
			continue
		}
		readable++
		logger.Debug("Extracted links", logfields.File(in.Path), logfields.Count(len(occs)))
		for _, occ := range occs {
			resolved = append(resolved, links.Resolved{Occurrence: occ, Target: resolver.Resolve(occ)})
		}
	}
	return resolved, readable, fileErrors
}

func (c *Checker) skipped(o links.Occurrence) bool {
	for _, re := range c.skip {
		if re.MatchString(o.Raw) {
			return true
		}
	}
	return false
}

func (c *Checker) absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
