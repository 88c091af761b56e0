package commands

import (
	"context"
	"time"

	"git.home.luguber.info/inful/checklinks/internal/config"
	"git.home.luguber.info/inful/checklinks/internal/history"
	"git.home.luguber.info/inful/checklinks/internal/logfields"
	"git.home.luguber.info/inful/checklinks/internal/pipeline"
	"git.home.luguber.info/inful/checklinks/internal/report"
)

// CheckFlags are the run tuning flags shared by check, watch and monitor.
type CheckFlags struct {
	Depth           int           `short:"d" default:"-1" help:"Maximum depth to scan, 1 being files directly under each path (0 is unlimited, -1 keeps files.max_depth)"`
	StrictFragments bool          `help:"Report missing #fragments as broken links"`
	Timeout         time.Duration `default:"-1s" help:"Run deadline for validation (0 disables it, negative keeps check.run_timeout)"`
	Concurrency     int           `short:"j" help:"Number of concurrent probes"`
	Skip            []string      `help:"Skip links whose raw text matches this regular expression (repeatable)"`
	Hidden          bool          `help:"Also scan hidden files and directories"`
	NoGitignore     bool          `name:"no-gitignore" help:"Scan files ignored by .gitignore"`
}

func (f *CheckFlags) apply(cfg *config.Config) {
	if f.Depth >= 0 {
		cfg.Files.MaxDepth = f.Depth
	}
	if f.StrictFragments {
		cfg.Check.StrictFragments = true
	}
	if f.Timeout >= 0 {
		cfg.Check.RunTimeout = f.Timeout
	}
	if f.Concurrency > 0 {
		cfg.Check.Concurrency = f.Concurrency
	}
	cfg.Check.SkipPatterns = append(cfg.Check.SkipPatterns, f.Skip...)
	if f.Hidden {
		cfg.Files.Hidden = true
	}
	if f.NoGitignore {
		cfg.Files.RespectGitignore = false
	}
}

// CheckCmd implements the 'check' command.
type CheckCmd struct {
	CheckFlags `embed:""`

	Paths []string `arg:"" optional:"" type:"path" help:"Files or directories to check (default: current directory)"`
}

// Run performs one check and reports it. A run with broken links returns a
// broken_links error so the process exits with status 1.
func (c *CheckCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g, c.apply)
	if err != nil {
		return err
	}
	checker, err := newChecker(g, cfg)
	if err != nil {
		return err
	}
	rep, err := runAndReport(ctx, g, cfg, checker, defaultPaths(c.Paths))
	if err != nil {
		return err
	}
	return brokenLinksError(rep)
}

// recordHistory appends rep to the run history when history.path is set.
// Failures are logged and do not change the exit status.
func recordHistory(ctx context.Context, g *Global, cfg *config.Config, rep *report.Report, started time.Time) {
	if cfg.History.Path == "" {
		return
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		g.Logger.Warn("Failed to open run history", logfields.Path(cfg.History.Path), logfields.Error(err))
		return
	}
	defer func() { _ = store.Close() }()
	if err := store.Record(ctx, rep, started); err != nil {
		g.Logger.Warn("Failed to record run history", logfields.RunID(rep.Summary.RunID), logfields.Error(err))
	}
}

// runAndReport runs checker once, writes its report and records it.
func runAndReport(ctx context.Context, g *Global, cfg *config.Config, checker *pipeline.Checker, paths []string) (*report.Report, error) {
	started := time.Now()
	rep, err := checker.Run(ctx, paths)
	if err != nil {
		return nil, err
	}
	if err := writeReport(g, cfg, rep); err != nil {
		return rep, err
	}
	recordHistory(ctx, g, cfg, rep, started)
	return rep, nil
}
