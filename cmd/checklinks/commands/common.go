package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"

	"git.home.luguber.info/inful/checklinks/internal/config"
	ferrors "git.home.luguber.info/inful/checklinks/internal/foundation/errors"
	"git.home.luguber.info/inful/checklinks/internal/pipeline"
	"git.home.luguber.info/inful/checklinks/internal/report"
)

// Global carries process-wide state shared by every subcommand.
type Global struct {
	Logger *slog.Logger
	Stdout io.Writer
	Stderr io.Writer

	// CheckerOptions are appended to every pipeline.Checker the commands build.
	CheckerOptions []pipeline.Option
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path (default: ./checklinks.yaml, then the XDG config directory)"`
	Verbose   int              `short:"v" type:"counter" help:"Increase log verbosity (-v info, -vv debug)"`
	LogFormat string           `name:"log-format" help:"Log handler format (text or json)"`
	Format    string           `short:"f" help:"Report format (text, json or markdown)"`
	Output    string           `short:"o" help:"Write the report to this file instead of stdout"`
	Quiet     bool             `short:"q" help:"Only list broken links and warnings"`
	NoColor   bool             `name:"no-color" help:"Disable colored output"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Check   CheckCmd   `cmd:"" default:"withargs" help:"Check links in documentation files (default)"`
	Watch   WatchCmd   `cmd:"" help:"Re-check links whenever documentation files change"`
	Monitor MonitorCmd `cmd:"" help:"Check links on an interval and serve Prometheus metrics"`
	History HistoryCmd `cmd:"" help:"List recorded runs"`
	Init    InitCmd    `cmd:"" help:"Write a sample configuration file"`
}

// AfterApply runs after flag parsing and installs a logger from the flags
// alone. Commands that load a configuration replace it via loadConfig.
func (c *CLI) AfterApply(g *Global) error {
	if g.Stdout == nil {
		g.Stdout = os.Stdout
	}
	if g.Stderr == nil {
		g.Stderr = os.Stderr
	}
	format := config.NormalizeLogFormat(c.LogFormat)
	g.Logger = newLogger(g.Stderr, c.logLevel(config.LogLevelWarn), format)
	slog.SetDefault(g.Logger)
	return nil
}

// loadConfig loads the configuration, applies the global flags and the
// command's own overrides, validates the result and reconfigures logging.
func (c *CLI) loadConfig(g *Global, overrides ...func(*config.Config)) (*config.Config, error) {
	cfg, path, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}

	if c.LogFormat != "" {
		cfg.Logging.Format = config.LogFormat(c.LogFormat)
	}
	if c.Format != "" {
		cfg.Output.Format = config.OutputFormat(c.Format)
	}
	if c.Output != "" {
		cfg.Output.File = c.Output
	}
	if c.Quiet {
		cfg.Output.Quiet = true
	}
	if c.NoColor {
		cfg.Output.Color = config.ColorNever
	}
	for _, apply := range overrides {
		apply(cfg)
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g.Logger = newLogger(g.Stderr, c.logLevel(cfg.Logging.Level), cfg.Logging.Format)
	slog.SetDefault(g.Logger)
	if path != "" {
		g.Logger.Debug("Loaded configuration", slog.String("path", path))
	}
	return cfg, nil
}

// logLevel lowers the baseline by one level per -v.
func (c *CLI) logLevel(baseline config.LogLevel) slog.Level {
	level := slogLevel(baseline) - slog.Level(4*c.Verbose)
	if level < slog.LevelDebug {
		level = slog.LevelDebug
	}
	return level
}

func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelInfo:
		return slog.LevelInfo
	case config.LogLevelError:
		return slog.LevelError
	case config.LogLevelWarn:
		return slog.LevelWarn
	default:
		return slog.LevelWarn
	}
}

func newLogger(w io.Writer, level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newChecker builds a Checker wired to the global logger and test hooks.
func newChecker(g *Global, cfg *config.Config, extra ...pipeline.Option) (*pipeline.Checker, error) {
	options := append([]pipeline.Option{pipeline.WithLogger(g.Logger)}, extra...)
	options = append(options, g.CheckerOptions...)
	return pipeline.New(cfg, options...)
}

// useColor decides whether the text report is colored. Auto mode colors
// only a terminal stdout and honors NO_COLOR.
func useColor(cfg *config.Config, w io.Writer) bool {
	switch cfg.Output.Color {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	case config.ColorAuto:
	}
	if cfg.Output.File != "" || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// writeReport renders rep to output.file, or to stdout when it is unset.
func writeReport(g *Global, cfg *config.Config, rep *report.Report) error {
	formatter := report.NewFormatter(string(cfg.Output.Format), useColor(cfg, g.Stdout), cfg.Output.Quiet)

	if cfg.Output.File == "" {
		if err := formatter.Format(g.Stdout, rep); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryInternal, "failed to write report").Build()
		}
		return nil
	}

	f, err := os.Create(cfg.Output.File)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create report file").
			WithContext("path", cfg.Output.File).
			Build()
	}
	if err := formatter.Format(f, rep); err != nil {
		_ = f.Close()
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write report").
			WithContext("path", cfg.Output.File).
			Build()
	}
	if err := f.Close(); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to close report file").
			WithContext("path", cfg.Output.File).
			Build()
	}
	return nil
}

// brokenLinksError is the exit-1 error for a report with broken links.
func brokenLinksError(rep *report.Report) error {
	if !rep.HasBroken() {
		return nil
	}
	return ferrors.BrokenLinksError(brokenSummary(rep)).
		WithContext("run_id", rep.Summary.RunID).
		Build()
}

func brokenSummary(rep *report.Report) string {
	noun := "links"
	if rep.Summary.Broken == 1 {
		noun = "link"
	}
	return fmt.Sprintf("%d bad %s out of %d", rep.Summary.Broken, noun, rep.Summary.TotalOccurrences)
}

func defaultPaths(paths []string) []string {
	if len(paths) == 0 {
		return []string{"."}
	}
	return paths
}
