package commands

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/checklinks/internal/logfields"
	"git.home.luguber.info/inful/checklinks/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	CheckFlags `embed:""`

	Debounce time.Duration `default:"500ms" help:"Quiet period before re-checking after a change"`
	Paths    []string      `arg:"" optional:"" type:"path" help:"Files or directories to watch (default: current directory)"`
}

// Run checks once, then re-checks every time a documentation file under the
// watched paths changes, until interrupted. Broken links never end the loop.
func (w *WatchCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g, w.apply)
	if err != nil {
		return err
	}
	checker, err := newChecker(g, cfg)
	if err != nil {
		return err
	}
	paths := defaultPaths(w.Paths)

	if _, err := runAndReport(ctx, g, cfg, checker, paths); err != nil {
		return err
	}

	watcher, err := watch.New(paths, w.Debounce, g.Logger)
	if err != nil {
		return err
	}
	g.Logger.Info("Watching for changes", slog.Any("paths", paths))

	return watcher.Run(ctx, func(ctx context.Context, changed []string) {
		g.Logger.Debug("Re-checking", logfields.Count(len(changed)))
		if _, err := runAndReport(ctx, g, cfg, checker, paths); err != nil {
			g.Logger.Error("Link check failed", logfields.Error(err))
		}
	})
}
