package commands

import (
	"context"
	"log/slog"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/checklinks/internal/config"
	ferrors "git.home.luguber.info/inful/checklinks/internal/foundation/errors"
	"git.home.luguber.info/inful/checklinks/internal/history"
	"git.home.luguber.info/inful/checklinks/internal/logfields"
	"git.home.luguber.info/inful/checklinks/internal/metrics"
	"git.home.luguber.info/inful/checklinks/internal/monitor"
	"git.home.luguber.info/inful/checklinks/internal/notify"
	"git.home.luguber.info/inful/checklinks/internal/pipeline"
	"git.home.luguber.info/inful/checklinks/internal/report"
)

// MonitorCmd implements the 'monitor' command.
type MonitorCmd struct {
	CheckFlags `embed:""`

	Interval    time.Duration `help:"Time between checks (default: monitor.interval)"`
	MetricsAddr string        `name:"metrics-addr" help:"Listen address for /metrics (default: monitor.metrics_addr)"`
	LockFile    string        `name:"lock-file" help:"Single-instance lock file (default: XDG state directory)"`
	Paths       []string      `arg:"" optional:"" type:"path" help:"Files or directories to check (default: current directory)"`
}

func (m *MonitorCmd) applyMonitor(cfg *config.Config) {
	m.apply(cfg)
	if m.Interval > 0 {
		cfg.Monitor.Interval = m.Interval
	}
	if m.MetricsAddr != "" {
		cfg.Monitor.MetricsAddr = m.MetricsAddr
	}
}

// Run schedules checks until interrupted. Every run is recorded in the
// history database and broken links are published when notify.nats_url is
// set.
func (m *MonitorCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g, m.applyMonitor)
	if err != nil {
		return err
	}

	reg := prom.NewRegistry()
	reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	checker, err := newChecker(g, cfg, pipeline.WithRecorder(metrics.NewPrometheusRecorder(reg)))
	if err != nil {
		return err
	}

	historyPath := cfg.History.Path
	if historyPath == "" {
		if historyPath, err = config.DefaultHistoryPath(); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryHistory, "failed to resolve history path").Build()
		}
	}
	store, err := history.Open(historyPath)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "failed to open run history").
			WithContext("path", historyPath).
			Build()
	}
	defer func() { _ = store.Close() }()

	lockPath := m.LockFile
	if lockPath == "" {
		if lockPath, err = config.DefaultLockPath(); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to resolve lock path").Build()
		}
	}

	opts := monitor.Options{
		Runner:      checker,
		Paths:       defaultPaths(m.Paths),
		Interval:    cfg.Monitor.Interval,
		LockPath:    lockPath,
		MetricsAddr: cfg.Monitor.MetricsAddr,
		Registry:    reg,
		History:     store,
		Logger:      g.Logger,
	}
	if cfg.Output.File != "" {
		opts.OnReport = func(rep *report.Report) {
			if err := writeReport(g, cfg, rep); err != nil {
				g.Logger.Warn("Failed to write report", logfields.Path(cfg.Output.File), logfields.Error(err))
			}
		}
	}

	if cfg.Notify.NATSURL != "" {
		pub, err := notify.NewNATSPublisher(ctx, cfg.Notify)
		if err != nil {
			g.Logger.Warn("Broken-link events disabled", slog.String("nats_url", cfg.Notify.NATSURL), logfields.Error(err))
		} else {
			defer func() { _ = pub.Close() }()
			opts.Publisher = pub
		}
	}

	g.Logger.Info("Monitor configured",
		logfields.Path(historyPath),
		slog.String("lock", lockPath))
	return monitor.New(opts).Start(ctx)
}
