// Package monitor runs link checks on an interval, serving Prometheus
// metrics and recording each run.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofrs/flock"
	prom "github.com/prometheus/client_golang/prometheus"

	ferrors "git.home.luguber.info/inful/checklinks/internal/foundation/errors"
	"git.home.luguber.info/inful/checklinks/internal/logfields"
	"git.home.luguber.info/inful/checklinks/internal/metrics"
	"git.home.luguber.info/inful/checklinks/internal/notify"
	"git.home.luguber.info/inful/checklinks/internal/report"
)

// Runner performs one link check.
type Runner interface {
	Run(ctx context.Context, paths []string) (*report.Report, error)
}

// History records finished runs.
type History interface {
	Record(ctx context.Context, rep *report.Report, startedAt time.Time) error
}

// Options configures a Monitor. Runner, Interval and LockPath are required.
type Options struct {
	Runner      Runner
	Paths       []string
	Interval    time.Duration
	LockPath    string
	MetricsAddr string               // Empty disables the metrics endpoint
	Registry    *prom.Registry       // Served on /metrics
	History     History              // Optional
	Publisher   notify.Publisher     // Optional
	OnReport    func(*report.Report) // Optional, called after every successful run
	Logger      *slog.Logger
}

// Monitor schedules link checks. Only one monitor may hold its lock file.
type Monitor struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// New builds a Monitor.
func New(opts Options) *Monitor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{opts: opts, logger: logger}
}

// Addr returns the address the metrics endpoint listens on, or "" when it is
// not running.
func (m *Monitor) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

// Start takes the lock, runs a check immediately and then every interval
// until ctx is done. Overlapping runs are not started; a run still in
// progress when the next one is due delays it.
func (m *Monitor) Start(ctx context.Context) error {
	lock, err := m.acquireLock()
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			m.logger.Warn("Failed to release monitor lock", logfields.Path(m.opts.LockPath), logfields.Error(err))
		}
	}()

	srv, err := m.startMetrics()
	if err != nil {
		return err
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(m.opts.Interval),
		gocron.NewTask(func() {
			if err := m.RunOnce(ctx); err != nil {
				m.logger.Error("Scheduled link check failed", logfields.Error(err))
			}
		}),
		gocron.WithName("link-check"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("failed to create scheduled check: %w", err)
	}

	m.logger.Info("Starting monitor",
		slog.Duration("interval", m.opts.Interval),
		slog.String("metrics_addr", m.Addr()))
	s.Start()

	<-ctx.Done()
	m.logger.Info("Stopping monitor")

	var errs []error
	if err := s.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler shutdown: %w", err))
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// RunOnce performs one check and hands the report to history and the
// publisher. History and publish failures are logged and returned, after
// every hook ran.
func (m *Monitor) RunOnce(ctx context.Context) error {
	started := time.Now()
	rep, err := m.opts.Runner.Run(ctx, m.opts.Paths)
	if err != nil {
		return err
	}

	logger := m.logger.With(logfields.RunID(rep.Summary.RunID))
	var errs []error
	if m.opts.History != nil {
		if err := m.opts.History.Record(ctx, rep, started); err != nil {
			logger.Warn("Failed to record run history", logfields.Error(err))
			errs = append(errs, ferrors.WrapError(err, ferrors.CategoryHistory, "failed to record run").Warning().Build())
		}
	}
	if m.opts.Publisher != nil && rep.HasBroken() {
		if sent, err := notify.PublishReport(ctx, m.opts.Publisher, rep); err != nil {
			logger.Warn("Failed to publish broken links", logfields.Count(sent), logfields.Error(err))
			errs = append(errs, err)
		}
	}
	if m.opts.OnReport != nil {
		m.opts.OnReport(rep)
	}

	logger.Info("Scheduled link check complete",
		logfields.Count(rep.Summary.TotalOccurrences),
		slog.Int("broken", rep.Summary.Broken),
		logfields.Duration(time.Since(started)))
	return errors.Join(errs...)
}

func (m *Monitor) acquireLock() (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(m.opts.LockPath), 0o755); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create lock directory").Build()
	}
	lock := flock.New(m.opts.LockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to lock monitor").
			WithContext("path", m.opts.LockPath).
			Build()
	}
	if !ok {
		return nil, ferrors.RuntimeError("another monitor is already running").
			WithContext("path", m.opts.LockPath).
			Fatal().
			Build()
	}
	return lock, nil
}

func (m *Monitor) startMetrics() (*http.Server, error) {
	if m.opts.MetricsAddr == "" {
		return nil, nil
	}
	ln, err := net.Listen("tcp", m.opts.MetricsAddr)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to listen on monitor.metrics_addr").
			WithContext("addr", m.opts.MetricsAddr).
			Fatal().
			Build()
	}
	m.mu.Lock()
	m.listener = ln
	m.mu.Unlock()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(m.opts.Registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("Metrics server failed", logfields.Error(err))
		}
	}()
	return srv, nil
}
