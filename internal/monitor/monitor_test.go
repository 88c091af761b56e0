package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/checklinks/internal/foundation/errors"
	"git.home.luguber.info/inful/checklinks/internal/links"
	"git.home.luguber.info/inful/checklinks/internal/metrics"
	"git.home.luguber.info/inful/checklinks/internal/notify"
	"git.home.luguber.info/inful/checklinks/internal/report"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRunner) Run(context.Context, []string) (*report.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &report.Report{
		Files: []report.FileReport{{Path: "a.md", Entries: []report.Entry{
			{File: "a.md", Line: 1, Column: 1, Raw: "./gone.md", Outcome: links.Broken(links.ErrLocalPathMissing, "gone.md")},
		}}},
		Summary: report.Summary{RunID: "run", TotalOccurrences: 1, Broken: 1},
	}, nil
}

type fakeHistory struct {
	runs []string
	err  error
}

func (f *fakeHistory) Record(_ context.Context, rep *report.Report, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.runs = append(f.runs, rep.Summary.RunID)
	return nil
}

type fakePublisher struct{ events []*notify.BrokenLinkEvent }

func (f *fakePublisher) Publish(_ context.Context, ev *notify.BrokenLinkEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRunOnce_FeedsHooks(t *testing.T) {
	hist := &fakeHistory{}
	pub := &fakePublisher{}
	var seen *report.Report
	m := New(Options{
		Runner:    &fakeRunner{},
		History:   hist,
		Publisher: pub,
		OnReport:  func(r *report.Report) { seen = r },
		Logger:    quiet(),
	})

	require.NoError(t, m.RunOnce(context.Background()))
	assert.Equal(t, []string{"run"}, hist.runs)
	assert.Len(t, pub.events, 1)
	require.NotNil(t, seen)
}

func TestRunOnce_RunnerError(t *testing.T) {
	boom := errors.New("boom")
	m := New(Options{Runner: &fakeRunner{err: boom}, Logger: quiet()})
	assert.ErrorIs(t, m.RunOnce(context.Background()), boom)
}

func TestRunOnce_HistoryFailureStillPublishes(t *testing.T) {
	pub := &fakePublisher{}
	m := New(Options{
		Runner:    &fakeRunner{},
		History:   &fakeHistory{err: errors.New("disk full")},
		Publisher: pub,
		Logger:    quiet(),
	})

	err := m.RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryHistory))
	assert.Len(t, pub.events, 1)
}

func TestStart_RefusesSecondInstance(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "monitor.lock")
	held := flock.New(lockPath)
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { _ = held.Unlock() })

	m := New(Options{Runner: &fakeRunner{}, Interval: time.Hour, LockPath: lockPath, Logger: quiet()})
	err = m.Start(context.Background())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRuntime))
}

func TestStart_RunsImmediatelyAndServesMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	rec.ObserveRun(time.Second, 1, 1)

	done := make(chan struct{}, 1)
	runner := &fakeRunner{}
	m := New(Options{
		Runner:      runner,
		Interval:    time.Hour,
		LockPath:    filepath.Join(t.TempDir(), "state", "monitor.lock"),
		MetricsAddr: "127.0.0.1:0",
		Registry:    reg,
		OnReport: func(*report.Report) {
			select {
			case done <- struct{}{}:
			default:
			}
		},
		Logger: quiet(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- m.Start(ctx) }()

	select {
	case <-done:
	case err := <-errc:
		t.Fatalf("monitor stopped early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled check did not run")
	}

	resp, err := http.Get("http://" + m.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "checklinks_broken_links 1")

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}
	runner.mu.Lock()
	assert.Equal(t, 1, runner.calls)
	runner.mu.Unlock()
}
