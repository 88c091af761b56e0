// Package linkverify validates link targets over HTTP and on the local
// filesystem under per-host rate limits, retries and a run deadline.
package linkverify

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/checklinks/internal/config"
	"git.home.luguber.info/inful/checklinks/internal/links"
	"git.home.luguber.info/inful/checklinks/internal/logfields"
	"git.home.luguber.info/inful/checklinks/internal/metrics"
	"git.home.luguber.info/inful/checklinks/internal/retry"
)

// Result is the validation result of one key.
type Result struct {
	Outcome links.Outcome
	// Anchors of the fetched document when anchors were requested and the
	// document type supports them; nil means fragment presence is unknown.
	Anchors *AnchorSet
}

// Options tunes a Validator.
type Options struct {
	Concurrency         int
	PerHostInterval     time.Duration
	RequestTimeout      time.Duration
	MaxRedirects        int
	Retry               retry.Policy
	AcceptedStatusCodes []int
	UserAgent           string
	MaxBodyBytes        int64
}

// OptionsFromConfig maps the check section onto validator options.
func OptionsFromConfig(c config.CheckConfig) Options {
	return Options{
		Concurrency:         c.Concurrency,
		PerHostInterval:     c.PerHostInterval,
		RequestTimeout:      c.RequestTimeout,
		MaxRedirects:        c.MaxRedirects,
		Retry:               retry.FromConfig(c),
		AcceptedStatusCodes: c.AcceptedStatusCodes,
		UserAgent:           c.UserAgent,
		MaxBodyBytes:        c.MaxBodyBytes,
	}
}

// FileSystem is the filesystem view used for local targets.
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
}

type osFS struct{}

func (osFS) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
func (osFS) ReadFile(name string) ([]byte, error)  { return os.ReadFile(name) }

// Option customizes a Validator.
type Option func(*Validator)

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(v *Validator) { v.client.Transport = rt }
}

// WithFileSystem replaces the filesystem used for local targets.
func WithFileSystem(fsys FileSystem) Option {
	return func(v *Validator) { v.fs = fsys }
}

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(v *Validator) { v.recorder = r }
}

// WithLogger sets the logger (slog.Default otherwise).
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// Validator probes link targets. It owns its HTTP client and per-host gates;
// separate validators share nothing.
type Validator struct {
	opts     Options
	client   *http.Client
	gates    *HostGates
	accepted map[int]bool
	fs       FileSystem
	recorder metrics.Recorder
	logger   *slog.Logger
	sleep    func(context.Context, time.Duration) error
}

// New builds a Validator.
func New(opts Options, options ...Option) *Validator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 5 << 20
	}

	v := &Validator{
		opts:     opts,
		gates:    NewHostGates(opts.PerHostInterval),
		accepted: make(map[int]bool, len(opts.AcceptedStatusCodes)),
		fs:       osFS{},
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
		sleep:    sleepContext,
	}
	for _, code := range opts.AcceptedStatusCodes {
		v.accepted[code] = true
	}

	maxRedirects := opts.MaxRedirects
	v.client = &http.Client{
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return errTooManyRedirects
			}
			return v.gates.Wait(req.Context(), req.URL.Hostname())
		},
	}

	for _, o := range options {
		o(v)
	}
	return v
}

// Run validates every task with at most Concurrency probes in flight and
// returns one result per task key. When ctx ends first, keys without a
// result are reported as Skipped(run-timeout).
func (v *Validator) Run(ctx context.Context, tasks []links.Task) map[links.DedupKey]Result {
	cache := NewCache()

	var g errgroup.Group
	g.SetLimit(v.opts.Concurrency)

	seen := make(map[links.DedupKey]bool, len(tasks))
	for _, task := range tasks {
		if seen[task.Key] {
			continue
		}
		seen[task.Key] = true
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := v.Validate(ctx, task)
			cache.Store(task.Key, res)
			v.recorder.IncOutcome(res.Outcome.Status.String())
			return nil
		})
	}
	_ = g.Wait()

	for _, task := range tasks {
		if _, ok := cache.Load(task.Key); ok {
			continue
		}
		cache.Store(task.Key, Result{Outcome: links.Skipped(links.SkipRunTimeout)})
		v.recorder.IncOutcome(links.StatusSkipped.String())
	}
	return cache.Snapshot()
}

// Validate probes a single task.
func (v *Validator) Validate(ctx context.Context, task links.Task) Result {
	if ctx.Err() != nil {
		return Result{Outcome: links.Skipped(links.SkipRunTimeout)}
	}

	switch task.Key.Kind {
	case links.TargetHTTP:
		return v.validateHTTP(ctx, task)
	case links.TargetLocalPath:
		return v.validateLocal(task)
	case links.TargetIgnored:
		return Result{Outcome: links.Skipped(links.SkipUnsupportedScheme)}
	case links.TargetMalformed:
		return Result{Outcome: links.Broken(links.ErrMalformedTarget, task.Target.Reason)}
	default:
		return Result{Outcome: links.Broken(links.ErrRequestFailed, "unknown target kind")}
	}
}

type stateKind int

const (
	stateAttempting stateKind = iota
	stateRetrying
	stateTerminal
)

// taskState is one step of the per-task retry machine:
// Attempting(n) -> Retrying(delay) -> Attempting(n+1) ... -> Terminal(outcome).
type taskState struct {
	kind    stateKind
	attempt int
	delay   time.Duration
	result  Result
}

// drive runs attempt through the retry machine until a terminal state.
func (v *Validator) drive(ctx context.Context, kind, target string, attempt func(context.Context) (attemptResult, *AnchorSet)) Result {
	st := taskState{kind: stateAttempting, attempt: 1}
	for {
		switch st.kind {
		case stateAttempting:
			start := time.Now()
			ar, anchors := attempt(ctx)
			latency := time.Since(start)
			retries := st.attempt - 1

			if ar.abandoned || ctx.Err() != nil {
				st = taskState{kind: stateTerminal, result: Result{Outcome: links.Skipped(links.SkipRunTimeout)}}
				st.result.Outcome.RetriesUsed = retries
				continue
			}

			v.recorder.ObserveProbe(kind, latency, ar.outcome.Status.String())
			if ar.retryable && retries < v.opts.Retry.MaxRetries {
				st = taskState{
					kind:    stateRetrying,
					attempt: st.attempt,
					delay:   v.opts.Retry.Clamp(ar.retryAfter, st.attempt),
				}
				st.result.Outcome = ar.outcome
				continue
			}

			out := ar.outcome
			out.Latency = latency
			out.RetriesUsed = retries
			st = taskState{kind: stateTerminal, result: Result{Outcome: out, Anchors: anchors}}

		case stateRetrying:
			v.recorder.IncRetry(kind)
			v.logger.Debug("Retrying target",
				logfields.URL(target),
				logfields.Attempt(st.attempt+1),
				slog.Duration("delay", st.delay),
				logfields.Outcome(st.result.Outcome.Label()))
			if err := v.sleep(ctx, st.delay); err != nil {
				out := links.Skipped(links.SkipRunTimeout)
				out.RetriesUsed = st.attempt - 1
				st = taskState{kind: stateTerminal, result: Result{Outcome: out}}
				continue
			}
			st = taskState{kind: stateAttempting, attempt: st.attempt + 1}

		case stateTerminal:
			v.logger.Debug("Validated target",
				logfields.URL(target),
				logfields.Outcome(st.result.Outcome.Label()),
				logfields.Duration(st.result.Outcome.Latency))
			return st.result
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
