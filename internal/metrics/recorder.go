package metrics

import "time"

// Recorder defines observability hooks for probes and runs. Implementations
// must be safe for concurrent use by validation workers.
type Recorder interface {
	// ObserveProbe records one finished probe of a target kind ("http", "local").
	ObserveProbe(kind string, d time.Duration, status string)
	// IncRetry counts a retry scheduled for a target kind.
	IncRetry(kind string)
	// IncOutcome counts a terminal outcome label such as "ok" or "broken".
	IncOutcome(status string)
	// ObserveRun records a completed run.
	ObserveRun(d time.Duration, occurrences, broken int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveProbe(string, time.Duration, string) {}
func (NoopRecorder) IncRetry(string)                            {}
func (NoopRecorder) IncOutcome(string)                          {}
func (NoopRecorder) ObserveRun(time.Duration, int, int)         {}
