package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "checklinks"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	probeDuration *prom.HistogramVec
	retries       *prom.CounterVec
	outcomes      *prom.CounterVec
	runDuration   prom.Histogram
	runs          prom.Counter
	occurrences   prom.Gauge
	brokenLinks   prom.Gauge
	lastRun       prom.Gauge
}

// NewPrometheusRecorder constructs the collectors and registers them on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		probeDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "probe_duration_seconds",
			Help:      "Duration of the final attempt of each target probe",
			Buckets:   prom.DefBuckets,
		}, []string{"kind", "status"}),
		retries: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "probe_retries_total",
			Help:      "Retries of transient probe failures",
		}, []string{"kind"}),
		outcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "target_outcomes_total",
			Help:      "Validated targets by final status",
		}, []string{"status"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total duration of a check run",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		runs: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed check runs",
		}),
		occurrences: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "link_occurrences",
			Help:      "Link occurrences found by the last run",
		}),
		brokenLinks: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "broken_links",
			Help:      "Broken link occurrences found by the last run",
		}),
		lastRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run completed",
		}),
	}
	reg.MustRegister(pr.probeDuration, pr.retries, pr.outcomes, pr.runDuration, pr.runs, pr.occurrences, pr.brokenLinks, pr.lastRun)
	return pr
}

func (p *PrometheusRecorder) ObserveProbe(kind string, d time.Duration, status string) {
	if p == nil {
		return
	}
	p.probeDuration.WithLabelValues(kind, status).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRetry(kind string) {
	if p == nil {
		return
	}
	p.retries.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncOutcome(status string) {
	if p == nil {
		return
	}
	p.outcomes.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveRun(d time.Duration, occurrences, broken int) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
	p.runs.Inc()
	p.occurrences.Set(float64(occurrences))
	p.brokenLinks.Set(float64(broken))
	p.lastRun.SetToCurrentTime()
}
