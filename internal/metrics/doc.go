// Package metrics defines the observability hooks of a link check run.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	v := linkverify.New(opts) // records nothing
//	v := linkverify.New(opts, linkverify.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// The monitor command wires a PrometheusRecorder and serves its registry with
// HTTPHandler.
package metrics
