// Package errors provides the classified error type used for failures that
// end a checklinks run.
//
// Per-link failures are never errors: they are outcomes in the report. This
// package covers what is left: bad configuration, no readable input, and
// faults of the collaborators (history store, notifier, metrics listener).
//
// Key features:
//   - ErrorCategory: broad classification (config, no_input, filesystem, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: whether retrying the operation can help
//   - ClassifiedError: structured error with category, severity and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLIErrorAdapter: exit codes and user-facing messages
//
// Example usage:
//
//	err := errors.ConfigError("invalid check.concurrency").
//		WithContext("value", cfg.Check.Concurrency).
//		Build()
package errors
