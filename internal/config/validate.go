package config

import (
	"regexp"
	"time"

	ferrors "git.home.luguber.info/inful/checklinks/internal/foundation/errors"
)

// Normalize canonicalizes enum fields, rejecting unknown values.
func (c *Config) Normalize() error {
	var err error
	if c.Check.RetryBackoff, err = retryBackoffNormalizer.NormalizeWithValidation(string(c.Check.RetryBackoff)); err != nil {
		return invalid(err)
	}
	if c.Logging.Level, err = logLevelNormalizer.NormalizeWithValidation(string(c.Logging.Level)); err != nil {
		return invalid(err)
	}
	if c.Logging.Format, err = logFormatNormalizer.NormalizeWithValidation(string(c.Logging.Format)); err != nil {
		return invalid(err)
	}
	if c.Output.Format, err = outputFormatNormalizer.NormalizeWithValidation(string(c.Output.Format)); err != nil {
		return invalid(err)
	}
	if c.Output.Color, err = colorModeNormalizer.NormalizeWithValidation(string(c.Output.Color)); err != nil {
		return invalid(err)
	}
	return nil
}

func invalid(err error) error {
	return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid configuration value").Fatal().UserAction().Build()
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	chk := c.Check
	switch {
	case chk.Concurrency < 1:
		return fieldError("check.concurrency", "must be at least 1", chk.Concurrency)
	case chk.PerHostInterval < 0:
		return fieldError("check.per_host_interval", "must not be negative", chk.PerHostInterval)
	case chk.RequestTimeout <= 0:
		return fieldError("check.request_timeout", "must be positive", chk.RequestTimeout)
	case chk.MaxRetries < 0 || chk.MaxRetries > 10:
		return fieldError("check.max_retries", "must be between 0 and 10", chk.MaxRetries)
	case chk.MaxRedirects < 0:
		return fieldError("check.max_redirects", "must not be negative", chk.MaxRedirects)
	case chk.RunTimeout < 0:
		return fieldError("check.run_timeout", "must not be negative", chk.RunTimeout)
	case chk.RetryInitialDelay <= 0:
		return fieldError("check.retry_initial_delay", "must be positive", chk.RetryInitialDelay)
	case chk.RetryMaxDelay < chk.RetryInitialDelay:
		return fieldError("check.retry_max_delay", "must not be below retry_initial_delay", chk.RetryMaxDelay)
	case chk.MaxBodyBytes <= 0:
		return fieldError("check.max_body_bytes", "must be positive", chk.MaxBodyBytes)
	case c.Files.MaxDepth < 0:
		return fieldError("files.max_depth", "must not be negative", c.Files.MaxDepth)
	case c.Monitor.Interval < time.Second:
		return fieldError("monitor.interval", "must be at least 1s", c.Monitor.Interval)
	}

	for _, code := range chk.AcceptedStatusCodes {
		if code < 100 || code > 599 {
			return fieldError("check.accepted_status_codes", "codes must be between 100 and 599", code)
		}
	}
	if _, err := chk.SkipMatchers(); err != nil {
		return err
	}
	return nil
}

func fieldError(field, msg string, value any) error {
	return ferrors.ConfigError(field+" "+msg).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}

// SkipMatchers compiles check.skip_patterns.
func (c CheckConfig) SkipMatchers() ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(c.SkipPatterns))
	for _, p := range c.SkipPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid check.skip_patterns entry").
				WithContext("pattern", p).
				Fatal().
				Build()
		}
		out = append(out, re)
	}
	return out, nil
}
