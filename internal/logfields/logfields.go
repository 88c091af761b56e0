package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyFile       = "file"
	KeyLine       = "line"
	KeyURL        = "url"
	KeyHost       = "host"
	KeyAttempt    = "attempt"
	KeyStatus     = "status"
	KeyOutcome    = "outcome"
	KeyRunID      = "run_id"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func File(p string) slog.Attr       { return slog.String(KeyFile, p) }
func Line(n int) slog.Attr          { return slog.Int(KeyLine, n) }
func URL(u string) slog.Attr        { return slog.String(KeyURL, u) }
func Host(h string) slog.Attr       { return slog.String(KeyHost, h) }
func Attempt(n int) slog.Attr       { return slog.Int(KeyAttempt, n) }
func Status(code int) slog.Attr     { return slog.Int(KeyStatus, code) }
func Outcome(label string) slog.Attr { return slog.String(KeyOutcome, label) }
func RunID(id string) slog.Attr     { return slog.String(KeyRunID, id) }
func Path(p string) slog.Attr       { return slog.String(KeyPath, p) }
func Count(n int) slog.Attr         { return slog.Int(KeyCount, n) }

// Duration renders d as fractional milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d)/float64(time.Millisecond))
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
