package links

import (
	"fmt"
	"time"
)

// ContextKind identifies the textual surrounding a link was found in.
type ContextKind int

const (
	// ContextMarkdownBody is ordinary Markdown prose.
	ContextMarkdownBody ContextKind = iota
	// ContextMarkdownCodeSpan is text inside inline code or a code block.
	// Links there document syntax and are never emitted.
	ContextMarkdownCodeSpan
	// ContextDocComment is the payload of a documentation comment in source code.
	ContextDocComment
)

func (c ContextKind) String() string {
	switch c {
	case ContextMarkdownBody:
		return "markdown"
	case ContextMarkdownCodeSpan:
		return "code-span"
	case ContextDocComment:
		return "doc-comment"
	default:
		return "unknown"
	}
}

// Occurrence is one textual mention of a link at a position in a file.
type Occurrence struct {
	SourceFile string      // Path of the file containing the link
	Line       int         // 1-based line of the link target
	Column     int         // 1-based byte column of the link target
	Raw        string      // Link target exactly as written
	Context    ContextKind // Where the mention was found
}

func (o Occurrence) String() string {
	return fmt.Sprintf("%s:%d:%d: %s", o.SourceFile, o.Line, o.Column, o.Raw)
}

// TargetKind is the closed set of link target classifications.
type TargetKind int

const (
	TargetHTTP TargetKind = iota
	TargetLocalPath
	TargetIgnored
	TargetMalformed
)

func (k TargetKind) String() string {
	switch k {
	case TargetHTTP:
		return "http"
	case TargetLocalPath:
		return "local"
	case TargetIgnored:
		return "ignored"
	case TargetMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Target is the resolved destination of an occurrence. Only the fields
// relevant to Kind are set.
type Target struct {
	Kind        TargetKind
	URL         string // TargetHTTP: normalized URL without fragment
	Path        string // TargetLocalPath: cleaned absolute path
	Scheme      string // TargetIgnored: lower-cased scheme
	Raw         string // TargetMalformed: the trimmed link text
	Reason      string // TargetMalformed: why the text could not be resolved
	Fragment    string // Decoded fragment identifier, without '#'
	HasFragment bool   // True when a non-empty fragment was requested
}

// Key returns the deduplication key: the target with its fragment stripped.
func (t Target) Key() DedupKey {
	switch t.Kind {
	case TargetHTTP:
		return DedupKey{Kind: t.Kind, Value: t.URL}
	case TargetLocalPath:
		return DedupKey{Kind: t.Kind, Value: t.Path}
	case TargetIgnored:
		return DedupKey{Kind: t.Kind, Value: t.Scheme}
	case TargetMalformed:
		return DedupKey{Kind: t.Kind, Value: t.Raw}
	default:
		return DedupKey{Kind: t.Kind}
	}
}

func (t Target) String() string {
	switch t.Kind {
	case TargetHTTP:
		return withFragment(t.URL, t)
	case TargetLocalPath:
		return withFragment(t.Path, t)
	case TargetIgnored:
		return t.Scheme + ":"
	case TargetMalformed:
		return "malformed (" + t.Reason + ")"
	default:
		return "unknown"
	}
}

func withFragment(base string, t Target) string {
	if !t.HasFragment {
		return base
	}
	return base + "#" + t.Fragment
}

// DedupKey is the unit of validation work. Two occurrences with equal keys
// are validated exactly once and share the outcome.
type DedupKey struct {
	Kind  TargetKind
	Value string
}

func (k DedupKey) String() string {
	return k.Kind.String() + ":" + k.Value
}

// Status is the pass/fail/skip result of validating one key.
type Status int

const (
	StatusOK Status = iota
	StatusBroken
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusBroken:
		return "broken"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// ErrorKind enumerates why a target is broken.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrHTTPStatus
	ErrTooManyRedirects
	ErrDNSFailure
	ErrConnectionRefused
	ErrConnectionReset
	ErrTimeout
	ErrTLS
	ErrRequestFailed
	ErrLocalPathMissing
	ErrLocalPathUnreadable
	ErrMalformedTarget
	ErrFragmentMissing
)

func (e ErrorKind) String() string {
	switch e {
	case ErrNone:
		return ""
	case ErrHTTPStatus:
		return "http-status"
	case ErrTooManyRedirects:
		return "too-many-redirects"
	case ErrDNSFailure:
		return "dns-failure"
	case ErrConnectionRefused:
		return "connection-refused"
	case ErrConnectionReset:
		return "connection-reset"
	case ErrTimeout:
		return "timeout"
	case ErrTLS:
		return "tls-error"
	case ErrRequestFailed:
		return "request-failed"
	case ErrLocalPathMissing:
		return "local-path-missing"
	case ErrLocalPathUnreadable:
		return "local-path-unreadable"
	case ErrMalformedTarget:
		return "malformed-target"
	case ErrFragmentMissing:
		return "fragment-missing"
	default:
		return "unknown"
	}
}

// Skip reasons.
const (
	SkipUnsupportedScheme = "unsupported-scheme"
	SkipRunTimeout        = "run-timeout"
	SkipExcluded          = "excluded"
)

// Outcome is the validation result of one key, cached for the run.
type Outcome struct {
	Status          Status
	Error           ErrorKind     // Set when Status is StatusBroken
	StatusCode      int           // Final HTTP status, 0 when no response
	SkipReason      string        // Set when Status is StatusSkipped
	Detail          string        // Human-readable detail (error text, status line)
	FragmentPresent *bool         // nil when no fragment was checked
	Latency         time.Duration // Duration of the final attempt
	RetriesUsed     int
}

// OK builds a passing outcome.
func OK() Outcome { return Outcome{Status: StatusOK} }

// Broken builds a failing outcome.
func Broken(kind ErrorKind, detail string) Outcome {
	return Outcome{Status: StatusBroken, Error: kind, Detail: detail}
}

// Skipped builds an outcome for a target that was not validated.
func Skipped(reason string) Outcome {
	return Outcome{Status: StatusSkipped, SkipReason: reason}
}

// IsWarning reports whether the outcome passed but its fragment was not found.
func (o Outcome) IsWarning() bool {
	return o.Status == StatusOK && o.FragmentPresent != nil && !*o.FragmentPresent
}

// Label renders the outcome the way reports name it, e.g.
// "broken(http-status 503)" or "skipped(run-timeout)".
func (o Outcome) Label() string {
	switch o.Status {
	case StatusOK:
		if o.IsWarning() {
			return "ok(fragment-missing)"
		}
		return "ok"
	case StatusBroken:
		if o.Error == ErrHTTPStatus {
			return fmt.Sprintf("broken(%s %d)", o.Error, o.StatusCode)
		}
		return "broken(" + o.Error.String() + ")"
	case StatusSkipped:
		return "skipped(" + o.SkipReason + ")"
	default:
		return "unknown"
	}
}
