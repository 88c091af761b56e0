package linkverify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"syscall"
	"time"

	"git.home.luguber.info/inful/checklinks/internal/links"
)

// errTooManyRedirects is returned from CheckRedirect once the hop limit is hit.
var errTooManyRedirects = errors.New("too many redirects")

// attemptResult is the verdict of one probe attempt.
type attemptResult struct {
	outcome    links.Outcome
	retryable  bool
	retryAfter time.Duration // Server-suggested delay (429)
	abandoned  bool          // The run context ended mid-attempt
}

func terminal(o links.Outcome) attemptResult { return attemptResult{outcome: o} }

func transient(o links.Outcome) attemptResult { return attemptResult{outcome: o, retryable: true} }

// classifyError maps a transport error onto an error kind and decides
// whether retrying can help.
func classifyError(err error) attemptResult {
	detail := err.Error()
	var uerr *url.Error
	if errors.As(err, &uerr) {
		detail = uerr.Err.Error()
	}

	var (
		dnsErr      *net.DNSError
		unknownCA   x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidErr  x509.CertificateInvalidError
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
	)

	switch {
	case errors.Is(err, errTooManyRedirects):
		return terminal(links.Broken(links.ErrTooManyRedirects, detail))
	case errors.As(err, &dnsErr):
		o := links.Broken(links.ErrDNSFailure, detail)
		if dnsErr.IsNotFound {
			return terminal(o)
		}
		if dnsErr.IsTemporary || dnsErr.IsTimeout {
			return transient(o)
		}
		return terminal(o)
	case errors.As(err, &verifyErr), errors.As(err, &unknownCA), errors.As(err, &hostnameErr),
		errors.As(err, &invalidErr), errors.As(err, &recordErr):
		return terminal(links.Broken(links.ErrTLS, detail))
	case errors.Is(err, syscall.ECONNREFUSED):
		return transient(links.Broken(links.ErrConnectionRefused, detail))
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return transient(links.Broken(links.ErrConnectionReset, detail))
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return transient(links.Broken(links.ErrTimeout, detail))
	default:
		return terminal(links.Broken(links.ErrRequestFailed, detail))
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// classifyStatus evaluates the final response status of an attempt.
func classifyStatus(resp *http.Response, accepted map[int]bool) attemptResult {
	code := resp.StatusCode
	if accepted[code] || code < 400 {
		o := links.OK()
		o.StatusCode = code
		return terminal(o)
	}

	o := links.Broken(links.ErrHTTPStatus, resp.Status)
	o.StatusCode = code
	switch {
	case code == http.StatusTooManyRequests:
		r := transient(o)
		r.retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return r
	case code >= 500:
		return transient(o)
	default:
		return terminal(o)
	}
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
