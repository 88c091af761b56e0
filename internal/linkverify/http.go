package linkverify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"git.home.luguber.info/inful/checklinks/internal/links"
	"git.home.luguber.info/inful/checklinks/internal/logfields"
)

func (v *Validator) validateHTTP(ctx context.Context, task links.Task) Result {
	u, err := url.Parse(task.Key.Value)
	if err != nil {
		return Result{Outcome: links.Broken(links.ErrMalformedTarget, err.Error())}
	}
	host := u.Hostname()

	return v.drive(ctx, "http", task.Key.Value, func(ctx context.Context) (attemptResult, *AnchorSet) {
		if err := v.gates.Wait(ctx, host); err != nil {
			return attemptResult{abandoned: true}, nil
		}
		return v.attemptHTTP(ctx, u, task.WantAnchors)
	})
}

// attemptHTTP performs one attempt: HEAD first, falling back to GET when the
// server rejects HEAD. GET is used directly when anchors are needed. The
// fallback passes the host gate again and gets its own request timeout.
func (v *Validator) attemptHTTP(parent context.Context, u *url.URL, wantAnchors bool) (attemptResult, *AnchorSet) {
	if !wantAnchors {
		resp, done, err := v.do(parent, http.MethodHead, u)
		if err != nil {
			return v.failed(parent, u, err), nil
		}
		_ = resp.Body.Close()
		done()
		if resp.StatusCode < 400 || v.accepted[resp.StatusCode] || resp.StatusCode == http.StatusTooManyRequests {
			return classifyStatus(resp, v.accepted), nil
		}
		v.logger.Debug("HEAD rejected, retrying with GET", logfields.URL(u.String()), logfields.Status(resp.StatusCode))
		if err := v.gates.Wait(parent, u.Hostname()); err != nil {
			return attemptResult{abandoned: true}, nil
		}
	}

	resp, done, err := v.do(parent, http.MethodGet, u)
	if err != nil {
		return v.failed(parent, u, err), nil
	}
	defer done()
	defer func() { _ = resp.Body.Close() }()

	res := classifyStatus(resp, v.accepted)
	if !wantAnchors || res.outcome.Status != links.StatusOK {
		return res, nil
	}

	anchors, err := v.readAnchors(resp)
	if err != nil {
		if parent.Err() != nil {
			return attemptResult{abandoned: true}, nil
		}
		v.logger.Debug("Failed to read anchors", logfields.URL(u.String()), logfields.Error(err))
		return res, nil
	}
	return res, anchors
}

// do sends one request bounded by the request timeout. The returned func
// releases the timeout and must be called once the body has been consumed.
func (v *Validator) do(parent context.Context, method string, u *url.URL) (*http.Response, context.CancelFunc, error) {
	ctx, cancel := parent, context.CancelFunc(func() {})
	if v.opts.RequestTimeout > 0 {
		ctx, cancel = context.WithTimeout(parent, v.opts.RequestTimeout)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if v.opts.UserAgent != "" {
		req.Header.Set("User-Agent", v.opts.UserAgent)
	}
	if method == http.MethodGet {
		req.Header.Set("Accept", "text/html,application/xhtml+xml,text/markdown;q=0.9,*/*;q=0.8")
	}
	resp, err := v.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return resp, cancel, nil
}

// failed classifies a transport error, distinguishing the run deadline from
// the per-request timeout.
func (v *Validator) failed(parent context.Context, u *url.URL, err error) attemptResult {
	if parent.Err() != nil {
		return attemptResult{abandoned: true}
	}
	res := classifyError(err)
	v.logger.Debug("Request failed",
		logfields.URL(u.String()),
		logfields.Outcome(res.outcome.Label()),
		logfields.Error(err))
	return res
}

// readAnchors parses the response body for fragment targets. Documents that
// are neither HTML nor Markdown yield nil.
func (v *Validator) readAnchors(resp *http.Response) (*AnchorSet, error) {
	kind := documentKind(resp)
	if kind == "" {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, v.opts.MaxBodyBytes))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	switch kind {
	case "markdown":
		return AnchorsFromMarkdown(body), nil
	default:
		return AnchorsFromHTML(bytes.NewReader(body))
	}
}

func documentKind(resp *http.Response) string {
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return "html"
	case "text/markdown", "text/x-markdown":
		return "markdown"
	}
	ext := strings.ToLower(path.Ext(resp.Request.URL.Path))
	switch ext {
	case ".md", ".markdown":
		return "markdown"
	case ".html", ".htm":
		if mediaType == "" || mediaType == "text/plain" {
			return "html"
		}
	}
	return ""
}
