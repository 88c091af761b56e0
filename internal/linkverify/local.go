package linkverify

import (
	"bytes"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/checklinks/internal/links"
	"git.home.luguber.info/inful/checklinks/internal/logfields"
)

// validateLocal checks a filesystem target. There is nothing transient about
// a missing file, so local targets are never retried.
func (v *Validator) validateLocal(task links.Task) Result {
	start := time.Now()
	res := v.statLocal(task.Key.Value, task.WantAnchors)
	res.Outcome.Latency = time.Since(start)

	v.recorder.ObserveProbe("local", res.Outcome.Latency, res.Outcome.Status.String())
	v.logger.Debug("Validated target",
		logfields.Path(task.Key.Value),
		logfields.Outcome(res.Outcome.Label()))
	return res
}

func (v *Validator) statLocal(path string, wantAnchors bool) Result {
	info, err := v.fs.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Result{Outcome: links.Broken(links.ErrLocalPathMissing, path)}
	case err != nil:
		return Result{Outcome: links.Broken(links.ErrLocalPathUnreadable, err.Error())}
	}
	if info.IsDir() || !wantAnchors {
		return Result{Outcome: links.OK()}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".md" && ext != ".markdown" && ext != ".html" && ext != ".htm" {
		return Result{Outcome: links.OK()}
	}

	content, err := v.fs.ReadFile(path)
	if err != nil {
		return Result{Outcome: links.Broken(links.ErrLocalPathUnreadable, err.Error())}
	}
	if ext == ".html" || ext == ".htm" {
		anchors, err := AnchorsFromHTML(bytes.NewReader(content))
		if err != nil {
			return Result{Outcome: links.OK()}
		}
		return Result{Outcome: links.OK(), Anchors: anchors}
	}
	return Result{Outcome: links.OK(), Anchors: AnchorsFromMarkdown(content)}
}
