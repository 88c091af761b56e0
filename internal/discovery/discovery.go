// Package discovery walks documentation paths and returns the files the
// extractor can scan, honoring .gitignore files and include/exclude globs.
package discovery

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"git.home.luguber.info/inful/checklinks/internal/config"
	"git.home.luguber.info/inful/checklinks/internal/extract"
	ferrors "git.home.luguber.info/inful/checklinks/internal/foundation/errors"
	"git.home.luguber.info/inful/checklinks/internal/logfields"
)

// Options selects the files to scan.
type Options struct {
	Include          []string // gitignore-style globs; empty means every supported file
	Exclude          []string
	RespectGitignore bool
	Hidden           bool
	MaxDepth         int // Directory levels below a root to descend into; 0 is unlimited
}

// OptionsFromConfig maps the files section onto discovery options.
func OptionsFromConfig(c config.FilesConfig) Options {
	return Options{
		Include:          c.Include,
		Exclude:          c.Exclude,
		RespectGitignore: c.RespectGitignore,
		Hidden:           c.Hidden,
		MaxDepth:         c.MaxDepth,
	}
}

// Failure is a file that was selected but could not be read or decoded.
type Failure struct {
	Path string
	Err  error
}

// Result lists discovered inputs in walk order.
type Result struct {
	Inputs   []extract.Input
	Failures []Failure
}

// Discover walks paths (files or directories; "." when empty). It fails with
// a no-input error when nothing readable was found, and with a not-found
// error when a path does not exist.
func Discover(ctx context.Context, paths []string, opts Options) (*Result, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}
	include := compile(opts.Include)
	exclude := compile(opts.Exclude)

	res := &Result{}
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryNotFound, "input path not found").
				WithContext("path", root).
				Fatal().
				Build()
		}
		if !info.IsDir() {
			res.add(root)
			continue
		}
		w := &walker{root: root, opts: opts, include: include, exclude: exclude, res: res}
		if err := w.walk(ctx); err != nil {
			return nil, err
		}
	}

	slog.Info("Discovered documentation files",
		logfields.Count(len(res.Inputs)),
		slog.Int("failures", len(res.Failures)))

	if len(res.Inputs) == 0 {
		return nil, ferrors.NoInputError("no readable documentation files found").
			WithContext("paths", strings.Join(paths, ",")).
			Build()
	}
	return res, nil
}

type walker struct {
	root     string
	opts     Options
	include  []gitignore.Pattern
	exclude  []gitignore.Pattern
	patterns []gitignore.Pattern
	ignore   gitignore.Matcher
	res      *Result
}

func (w *walker) walk(ctx context.Context) error {
	w.ignore = gitignore.NewMatcher(nil)
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == w.root {
				return err
			}
			w.res.Failures = append(w.res.Failures, Failure{Path: path, Err: err})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return relErr
		}
		var parts []string
		if rel != "." {
			parts = strings.Split(filepath.ToSlash(rel), "/")
		}

		if d.IsDir() {
			return w.enterDir(path, d.Name(), parts)
		}

		if !w.opts.Hidden && strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if w.opts.RespectGitignore && w.ignore.Match(parts, false) {
			return nil
		}
		if _, ok := extract.DetectFormat(path); !ok {
			return nil
		}
		if len(w.include) > 0 && !matchAny(w.include, parts, false) {
			return nil
		}
		if matchAny(w.exclude, parts, false) {
			return nil
		}
		w.res.add(path)
		return nil
	})
}

func (w *walker) enterDir(path, name string, parts []string) error {
	if len(parts) > 0 {
		if name == ".git" || (!w.opts.Hidden && strings.HasPrefix(name, ".")) {
			return fs.SkipDir
		}
		// Files directly under a root are at depth 1.
		if w.opts.MaxDepth > 0 && len(parts) >= w.opts.MaxDepth {
			return fs.SkipDir
		}
		if w.opts.RespectGitignore && w.ignore.Match(parts, true) {
			return fs.SkipDir
		}
		if matchAny(w.exclude, parts, true) {
			return fs.SkipDir
		}
	}
	if w.opts.RespectGitignore {
		w.loadGitignore(path, parts)
	}
	return nil
}

// loadGitignore adds the patterns of dir/.gitignore, scoped to dir.
func (w *walker) loadGitignore(dir string, domain []string) {
	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to read .gitignore", logfields.Path(dir), logfields.Error(err))
		}
		return
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		w.patterns = append(w.patterns, gitignore.ParsePattern(line, domain))
	}
	w.ignore = gitignore.NewMatcher(w.patterns)
}

func (r *Result) add(path string) {
	format, ok := extract.DetectFormat(path)
	if !ok {
		r.Failures = append(r.Failures, Failure{Path: path, Err: extract.ErrUnsupportedFormat})
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		r.Failures = append(r.Failures, Failure{Path: path, Err: err})
		return
	}
	text, err := Decode(data)
	if err != nil {
		r.Failures = append(r.Failures, Failure{Path: path, Err: err})
		return
	}
	slog.Debug("Discovered file", logfields.File(path), slog.String("format", format.String()))
	r.Inputs = append(r.Inputs, extract.Input{Path: path, Format: format, Contents: text})
}

// Decode converts file bytes to text. A UTF-8 BOM is stripped and UTF-16
// files with a BOM are transcoded; anything else passes through unchanged and
// is checked by the extractor.
func Decode(data []byte) (string, error) {
	out, _, err := transform.Bytes(unicode.BOMOverride(encoding.Nop.NewDecoder()), data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func compile(globs []string) []gitignore.Pattern {
	out := make([]gitignore.Pattern, 0, len(globs))
	for _, g := range globs {
		if strings.TrimSpace(g) == "" {
			continue
		}
		out = append(out, gitignore.ParsePattern(g, nil))
	}
	return out
}

func matchAny(patterns []gitignore.Pattern, parts []string, isDir bool) bool {
	for _, p := range patterns {
		if p.Match(parts, isDir) == gitignore.Exclude {
			return true
		}
	}
	return false
}
