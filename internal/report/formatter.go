package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"git.home.luguber.info/inful/checklinks/internal/links"
)

// Formatter renders a report.
type Formatter interface {
	Format(w io.Writer, r *Report) error
}

// NewFormatter returns the formatter for format ("text", "json" or
// "markdown"). Unknown formats fall back to text.
func NewFormatter(format string, useColor, quiet bool) Formatter {
	switch format {
	case "json":
		return NewJSONFormatter()
	case "markdown":
		return NewMarkdownFormatter(quiet)
	default:
		return NewTextFormatter(useColor, quiet)
	}
}

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	quiet bool
	red   *color.Color
	green *color.Color
	warn  *color.Color
	dim   *color.Color
	bold  *color.Color
}

// NewTextFormatter creates a text formatter. With quiet set only broken and
// warning entries are listed.
func NewTextFormatter(useColor, quiet bool) *TextFormatter {
	f := &TextFormatter{
		quiet: quiet,
		red:   color.New(color.FgRed),
		green: color.New(color.FgGreen),
		warn:  color.New(color.FgYellow),
		dim:   color.New(color.FgHiBlack),
		bold:  color.New(color.Bold),
	}
	for _, c := range []*color.Color{f.red, f.green, f.warn, f.dim, f.bold} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return f
}

// Format writes r to w.
func (f *TextFormatter) Format(w io.Writer, r *Report) error {
	p := &printer{w: w}

	for _, file := range r.Files {
		entries := f.visible(file.Entries)
		if len(entries) == 0 {
			continue
		}
		p.printf("%s\n", f.bold.Sprint(file.Path))
		for _, e := range entries {
			p.printf("  %s %s %s %s\n",
				f.icon(e.Outcome),
				f.dim.Sprintf("%d:%d", e.Line, e.Column),
				e.Raw,
				f.describe(e.Outcome))
		}
		p.printf("\n")
	}

	for _, fe := range r.FileErrors {
		p.printf("%s %s\n  %s\n\n", f.red.Sprint("✗"), fe.Path, fe.Message)
	}

	s := r.Summary
	p.printf("%s\n", strings.Repeat("━", 60))
	p.printf("Results:\n")
	p.printf("  %d link%s checked (%d unique target%s) in %s\n",
		s.TotalOccurrences, pluralize(s.TotalOccurrences),
		s.UniqueTargets, pluralize(s.UniqueTargets),
		s.Elapsed.Round(time.Millisecond))
	if s.Broken > 0 {
		p.printf("  %d broken\n", s.Broken)
	}
	if s.Warnings > 0 {
		p.printf("  %d warning%s (missing fragment)\n", s.Warnings, pluralize(s.Warnings))
	}
	if s.Skipped > 0 {
		p.printf("  %d skipped\n", s.Skipped)
	}
	if s.FileErrors > 0 {
		p.printf("  %d file%s could not be read\n", s.FileErrors, pluralize(s.FileErrors))
	}
	p.printf("\n")

	switch {
	case s.Broken > 0:
		p.printf("%s\n", f.red.Sprintf("❌ %d bad link%s out of %d", s.Broken, pluralize(s.Broken), s.TotalOccurrences))
	case s.Warnings > 0:
		p.printf("%s\n", f.warn.Sprintf("⚠️  No bad links out of %d, %d fragment%s not found", s.TotalOccurrences, s.Warnings, pluralize(s.Warnings)))
	default:
		p.printf("%s\n", f.green.Sprintf("✨ No bad links out of %d", s.TotalOccurrences))
	}
	return p.err
}

func (f *TextFormatter) visible(entries []Entry) []Entry {
	if !f.quiet {
		return entries
	}
	var out []Entry
	for _, e := range entries {
		if e.Outcome.Status == links.StatusBroken || e.Outcome.IsWarning() {
			out = append(out, e)
		}
	}
	return out
}

func (f *TextFormatter) icon(o links.Outcome) string {
	switch o.Status {
	case links.StatusBroken:
		return f.red.Sprint("✗")
	case links.StatusSkipped:
		return f.dim.Sprint("-")
	case links.StatusOK:
		if o.IsWarning() {
			return f.warn.Sprint("⚠")
		}
		return f.green.Sprint("✓")
	default:
		return "?"
	}
}

func (f *TextFormatter) describe(o links.Outcome) string {
	label := o.Label()
	if o.Status == links.StatusBroken && o.Detail != "" && o.Error != links.ErrHTTPStatus {
		label += ": " + o.Detail
	}
	switch o.Status {
	case links.StatusBroken:
		return f.red.Sprint(label)
	case links.StatusSkipped:
		return f.dim.Sprint(label)
	case links.StatusOK:
		if o.IsWarning() {
			return f.warn.Sprint(label)
		}
		return f.dim.Sprint(label)
	default:
		return label
	}
}

// printer remembers the first write error so rendering code stays linear.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// pluralize returns "s" if count != 1, otherwise empty string.
func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
