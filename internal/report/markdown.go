package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"git.home.luguber.info/inful/checklinks/internal/links"
)

// MarkdownFormatter formats reports as GitHub-flavored Markdown, suitable for
// CI job summaries and pull request comments.
type MarkdownFormatter struct {
	quiet bool
}

// NewMarkdownFormatter creates a Markdown formatter.
func NewMarkdownFormatter(quiet bool) *MarkdownFormatter {
	return &MarkdownFormatter{quiet: quiet}
}

// Format outputs r in Markdown format.
func (f *MarkdownFormatter) Format(w io.Writer, r *Report) error {
	md := markdown.NewMarkdown(w)
	s := r.Summary

	md.H1("Link check report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Links", strconv.Itoa(s.TotalOccurrences)},
			{"Unique targets", strconv.Itoa(s.UniqueTargets)},
			{"Broken", strconv.Itoa(s.Broken)},
			{"Warnings", strconv.Itoa(s.Warnings)},
			{"Skipped", strconv.Itoa(s.Skipped)},
			{"Unreadable files", strconv.Itoa(s.FileErrors)},
			{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")

	switch {
	case s.Broken > 0:
		md.Cautionf("%d bad link%s out of %d.", s.Broken, pluralize(s.Broken), s.TotalOccurrences)
	case s.Warnings > 0:
		md.Warningf("%d fragment%s not found.", s.Warnings, pluralize(s.Warnings))
	default:
		md.Tip("No bad links found.")
	}
	md.PlainText("")

	for _, file := range r.Files {
		rows := make([][]string, 0, len(file.Entries))
		for _, e := range file.Entries {
			if f.quiet && e.Outcome.Status != links.StatusBroken && !e.Outcome.IsWarning() {
				continue
			}
			rows = append(rows, []string{
				strconv.Itoa(e.Line) + ":" + strconv.Itoa(e.Column),
				"`" + escapeCell(e.Raw) + "`",
				escapeCell(e.Outcome.Label()),
			})
		}
		if len(rows) == 0 {
			continue
		}
		md.H2(file.Path)
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Position", "Link", "Result"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(r.FileErrors) > 0 {
		md.H2("Unreadable files")
		md.PlainText("")
		items := make([]string, 0, len(r.FileErrors))
		for _, fe := range r.FileErrors {
			items = append(items, fe.Path+": "+fe.Message)
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	if s.RunID != "" {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*Run %s*", s.RunID)
	}
	return md.Build()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
