// Package extract finds link occurrences in Markdown files and in the
// documentation comments of source files.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"git.home.luguber.info/inful/checklinks/internal/frontmatter"
	"git.home.luguber.info/inful/checklinks/internal/links"
	"git.home.luguber.info/inful/checklinks/internal/markdown"
)

// ErrNotText is returned by Iterator.Err for contents that are not UTF-8 text.
var ErrNotText = errors.New("file is not valid UTF-8 text")

// ErrUnsupportedFormat is returned by Iterator.Err when the format has no scanner.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Input is one file handed to the extractor.
type Input struct {
	Path     string
	Format   Format
	Contents string
}

// Iterator yields the occurrences of one file in position order. It is
// consumed once; after Next returns false it stays exhausted.
type Iterator struct {
	path     string
	context  links.ContextKind
	lines    []string
	lineBase int // Lines of the file preceding lines[0]
	next     int
	pending  []links.Occurrence
	err      error

	syntax  commentSyntax
	inBlock bool
	inFence bool
	source  bool
}

// Extract returns an iterator over the link occurrences in in. Scanning
// happens line by line as Next is called.
func Extract(in Input) *Iterator {
	it := &Iterator{path: in.Path}

	if !utf8.ValidString(in.Contents) || strings.IndexByte(in.Contents, 0) >= 0 {
		it.err = fmt.Errorf("%s: %w", in.Path, ErrNotText)
		return it
	}

	switch {
	case in.Format == FormatMarkdown:
		it.context = links.ContextMarkdownBody
		block, body, had, _ := frontmatter.Split([]byte(in.Contents))
		if had {
			it.lineBase = block.BodyLine
		}
		it.lines = splitLines(markdown.MaskCode(body))
	case in.Format.IsSource():
		it.context = links.ContextDocComment
		it.syntax = commentSyntaxes[in.Format]
		it.source = true
		it.lines = splitLines([]byte(in.Contents))
	default:
		it.err = fmt.Errorf("%s: %w (%s)", in.Path, ErrUnsupportedFormat, in.Format)
	}
	return it
}

// Next returns the next occurrence. The second result is false once the
// file is exhausted or extraction failed; check Err afterwards.
func (it *Iterator) Next() (links.Occurrence, bool) {
	for len(it.pending) == 0 {
		if it.err != nil || it.next >= len(it.lines) {
			it.lines = nil
			return links.Occurrence{}, false
		}
		idx := it.next
		it.next++
		if it.source {
			it.scanSourceLine(idx)
		} else {
			it.emit(idx, 0, it.lines[idx])
		}
	}
	occ := it.pending[0]
	it.pending = it.pending[1:]
	return occ, true
}

// Err returns the file-level error that stopped extraction, if any.
func (it *Iterator) Err() error {
	return it.err
}

// Collect drains it into a slice.
func Collect(it *Iterator) ([]links.Occurrence, error) {
	var out []links.Occurrence
	for {
		occ, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, occ)
	}
	return out, it.Err()
}

// emit scans text, which starts at byte offset col0 of line idx.
func (it *Iterator) emit(idx, col0 int, text string) {
	for _, m := range markdown.ScanLine(text) {
		it.pending = append(it.pending, links.Occurrence{
			SourceFile: it.path,
			Line:       it.lineBase + idx + 1,
			Column:     col0 + m.Start + 1,
			Raw:        m.Target,
			Context:    it.context,
		})
	}
}

func (it *Iterator) scanSourceLine(idx int) {
	line := it.lines[idx]
	indent := len(line) - len(strings.TrimLeft(line, " \t"))
	trimmed := line[indent:]

	if it.inBlock {
		start := indent
		// Decorative leading '*' of block comment continuations.
		if strings.HasPrefix(trimmed, "*") && !strings.HasPrefix(trimmed, "*/") {
			start++
		}
		end := len(line)
		if i := strings.Index(line[start:], "*/"); i >= 0 {
			end = start + i
			it.inBlock = false
		}
		it.payload(idx, start, line[start:end])
		if !it.inBlock {
			it.inFence = false
		}
		return
	}

	if n, ok := it.syntax.lineComment(trimmed); ok {
		start := indent + n
		it.payload(idx, start, line[start:])
		return
	}

	if n, ok := it.syntax.blockComment(trimmed); ok {
		start := indent + n
		end := len(line)
		if i := strings.Index(line[start:], "*/"); i >= 0 {
			end = start + i
		} else {
			it.inBlock = true
		}
		it.inFence = false
		it.payload(idx, start, line[start:end])
		return
	}

	// Code: a comment run has ended.
	it.inFence = false
}

// payload handles the text of one documentation comment line. Fenced
// examples inside comments are skipped and inline code is masked.
func (it *Iterator) payload(idx, start int, text string) {
	fence := strings.TrimSpace(text)
	if strings.HasPrefix(fence, "```") || strings.HasPrefix(fence, "~~~") {
		it.inFence = !it.inFence
		return
	}
	if it.inFence {
		return
	}
	it.emit(idx, start, markdown.MaskInlineCode(text))
}

func splitLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	raw := bytes.Split(b, []byte("\n"))
	out := make([]string, len(raw))
	for i, l := range raw {
		out[i] = string(bytes.TrimSuffix(l, []byte("\r")))
	}
	return out
}
