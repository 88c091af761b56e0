package markdown

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// newParser returns a goldmark instance configured for analysis. Attribute
// syntax (`## Title {#id}`) and auto heading IDs are enabled so heading nodes
// carry their anchor in the "id" attribute.
func newParser() goldmark.Markdown {
	return goldmark.New(goldmark.WithParserOptions(
		parser.WithAttribute(),
		parser.WithAutoHeadingID(),
	))
}

// ParseBody parses a Markdown body (frontmatter already removed) into a Goldmark AST.
func ParseBody(body []byte) gmast.Node {
	return newParser().Parser().Parse(text.NewReader(body))
}

// MaskCode returns a copy of body in which every byte that belongs to a code
// block, an inline code span or an HTML comment is replaced by a space.
// Newlines are kept, so line and column positions are unchanged.
//
// This is an analysis API; it does not attempt to re-render Markdown.
func MaskCode(body []byte) []byte {
	masked := bytes.Clone(body)
	mask := func(start, stop int) {
		for i := max(start, 0); i < stop && i < len(masked); i++ {
			if masked[i] != '\n' && masked[i] != '\r' {
				masked[i] = ' '
			}
		}
	}

	root := ParseBody(body)
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *gmast.FencedCodeBlock, *gmast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				mask(seg.Start, seg.Stop)
			}
			if fenced, ok := n.(*gmast.FencedCodeBlock); ok && fenced.Info != nil {
				mask(fenced.Info.Segment.Start, fenced.Info.Segment.Stop)
			}
			return gmast.WalkSkipChildren, nil
		case *gmast.HTMLBlock:
			if node.HTMLBlockType == gmast.HTMLBlockType2 {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					mask(seg.Start, seg.Stop)
				}
				if node.HasClosure() {
					mask(node.ClosureLine.Start, node.ClosureLine.Stop)
				}
			}
			return gmast.WalkSkipChildren, nil
		case *gmast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*gmast.Text); ok {
					mask(t.Segment.Start, t.Segment.Stop)
				}
			}
			return gmast.WalkSkipChildren, nil
		case *gmast.RawHTML:
			segs := node.Segments
			if segs.Len() == 0 {
				return gmast.WalkSkipChildren, nil
			}
			first := segs.At(0)
			if bytes.HasPrefix(first.Value(body), []byte("<!--")) {
				for i := 0; i < segs.Len(); i++ {
					seg := segs.At(i)
					mask(seg.Start, seg.Stop)
				}
			}
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})

	return masked
}

// HeadingIDs returns the anchors a renderer would generate for the headings
// of body: goldmark's own IDs, explicit `{#id}` attributes, and GitHub-style
// slugs (which keep underscores and non-ASCII letters). Duplicate slugs get
// "-1", "-2" suffixes the way GitHub numbers them.
func HeadingIDs(body []byte) []string {
	root := ParseBody(body)

	seen := make(map[string]int)
	var ids []string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		heading, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}

		if id, ok := heading.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok && len(b) > 0 {
				ids = append(ids, string(b))
			}
		}

		slug := Slug(nodeText(heading, body))
		if slug != "" {
			if count, dup := seen[slug]; dup {
				seen[slug] = count + 1
				ids = append(ids, slug+"-"+itoa(count+1))
			} else {
				seen[slug] = 0
				ids = append(ids, slug)
			}
		}
		return gmast.WalkSkipChildren, nil
	})
	return ids
}

// Slug converts heading text into a GitHub-style anchor: lower-cased, spaces
// turned into '-', and everything but letters, digits, '-' and '_' dropped.
func Slug(heading string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(heading)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	return b.String()
}

func nodeText(n gmast.Node, source []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(t.Value)
		case *gmast.CodeSpan:
			for cc := t.FirstChild(); cc != nil; cc = cc.NextSibling() {
				if tt, ok := cc.(*gmast.Text); ok {
					b.Write(tt.Segment.Value(source))
				}
			}
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
