package extract

import (
	"path/filepath"
	"strings"
)

// Format selects how a file's contents are scanned for links.
type Format int

const (
	FormatUnknown Format = iota
	FormatMarkdown
	FormatRust
	FormatGo
	FormatC
	FormatJava
	FormatJavaScript
	FormatSwift
	FormatCSharp
)

func (f Format) String() string {
	switch f {
	case FormatUnknown:
		return "unknown"
	case FormatMarkdown:
		return "markdown"
	case FormatRust:
		return "rust"
	case FormatGo:
		return "go"
	case FormatC:
		return "c"
	case FormatJava:
		return "java"
	case FormatJavaScript:
		return "javascript"
	case FormatSwift:
		return "swift"
	case FormatCSharp:
		return "csharp"
	default:
		return "unknown"
	}
}

// IsSource reports whether f is a programming language whose doc comments are scanned.
func (f Format) IsSource() bool {
	_, ok := commentSyntaxes[f]
	return ok
}

var extensions = map[string]Format{
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".mdown":    FormatMarkdown,
	".mkd":      FormatMarkdown,
	".mdx":      FormatMarkdown,

	".rs": FormatRust,
	".go": FormatGo,

	".c":   FormatC,
	".h":   FormatC,
	".cc":  FormatC,
	".cpp": FormatC,
	".cxx": FormatC,
	".hpp": FormatC,
	".hh":  FormatC,

	".java":   FormatJava,
	".kt":     FormatJava,
	".kts":    FormatJava,
	".scala":  FormatJava,
	".groovy": FormatJava,

	".js":  FormatJavaScript,
	".jsx": FormatJavaScript,
	".mjs": FormatJavaScript,
	".cjs": FormatJavaScript,
	".ts":  FormatJavaScript,
	".tsx": FormatJavaScript,

	".swift": FormatSwift,
	".cs":    FormatCSharp,
}

// DetectFormat maps a file name to its format by extension.
func DetectFormat(path string) (Format, bool) {
	f, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// Extensions returns every recognized file extension.
func Extensions() []string {
	out := make([]string, 0, len(extensions))
	for ext := range extensions {
		out = append(out, ext)
	}
	return out
}

// commentSyntax lists the delimiters that introduce documentation comments.
// Only comments that start a line (after indentation) count.
type commentSyntax struct {
	line  []string // Line comment prefixes, longest first
	block []string // Block comment openers
}

var commentSyntaxes = map[Format]commentSyntax{
	FormatRust:       {line: []string{"///", "//!"}, block: []string{"/**", "/*!"}},
	FormatGo:         {line: []string{"//"}, block: []string{"/*"}},
	FormatC:          {line: []string{"///", "//!"}, block: []string{"/**", "/*!"}},
	FormatJava:       {block: []string{"/**"}},
	FormatJavaScript: {block: []string{"/**"}},
	FormatSwift:      {line: []string{"///"}, block: []string{"/**"}},
	FormatCSharp:     {line: []string{"///"}},
}

// lineComment returns the payload offset when trimmed starts a documentation
// line comment.
func (s commentSyntax) lineComment(trimmed string) (int, bool) {
	for _, p := range s.line {
		if !strings.HasPrefix(trimmed, p) {
			continue
		}
		// "////" is an ordinary comment in languages with "///" doc comments.
		if p == "///" && strings.HasPrefix(trimmed, "////") {
			return 0, false
		}
		return len(p), true
	}
	return 0, false
}

// blockComment returns the payload offset when trimmed opens a documentation
// block comment.
func (s commentSyntax) blockComment(trimmed string) (int, bool) {
	for _, p := range s.block {
		if !strings.HasPrefix(trimmed, p) {
			continue
		}
		// "/**/" is an empty comment and "/***" a decorative banner.
		if p == "/**" && (strings.HasPrefix(trimmed, "/**/") || strings.HasPrefix(trimmed, "/***")) {
			return 0, false
		}
		return len(p), true
	}
	return 0, false
}
