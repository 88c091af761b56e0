package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/checklinks/internal/links"
)

type pos struct {
	Line, Column int
	Raw          string
}

func positions(t *testing.T, in Input) []pos {
	t.Helper()
	occs, err := Collect(Extract(in))
	require.NoError(t, err)
	out := make([]pos, 0, len(occs))
	for _, o := range occs {
		out = append(out, pos{o.Line, o.Column, o.Raw})
	}
	return out
}

func TestExtract_CodeSpanExclusion(t *testing.T) {
	inside := positions(t, Input{Path: "a.md", Format: FormatMarkdown, Contents: "Run `http://example.com` locally.\n"})
	assert.Empty(t, inside)

	outside := positions(t, Input{Path: "a.md", Format: FormatMarkdown, Contents: "Run http://example.com locally.\n"})
	assert.Equal(t, []pos{{1, 5, "http://example.com"}}, outside)
}

func TestExtract_Markdown(t *testing.T) {
	contents := "---\n" +
		"title: Docs\n" +
		"link: https://frontmatter.example\n" +
		"---\n" +
		"# Title\n" +
		"See [guide](./guide.md#setup)\n" +
		"\n" +
		"```\n" +
		"[fenced](https://fenced.example)\n" +
		"```\n" +
		"[ref]: https://ref.example/x\n" +
		"Bare https://bare.example/y.\n"

	got := positions(t, Input{Path: "docs.md", Format: FormatMarkdown, Contents: contents})

	assert.Equal(t, []pos{
		{6, 13, "./guide.md#setup"},
		{11, 8, "https://ref.example/x"},
		{12, 6, "https://bare.example/y"},
	}, got)
}

func TestExtract_MarkdownContextAndPath(t *testing.T) {
	occs, err := Collect(Extract(Input{Path: "x/readme.md", Format: FormatMarkdown, Contents: "[a](b)"}))
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, links.Occurrence{SourceFile: "x/readme.md", Line: 1, Column: 5, Raw: "b", Context: links.ContextMarkdownBody}, occs[0])
}

func TestExtract_Rust(t *testing.T) {
	contents := "//! Crate docs: https://docs.rs/crate\n" +
		"/// See [spec](https://example.com/spec).\n" +
		"//// not a doc comment https://ignored.example\n" +
		"// plain comment https://plain.example\n" +
		"fn main() { let s = \"https://string.example\"; } /// trailing https://trailing.example\n" +
		"/**\n" +
		" * Block https://block.example\n" +
		" * ```\n" +
		" * https://fenced.example\n" +
		" * ```\n" +
		" * `https://code.example`\n" +
		" */\n"

	got := positions(t, Input{Path: "lib.rs", Format: FormatRust, Contents: contents})

	assert.Equal(t, []pos{
		{1, 17, "https://docs.rs/crate"},
		{2, 16, "https://example.com/spec"},
		{7, 10, "https://block.example"},
	}, got)
}

func TestExtract_GoComments(t *testing.T) {
	contents := "// Package x wraps https://pkg.example.\n" +
		"package x\n" +
		"\n" +
		"var u = \"https://code.example\" // https://trailing.example\n" +
		"\t/* See https://block.example */ var y int\n"

	got := positions(t, Input{Path: "x.go", Format: FormatGo, Contents: contents})

	assert.Equal(t, []pos{
		{1, 20, "https://pkg.example"},
		{5, 9, "https://block.example"},
	}, got)
}

func TestExtract_JavaOnlyJavadoc(t *testing.T) {
	contents := "/* https://plain.example */\n" +
		"/** {@link https://doc.example} */\n" +
		"/// https://not.example\n"

	got := positions(t, Input{Path: "A.java", Format: FormatJava, Contents: contents})

	assert.Equal(t, []pos{{2, 12, "https://doc.example"}}, got)
}

func TestExtract_NotText(t *testing.T) {
	it := Extract(Input{Path: "bin.md", Format: FormatMarkdown, Contents: "a\xffb"})

	_, ok := it.Next()
	assert.False(t, ok)
	require.ErrorIs(t, it.Err(), ErrNotText)
	assert.Contains(t, it.Err().Error(), "bin.md")
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	_, err := Collect(Extract(Input{Path: "x.txt", Format: FormatUnknown, Contents: "https://x.example"}))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestIterator_ExhaustedStaysExhausted(t *testing.T) {
	it := Extract(Input{Path: "a.md", Format: FormatMarkdown, Contents: "[a](b)\n"})

	_, ok := it.Next()
	require.True(t, ok)
	_, ok = it.Next()
	assert.False(t, ok)
	_, ok = it.Next()
	assert.False(t, ok)
	assert.NoError(t, it.Err())
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]Format{
		"README.md":      FormatMarkdown,
		"docs/Guide.MDX": FormatMarkdown,
		"src/lib.rs":     FormatRust,
		"main.go":        FormatGo,
		"x.hpp":          FormatC,
		"App.kt":         FormatJava,
		"index.tsx":      FormatJavaScript,
		"View.swift":     FormatSwift,
		"Program.cs":     FormatCSharp,
	}
	for path, want := range tests {
		got, ok := DetectFormat(path)
		assert.True(t, ok, path)
		assert.Equal(t, want, got, path)
	}

	_, ok := DetectFormat("notes.txt")
	assert.False(t, ok)
}
