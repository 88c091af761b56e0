package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []Match
	}{
		{
			name: "inline link",
			line: "See [guide](./guide.md#setup) now",
			want: []Match{{Kind: LinkKindInline, Start: 12, Target: "./guide.md#setup"}},
		},
		{
			name: "inline link with title",
			line: `[x](https://example.com/a "Title")`,
			want: []Match{{Kind: LinkKindInline, Start: 4, Target: "https://example.com/a"}},
		},
		{
			name: "angle bracket destination",
			line: "[x](<my file.md>)",
			want: []Match{{Kind: LinkKindInline, Start: 5, Target: "my file.md"}},
		},
		{
			name: "balanced parentheses in destination",
			line: "[wiki](https://en.wikipedia.org/wiki/Go_(language))",
			want: []Match{{Kind: LinkKindInline, Start: 7, Target: "https://en.wikipedia.org/wiki/Go_(language)"}},
		},
		{
			name: "empty destination",
			line: "[nothing]()",
			want: []Match{{Kind: LinkKindInline, Start: 10, Target: ""}},
		},
		{
			name: "image",
			line: "![logo](img/logo.png)",
			want: []Match{{Kind: LinkKindImage, Start: 8, Target: "img/logo.png"}},
		},
		{
			name: "nested badge",
			line: "[![ci](https://ci.example/badge.svg)](https://ci.example/job)",
			want: []Match{
				{Kind: LinkKindImage, Start: 7, Target: "https://ci.example/badge.svg"},
				{Kind: LinkKindInline, Start: 38, Target: "https://ci.example/job"},
			},
		},
		{
			name: "escaped bracket is not a link",
			line: `\[x\](y)`,
			want: nil,
		},
		{
			name: "reference definition",
			line: "[docs]: https://example.com/docs \"Docs\"",
			want: []Match{{Kind: LinkKindReferenceDefinition, Start: 8, Target: "https://example.com/docs"}},
		},
		{
			name: "footnote is not a reference definition",
			line: "[^1]: https://example.com/note",
			want: []Match{{Kind: LinkKindBare, Start: 6, Target: "https://example.com/note"}},
		},
		{
			name: "autolink",
			line: "Visit <https://example.com/x>.",
			want: []Match{{Kind: LinkKindAuto, Start: 7, Target: "https://example.com/x"}},
		},
		{
			name: "html anchor and image",
			line: `<a href="https://a.example/">A</a> <img src='b.png'>`,
			want: []Match{
				{Kind: LinkKindHTML, Start: 9, Target: "https://a.example/"},
				{Kind: LinkKindHTML, Start: 45, Target: "b.png"},
			},
		},
		{
			name: "bare url trailing punctuation",
			line: "Go to https://example.com/path. Or (https://example.com/x).",
			want: []Match{
				{Kind: LinkKindBare, Start: 6, Target: "https://example.com/path"},
				{Kind: LinkKindBare, Start: 36, Target: "https://example.com/x"},
			},
		},
		{
			name: "bare url inside link text is not reported twice",
			line: "[https://example.com](https://example.com)",
			want: []Match{{Kind: LinkKindInline, Start: 22, Target: "https://example.com"}},
		},
		{
			name: "plain text",
			line: "nothing to see here",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScanLine(tt.line)
			assert.Equal(t, tt.want, got)
			for _, m := range got {
				assert.Equal(t, m.Target, tt.line[m.Start:m.Start+len(m.Target)])
			}
		})
	}
}

func TestMaskInlineCode(t *testing.T) {
	line := "run `curl http://x.example` then ``a ` b`` and `open"
	got := MaskInlineCode(line)

	require.Len(t, got, len(line))
	assert.NotContains(t, got, "http://x.example")
	assert.NotContains(t, got, "a ` b")
	assert.Contains(t, got, "`open")
	assert.Empty(t, ScanLine(got))
}

func TestTrimBareURL(t *testing.T) {
	assert.Equal(t, "https://x.example/a_(b)", trimBareURL("https://x.example/a_(b)"))
	assert.Equal(t, "https://x.example/a", trimBareURL("https://x.example/a)"))
	assert.Equal(t, "https://x.example/a", trimBareURL("https://x.example/a]!?"))
}
