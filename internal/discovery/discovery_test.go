package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/checklinks/internal/extract"
	ferrors "git.home.luguber.info/inful/checklinks/internal/foundation/errors"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return root
}

func relPaths(t *testing.T, root string, res *Result) []string {
	t.Helper()
	out := make([]string, 0, len(res.Inputs))
	for _, in := range res.Inputs {
		rel, err := filepath.Rel(root, in.Path)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func defaultOptions() Options {
	return Options{RespectGitignore: true}
}

func TestDiscover_WalksSupportedFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"README.md":           "# Readme",
		"notes.txt":           "not scanned",
		".hidden.md":          "hidden",
		".github/x.md":        "hidden dir",
		"src/lib.rs":          "//! crate docs",
		"docs/guide/intro.md": "# Intro",
		"target/gen.md":       "generated",
		"docs/draft.md":       "draft",
		".gitignore":          "target/\n# comment\n",
		"docs/.gitignore":     "draft.md\n",
	})

	res, err := Discover(context.Background(), []string{root}, defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"README.md", "docs/guide/intro.md", "src/lib.rs"}, relPaths(t, root, res))
	assert.Equal(t, extract.FormatRust, res.Inputs[2].Format)
	assert.Empty(t, res.Failures)
}

func TestDiscover_HiddenAndGitignoreToggles(t *testing.T) {
	root := writeTree(t, map[string]string{
		".hidden.md": "hidden",
		"gen.md":     "generated",
		".gitignore": "gen.md\n",
	})

	res, err := Discover(context.Background(), []string{root}, Options{Hidden: true})
	require.NoError(t, err)
	assert.Equal(t, []string{".hidden.md", "gen.md"}, relPaths(t, root, res))
}

func TestDiscover_IncludeExclude(t *testing.T) {
	root := writeTree(t, map[string]string{
		"docs/a.md":     "a",
		"docs/api/b.md": "b",
		"src/main.go":   "// Package main",
		"vendor/x.md":   "vendored",
	})

	opts := defaultOptions()
	opts.Include = []string{"*.md"}
	opts.Exclude = []string{"vendor", "docs/api/**"}
	res, err := Discover(context.Background(), []string{root}, opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"docs/a.md"}, relPaths(t, root, res))
}

func TestDiscover_MaxDepth(t *testing.T) {
	root := writeTree(t, map[string]string{
		"top.md":       "0",
		"one/a.md":     "1",
		"one/two/b.md": "2",
	})

	tests := []struct {
		depth int
		want  []string
	}{
		{1, []string{"top.md"}},
		{2, []string{"one/a.md", "top.md"}},
		{0, []string{"one/a.md", "one/two/b.md", "top.md"}},
	}
	for _, tt := range tests {
		opts := defaultOptions()
		opts.MaxDepth = tt.depth
		res, err := Discover(context.Background(), []string{root}, opts)
		require.NoError(t, err)
		assert.Equal(t, tt.want, relPaths(t, root, res), "depth %d", tt.depth)
	}
}

func TestDiscover_ExplicitFile(t *testing.T) {
	root := writeTree(t, map[string]string{"a.md": "a", "b.md": "b"})

	res, err := Discover(context.Background(), []string{filepath.Join(root, "b.md")}, defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"b.md"}, relPaths(t, root, res))
}

func TestDiscover_NoInput(t *testing.T) {
	root := writeTree(t, map[string]string{"notes.txt": "x"})

	_, err := Discover(context.Background(), []string{root}, defaultOptions())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNoInput))
}

func TestDiscover_MissingPath(t *testing.T) {
	_, err := Discover(context.Background(), []string{filepath.Join(t.TempDir(), "nope")}, defaultOptions())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestDiscover_Cancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"a.md": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Discover(ctx, []string{root}, defaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecode(t *testing.T) {
	plain, err := Decode([]byte("# Title"))
	require.NoError(t, err)
	assert.Equal(t, "# Title", plain)

	bom, err := Decode([]byte("\xef\xbb\xbf# Title"))
	require.NoError(t, err)
	assert.Equal(t, "# Title", bom)

	// UTF-16LE with BOM: "# A"
	utf16, err := Decode([]byte{0xff, 0xfe, '#', 0, ' ', 0, 'A', 0})
	require.NoError(t, err)
	assert.Equal(t, "# A", utf16)
}
