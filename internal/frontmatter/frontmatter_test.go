package frontmatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	block, body, had, err := Split(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, block.Raw)
	require.Equal(t, input, body)
}

func TestSplit_YAMLFrontmatter_SplitsFrontmatterAndBody(t *testing.T) {
	input := []byte("---\nkey: value\n---\n# Title\n")

	block, body, had, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("key: value\n"), block.Raw)
	require.Equal(t, []byte("# Title\n"), body)
	require.Equal(t, 3, block.BodyLine)
	require.Equal(t, len("---\nkey: value\n---\n"), block.BodyOffset)
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	input := []byte("---\nkey: value\n# Title\n")

	_, body, had, err := Split(input)
	require.Error(t, err)
	require.False(t, had)
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
	require.Equal(t, input, body)
}

func TestSplit_CRLF_SplitsFrontmatterAndBody(t *testing.T) {
	input := []byte("---\r\nkey: value\r\n---\r\n# Title\r\n")

	block, body, had, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("key: value\r\n"), block.Raw)
	require.Equal(t, []byte("# Title\r\n"), body)
	require.Equal(t, 3, block.BodyLine)
}

func TestSplit_EmptyFrontmatterBlock_SplitsAsHadWithEmptyFrontmatter(t *testing.T) {
	input := []byte("---\n---\n# Title\n")

	block, body, had, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Empty(t, block.Raw)
	require.Equal(t, []byte("# Title\n"), body)
	require.Equal(t, 2, block.BodyLine)
}

func TestSplit_MultiLineFrontmatter_CountsLines(t *testing.T) {
	input := []byte("---\ntitle: x\ntags:\n  - a\n---\nbody\n")

	block, body, had, err := Split(input)
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, 5, block.BodyLine)
	require.Equal(t, []byte("body\n"), body)
}
