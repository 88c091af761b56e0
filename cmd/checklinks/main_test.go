package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/checklinks/internal/foundation/errors"
)

func TestRun_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	assert.Equal(t, ferrors.ExitSetup, run(context.Background(), []string{"check"}), "no input")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("[b](b.md)\n"), 0o600))
	assert.Equal(t, ferrors.ExitBrokenLinks, run(context.Background(), []string{"--quiet", "--no-color"}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("# B\n"), 0o600))
	assert.Equal(t, ferrors.ExitOK, run(context.Background(), []string{"--quiet", "--no-color", "."}))
}

func TestRun_UnknownFlag(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.Equal(t, ferrors.ExitSetup, run(context.Background(), []string{"check", "--no-such-flag"}))
}
