package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/checklinks/internal/config"
	ferrors "git.home.luguber.info/inful/checklinks/internal/foundation/errors"
	"git.home.luguber.info/inful/checklinks/internal/report"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI parses args and runs the selected command in a fresh CLI.
func runCLI(t *testing.T, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cli := &CLI{}
	g := &Global{Stdout: &stdout, Stderr: &stderr}

	parser, err := kong.New(cli,
		kong.Name("checklinks"),
		kong.Vars{"version": "test"},
		kong.Bind(g),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
		kong.Exit(func(code int) { t.Fatalf("unexpected exit %d", code) }),
	)
	require.NoError(t, err)

	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	err = kctx.Run()
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// docsTree creates a working directory with two linked Markdown files and
// makes it the current directory.
func docsTree(t *testing.T, indexBody string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.md"), []byte(indexBody), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide.md"), []byte("# Guide\n\n## Setup\n\nSteps.\n"), 0o600))
	t.Chdir(dir)
	return dir
}

func exitCode(err error) int {
	return ferrors.NewCLIErrorAdapter(false, slog.Default()).ExitCodeFor(err)
}

func TestCheck_CleanRun(t *testing.T) {
	docsTree(t, "# Index\n\nSee [setup](./guide.md#setup).\n")

	res := runCLI(t, "check", "--no-color")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "✨ No bad links out of 1")
}

func TestCheck_IsDefaultCommand(t *testing.T) {
	docsTree(t, "[guide](guide.md)\n")

	res := runCLI(t, "--format", "json", ".")

	require.NoError(t, res.err)
	var out report.JSONOutput
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.Equal(t, 1, out.TotalOccurrences)
	assert.Equal(t, 0, out.Broken)
	require.Len(t, out.Files, 1)
	assert.Equal(t, "index.md", out.Files[0].Path)
}

func TestCheck_BrokenLinksExitOne(t *testing.T) {
	docsTree(t, "[gone](./missing.md)\n[ok](guide.md)\n")

	res := runCLI(t, "check", "--quiet", "--no-color")

	require.Error(t, res.err)
	assert.True(t, ferrors.HasCategory(res.err, ferrors.CategoryBrokenLinks))
	assert.Equal(t, ferrors.ExitBrokenLinks, exitCode(res.err))
	assert.Contains(t, res.err.Error(), "1 bad link out of 2")
	assert.Contains(t, res.stdout, "./missing.md")
	assert.NotContains(t, res.stdout, "guide.md")
}

func TestCheck_StrictFragmentsFlag(t *testing.T) {
	docsTree(t, "[setup](guide.md#nowhere)\n")

	res := runCLI(t, "check", "--no-color")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "fragment")

	res = runCLI(t, "check", "--strict-fragments", "--no-color")
	assert.Equal(t, ferrors.ExitBrokenLinks, exitCode(res.err))
}

func TestCheck_OutputFile(t *testing.T) {
	dir := docsTree(t, "[guide](guide.md)\n")
	out := filepath.Join(dir, "report.md")

	res := runCLI(t, "check", "--format", "markdown", "--output", out)

	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# ")
}

func TestCheck_InvalidFormatIsSetupError(t *testing.T) {
	docsTree(t, "[guide](guide.md)\n")

	res := runCLI(t, "check", "--format", "xml")

	require.Error(t, res.err)
	assert.Equal(t, ferrors.ExitSetup, exitCode(res.err))
}

func TestCheck_NoInputIsSetupError(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	res := runCLI(t, "check")

	require.Error(t, res.err)
	assert.Equal(t, ferrors.ExitSetup, exitCode(res.err))
}

func TestCheck_NoReadableInputIsSetupError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("\xc3\x28"), 0o600))
	t.Chdir(dir)

	res := runCLI(t, "check")

	require.Error(t, res.err)
	assert.True(t, ferrors.HasCategory(res.err, ferrors.CategoryNoInput))
	assert.Equal(t, ferrors.ExitSetup, exitCode(res.err))
}

func TestCheck_RecordsHistory(t *testing.T) {
	dir := docsTree(t, "[gone](./missing.md)\n")
	dbPath := filepath.Join(dir, "state", "history.db")
	cfgPath := filepath.Join(dir, config.DefaultFileName)
	require.NoError(t, os.WriteFile(cfgPath, []byte("history:\n  path: "+dbPath+"\n"), 0o600))

	res := runCLI(t, "check", "--no-color")
	require.Equal(t, ferrors.ExitBrokenLinks, exitCode(res.err))

	res = runCLI(t, "history")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "RUN")
	assert.Contains(t, res.stdout, "BROKEN")

	runID := newestRunID(t)
	res = runCLI(t, "history", "--run", runID)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "index.md:1:")
	assert.Contains(t, res.stdout, "./missing.md")
}

// newestRunID returns the first column of the newest row of "history".
func newestRunID(t *testing.T) string {
	t.Helper()
	res := runCLI(t, "history", "--limit", "1")
	require.NoError(t, res.err)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 2)
	fields := strings.Fields(lines[1])
	require.NotEmpty(t, fields)
	return fields[0]
}

func writeHistoryConfig(t *testing.T, dbPath string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "history.yaml")
	require.NoError(t, os.WriteFile(p, []byte("history:\n  path: "+dbPath+"\n"), 0o600))
	return p
}

func TestHistory_Empty(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cfg := writeHistoryConfig(t, filepath.Join(dir, "h.db"))

	res := runCLI(t, "-c", cfg, "history")

	require.NoError(t, res.err)
	assert.Equal(t, "No runs recorded.\n", res.stdout)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	res := runCLI(t, "init")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, config.DefaultFileName)
	_, err := os.Stat(filepath.Join(dir, config.DefaultFileName))
	require.NoError(t, err)

	res = runCLI(t, "init")
	require.Error(t, res.err)
	assert.Equal(t, ferrors.ExitSetup, exitCode(res.err))

	res = runCLI(t, "init", "--force")
	require.NoError(t, res.err)
}

func TestCLI_LogLevel(t *testing.T) {
	tests := []struct {
		baseline config.LogLevel
		verbose  int
		want     slog.Level
	}{
		{config.LogLevelWarn, 0, slog.LevelWarn},
		{config.LogLevelWarn, 1, slog.LevelInfo},
		{config.LogLevelWarn, 2, slog.LevelDebug},
		{config.LogLevelWarn, 3, slog.LevelDebug},
		{config.LogLevelError, 1, slog.LevelWarn},
		{config.LogLevelInfo, 0, slog.LevelInfo},
	}
	for _, tt := range tests {
		c := &CLI{Verbose: tt.verbose}
		assert.Equal(t, tt.want, c.logLevel(tt.baseline), "baseline %s -v x%d", tt.baseline, tt.verbose)
	}
}

func TestCheckFlags_Apply(t *testing.T) {
	cfg := config.Defaults()
	f := CheckFlags{Depth: 2, Timeout: 0, Concurrency: 4, Skip: []string{"^https://internal"}, Hidden: true, NoGitignore: true}

	f.apply(cfg)

	assert.Equal(t, 2, cfg.Files.MaxDepth)
	assert.Zero(t, cfg.Check.RunTimeout)
	assert.Equal(t, 4, cfg.Check.Concurrency)
	assert.Equal(t, []string{"^https://internal"}, cfg.Check.SkipPatterns)
	assert.True(t, cfg.Files.Hidden)
	assert.False(t, cfg.Files.RespectGitignore)

	keep := config.Defaults()
	(&CheckFlags{Depth: -1, Timeout: -1}).apply(keep)
	assert.Equal(t, config.Defaults().Files.MaxDepth, keep.Files.MaxDepth)
	assert.Equal(t, config.Defaults().Check.RunTimeout, keep.Check.RunTimeout)
}

func TestUseColor(t *testing.T) {
	cfg := config.Defaults()
	var buf bytes.Buffer

	cfg.Output.Color = config.ColorAlways
	assert.True(t, useColor(cfg, &buf))
	cfg.Output.Color = config.ColorNever
	assert.False(t, useColor(cfg, &buf))
	cfg.Output.Color = config.ColorAuto
	assert.False(t, useColor(cfg, &buf), "non-terminal writer")
}
