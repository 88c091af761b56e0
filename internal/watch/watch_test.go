package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReportsDocumentationChanges(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	w, err := New([]string{dir}, 50*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, changed []string) { batches <- changed })
	}()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "a.md"), []byte("# A"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.rs"), []byte("//! b"), 0o600))

	var seen []string
	deadline := time.After(5 * time.Second)
	for len(dedupe(seen)) < 2 {
		select {
		case batch := <-batches:
			seen = append(seen, batch...)
		case <-deadline:
			t.Fatalf("timed out, saw %v", seen)
		}
	}

	assert.ElementsMatch(t, []string{filepath.Join(dir, "b.rs"), filepath.Join(dir, "sub", "a.md")}, dedupe(seen))
	for _, p := range seen {
		assert.NotEqual(t, filepath.Join(dir, "notes.txt"), p)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestNew_MissingPath(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "nope")}, 0, nil)
	assert.Error(t, err)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
