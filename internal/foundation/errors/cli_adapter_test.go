package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, ExitOK},
		{"broken links", NewError(CategoryBrokenLinks, "2 bad links out of 9").Build(), ExitBrokenLinks},
		{"config error", ConfigError("bad concurrency").Build(), ExitSetup},
		{"no input", NoInputError("no files").Build(), ExitSetup},
		{"wrapped validation error", fmt.Errorf("load: %w", ValidationError("bad").Build()), ExitSetup},
		{"history error", HistoryError("db locked").Build(), ExitInternal},
		{"internal error", InternalError("boom").Build(), ExitInternal},
		{"unclassified error", stderrors.New("unknown error"), ExitInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil error", nil, ""},
		{"internal in non-verbose mode", InternalError("internal issue").Build(), "Internal error occurred (use -v for details)"},
		{"config error", ConfigError("bad config").Build(), "Error: bad config"},
		{"config error with cause", WrapError(stderrors.New("yaml: line 3"), CategoryConfig, "parse config").Build(), "Error: parse config: yaml: line 3"},
		{"broken links", NewError(CategoryBrokenLinks, "1 bad link out of 4").Build(), "1 bad link out of 4"},
		{"unclassified error", stderrors.New("unknown error"), "Error: unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, adapter.FormatError(tt.err))
		})
	}
}

func TestCLIErrorAdapter_Verbose(t *testing.T) {
	adapter := NewCLIErrorAdapter(true, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := InternalError("internal issue").Build()

	assert.Equal(t, "[internal:fatal] internal issue", adapter.FormatError(err))
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var logs, stderr bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logs, nil)))
	adapter.stderr = &stderr
	code := -1
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(ConfigError("bad interval").WithContext("value", "soon").Build())

	assert.Equal(t, ExitSetup, code)
	assert.Equal(t, "Error: bad interval\n", stderr.String())
	assert.Empty(t, logs.String())

	adapter.HandleError(nil)
	assert.Equal(t, ExitSetup, code)
}
