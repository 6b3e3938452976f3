package errors

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type customError struct{ msg string }

func (e *customError) Error() string { return e.msg }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, discardLogger())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation error", err: ValidationError("bad flag").Build(), expected: 2},
		{name: "not found", err: NotFoundError("missing").Build(), expected: 3},
		{name: "config error", err: ConfigError("bad config").Build(), expected: 7},
		{name: "wrapped config error", err: fmt.Errorf("load: %w", ConfigError("bad").Build()), expected: 7},
		{name: "internal error", err: InternalError("boom").Build(), expected: 10},
		{name: "unclassified error", err: &customError{msg: "unknown error"}, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	t.Run("config errors show code and message", func(t *testing.T) {
		adapter := NewCLIErrorAdapter(false, discardLogger())
		err := ConfigError(`Invalid "build.os": expected one of (ubuntu-22.04), got ubuntu-10.04`).
			WithContext("code", "invalid-choice").
			Build()
		assert.Equal(t, `Error [invalid-choice]: Invalid "build.os": expected one of (ubuntu-22.04), got ubuntu-10.04`, adapter.FormatError(err))
	})

	t.Run("internal errors are hidden without verbose", func(t *testing.T) {
		adapter := NewCLIErrorAdapter(false, discardLogger())
		assert.Equal(t, "Internal error occurred (use -v for details)", adapter.FormatError(InternalError("boom").Build()))
	})

	t.Run("verbose shows full error", func(t *testing.T) {
		adapter := NewCLIErrorAdapter(true, discardLogger())
		assert.Equal(t, "[internal:fatal] boom", adapter.FormatError(InternalError("boom").Build()))
	})

	t.Run("unclassified", func(t *testing.T) {
		adapter := NewCLIErrorAdapter(false, discardLogger())
		assert.Equal(t, "Error: unknown error", adapter.FormatError(&customError{msg: "unknown error"}))
	})
}

func TestCLIErrorAdapter_Report(t *testing.T) {
	var out bytes.Buffer
	adapter := NewCLIErrorAdapter(false, discardLogger()).WithOutput(&out)

	code := adapter.Report(ConfigError("bad config").Build())

	assert.Equal(t, 7, code)
	assert.Equal(t, "Error: bad config\n", out.String())
	assert.Equal(t, 0, adapter.Report(nil))
}
