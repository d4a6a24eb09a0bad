// Package testutil provides shared test helpers.
package testutil

import (
	"log/slog"
	"testing"

	"github.com/mesh-intelligence/timecard/internal/logging"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return logging.New(testWriter{t}, slog.LevelDebug)
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
