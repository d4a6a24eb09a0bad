package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelWarn)

	l.Info("hidden")
	l.Warn("shown", "task", 7)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "task=7")
}

func TestOpen(t *testing.T) {
	t.Run("appends to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "timecard.log")

		l, c, err := Open(path, "info")
		require.NoError(t, err)
		l.Info("first")
		require.NoError(t, c.Close())

		l, c, err = Open(path, "info")
		require.NoError(t, err)
		l.Info("second")
		require.NoError(t, c.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "msg=first")
		assert.Contains(t, string(data), "msg=second")
	})

	t.Run("unknown level", func(t *testing.T) {
		_, _, err := Open("", "loud")
		assert.Error(t, err)
	})

	t.Run("empty path logs to stderr", func(t *testing.T) {
		l, c, err := Open("", "debug")
		require.NoError(t, err)
		assert.NotNil(t, l)
		assert.NoError(t, c.Close())
	})
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelDebug)

	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))

	// Missing logger falls back to a discarding one.
	assert.NotNil(t, FromContext(context.Background()))
	FromContext(context.Background()).Error("dropped")
	assert.Empty(t, buf.String())
}
