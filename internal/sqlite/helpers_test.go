package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/timecard/internal/testutil"
)

// newTestConn returns a Conn on a fresh database file in a temp directory.
// The file is created lazily by the first statement.
func newTestConn(t *testing.T) *Conn {
	t.Helper()
	c := NewConn(filepath.Join(t.TempDir(), "timecard.sqlite"),
		WithQueryLogger(NewSlogQueryLogger(testutil.NewTestLogger(t))))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// newMockConn returns an open Conn whose handle is backed by sqlmock. The
// open sequence is skipped; every statement must be expected on the mock.
func newMockConn(t *testing.T) (*Conn, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	handle, err := db.Conn(context.Background())
	require.NoError(t, err)

	c := NewConn(filepath.Join(t.TempDir(), "mock.sqlite"))
	c.db = db
	c.handle = handle
	t.Cleanup(func() { _ = c.Close() })
	return c, mock
}

// mustExec runs every statement of script and fails the test on error.
func mustExec(t *testing.T, c *Conn, script string) {
	t.Helper()
	require.NoError(t, c.RunScript(script))
}
