package sqlite

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/timecard/pkg/types"
)

func TestOpen_Idempotent(t *testing.T) {
	c := newTestConn(t)

	require.NoError(t, c.Open())
	require.NoError(t, c.Open())
	_, err := c.Exec("SELECT 1;", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, c.driverOpens)
	assert.True(t, c.IsOpen())
}

func TestOpen_Lazy(t *testing.T) {
	c := newTestConn(t)
	assert.False(t, c.IsOpen())
	_, err := os.Stat(c.Path())
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = c.Exec("SELECT 1;", nil, nil)
	require.NoError(t, err)
	assert.True(t, c.IsOpen())
	assert.FileExists(t, c.Path())
}

func TestOpen_PathValidation(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name       string
		path       string
		wantErr    error
		wantStatus int
	}{
		{"relative path", "timecard.sqlite", types.ErrPathNotAbsolute, -1},
		{"empty path", "", types.ErrPathNotAbsolute, -1},
		{"trailing separator", dir + string(filepath.Separator), types.ErrPathNoFilename, -2},
		{"root", string(filepath.Separator), types.ErrPathNoFilename, -2},
		{"dot", filepath.Join(dir, "x") + string(filepath.Separator) + ".", types.ErrPathNoFilename, -2},
		{"dot dot", dir + string(filepath.Separator) + "..", types.ErrPathNoFilename, -2},
		{"directory", dir, types.ErrNotRegularFile, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConn(tt.path)
			err := c.Open()
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantStatus, types.Status(err))
			assert.Equal(t, 0, c.driverOpens, "validation happens before any driver call")
			assert.False(t, c.IsOpen())
		})
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "timecard.sqlite")
	c := NewConn(path)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Open())
	assert.FileExists(t, path)

	v, err := c.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, LatestSchemaVersion(), v)
}

func TestOpen_BaselineRunsOnce(t *testing.T) {
	c := newTestConn(t)
	_, err := NewTasks(c).NewTask(0)
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.False(t, c.IsOpen())

	// Reopening must not recreate the schema over existing data.
	n, err := NewTasks(c).CountChildren(0, types.StatusAny)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 2, c.driverOpens)
}

func TestOpen_DriverFailureRollsBack(t *testing.T) {
	c := newTestConn(t)
	boom := errors.New("cannot open")
	realOpen := c.openDB
	c.openDB = func(string) (*sql.DB, error) { return nil, boom }

	err := c.Open()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, types.StageOpen, types.DecodeStage(types.Status(err)))
	assert.False(t, c.IsOpen())
	assert.NoFileExists(t, c.Path(), "file created by the failed attempt is removed")

	c.openDB = realOpen
	require.NoError(t, c.Open())
	assert.True(t, c.IsOpen())
}

func TestOpen_BaselineFailureRemovesFile(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectPrepare(regexp.QuoteMeta("PRAGMA busy_timeout")).
		ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"timeout"}).AddRow(int64(5000)))
	mock.ExpectPrepare(regexp.QuoteMeta("PRAGMA foreign_keys")).
		ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectPrepare(regexp.QuoteMeta("CREATE TABLE status")).WillReturnError(errors.New("disk full"))
	mock.ExpectClose()

	c := NewConn(filepath.Join(t.TempDir(), "broken.sqlite"))
	c.openDB = func(string) (*sql.DB, error) { return db, nil }

	err = c.Open()
	require.Error(t, err)
	assert.Equal(t, types.StageInitialize, types.DecodeStage(types.Status(err)))
	assert.False(t, c.IsOpen())
	assert.NoFileExists(t, c.Path())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPath(t *testing.T) {
	c := newTestConn(t)
	require.NoError(t, c.Open())
	orig := c.Path()

	t.Run("empty path keeps the current one", func(t *testing.T) {
		assert.False(t, c.SetPath(""))
		assert.Equal(t, orig, c.Path())
	})

	t.Run("closes the connection and canonicalizes", func(t *testing.T) {
		require.NoError(t, c.Open())
		t.Chdir(t.TempDir())
		assert.True(t, c.SetPath("other.sqlite"))
		assert.False(t, c.IsOpen())
		assert.True(t, filepath.IsAbs(c.Path()))
		assert.Equal(t, "other.sqlite", filepath.Base(c.Path()))
	})
}

func TestReinitialize(t *testing.T) {
	c := newTestConn(t)
	tasks := NewTasks(c)
	_, err := tasks.NewTask(0)
	require.NoError(t, err)
	require.NoError(t, NewSettings(c).Set(types.SettingTimezone, "9"))

	require.NoError(t, c.Reinitialize())
	assert.True(t, c.IsOpen())

	n, err := tasks.CountChildren(0, types.StatusAny)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	tz, err := NewSettings(c).Get(types.SettingTimezone)
	require.NoError(t, err)
	assert.Equal(t, "0", tz, "defaults are seeded again")
}

func TestReinitialize_MissingFile(t *testing.T) {
	c := newTestConn(t)
	require.NoError(t, c.Reinitialize())
	assert.True(t, c.IsOpen())
}

func TestReinitialize_ValidatesPathFirst(t *testing.T) {
	t.Run("relative path leaves the working directory alone", func(t *testing.T) {
		t.Chdir(t.TempDir())
		require.NoError(t, os.WriteFile("notes.txt", []byte("keep"), 0o644))

		c := NewConn("notes.txt")
		err := c.Reinitialize()
		assert.ErrorIs(t, err, types.ErrPathNotAbsolute)
		assert.Equal(t, -1, types.Status(err))
		assert.FileExists(t, "notes.txt")
	})

	t.Run("directory is not removed", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data")
		require.NoError(t, os.Mkdir(dir, 0o755))

		c := NewConn(dir)
		require.ErrorIs(t, c.Open(), types.ErrNotRegularFile)
		err := c.Reinitialize()
		assert.ErrorIs(t, err, types.ErrNotRegularFile)
		assert.Equal(t, -3, types.Status(err))
		assert.DirExists(t, dir)
		assert.False(t, c.IsOpen())
	})

	t.Run("trailing dot has no file name", func(t *testing.T) {
		dir := t.TempDir()
		c := NewConn(dir + string(filepath.Separator) + ".")
		err := c.Reinitialize()
		assert.ErrorIs(t, err, types.ErrPathNoFilename)
		assert.DirExists(t, dir)
	})
}

func TestClose(t *testing.T) {
	c := newTestConn(t)
	require.NoError(t, c.Close(), "closing a closed conn is a no-op")
	require.NoError(t, c.Open())
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.False(t, c.IsOpen())
}

// TestConn_ConcurrentUse runs writers and readers against one Conn. Every
// statement must serialize through the connection locks.
func TestConn_ConcurrentUse(t *testing.T) {
	c := newTestConn(t)
	mustExec(t, c, "CREATE TABLE hits (n INTEGER);")

	const writers, perWriter = 4, 25
	var g errgroup.Group
	for w := range writers {
		g.Go(func() error {
			for i := range perWriter {
				if _, err := c.Exec("INSERT INTO hits VALUES (?);", BindValues(types.Integer(int64(w*perWriter+i))), nil); err != nil {
					return err
				}
			}
			return nil
		})
	}
	for range writers {
		g.Go(func() error {
			for range perWriter {
				var dst types.Table
				if _, err := c.Exec("SELECT COUNT(*) AS n FROM hits;", nil, &dst); err != nil {
					return err
				}
				if len(dst) != 1 {
					return errors.New("count returned no row")
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var dst types.Table
	_, err := c.Exec("SELECT COUNT(*) AS n FROM hits;", nil, &dst)
	require.NoError(t, err)
	assert.Equal(t, int64(writers*perWriter), dst[0].Get("n").Int(0))
	assert.Equal(t, 1, c.driverOpens)
}
