// Package sqlite implements the timecard storage core on top of SQLite: the
// single-connection manager, the statement executor and script runner,
// migrations, the generic entity table and the task hierarchy queries.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	msqlite "modernc.org/sqlite"

	"github.com/mesh-intelligence/timecard/pkg/types"
)

const driverName = "sqlite"

// SQLite primary result codes used when the driver does not supply one.
const (
	codeError    = 1  // SQLITE_ERROR
	codeIOErr    = 10 // SQLITE_IOERR
	codeCantOpen = 14 // SQLITE_CANTOPEN
	codeMismatch = 20 // SQLITE_MISMATCH
	codeRange    = 25 // SQLITE_RANGE
)

// connPreamble runs after every driver open, before the baseline schema.
// Foreign keys stay off: deleting a task leaves its children and worktime
// rows in place.
const connPreamble = `PRAGMA busy_timeout = 5000;
PRAGMA foreign_keys = OFF;`

// Conn owns the one database handle of the process. It is opened lazily by
// the first statement and serializes all access through two locks:
// interfaceMu is held for one whole logical operation (a statement, a
// script, a Do block, open or close), internalMu for each touch of the
// driver handle. Internal helpers named *Locked expect interfaceMu held.
type Conn struct {
	interfaceMu sync.Mutex
	internalMu  sync.Mutex

	path   string
	db     *sql.DB
	handle *sql.Conn
	logger QueryLogger

	openDB      func(path string) (*sql.DB, error)
	driverOpens int // real driver opens, for diagnostics and tests
}

// Option configures a Conn.
type Option func(*Conn)

// WithQueryLogger routes statement events to l.
func WithQueryLogger(l QueryLogger) Option {
	return func(c *Conn) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewConn returns a closed Conn for the database file at path. The path is
// validated on Open, not here.
func NewConn(path string, opts ...Option) *Conn {
	c := &Conn{
		path:   path,
		logger: discardQueryLogger{},
		openDB: func(path string) (*sql.DB, error) {
			return sql.Open(driverName, path)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the configured database path.
func (c *Conn) Path() string {
	c.interfaceMu.Lock()
	defer c.interfaceMu.Unlock()
	return c.path
}

// IsOpen reports whether the driver handle is live.
func (c *Conn) IsOpen() bool {
	c.interfaceMu.Lock()
	defer c.interfaceMu.Unlock()
	return c.handle != nil
}

// SetPath points the Conn at a new database file. The path is made absolute;
// if that fails the current path is kept and SetPath returns false. An open
// connection is closed either way.
func (c *Conn) SetPath(path string) bool {
	c.interfaceMu.Lock()
	defer c.interfaceMu.Unlock()

	_ = c.closeLocked()
	if path == "" {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	c.path = abs
	return true
}

// Open connects to the database file, creating it with the baseline schema
// when it does not exist, and applies pending migrations. Open on an open
// Conn is a no-op.
func (c *Conn) Open() error {
	c.interfaceMu.Lock()
	defer c.interfaceMu.Unlock()
	return c.openLocked()
}

// Close releases the driver handle. Close on a closed Conn is a no-op.
func (c *Conn) Close() error {
	c.interfaceMu.Lock()
	defer c.interfaceMu.Unlock()
	return c.closeLocked()
}

// Reinitialize closes the connection, deletes the database file and opens a
// fresh one with the baseline schema. All stored data is lost. The path is
// validated as by Open first, and only a regular file is ever removed.
func (c *Conn) Reinitialize() error {
	c.interfaceMu.Lock()
	defer c.interfaceMu.Unlock()

	if err := c.closeLocked(); err != nil {
		return err
	}
	if err := validatePath(c.path); err != nil {
		return err
	}
	info, err := os.Stat(c.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return types.NewError(types.StageOpen, codeIOErr, err)
	case !info.Mode().IsRegular():
		return types.ErrNotRegularFile
	default:
		if err := os.Remove(c.path); err != nil {
			return types.NewError(types.StageOpen, codeIOErr, fmt.Errorf("removing %s: %w", c.path, err))
		}
	}
	return c.openLocked()
}

// validatePath checks the shape of a database path before anything touches
// the file system: it must be absolute and end in a file name.
func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return types.ErrPathNotAbsolute
	}
	if strings.HasSuffix(path, string(filepath.Separator)) {
		return types.ErrPathNoFilename
	}
	switch filepath.Base(path) {
	case string(filepath.Separator), ".", "..":
		return types.ErrPathNoFilename
	}
	return nil
}

func (c *Conn) openLocked() error {
	if c.handle != nil {
		return nil
	}
	if err := validatePath(c.path); err != nil {
		return err
	}

	_, statErr := os.Stat(c.path)
	fresh := errors.Is(statErr, fs.ErrNotExist)
	if fresh {
		if err := createEmptyFile(c.path); err != nil {
			return types.NewError(types.StageOpen, codeCantOpen, err)
		}
	}
	if info, err := os.Stat(c.path); err != nil || !info.Mode().IsRegular() {
		return types.ErrNotRegularFile
	}

	if err := c.connectLocked(); err != nil {
		c.abandonLocked(fresh)
		return err
	}
	if err := c.runScriptLocked(connPreamble); err != nil {
		c.abandonLocked(fresh)
		return restage(types.StageExecute, err)
	}
	if fresh {
		if err := c.runScriptLocked(baselineSQL); err != nil {
			c.abandonLocked(true)
			return restage(types.StageInitialize, err)
		}
	}
	if err := c.migrateLocked(); err != nil {
		c.abandonLocked(false)
		return restage(types.StageInitialize, err)
	}
	if err := c.seedSettingsLocked(); err != nil {
		c.abandonLocked(false)
		return restage(types.StageInitialize, err)
	}
	return nil
}

// connectLocked performs the driver open and pins its single connection.
func (c *Conn) connectLocked() error {
	c.internalMu.Lock()
	defer c.internalMu.Unlock()

	db, err := c.openDB(c.path)
	if err != nil {
		return types.NewError(types.StageOpen, driverCode(err, codeCantOpen), err)
	}
	db.SetMaxOpenConns(1)
	handle, err := db.Conn(context.Background())
	if err != nil {
		db.Close()
		return types.NewError(types.StageOpen, driverCode(err, codeCantOpen), err)
	}
	c.db = db
	c.handle = handle
	c.driverOpens++
	return nil
}

// abandonLocked rolls a failed open back to the closed state. A file created
// by this attempt is removed so the next Open starts from scratch.
func (c *Conn) abandonLocked(removeFile bool) {
	_ = c.closeLocked()
	if removeFile {
		_ = os.Remove(c.path)
	}
}

func (c *Conn) closeLocked() error {
	c.internalMu.Lock()
	defer c.internalMu.Unlock()

	if c.db == nil {
		return nil
	}
	var errs []error
	if c.handle != nil {
		errs = append(errs, c.handle.Close())
	}
	errs = append(errs, c.db.Close())
	c.handle = nil
	c.db = nil
	if err := errors.Join(errs...); err != nil {
		return types.NewError(types.StageClose, driverCode(err, codeError), err)
	}
	return nil
}

func createEmptyFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("creating database file: %w", err)
	}
	return f.Close()
}

// driverCode extracts the SQLite result code from err, or returns def when
// err did not come from the driver.
func driverCode(err error, def int) int {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return def
}

// restage re-tags a script failure with the stage of the operation that ran
// the script, keeping the driver code and the original cause.
func restage(stage types.Stage, err error) error {
	var se *types.Error
	if errors.As(err, &se) {
		return types.NewError(stage, se.Code, err)
	}
	return types.NewError(stage, codeError, err)
}
