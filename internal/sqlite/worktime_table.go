package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/timecard/pkg/types"
)

var worktimeColumns = []string{"id", "task_id", "memo", "starting_time", "finishing_time", "created_at", "updated_at"}

type worktimeMapper struct{}

func (worktimeMapper) Key(row types.Row) int64 { return colInt(row, "id") }

func (worktimeMapper) Map(row types.Row) types.Worktime {
	return types.Worktime{
		ID:        colInt(row, "id"),
		TaskID:    colInt(row, "task_id"),
		Memo:      colText(row, "memo"),
		Started:   colTime(row, "starting_time"),
		Finished:  colTime(row, "finishing_time"),
		CreatedAt: colTime(row, "created_at"),
		UpdatedAt: colTime(row, "updated_at"),
	}
}

// WorktimeTable is the worktime entity table.
type WorktimeTable struct {
	*EntityTable[types.Worktime]
}

// NewWorktimeTable returns an empty worktime table bound to exec.
func NewWorktimeTable(exec Execer) *WorktimeTable {
	return &WorktimeTable{NewEntityTable[types.Worktime](exec, "worktime", worktimeColumns, worktimeMapper{})}
}

// SelectForTask loads the records of one task, oldest first.
func (t *WorktimeTable) SelectForTask(taskID int64) error {
	return t.Select("task_id = ?", BindValues(types.Integer(taskID)), "starting_time, id")
}

// SelectInPeriod loads the records overlapping [start, end), oldest first.
// Active records overlap every period that starts before now.
func (t *WorktimeTable) SelectInPeriod(start, end time.Time) error {
	return t.Select(
		"starting_time < ? AND (finishing_time IS NULL OR finishing_time > ?)",
		BindValues(types.Text(formatTime(end)), types.Text(formatTime(start))),
		"starting_time, id",
	)
}

// Worktimes implements worktime tracking: at most one record is active at a
// time and activating a task closes whatever was running.
type Worktimes struct {
	conn *Conn
	now  func() time.Time
}

// NewWorktimes returns the worktime operations on conn.
func NewWorktimes(conn *Conn) *Worktimes {
	return &Worktimes{conn: conn, now: time.Now}
}

// Activate closes any open record and opens a new one on the task, in one
// transaction. It returns types.ErrNotFound when the task does not exist.
func (w *Worktimes) Activate(taskID int64) (types.Worktime, error) {
	var started types.Worktime
	err := w.conn.Tx(func(s *Session) error {
		if _, err := NewTasks(s).FetchTask(taskID); err != nil {
			return err
		}
		now := w.now()
		if err := closeOpen(s, now); err != nil {
			return err
		}
		t := NewWorktimeTable(s)
		err := t.Exec(
			"INSERT INTO worktime (task_id, starting_time) VALUES (?, ?) RETURNING "+strings.Join(worktimeColumns, ", ")+";",
			BindValues(types.Integer(taskID), types.Text(formatTime(now))),
		)
		if err != nil {
			return fmt.Errorf("starting worktime on task %d: %w", taskID, err)
		}
		wt, ok := t.First()
		if !ok {
			return fmt.Errorf("starting worktime on task %d: no row returned", taskID)
		}
		started = wt
		return nil
	})
	return started, err
}

// DeactivateAll closes every open record at the current time.
func (w *Worktimes) DeactivateAll() error {
	return w.conn.Do(func(s *Session) error {
		return closeOpen(s, w.now())
	})
}

func closeOpen(exec Execer, now time.Time) error {
	_, err := exec.Exec(
		"UPDATE worktime SET finishing_time = ? WHERE finishing_time IS NULL;",
		BindValues(types.Text(formatTime(now))), nil,
	)
	if err != nil {
		return fmt.Errorf("closing open worktime: %w", err)
	}
	return nil
}

// EnsureOnlyOneActive closes all open records except the newest one.
func (w *Worktimes) EnsureOnlyOneActive() error {
	_, err := w.conn.Exec(
		`UPDATE worktime SET finishing_time = ?
WHERE finishing_time IS NULL AND id <> (SELECT MAX(id) FROM null_set_worktime);`,
		BindValues(types.Text(formatTime(w.now()))), nil,
	)
	if err != nil {
		return fmt.Errorf("closing stale worktime: %w", err)
	}
	return nil
}

// Active returns the open record, if any.
func (w *Worktimes) Active() (types.Worktime, bool, error) {
	t := NewWorktimeTable(w.conn)
	if err := t.SelectPage("finishing_time IS NULL", nil, "id DESC", 1, 0); err != nil {
		return types.Worktime{}, false, err
	}
	wt, ok := t.First()
	return wt, ok, nil
}

// UpdateMemo replaces the memo of a record.
func (w *Worktimes) UpdateMemo(id int64, memo string) error {
	var out types.Table
	_, err := w.conn.Exec(
		"UPDATE worktime SET memo = ? WHERE id = ? RETURNING id;",
		BindValues(types.Text(memo), types.Integer(id)), &out,
	)
	if err != nil {
		return fmt.Errorf("updating memo of worktime %d: %w", id, err)
	}
	if len(out) == 0 {
		return types.ErrNotFound
	}
	return nil
}

// ForTask returns the records of a task, oldest first.
func (w *Worktimes) ForTask(taskID int64) ([]types.Worktime, error) {
	t := NewWorktimeTable(w.conn)
	if err := t.SelectForTask(taskID); err != nil {
		return nil, err
	}
	return t.Ordered(), nil
}

// InPeriod returns the records overlapping [start, end), oldest first.
func (w *Worktimes) InPeriod(start, end time.Time) ([]types.Worktime, error) {
	t := NewWorktimeTable(w.conn)
	if err := t.SelectInPeriod(start, end); err != nil {
		return nil, err
	}
	return t.Ordered(), nil
}
