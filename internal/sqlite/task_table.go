package sqlite

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/timecard/pkg/types"
)

// Defaults for NewTask.
const (
	DefaultTaskName   = "new task"
	DefaultTaskStatus = types.StatusIncomplete
)

var taskColumns = []string{"id", "parent_id", "name", "detail", "status_id", "created_at", "updated_at"}

// childOrder is the sibling order of every child listing. id breaks ties so
// listings and LocatePage agree on rows with equal status and name.
const childOrder = "status_id, name, id"

type taskMapper struct{}

func (taskMapper) Key(row types.Row) int64 { return colInt(row, "id") }

func (taskMapper) Map(row types.Row) types.Task {
	return types.Task{
		ID:        colInt(row, "id"),
		ParentID:  colInt(row, "parent_id"),
		Name:      colText(row, "name"),
		Detail:    colText(row, "detail"),
		Status:    types.TaskStatus(colInt(row, "status_id")),
		CreatedAt: colTime(row, "created_at"),
		UpdatedAt: colTime(row, "updated_at"),
	}
}

// TaskTable is the task entity table with the child listing query.
type TaskTable struct {
	*EntityTable[types.Task]
}

// NewTaskTable returns an empty task table bound to exec.
func NewTaskTable(exec Execer) *TaskTable {
	return &TaskTable{NewEntityTable[types.Task](exec, "task", taskColumns, taskMapper{})}
}

// childFilter builds the WHERE clause selecting the children of parent,
// optionally restricted to one status. parent <= 0 selects root tasks;
// StatusAny or an unknown status drops the status restriction.
func childFilter(parent int64, status types.TaskStatus) (string, []types.Value) {
	var clauses []string
	var vals []types.Value
	if status.Valid() {
		clauses = append(clauses, "status_id = ?")
		vals = append(vals, types.Integer(int64(status)))
	}
	if parent <= 0 {
		clauses = append(clauses, "parent_id IS NULL")
	} else {
		clauses = append(clauses, "parent_id = ?")
		vals = append(vals, types.Integer(parent))
	}
	return strings.Join(clauses, " AND "), vals
}

// FetchChildren loads one page of the children of parent into the table and
// returns the parent's name. The name is empty for root listings and for a
// parent that no longer exists. page is 1-based; a negative page or perPage
// loads every child unpaged. A perPage of zero is an error.
func (t *TaskTable) FetchChildren(parent int64, status types.TaskStatus, page, perPage int64) (string, error) {
	paged := page >= 0 && perPage >= 0
	if paged && perPage == 0 {
		return "", types.ErrInvalidPageSize
	}
	if page == 0 {
		page = 1
	}

	parentName := ""
	if parent > 0 {
		pt := NewTaskTable(t.exec)
		if err := pt.Select("id = ?", BindValues(types.Integer(parent)), ""); err != nil {
			return "", err
		}
		if p, ok := pt.Get(parent); ok {
			parentName = p.Name
		}
	}

	where, vals := childFilter(parent, status)
	if !paged {
		return parentName, t.SelectPage(where, BindValues(vals...), childOrder, -1, -1)
	}
	return parentName, t.SelectPage(where, BindValues(vals...), childOrder, perPage, (page-1)*perPage)
}

// Tasks implements the task hierarchy operations.
type Tasks struct {
	exec Execer
}

// NewTasks returns the task operations bound to exec.
func NewTasks(exec Execer) *Tasks {
	return &Tasks{exec: exec}
}

// Children returns one page of the children of parent and the parent's name,
// or all of them when page or perPage is negative.
func (ts *Tasks) Children(parent int64, status types.TaskStatus, page, perPage int64) ([]types.Task, string, error) {
	t := NewTaskTable(ts.exec)
	name, err := t.FetchChildren(parent, status, page, perPage)
	if err != nil {
		return nil, name, err
	}
	return t.Ordered(), name, nil
}

// CountChildren counts the children of parent under the status filter.
func (ts *Tasks) CountChildren(parent int64, status types.TaskStatus) (int64, error) {
	where, vals := childFilter(parent, status)
	var out types.Table
	if _, err := ts.exec.Exec("SELECT COUNT(id) AS n FROM task WHERE "+where+";", BindValues(vals...), &out); err != nil {
		return 0, fmt.Errorf("counting children of %d: %w", parent, err)
	}
	if len(out) == 0 {
		return 0, nil
	}
	return colInt(out[0], "n"), nil
}

// LocatePage finds the page and index at which FetchChildren lists the task
// under the status filter, in a single ranking query over its siblings.
// It returns types.ErrNotFound when the task does not exist or the filter
// excludes it.
func (ts *Tasks) LocatePage(id int64, status types.TaskStatus, perPage int64) (types.Position, error) {
	if perPage <= 0 {
		return types.Position{}, types.ErrInvalidPageSize
	}
	task, err := ts.FetchTask(id)
	if err != nil {
		return types.Position{}, err
	}

	where, vals := childFilter(task.ParentID, status)
	query := `WITH ranked AS (
    SELECT id, ROW_NUMBER() OVER (ORDER BY ` + childOrder + `) AS row_id
    FROM task WHERE ` + where + `
)
SELECT (row_id - 1) / ? + 1 AS page_num, (row_id - 1) % ? AS page_pos
FROM ranked WHERE id = ?;`
	vals = append(vals, types.Integer(perPage), types.Integer(perPage), types.Integer(id))

	var out types.Table
	if _, err := ts.exec.Exec(query, BindValues(vals...), &out); err != nil {
		return types.Position{}, fmt.Errorf("locating task %d: %w", id, err)
	}
	if len(out) == 0 {
		return types.Position{}, types.ErrNotFound
	}
	return types.Position{
		Page:  colInt(out[0], "page_num"),
		Index: colInt(out[0], "page_pos"),
	}, nil
}

// FetchTask returns the task with the given id, or types.ErrNotFound.
func (ts *Tasks) FetchTask(id int64) (types.Task, error) {
	t := NewTaskTable(ts.exec)
	if err := t.Select("id = ?", BindValues(types.Integer(id)), ""); err != nil {
		return types.Task{}, err
	}
	task, ok := t.Get(id)
	if !ok {
		return types.Task{}, types.ErrNotFound
	}
	return task, nil
}

// FetchLastTask returns the most recently created child of parent, or
// types.ErrNotFound when parent has no children.
func (ts *Tasks) FetchLastTask(parent int64) (types.Task, error) {
	t := NewTaskTable(ts.exec)
	where, vals := childFilter(parent, types.StatusAny)
	if err := t.SelectPage(where, BindValues(vals...), "id DESC", 1, 0); err != nil {
		return types.Task{}, err
	}
	task, ok := t.First()
	if !ok {
		return types.Task{}, types.ErrNotFound
	}
	return task, nil
}

// NewTask inserts a task with the default name and status under parent
// (a root task when parent <= 0) and returns it.
func (ts *Tasks) NewTask(parent int64) (types.Task, error) {
	return ts.CreateTask(parent, DefaultTaskName, "", DefaultTaskStatus)
}

// CreateTask inserts a task with the given fields under parent.
func (ts *Tasks) CreateTask(parent int64, name, detail string, status types.TaskStatus) (types.Task, error) {
	if strings.TrimSpace(name) == "" {
		return types.Task{}, types.ErrInvalidName
	}
	if !status.Valid() {
		return types.Task{}, types.ErrInvalidStatus
	}
	t := NewTaskTable(ts.exec)
	err := t.Exec(
		"INSERT INTO task (parent_id, name, detail, status_id) VALUES (?, ?, ?, ?) RETURNING "+strings.Join(taskColumns, ", ")+";",
		BindValues(parentValue(parent), types.Text(name), types.Text(detail), types.Integer(int64(status))),
	)
	if err != nil {
		return types.Task{}, fmt.Errorf("inserting task: %w", err)
	}
	task, ok := t.First()
	if !ok {
		return types.Task{}, fmt.Errorf("inserting task: no row returned")
	}
	return task, nil
}

// UpdateTask stores the name, detail and status of task.
func (ts *Tasks) UpdateTask(task types.Task) error {
	if strings.TrimSpace(task.Name) == "" {
		return types.ErrInvalidName
	}
	if !task.Status.Valid() {
		return types.ErrInvalidStatus
	}
	return ts.execOne(
		"UPDATE task SET name = ?, detail = ?, status_id = ? WHERE id = ? RETURNING id;",
		BindValues(types.Text(task.Name), types.Text(task.Detail), types.Integer(int64(task.Status)), types.Integer(task.ID)),
	)
}

// MoveTask reparents a task. It refuses to move a task under itself or one
// of its descendants.
func (ts *Tasks) MoveTask(id, parent int64) error {
	if parent > 0 {
		cyclic, err := ts.IsInFamily(parent, id)
		if err != nil {
			return err
		}
		if cyclic {
			return types.ErrInvalidID
		}
	}
	return ts.execOne(
		"UPDATE task SET parent_id = ? WHERE id = ? RETURNING id;",
		BindValues(parentValue(parent), types.Integer(id)),
	)
}

// DeleteTask deletes the single task row. Children and worktime records are
// left in place; children keep their now dangling parent_id.
func (ts *Tasks) DeleteTask(id int64) error {
	return ts.execOne("DELETE FROM task WHERE id = ? RETURNING id;", BindValues(types.Integer(id)))
}

// execOne runs a write with a RETURNING clause and reports types.ErrNotFound
// when it touched no row.
func (ts *Tasks) execOne(stmt string, bind Binder) error {
	var out types.Table
	if _, err := ts.exec.Exec(stmt, bind, &out); err != nil {
		return err
	}
	if len(out) == 0 {
		return types.ErrNotFound
	}
	return nil
}

// ComputeTotalWorktime sums the closed worktime of the task and all of its
// descendants in one aggregate query.
func (ts *Tasks) ComputeTotalWorktime(id int64) (time.Duration, error) {
	query := `WITH RECURSIVE family(id) AS (
    SELECT ?
    UNION
    SELECT task.id FROM task JOIN family ON task.parent_id = family.id
)
SELECT COALESCE(SUM(unixepoch(w.finishing_time) - unixepoch(w.starting_time)), 0) AS seconds
FROM worktime w JOIN family f ON w.task_id = f.id
WHERE w.finishing_time IS NOT NULL;`
	return ts.sumSeconds(query, id)
}

// FetchWorktime sums the closed worktime recorded on the task itself.
func (ts *Tasks) FetchWorktime(id int64) (time.Duration, error) {
	query := `SELECT COALESCE(SUM(unixepoch(finishing_time) - unixepoch(starting_time)), 0) AS seconds
FROM worktime WHERE task_id = ? AND finishing_time IS NOT NULL;`
	return ts.sumSeconds(query, id)
}

func (ts *Tasks) sumSeconds(query string, id int64) (time.Duration, error) {
	var out types.Table
	if _, err := ts.exec.Exec(query, BindValues(types.Integer(id)), &out); err != nil {
		return 0, fmt.Errorf("summing worktime of task %d: %w", id, err)
	}
	if len(out) == 0 {
		return 0, nil
	}
	return time.Duration(colInt(out[0], "seconds")) * time.Second, nil
}

// IsInFamily reports whether ancestor is id itself or one of its ancestors.
func (ts *Tasks) IsInFamily(id, ancestor int64) (bool, error) {
	if id <= 0 || ancestor <= 0 {
		return false, nil
	}
	query := `WITH RECURSIVE up(id, parent_id) AS (
    SELECT id, parent_id FROM task WHERE id = ?
    UNION
    SELECT task.id, task.parent_id FROM task JOIN up ON task.id = up.parent_id
)
SELECT COUNT(*) AS n FROM up WHERE id = ?;`
	var out types.Table
	if _, err := ts.exec.Exec(query, BindValues(types.Integer(id), types.Integer(ancestor)), &out); err != nil {
		return false, fmt.Errorf("walking ancestors of %d: %w", id, err)
	}
	return len(out) > 0 && colInt(out[0], "n") > 0, nil
}

// IsNotFound reports whether err is a lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
