package sqlite

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/timecard/pkg/types"
)

func TestTasks_HierarchyScenario(t *testing.T) {
	c := newTestConn(t)
	tasks := NewTasks(c)

	n, err := tasks.CountChildren(0, types.StatusAny)
	require.NoError(t, err)
	assert.Zero(t, n)

	root, err := tasks.NewTask(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTaskName, root.Name)
	assert.Equal(t, DefaultTaskStatus, root.Status)
	assert.True(t, root.IsRoot())

	n, err = tasks.CountChildren(0, types.StatusAny)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, parentName, err := tasks.Children(0, types.StatusAny, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, parentName)
	require.Len(t, list, 1)
	assert.Equal(t, root.Name, list[0].Name)

	child, err := tasks.NewTask(root.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, child.ParentID)

	n, err = tasks.CountChildren(root.ID, types.StatusAny)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, parentName, err = tasks.Children(root.ID, types.StatusAny, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, root.Name, parentName)

	// Deleting the parent leaves the child with a dangling parent_id.
	require.NoError(t, tasks.DeleteTask(root.ID))

	_, err = tasks.FetchTask(root.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	orphan, err := tasks.FetchTask(child.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, orphan.ParentID)

	n, err = tasks.CountChildren(root.ID, types.StatusAny)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, parentName, err = tasks.Children(root.ID, types.StatusAny, 1, 20)
	require.NoError(t, err)
	assert.Empty(t, parentName, "missing parent has no name")
	require.Len(t, list, 1)
	assert.Equal(t, child.ID, list[0].ID)

	n, err = tasks.CountChildren(0, types.StatusAny)
	require.NoError(t, err)
	assert.Zero(t, n, "the orphan does not become a root")

	assert.ErrorIs(t, tasks.DeleteTask(root.ID), types.ErrNotFound)
}

// buildTree creates a parent with children of mixed status and repeated
// names so that sibling ordering has ties on status and name.
func buildTree(t *testing.T, tasks *Tasks) types.Task {
	t.Helper()
	parent, err := tasks.CreateTask(0, "parent", "", types.StatusProgress)
	require.NoError(t, err)
	statuses := []types.TaskStatus{types.StatusComplete, types.StatusIncomplete, types.StatusProgress, types.StatusNotPlanned}
	for i := range 23 {
		name := fmt.Sprintf("task %02d", i%7)
		_, err := tasks.CreateTask(parent.ID, name, "", statuses[i%len(statuses)])
		require.NoError(t, err)
	}
	// A few roots so that root listings are exercised as well.
	for i := range 5 {
		_, err := tasks.CreateTask(0, fmt.Sprintf("root %d", i%2), "", statuses[i%len(statuses)])
		require.NoError(t, err)
	}
	return parent
}

func TestTasks_PagingProperties(t *testing.T) {
	c := newTestConn(t)
	tasks := NewTasks(c)
	parent := buildTree(t, tasks)

	filters := []types.TaskStatus{
		types.StatusAny, types.StatusProgress, types.StatusIncomplete,
		types.StatusComplete, types.StatusNotPlanned, types.TaskStatus(42),
	}
	for _, p := range []int64{0, parent.ID} {
		for _, status := range filters {
			for _, perPage := range []int64{1, 2, 3, 7, 50} {
				t.Run(fmt.Sprintf("parent=%d/status=%d/per=%d", p, status, perPage), func(t *testing.T) {
					count, err := tasks.CountChildren(p, status)
					require.NoError(t, err)

					seen := 0
					pages := (count + perPage - 1) / perPage
					for page := int64(1); page <= pages+1; page++ {
						list, _, err := tasks.Children(p, status, page, perPage)
						require.NoError(t, err)
						assert.LessOrEqual(t, int64(len(list)), perPage)
						assert.LessOrEqual(t, int64(len(list)), count)
						seen += len(list)

						for idx, task := range list {
							if status.Valid() {
								assert.Equal(t, status, task.Status)
							}
							pos, err := tasks.LocatePage(task.ID, status, perPage)
							require.NoError(t, err)
							assert.Equal(t, types.Position{Page: page, Index: int64(idx)}, pos, "task %d", task.ID)
						}
					}
					assert.Equal(t, count, int64(seen))
				})
			}
		}
	}
}

func TestTasks_ChildOrder(t *testing.T) {
	c := newTestConn(t)
	tasks := NewTasks(c)
	_, err := tasks.CreateTask(0, "b", "", types.StatusComplete)
	require.NoError(t, err)
	_, err = tasks.CreateTask(0, "z", "", types.StatusProgress)
	require.NoError(t, err)
	_, err = tasks.CreateTask(0, "a", "", types.StatusComplete)
	require.NoError(t, err)

	list, _, err := tasks.Children(0, types.StatusAny, 1, 10)
	require.NoError(t, err)
	var names []string
	for _, task := range list {
		names = append(names, task.Name)
	}
	assert.Equal(t, []string{"z", "a", "b"}, names, "status first, then name")
}

func TestTasks_LocatePageErrors(t *testing.T) {
	c := newTestConn(t)
	tasks := NewTasks(c)
	task, err := tasks.CreateTask(0, "done", "", types.StatusComplete)
	require.NoError(t, err)

	_, err = tasks.LocatePage(task.ID, types.StatusIncomplete, 10)
	assert.ErrorIs(t, err, types.ErrNotFound, "filter excludes the task")

	_, err = tasks.LocatePage(task.ID+100, types.StatusAny, 10)
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = tasks.LocatePage(task.ID, types.StatusAny, 0)
	assert.ErrorIs(t, err, types.ErrInvalidPageSize)
	assert.Equal(t, -2, types.Status(err))

	pos, err := tasks.LocatePage(task.ID, types.StatusComplete, 10)
	require.NoError(t, err)
	assert.Equal(t, types.Position{Page: 1, Index: 0}, pos)
}

func TestTaskTable_FetchChildren(t *testing.T) {
	c := newTestConn(t)
	tasks := NewTasks(c)
	parent, err := tasks.CreateTask(0, "groceries", "", types.StatusIncomplete)
	require.NoError(t, err)
	for _, n := range []string{"milk", "eggs", "bread"} {
		_, err := tasks.CreateTask(parent.ID, n, "", types.StatusIncomplete)
		require.NoError(t, err)
	}

	tbl := NewTaskTable(c)
	name, err := tbl.FetchChildren(parent.ID, types.StatusAny, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, "groceries", name)
	require.Equal(t, 1, tbl.Len())
	first, _ := tbl.First()
	assert.Equal(t, "milk", first.Name)

	_, err = tbl.FetchChildren(parent.ID, types.StatusAny, 1, 0)
	assert.ErrorIs(t, err, types.ErrInvalidPageSize)

	_, err = tbl.FetchChildren(parent.ID, types.StatusAny, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len(), "page zero reads the first page")
}

func TestTaskTable_FetchChildrenUnpaged(t *testing.T) {
	c := newTestConn(t)
	tasks := NewTasks(c)
	for _, n := range []string{"c", "a", "b"} {
		_, err := tasks.CreateTask(0, n, "", types.StatusIncomplete)
		require.NoError(t, err)
	}

	tests := []struct {
		name          string
		page, perPage int64
	}{
		{"both negative", -1, -1},
		{"negative page", -1, 2},
		{"negative page size", 1, -1},
		{"negative page with zero size", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := NewTaskTable(c)
			name, err := tbl.FetchChildren(0, types.StatusAny, tt.page, tt.perPage)
			require.NoError(t, err)
			assert.Empty(t, name)
			var names []string
			for _, task := range tbl.Ordered() {
				names = append(names, task.Name)
			}
			assert.Equal(t, []string{"a", "b", "c"}, names)
		})
	}

	_, err := NewTasks(c).LocatePage(1, types.StatusAny, -1)
	assert.ErrorIs(t, err, types.ErrInvalidPageSize, "locating still needs a page size")
}

func TestTasks_NewThenFetchLast(t *testing.T) {
	c := newTestConn(t)
	tasks := NewTasks(c)
	parent, err := tasks.NewTask(0)
	require.NoError(t, err)

	tests := []struct {
		name       string
		parent     int64
		wantParent int64
	}{
		{"root", 0, 0},
		{"negative parent is root", -7, 0},
		{"child", parent.ID, parent.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := tasks.NewTask(tt.parent)
			require.NoError(t, err)

			last, err := tasks.FetchLastTask(tt.parent)
			require.NoError(t, err)
			assert.Equal(t, created.ID, last.ID)
			assert.Equal(t, tt.wantParent, last.ParentID)
		})
	}

	_, err = tasks.FetchLastTask(parent.ID + 1000)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestTasks_CreateAndUpdate(t *testing.T) {
	c := newTestConn(t)
	tasks := NewTasks(c)

	_, err := tasks.CreateTask(0, "  ", "", types.StatusIncomplete)
	assert.ErrorIs(t, err, types.ErrInvalidName)
	_, err = tasks.CreateTask(0, "x", "", types.StatusAny)
	assert.ErrorIs(t, err, types.ErrInvalidStatus)

	task, err := tasks.CreateTask(0, "write report", "quarterly", types.StatusIncomplete)
	require.NoError(t, err)
	assert.Equal(t, "quarterly", task.Detail)

	task.Name = "write the report"
	task.Detail = "Q3"
	task.Status = types.StatusComplete
	require.NoError(t, tasks.UpdateTask(task))

	got, err := tasks.FetchTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "write the report", got.Name)
	assert.Equal(t, "Q3", got.Detail)
	assert.Equal(t, types.StatusComplete, got.Status)

	tests := []struct {
		name    string
		mutate  func(*types.Task)
		wantErr error
	}{
		{"empty name", func(t *types.Task) { t.Name = "" }, types.ErrInvalidName},
		{"bad status", func(t *types.Task) { t.Status = 9 }, types.ErrInvalidStatus},
		{"missing task", func(t *types.Task) { t.ID = 9999 }, types.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := got
			tt.mutate(&bad)
			assert.ErrorIs(t, tasks.UpdateTask(bad), tt.wantErr)
		})
	}
}

func TestTasks_MoveAndFamily(t *testing.T) {
	c := newTestConn(t)
	tasks := NewTasks(c)
	a, err := tasks.NewTask(0)
	require.NoError(t, err)
	b, err := tasks.NewTask(a.ID)
	require.NoError(t, err)
	cc, err := tasks.NewTask(b.ID)
	require.NoError(t, err)
	other, err := tasks.NewTask(0)
	require.NoError(t, err)

	tests := []struct {
		id, ancestor int64
		want         bool
	}{
		{cc.ID, a.ID, true},
		{cc.ID, b.ID, true},
		{cc.ID, cc.ID, true},
		{a.ID, cc.ID, false},
		{cc.ID, other.ID, false},
		{0, a.ID, false},
	}
	for _, tt := range tests {
		got, err := tasks.IsInFamily(tt.id, tt.ancestor)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "IsInFamily(%d, %d)", tt.id, tt.ancestor)
	}

	assert.ErrorIs(t, tasks.MoveTask(a.ID, cc.ID), types.ErrInvalidID, "moving under a descendant")
	assert.ErrorIs(t, tasks.MoveTask(a.ID, a.ID), types.ErrInvalidID)

	require.NoError(t, tasks.MoveTask(cc.ID, other.ID))
	moved, err := tasks.FetchTask(cc.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, moved.ParentID)

	require.NoError(t, tasks.MoveTask(cc.ID, 0))
	moved, err = tasks.FetchTask(cc.ID)
	require.NoError(t, err)
	assert.True(t, moved.IsRoot())

	assert.ErrorIs(t, tasks.MoveTask(9999, 0), types.ErrNotFound)
}

func TestTasks_Worktime(t *testing.T) {
	c := newTestConn(t)
	tasks := NewTasks(c)
	root, err := tasks.NewTask(0)
	require.NoError(t, err)
	child, err := tasks.NewTask(root.ID)
	require.NoError(t, err)
	grandchild, err := tasks.NewTask(child.ID)
	require.NoError(t, err)
	unrelated, err := tasks.NewTask(0)
	require.NoError(t, err)

	base := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	insert := func(task int64, start time.Time, d time.Duration) {
		finish := types.Null()
		if d > 0 {
			finish = types.Text(formatTime(start.Add(d)))
		}
		_, err := c.Exec("INSERT INTO worktime (task_id, starting_time, finishing_time) VALUES (?, ?, ?);",
			BindValues(types.Integer(task), types.Text(formatTime(start)), finish), nil)
		require.NoError(t, err)
	}
	insert(root.ID, base, 30*time.Minute)
	insert(root.ID, base.Add(2*time.Hour), 0) // active, not counted
	insert(child.ID, base.Add(time.Hour), time.Hour)
	insert(grandchild.ID, base.Add(3*time.Hour), 15*time.Minute)
	insert(unrelated.ID, base, 5*time.Hour)

	total, err := tasks.ComputeTotalWorktime(root.ID)
	require.NoError(t, err)
	assert.Equal(t, 105*time.Minute, total)

	total, err = tasks.ComputeTotalWorktime(child.ID)
	require.NoError(t, err)
	assert.Equal(t, 75*time.Minute, total)

	own, err := tasks.FetchWorktime(root.ID)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, own)

	none, err := tasks.ComputeTotalWorktime(9999)
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestTasks_InsideTransaction(t *testing.T) {
	c := newTestConn(t)

	err := c.Tx(func(s *Session) error {
		tasks := NewTasks(s)
		parent, err := tasks.NewTask(0)
		if err != nil {
			return err
		}
		_, err = tasks.NewTask(parent.ID)
		return err
	})
	require.NoError(t, err)

	n, err := NewTasks(c).CountChildren(0, types.StatusAny)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
