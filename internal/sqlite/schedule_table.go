package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/timecard/pkg/types"
)

var scheduleColumns = []string{"id", "task_id", "starts", "finishes", "created_at", "updated_at"}

type scheduleMapper struct{}

func (scheduleMapper) Key(row types.Row) int64 { return colInt(row, "id") }

func (scheduleMapper) Map(row types.Row) types.Schedule {
	return types.Schedule{
		ID:        colInt(row, "id"),
		TaskID:    colInt(row, "task_id"),
		Starts:    colTime(row, "starts"),
		Finishes:  colTime(row, "finishes"),
		CreatedAt: colTime(row, "created_at"),
		UpdatedAt: colTime(row, "updated_at"),
	}
}

// ScheduleTable is the schedule entity table.
type ScheduleTable struct {
	*EntityTable[types.Schedule]
}

// NewScheduleTable returns an empty schedule table bound to exec.
func NewScheduleTable(exec Execer) *ScheduleTable {
	return &ScheduleTable{NewEntityTable[types.Schedule](exec, "schedule", scheduleColumns, scheduleMapper{})}
}

// SelectForTask loads the schedules of one task, earliest first.
func (t *ScheduleTable) SelectForTask(taskID int64) error {
	return t.Select("task_id = ?", BindValues(types.Integer(taskID)), "starts, id")
}

// Add inserts a schedule for the task and returns it.
func (t *ScheduleTable) Add(taskID int64, starts, finishes time.Time) (types.Schedule, error) {
	if !finishes.After(starts) {
		return types.Schedule{}, fmt.Errorf("schedule must finish after it starts")
	}
	nt := NewScheduleTable(t.exec)
	err := nt.Exec(
		"INSERT INTO schedule (task_id, starts, finishes) VALUES (?, ?, ?) RETURNING "+strings.Join(scheduleColumns, ", ")+";",
		BindValues(types.Integer(taskID), types.Text(formatTime(starts)), types.Text(formatTime(finishes))),
	)
	if err != nil {
		return types.Schedule{}, fmt.Errorf("inserting schedule: %w", err)
	}
	s, ok := nt.First()
	if !ok {
		return types.Schedule{}, fmt.Errorf("inserting schedule: no row returned")
	}
	return s, nil
}
