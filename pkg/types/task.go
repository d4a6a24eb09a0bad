package types

import (
	"strconv"
	"strings"
	"time"
)

// TaskStatus is the status_id of a task, a key into the status lookup table.
type TaskStatus int64

// Task statuses. StatusAny is only meaningful as a filter.
const (
	StatusAny        TaskStatus = 0
	StatusProgress   TaskStatus = 1
	StatusIncomplete TaskStatus = 2
	StatusComplete   TaskStatus = 3
	StatusNotPlanned TaskStatus = 4
)

var statusLabels = map[TaskStatus]string{
	StatusProgress:   "in progress",
	StatusIncomplete: "incomplete",
	StatusComplete:   "complete",
	StatusNotPlanned: "not planned",
}

// Valid reports whether s names a stored status. StatusAny is not valid.
func (s TaskStatus) Valid() bool {
	return s >= StatusProgress && s <= StatusNotPlanned
}

func (s TaskStatus) String() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	if s == StatusAny {
		return "any"
	}
	return "status(" + strconv.FormatInt(int64(s), 10) + ")"
}

// ParseTaskStatus accepts a status label ("complete", "not-planned", ...) or
// its numeric id. The empty string and "any" parse as StatusAny.
func ParseTaskStatus(s string) (TaskStatus, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", " ")
	switch norm {
	case "", "any":
		return StatusAny, nil
	case "progress":
		return StatusProgress, nil
	}
	for st, label := range statusLabels {
		if label == norm {
			return st, nil
		}
	}
	n, err := strconv.ParseInt(norm, 10, 64)
	if err != nil || !TaskStatus(n).Valid() {
		return StatusAny, ErrInvalidStatus
	}
	return TaskStatus(n), nil
}

// Task is one node of the task tree. ParentID is 0 for root tasks.
type Task struct {
	ID        int64      `json:"id"`
	ParentID  int64      `json:"parent_id"`
	Name      string     `json:"name"`
	Detail    string     `json:"detail"`
	Status    TaskStatus `json:"status_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsRoot reports whether t has no parent.
func (t Task) IsRoot() bool { return t.ParentID <= 0 }

// Position locates a task inside a paged child listing: Page is 1-based,
// Index is the 0-based offset within that page.
type Position struct {
	Page  int64 `json:"page"`
	Index int64 `json:"index"`
}
