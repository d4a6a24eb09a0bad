package types

import "time"

// Schedule is a planned interval for a task.
type Schedule struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	Starts    time.Time `json:"starting_time"`
	Finishes  time.Time `json:"finishing_time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
