package types

import "time"

// Worktime is one tracked interval spent on a task. A zero Finished time
// marks the interval that is still running.
type Worktime struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	Memo      string    `json:"memo"`
	Started   time.Time `json:"starting_time"`
	Finished  time.Time `json:"finishing_time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the interval is still open.
func (w Worktime) Active() bool { return w.Finished.IsZero() }

// Duration returns the closed interval length, or the time elapsed until now
// for an active interval.
func (w Worktime) Duration(now time.Time) time.Duration {
	if w.Active() {
		return now.Sub(w.Started)
	}
	return w.Finished.Sub(w.Started)
}
