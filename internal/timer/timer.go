// Package timer tracks the running worktime record in the background. It
// polls the store on an interval and publishes snapshots; turning elapsed
// time into text is left to the caller.
package timer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mesh-intelligence/timecard/internal/logging"
	"github.com/mesh-intelligence/timecard/pkg/types"
)

// DefaultInterval is the polling period used when none is given.
const DefaultInterval = time.Second

// Source reports the open worktime record. *sqlite.Worktimes implements it.
type Source interface {
	Active() (types.Worktime, bool, error)
}

// Snapshot is the timer state at one poll.
type Snapshot struct {
	Active     bool
	TaskID     int64
	WorktimeID int64
	Started    time.Time
	Elapsed    time.Duration
	At         time.Time
}

// Timer polls a Source and keeps the latest Snapshot.
type Timer struct {
	src      Source
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	snap     Snapshot
	onUpdate func(Snapshot)
}

// Option configures a Timer.
type Option func(*Timer)

// WithInterval sets the polling period.
func WithInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// WithLogger routes poll failures to l.
func WithLogger(l *slog.Logger) Option {
	return func(t *Timer) { t.logger = l }
}

// New returns a stopped Timer reading from src.
func New(src Source, opts ...Option) *Timer {
	t := &Timer{
		src:      src,
		interval: DefaultInterval,
		now:      time.Now,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnUpdate registers fn to receive every snapshot taken after the call.
// fn runs on the polling goroutine and must not block.
func (t *Timer) OnUpdate(fn func(Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onUpdate = fn
}

// Snapshot returns the latest snapshot.
func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Refresh polls the source once and publishes the result.
func (t *Timer) Refresh() (Snapshot, error) {
	wt, ok, err := t.src.Active()
	if err != nil {
		return t.Snapshot(), err
	}
	now := t.now()
	snap := Snapshot{At: now}
	if ok {
		snap = Snapshot{
			Active:     true,
			TaskID:     wt.TaskID,
			WorktimeID: wt.ID,
			Started:    wt.Started,
			Elapsed:    wt.Duration(now),
			At:         now,
		}
	}

	t.mu.Lock()
	t.snap = snap
	fn := t.onUpdate
	t.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
	return snap, nil
}

// Run polls until ctx is done and returns ctx.Err(). Poll failures are
// logged and the previous snapshot is kept.
func (t *Timer) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		if _, err := t.Refresh(); err != nil {
			t.logger.LogAttrs(ctx, slog.LevelWarn, "polling active worktime", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
