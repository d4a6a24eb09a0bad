package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/timecard/internal/logging"
	"github.com/mesh-intelligence/timecard/internal/sqlite"
	"github.com/mesh-intelligence/timecard/internal/timer"
	"github.com/mesh-intelligence/timecard/pkg/types"
)

func newWorkCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "work",
		Short: "Track time spent on tasks",
	}
	cmd.AddCommand(
		newWorkStartCmd(a),
		newWorkStopCmd(a),
		newWorkStatusCmd(a),
		newWorkLogCmd(a),
		newWorkMemoCmd(a),
	)
	return cmd
}

func newWorkStartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start <task-id>",
		Short: "Start the clock on a task, stopping whatever was running",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			wt, err := sqlite.NewWorktimes(a.conn).Activate(id)
			if err != nil {
				return fmt.Errorf("task %d: %w", id, err)
			}
			a.logger.Info("worktime started", "task", id, "worktime", wt.ID)
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), wt)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Started task %d at %s\n", id, formatClock(wt.Started, a.location()))
			return nil
		},
	}
}

func newWorkStopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the clock",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := sqlite.NewWorktimes(a.conn)
			wt, ok, err := w.Active()
			if err != nil {
				return err
			}
			if err := w.DeactivateAll(); err != nil {
				return err
			}
			if ok {
				records, err := w.ForTask(wt.TaskID)
				if err != nil {
					return err
				}
				for _, r := range records {
					if r.ID == wt.ID {
						wt = r
					}
				}
				a.logger.Info("worktime stopped", "task", wt.TaskID, "worktime", wt.ID)
			}

			if a.flags.jsonMode {
				if !ok {
					return printJSON(cmd.OutOrStdout(), map[string]any{"stopped": false})
				}
				return printJSON(cmd.OutOrStdout(), wt)
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No task is running")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped task %d after %s\n", wt.TaskID, formatDuration(wt.Duration(time.Now())))
			return nil
		},
	}
}

// statusView is the work status output.
type statusView struct {
	Active         bool      `json:"active"`
	TaskID         int64     `json:"task_id,omitempty"`
	TaskName       string    `json:"task_name,omitempty"`
	WorktimeID     int64     `json:"worktime_id,omitempty"`
	Started        time.Time `json:"started,omitzero"`
	ElapsedSeconds int64     `json:"elapsed_seconds"`
}

func newWorkStatusCmd(a *app) *cobra.Command {
	var (
		watch    bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running task and its elapsed time",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := sqlite.NewWorktimes(a.conn)
			if err := w.EnsureOnlyOneActive(); err != nil {
				return err
			}
			tm := timer.New(w, timer.WithInterval(interval), timer.WithLogger(logging.FromContext(cmd.Context())))
			names := taskNamer(sqlite.NewTasks(a.conn))

			if !watch {
				snap, err := tm.Refresh()
				if err != nil {
					return err
				}
				return a.printStatus(cmd.OutOrStdout(), snap, names)
			}

			tm.OnUpdate(func(s timer.Snapshot) {
				_ = a.printStatus(cmd.OutOrStdout(), s, names)
			})
			err := tm.Run(cmd.Context())
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep printing the status until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", timer.DefaultInterval, "refresh interval with --watch")
	return cmd
}

func (a *app) printStatus(w io.Writer, s timer.Snapshot, names func(int64) string) error {
	view := statusView{Active: s.Active}
	if s.Active {
		view.TaskID = s.TaskID
		view.TaskName = names(s.TaskID)
		view.WorktimeID = s.WorktimeID
		view.Started = s.Started
		view.ElapsedSeconds = int64(s.Elapsed.Seconds())
	}
	if a.flags.jsonMode {
		return printJSON(w, view)
	}
	if !s.Active {
		_, err := fmt.Fprintln(w, "No task is running")
		return err
	}
	_, err := fmt.Fprintf(w, "%d %s  %s\n", view.TaskID, view.TaskName, formatDuration(s.Elapsed))
	return err
}

// taskNamer returns a cached id to name lookup. Deleted tasks read as
// "(deleted)".
func taskNamer(tasks *sqlite.Tasks) func(int64) string {
	cache := map[int64]string{}
	return func(id int64) string {
		if name, ok := cache[id]; ok {
			return name
		}
		name := "(deleted)"
		if task, err := tasks.FetchTask(id); err == nil {
			name = task.Name
		}
		cache[id] = name
		return name
	}
}

// logEntry is one row of the work log.
type logEntry struct {
	types.Worktime
	TaskName        string `json:"task_name"`
	DurationSeconds int64  `json:"duration_seconds"`
}

func newWorkLogCmd(a *app) *cobra.Command {
	var (
		taskID int64
		from   string
		to     string
	)
	cmd := &cobra.Command{
		Use:   "log",
		Short: "List worktime records",
		Long: "List the worktime records of one task (--task), or the records overlapping\n" +
			"the days from --from to --to inclusive, in the configured timezone. The\n" +
			"default period is today.",
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := sqlite.NewWorktimes(a.conn)
			loc := a.location()

			var records []types.Worktime
			var err error
			if taskID > 0 {
				records, err = w.ForTask(taskID)
			} else {
				var start, end time.Time
				start, end, err = parsePeriod(from, to, loc, time.Now())
				if err != nil {
					return err
				}
				records, err = w.InPeriod(start, end)
			}
			if err != nil {
				return err
			}

			now := time.Now()
			names := taskNamer(sqlite.NewTasks(a.conn))
			entries := make([]logEntry, 0, len(records))
			var total time.Duration
			for _, r := range records {
				d := r.Duration(now)
				total += d
				entries = append(entries, logEntry{Worktime: r, TaskName: names(r.TaskID), DurationSeconds: int64(d.Seconds())})
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "(no worktime)")
				return nil
			}
			t := newTable(out)
			t.AppendHeader(table.Row{"ID", "Task", "Start", "Finish", "Duration", "Memo"})
			for _, e := range entries {
				t.AppendRow(table.Row{
					e.ID,
					fmt.Sprintf("%d %s", e.TaskID, e.TaskName),
					formatClock(e.Started, loc),
					formatClock(e.Finished, loc),
					formatDuration(time.Duration(e.DurationSeconds) * time.Second),
					e.Memo,
				})
			}
			t.AppendFooter(table.Row{"", "", "", "Total", formatDuration(total), ""})
			t.Render()
			return nil
		},
	}
	cmd.Flags().Int64Var(&taskID, "task", 0, "only records of this task")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (default: --from)")
	return cmd
}

// parsePeriod turns inclusive day bounds into the half-open interval
// [start of from, start of the day after to) in loc.
func parsePeriod(from, to string, loc *time.Location, now time.Time) (time.Time, time.Time, error) {
	today := now.In(loc)
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	if from != "" {
		d, err := time.ParseInLocation(dateLayout, from, loc)
		if err != nil {
			return time.Time{}, time.Time{}, userError(fmt.Errorf("invalid --from %q: want YYYY-MM-DD", from))
		}
		start = d
	}
	end := start
	if to != "" {
		d, err := time.ParseInLocation(dateLayout, to, loc)
		if err != nil {
			return time.Time{}, time.Time{}, userError(fmt.Errorf("invalid --to %q: want YYYY-MM-DD", to))
		}
		end = d
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, userError(errors.New("--to is before --from"))
	}
	return start, end.AddDate(0, 0, 1), nil
}

func newWorkMemoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "memo <worktime-id> <text>",
		Short: "Set the memo of a worktime record",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := sqlite.NewWorktimes(a.conn).UpdateMemo(id, args[1]); err != nil {
				return fmt.Errorf("worktime %d: %w", id, err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"id": id, "memo": args[1]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated memo of worktime %d\n", id)
			return nil
		},
	}
}
