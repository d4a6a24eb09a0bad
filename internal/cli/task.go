package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/timecard/internal/sqlite"
	"github.com/mesh-intelligence/timecard/pkg/types"
)

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage the task tree",
	}
	cmd.AddCommand(
		newTaskAddCmd(a),
		newTaskListCmd(a),
		newTaskShowCmd(a),
		newTaskUpdateCmd(a),
		newTaskDeleteCmd(a),
		newTaskLocateCmd(a),
	)
	return cmd
}

// parseStatus parses a --status value as a user error.
func parseStatus(s string) (types.TaskStatus, error) {
	st, err := types.ParseTaskStatus(s)
	if err != nil {
		return 0, userError(fmt.Errorf("%w %q (use in-progress, incomplete, complete, not-planned or 1-4)", err, s))
	}
	return st, nil
}

// pageSize returns the --per-page value, falling back to page_size.
func (a *app) pageSize(flag int64) int64 {
	if flag > 0 {
		return flag
	}
	return int64(a.cfg.PageSize)
}

func newTaskAddCmd(a *app) *cobra.Command {
	var (
		parent int64
		detail string
		status string
	)
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Create a task",
		Long:  "Create a task under --parent, or a root task. Without a name the task is called \"" + sqlite.DefaultTaskName + "\".",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := parseStatus(status)
			if err != nil {
				return err
			}
			if st == types.StatusAny {
				st = sqlite.DefaultTaskStatus
			}
			name := sqlite.DefaultTaskName
			if len(args) == 1 {
				name = args[0]
			}

			tasks := sqlite.NewTasks(a.conn)
			if parent > 0 {
				if _, err := tasks.FetchTask(parent); err != nil {
					return fmt.Errorf("parent %d: %w", parent, err)
				}
			}
			task, err := tasks.CreateTask(parent, name, detail, st)
			if err != nil {
				return err
			}
			a.logger.Info("task created", "task", task.ID, "parent", task.ParentID)

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), task)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %d: %s\n", task.ID, task.Name)
			return nil
		},
	}
	cmd.Flags().Int64Var(&parent, "parent", 0, "parent task id (default: root)")
	cmd.Flags().StringVar(&detail, "detail", "", "task detail")
	cmd.Flags().StringVar(&status, "status", "incomplete", "task status")
	return cmd
}

// taskPage is one page of a child listing.
type taskPage struct {
	ParentID   int64        `json:"parent_id"`
	ParentName string       `json:"parent_name"`
	Status     string       `json:"status"`
	Page       int64        `json:"page"`
	PerPage    int64        `json:"per_page"`
	Total      int64        `json:"total"`
	Tasks      []types.Task `json:"tasks"`
}

func newTaskListCmd(a *app) *cobra.Command {
	var (
		parent  int64
		status  string
		page    int64
		perPage int64
		all     bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the children of a task, one page at a time",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := parseStatus(status)
			if err != nil {
				return err
			}
			per := a.pageSize(perPage)
			if page < 1 {
				page = 1
			}

			tasks := sqlite.NewTasks(a.conn)
			total, err := tasks.CountChildren(parent, st)
			if err != nil {
				return err
			}
			fetchPage, fetchPer := page, per
			if all {
				page, per = 1, max(total, 1)
				fetchPage, fetchPer = -1, -1
			}
			list, parentName, err := tasks.Children(parent, st, fetchPage, fetchPer)
			if err != nil {
				return err
			}
			res := taskPage{
				ParentID:   parent,
				ParentName: parentName,
				Status:     st.String(),
				Page:       page,
				PerPage:    per,
				Total:      total,
				Tasks:      list,
			}
			if res.Tasks == nil {
				res.Tasks = []types.Task{}
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), res)
			}
			return renderTaskPage(cmd, tasks, res)
		},
	}
	cmd.Flags().Int64Var(&parent, "parent", 0, "parent task id (default: root tasks)")
	cmd.Flags().StringVar(&status, "status", "any", "only list tasks with this status")
	cmd.Flags().Int64Var(&page, "page", 1, "page number, starting at 1")
	cmd.Flags().Int64Var(&perPage, "per-page", 0, "tasks per page (default: page_size from config)")
	cmd.Flags().BoolVar(&all, "all", false, "list every child on one page, ignoring --page and --per-page")
	return cmd
}

func renderTaskPage(cmd *cobra.Command, tasks *sqlite.Tasks, res taskPage) error {
	out := cmd.OutOrStdout()
	if res.ParentID > 0 {
		name := res.ParentName
		if name == "" {
			name = "(missing)"
		}
		fmt.Fprintf(out, "%d %s\n", res.ParentID, name)
	}
	if len(res.Tasks) == 0 {
		fmt.Fprintln(out, "(no tasks)")
		return nil
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"ID", "Name", "Status", "Worktime"})
	for _, task := range res.Tasks {
		total, err := tasks.ComputeTotalWorktime(task.ID)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{task.ID, task.Name, task.Status, formatDuration(total)})
	}
	t.Render()

	pages := (res.Total + res.PerPage - 1) / res.PerPage
	fmt.Fprintf(out, "page %d of %d (%d tasks)\n", res.Page, pages, res.Total)
	return nil
}

// taskDetail is the show output.
type taskDetail struct {
	types.Task
	ParentName    string         `json:"parent_name"`
	Worktime      int64          `json:"worktime_seconds"`
	TotalWorktime int64          `json:"total_worktime_seconds"`
	Position      types.Position `json:"position"`
	Children      int64          `json:"children"`
}

func newTaskShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a task with its worktime",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			tasks := sqlite.NewTasks(a.conn)
			task, err := tasks.FetchTask(id)
			if err != nil {
				return fmt.Errorf("task %d: %w", id, err)
			}

			d := taskDetail{Task: task}
			if task.ParentID > 0 {
				if p, err := tasks.FetchTask(task.ParentID); err == nil {
					d.ParentName = p.Name
				} else if !sqlite.IsNotFound(err) {
					return err
				}
			}
			own, err := tasks.FetchWorktime(id)
			if err != nil {
				return err
			}
			total, err := tasks.ComputeTotalWorktime(id)
			if err != nil {
				return err
			}
			if d.Position, err = tasks.LocatePage(id, types.StatusAny, a.pageSize(0)); err != nil {
				return err
			}
			if d.Children, err = tasks.CountChildren(id, types.StatusAny); err != nil {
				return err
			}
			d.Worktime = int64(own.Seconds())
			d.TotalWorktime = int64(total.Seconds())

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), d)
			}
			loc := a.location()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %d\n", task.ID)
			fmt.Fprintf(out, "Name:      %s\n", task.Name)
			fmt.Fprintf(out, "Status:    %s\n", task.Status)
			if task.ParentID > 0 {
				fmt.Fprintf(out, "Parent:    %d %s\n", task.ParentID, d.ParentName)
			}
			if task.Detail != "" {
				fmt.Fprintf(out, "Detail:    %s\n", task.Detail)
			}
			fmt.Fprintf(out, "Children:  %d\n", d.Children)
			fmt.Fprintf(out, "Worktime:  %s (with subtasks %s)\n", formatDuration(own), formatDuration(total))
			fmt.Fprintf(out, "Listed at: page %d, row %d\n", d.Position.Page, d.Position.Index+1)
			fmt.Fprintf(out, "Created:   %s\n", formatClock(task.CreatedAt, loc))
			fmt.Fprintf(out, "Updated:   %s\n", formatClock(task.UpdatedAt, loc))
			return nil
		},
	}
}

func newTaskUpdateCmd(a *app) *cobra.Command {
	var (
		name   string
		detail string
		status string
		parent int64
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the name, detail, status or parent of a task",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if !flags.Changed("name") && !flags.Changed("detail") && !flags.Changed("status") && !flags.Changed("parent") {
				return userError(errors.New("nothing to update; pass --name, --detail, --status or --parent"))
			}

			tasks := sqlite.NewTasks(a.conn)
			task, err := tasks.FetchTask(id)
			if err != nil {
				return fmt.Errorf("task %d: %w", id, err)
			}
			if flags.Changed("name") {
				task.Name = name
			}
			if flags.Changed("detail") {
				task.Detail = detail
			}
			if flags.Changed("status") {
				st, err := parseStatus(status)
				if err != nil {
					return err
				}
				task.Status = st
			}
			if err := tasks.UpdateTask(task); err != nil {
				return err
			}
			if flags.Changed("parent") {
				if parent > 0 {
					if _, err := tasks.FetchTask(parent); err != nil {
						return fmt.Errorf("parent %d: %w", parent, err)
					}
				}
				if err := tasks.MoveTask(id, parent); err != nil {
					if errors.Is(err, types.ErrInvalidID) {
						return userError(fmt.Errorf("cannot move task %d under its own subtree", id))
					}
					return err
				}
			}

			task, err = tasks.FetchTask(id)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), task)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated task %d: %s\n", task.ID, task.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&detail, "detail", "", "new detail")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().Int64Var(&parent, "parent", 0, "new parent task id (0 makes it a root task)")
	return cmd
}

func newTaskDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Long:  "Delete a single task. Its subtasks and worktime records are kept.",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := sqlite.NewTasks(a.conn).DeleteTask(id); err != nil {
				return fmt.Errorf("task %d: %w", id, err)
			}
			a.logger.Info("task deleted", "task", id)
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"id": id, "deleted": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %d\n", id)
			return nil
		},
	}
}

func newTaskLocateCmd(a *app) *cobra.Command {
	var (
		status  string
		perPage int64
	)
	cmd := &cobra.Command{
		Use:   "locate <id>",
		Short: "Print the page of the parent listing that shows a task",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := parseStatus(status)
			if err != nil {
				return err
			}
			pos, err := sqlite.NewTasks(a.conn).LocatePage(id, st, a.pageSize(perPage))
			if err != nil {
				return fmt.Errorf("task %d: %w", id, err)
			}
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), pos)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "page "+strconv.FormatInt(pos.Page, 10)+", index "+strconv.FormatInt(pos.Index, 10))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "any", "status filter of the listing")
	cmd.Flags().Int64Var(&perPage, "per-page", 0, "tasks per page (default: page_size from config)")
	return cmd
}
