package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/hrdesk"
)

const monthLayout = "2006-01"

func newTasksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and edit calendar tasks",
	}
	cmd.AddCommand(
		newTasksListCmd(a),
		newTasksCreateCmd(a),
		newTasksUpdateCmd(a),
		newTasksDeleteCmd(a),
	)
	return cmd
}

func newTasksListCmd(a *app) *cobra.Command {
	var month string
	var shift int
	var byDay bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tasks of a month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(cmd); err != nil {
				return err
			}

			ref := time.Now()
			if month != "" {
				t, err := time.ParseInLocation(monthLayout, month, time.Local)
				if err != nil {
					return fmt.Errorf("--month: want YYYY-MM: %w", err)
				}
				ref = t
			}
			ref = hrdesk.ShiftMonth(ref, shift)

			tasks, err := a.client.ListMonth(cmd.Context(), ref)
			if err != nil {
				return err
			}

			w := out(cmd)
			if !byDay {
				fmt.Fprintf(w, "%-6s %-30s %-8s %-12s %-17s %s\n", "ID", "TITLE", "PRIORITY", "STATUS", "START", "DEADLINE")
				for _, t := range tasks {
					fmt.Fprintf(w, "%-6d %-30s %-8s %-12s %-17s %s\n",
						t.TaskID, truncate(t.Title, 30), t.Priority, t.TaskStatus, stamp(t.StartDate), stamp(t.Deadline))
				}
				return nil
			}

			groups := hrdesk.GroupByDate(tasks, time.Local)
			from, to := hrdesk.MonthRange(ref)
			for _, day := range hrdesk.SortedDays(groups) {
				d := time.Date(day.Year, day.Month, day.Day, 0, 0, 0, 0, time.Local)
				if d.Before(from) || d.After(to) {
					continue
				}
				fmt.Fprintln(w, day)
				for _, t := range groups[day] {
					fmt.Fprintf(w, "  #%-5d %s [%s]\n", t.TaskID, t.Title, t.TaskStatus)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month to list as YYYY-MM (default: current)")
	cmd.Flags().IntVar(&shift, "shift", 0, "Move the month by this many months")
	cmd.Flags().BoolVar(&byDay, "by-day", false, "Group tasks under each day they span")
	return cmd
}

type taskFlags struct {
	title, description, priority, status, kind, start, deadline string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Task title")
	cmd.Flags().StringVar(&f.description, "description", "", "Task description")
	cmd.Flags().StringVar(&f.priority, "priority", "", "LOW, MEDIUM or HIGH")
	cmd.Flags().StringVar(&f.status, "status", "", "PENDING, PROGRESS or COMPLETED")
	cmd.Flags().StringVar(&f.kind, "type", "", "Task type")
	cmd.Flags().StringVar(&f.start, "start", "", "Start, e.g. 2024-03-01T09:00:00")
	cmd.Flags().StringVar(&f.deadline, "deadline", "", "Deadline, e.g. 2024-03-01T17:00:00")
}

func (f *taskFlags) task() (hrdesk.Task, error) {
	t := hrdesk.Task{Title: f.title, Description: f.description, TaskType: f.kind}
	if f.priority != "" {
		p, err := hrdesk.ParsePriority(f.priority)
		if err != nil {
			return t, err
		}
		t.Priority = p
	}
	if f.status != "" {
		s, err := hrdesk.ParseTaskStatus(f.status)
		if err != nil {
			return t, err
		}
		t.TaskStatus = s
	}
	if f.start != "" {
		d, err := hrdesk.ParseDateTime(f.start)
		if err != nil {
			return t, fmt.Errorf("--start: %w", err)
		}
		t.StartDate = &d
	}
	if f.deadline != "" {
		d, err := hrdesk.ParseDateTime(f.deadline)
		if err != nil {
			return t, fmt.Errorf("--deadline: %w", err)
		}
		t.Deadline = &d
	}
	return t, nil
}

func newTasksCreateCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(cmd); err != nil {
				return err
			}
			t, err := f.task()
			if err != nil {
				return err
			}
			if err := a.client.CreateTask(cmd.Context(), t); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Created task %q\n", t.Title)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newTasksUpdateCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace the fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(cmd); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			t, err := f.task()
			if err != nil {
				return err
			}
			t.TaskID = id
			if err := a.client.UpdateTask(cmd.Context(), t); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Updated task %d\n", id)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newTasksDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(cmd); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.client.DeleteTask(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Deleted task %d\n", id)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

func stamp(d *hrdesk.DateTime) string {
	if d == nil || d.IsZero() {
		return "-"
	}
	return d.Local().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
