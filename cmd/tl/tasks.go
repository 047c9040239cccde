package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"taskline/internal/app"
	"taskline/internal/domain"
	"taskline/internal/engine"
	"taskline/internal/engine/auth"
	"taskline/internal/events"
	"taskline/internal/report"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "task", Short: "Manage tasks"}
	cmd.AddCommand(taskCreateCmd())
	cmd.AddCommand(taskAssignCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskGetCmd())
	cmd.AddCommand(taskStatusCmd())
	cmd.AddCommand(taskUpdateCmd())
	cmd.AddCommand(taskDeleteCmd())
	cmd.AddCommand(taskOverdueCmd())
	cmd.AddCommand(taskDueSoonCmd())
	cmd.AddCommand(taskRecentCmd())
	cmd.AddCommand(taskExportCmd())
	return cmd
}

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", what, raw)
	}
	return id, nil
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task for a user (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				if err := rt.Engine.Guard.RequireAdmin(p, "create task"); err != nil {
					return err
				}
				adminID := p.ID
				opts.AssignedBy = rt.Engine.AdminName(ctx, adminID)
				opts.AssignedByID = &adminID
				id, err := rt.Engine.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				t, err := rt.Engine.GetTask(ctx, id)
				if err != nil {
					return err
				}
				rt.Recorder.Record(ctx, p, fmt.Sprintf("Created task: %s", t.Title), events.TaskEntity(id))
				return printTask(t)
			})
		},
	}
	cmd.Flags().Int64Var(&opts.OwnerID, "owner", 0, "owner user id")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "low, medium (default) or high")
	cmd.Flags().StringVar(&opts.DueDate, "due", "", "due date (YYYY-MM-DD, YYYY-MM-DD HH:MM:SS or RFC3339)")
	cmd.Flags().StringVar(&opts.Instructions, "instructions", "", "instructions for the owner")
	return cmd
}

func taskAssignCmd() *cobra.Command {
	var a engine.PredefinedAssignment
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign a catalog task to a user (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				if err := rt.Engine.Guard.RequireAdmin(p, "assign predefined task"); err != nil {
					return err
				}
				a.AdminID = p.ID
				id, err := rt.Engine.AssignPredefinedTask(ctx, a)
				if err != nil {
					return err
				}
				t, err := rt.Engine.GetTask(ctx, id)
				if err != nil {
					return err
				}
				rt.Recorder.Record(ctx, p, fmt.Sprintf("Assigned predefined task: %s to user ID %d", t.Title, t.OwnerID), events.TaskEntity(id))
				return printTask(t)
			})
		},
	}
	cmd.Flags().StringVar(&a.Category, "category", "", "catalog category")
	cmd.Flags().StringVar(&a.Title, "title", "", "catalog title")
	cmd.Flags().Int64Var(&a.OwnerID, "owner", 0, "owner user id")
	cmd.Flags().StringVar(&a.DueDate, "due", "", "due date")
	cmd.Flags().StringVar(&a.Priority, "priority", "", "low, medium (default) or high")
	cmd.Flags().StringVar(&a.Instructions, "instructions", "", "instructions for the owner")
	return cmd
}

func addListFilterFlags(cmd *cobra.Command, f *engine.ListFilters) {
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "priority filter")
	cmd.Flags().Int64Var(&f.OwnerID, "owner", 0, "owner filter (admin)")
	cmd.Flags().StringVar(&f.DateFrom, "from", "", "created on or after this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.DateTo, "to", "", "created on or before this day (YYYY-MM-DD)")
}

func taskListCmd() *cobra.Command {
	var f engine.ListFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long:  "Admins list every task, newest first. Users list their own tasks by due date.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				var (
					tasks []domain.Task
					err   error
				)
				if p.IsAdmin() {
					tasks, err = rt.Engine.ListAll(ctx, f)
				} else {
					tasks, err = rt.Engine.ListForOwner(ctx, p.ID, engine.OwnerFilters{Status: f.Status, Priority: f.Priority})
				}
				if err != nil {
					return err
				}
				return printTasks(tasks)
			})
		},
	}
	addListFilterFlags(cmd, &f)
	return cmd
}

func taskGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task id")
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				t, err := rt.Engine.AuthorizedTask(ctx, p, id, auth.OpRead)
				if err != nil {
					return err
				}
				return printTask(t)
			})
		},
	}
}

func taskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id> <pending|in_progress|completed>",
		Short: "Change a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task id")
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				t, err := rt.Engine.UpdateStatus(ctx, id, args[1], p)
				if err != nil {
					return err
				}
				rt.Recorder.Record(ctx, p, fmt.Sprintf("Updated task status for task ID: %d to %s", id, t.Status), events.TaskEntity(id))
				return printTask(t)
			})
		},
	}
}

func taskUpdateCmd() *cobra.Command {
	var title, description, priority, due, instructions string
	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Edit task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task id")
			if err != nil {
				return err
			}
			fields := map[string]any{}
			for flag, value := range map[string]string{
				"title":        title,
				"description":  description,
				"priority":     priority,
				"due":          due,
				"instructions": instructions,
			} {
				if !cmd.Flags().Changed(flag) {
					continue
				}
				key := flag
				if flag == "due" {
					key = "due_date"
				}
				fields[key] = value
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				t, err := rt.Engine.UpdateFields(ctx, id, fields, p)
				if err != nil {
					return err
				}
				rt.Recorder.Record(ctx, p, fmt.Sprintf("Updated task ID: %d", id), events.TaskEntity(id))
				return printTask(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&priority, "priority", "", "new priority")
	cmd.Flags().StringVar(&due, "due", "", "new due date")
	cmd.Flags().StringVar(&instructions, "instructions", "", "new instructions (empty clears)")
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task and its attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "task id")
			if err != nil {
				return err
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				if err := rt.Engine.DeleteTask(ctx, id, p); err != nil {
					return err
				}
				rt.Recorder.Record(ctx, p, fmt.Sprintf("Deleted task ID: %d", id), events.TaskEntity(id))
				fmt.Printf("deleted task %d\n", id)
				return nil
			})
		},
	}
}

func taskOverdueCmd() *cobra.Command {
	var owner int64
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "Pending tasks past their due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				tasks, err := rt.Engine.GetOverdue(ctx, ownerScope(p, owner))
				if err != nil {
					return err
				}
				return printTasks(tasks)
			})
		},
	}
	cmd.Flags().Int64Var(&owner, "owner", 0, "owner filter (admin)")
	return cmd
}

func taskDueSoonCmd() *cobra.Command {
	var owner int64
	var days int
	cmd := &cobra.Command{
		Use:   "due-soon",
		Short: "Pending tasks due within a number of days",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				if !cmd.Flags().Changed("days") {
					days = rt.Config.DueSoon.DefaultDays
				}
				tasks, err := rt.Engine.GetDueSoon(ctx, days, ownerScope(p, owner))
				if err != nil {
					return err
				}
				return printTasks(tasks)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 3, "window in days")
	cmd.Flags().Int64Var(&owner, "owner", 0, "owner filter (admin)")
	return cmd
}

func taskRecentCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Most recently created tasks (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				if err := rt.Engine.Guard.RequireAdmin(p, "list recent assignments"); err != nil {
					return err
				}
				tasks, err := rt.Engine.GetRecentAssignments(ctx, limit)
				if err != nil {
					return err
				}
				return printTasks(tasks)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of tasks (config default when 0)")
	return cmd
}

func taskExportCmd() *cobra.Command {
	var f engine.ListFilters
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export tasks as CSV (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime, p domain.Principal) error {
				if err := rt.Engine.Guard.RequireAdmin(p, "export tasks"); err != nil {
					return err
				}
				tasks, err := rt.Engine.ListAll(ctx, f)
				if err != nil {
					return err
				}
				var w io.Writer = os.Stdout
				if out != "" {
					file, err := os.Create(out)
					if err != nil {
						return err
					}
					defer file.Close()
					w = file
				}
				return report.WriteTasks(w, tasks)
			})
		},
	}
	addListFilterFlags(cmd, &f)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (stdout when empty)")
	return cmd
}
