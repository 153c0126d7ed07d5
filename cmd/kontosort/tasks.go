package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/oskarvik/kontosort/internal/model"
	"github.com/oskarvik/kontosort/internal/task"
)

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and repair background tasks",
	}

	cmd.AddCommand(listTasksCmd())
	cmd.AddCommand(taskStatusCmd())
	cmd.AddCommand(recoverTasksCmd())

	return cmd
}

func listTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent background tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runner := task.NewRunner(store, slog.Default())
			tasks, err := runner.GetAllTasks(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to list tasks: %w", err)
			}

			if len(tasks) == 0 {
				fmt.Println("No tasks found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "ID\tType\tStatus\tProgress\tCreated\n")
			for i := range tasks {
				t := &tasks[i]
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					t.ID, t.Type, t.Status, formatProgress(t),
					t.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "maximum number of tasks to show")
	return cmd
}

func taskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show one task in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runner := task.NewRunner(store, slog.Default())
			snapshot, err := runner.GetTaskStatus(ctx, id)
			if err != nil {
				return err
			}

			fmt.Printf("Task %d (%s)\n", snapshot.ID, snapshot.Type)
			fmt.Printf("  Status:   %s\n", snapshot.Status)
			fmt.Printf("  Progress: %s\n", formatProgress(snapshot))
			if snapshot.CurrentItem != "" {
				fmt.Printf("  Current:  %s\n", snapshot.CurrentItem)
			}
			if snapshot.ErrorMessage != "" {
				fmt.Printf("  Error:    %s\n", snapshot.ErrorMessage)
			}
			if snapshot.Result != nil {
				fmt.Printf("  Result:   %v\n", snapshot.Result)
			}
			return nil
		},
	}
}

func recoverTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Fail orphaned tasks left running by a crashed process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runner := task.NewRunner(store, slog.Default())
			repaired, err := runner.RecoverSystem(ctx)
			if err != nil {
				return fmt.Errorf("recovery failed: %w", err)
			}

			if repaired == 0 {
				fmt.Println("No orphaned tasks found.")
			} else {
				fmt.Printf("Repaired %d orphaned task(s).\n", repaired)
			}
			return nil
		},
	}
}

func formatProgress(t *model.Task) string {
	if t.Status == model.TaskStatusRunning {
		return fmt.Sprintf("%d%%", t.Progress)
	}
	if t.Total > 0 {
		return fmt.Sprintf("%d/%d", t.Progress, t.Total)
	}
	return strings.TrimSpace(strconv.Itoa(t.Progress))
}
