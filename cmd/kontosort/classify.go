package main

import (
	"context"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oskarvik/kontosort/internal/model"
	"github.com/oskarvik/kontosort/internal/task"
)

const pollInterval = 500 * time.Millisecond

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Auto-classify uncategorized transactions",
		Long: `Run a sweep that classifies every uncategorized transaction.

Transactions whose best suggestion reaches the confidence threshold get their
category applied; plausible but unconvincing suggestions are logged for review.
The command waits for the sweep to finish; exiting earlier would kill the
worker mid-sweep.`,
		RunE: runClassify,
	}

	cmd.Flags().Float64("threshold", 0, "confidence required to apply a suggestion (default from config)")
	cmd.Flags().Int("limit", 0, "classify at most this many transactions (0 = all)")

	return cmd
}

func runClassify(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	threshold, _ := cmd.Flags().GetFloat64("threshold")
	if threshold == 0 {
		threshold = viper.GetFloat64("classification.confidence_threshold")
	}
	limit, _ := cmd.Flags().GetInt("limit")
	if limit == 0 {
		limit = viper.GetInt("classification.max_suggestions")
	}
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runner, submitter, err := buildRunner(ctx, store)
	if err != nil {
		return err
	}
	// Join the worker before the process exits, even when polling is
	// interrupted; an abandoned worker would strand the task row.
	defer func() { _ = runner.Shutdown(context.Background()) }()

	taskID, err := submitter.Submit(ctx, threshold, limit)
	if err != nil {
		return fmt.Errorf("failed to submit classification task: %w", err)
	}
	fmt.Printf("Classifying as task %d (threshold %.2f)\n", taskID, threshold)

	return waitForTask(ctx, runner, taskID)
}

// waitForTask polls the task until it reaches a terminal state, rendering a
// progress bar from the persisted percentage.
func waitForTask(ctx context.Context, runner *task.Runner, taskID int64) error {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("classifying"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		snapshot, err := runner.GetTaskStatus(ctx, taskID)
		if err != nil {
			return err
		}

		switch snapshot.Status {
		case model.TaskStatusCompleted:
			_ = bar.Finish()
			printResult(snapshot)
			return nil
		case model.TaskStatusFailed:
			_ = bar.Finish()
			return fmt.Errorf("classification task failed: %s", snapshot.ErrorMessage)
		default:
			percent := snapshot.Progress
			if snapshot.Terminal() {
				percent = 100
			}
			_ = bar.Set(percent)
		}
	}
}

func printResult(snapshot *model.Task) {
	applied := snapshot.Result["applied"]
	reviewCount := snapshot.Result["review_count"]
	total := snapshot.Result["total"]
	fmt.Printf("Classified %v of %v transactions (%v need review)\n", applied, total, reviewCount)
}
