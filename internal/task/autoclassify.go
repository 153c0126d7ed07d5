package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/oskarvik/kontosort/internal/common"
	"github.com/oskarvik/kontosort/internal/engine"
	"github.com/oskarvik/kontosort/internal/model"
	"github.com/oskarvik/kontosort/internal/service"
)

// AutoClassifier submits auto-classification sweeps as background tasks.
type AutoClassifier struct {
	runner *Runner
	engine *engine.Orchestrator
	repo   service.TransactionRepository
	logger *slog.Logger
}

// NewAutoClassifier wires the sweep payload to the runner.
func NewAutoClassifier(runner *Runner, eng *engine.Orchestrator, repo service.TransactionRepository, logger *slog.Logger) *AutoClassifier {
	return &AutoClassifier{runner: runner, engine: eng, repo: repo, logger: logger}
}

// Submit creates and starts an auto-classify task over up to maxRecords
// uncategorized transactions (0 = all). It returns ErrTaskAlreadyRunning
// when another task is active.
func (a *AutoClassifier) Submit(ctx context.Context, threshold float64, maxRecords int) (int64, error) {
	if a.runner.IsTaskRunning(ctx) {
		return 0, common.ErrTaskAlreadyRunning
	}

	count, err := a.repo.CountUncategorized(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting uncategorized transactions: %w", err)
	}
	total := count
	if maxRecords > 0 && maxRecords < count {
		total = maxRecords
	}

	runID := uuid.NewString()
	taskID, err := a.runner.CreateTask(ctx, model.TaskTypeAutoClassify, "auto-classify", 0, total, map[string]any{
		"run_id":    runID,
		"threshold": threshold,
	})
	if err != nil {
		return 0, err
	}

	payload := func(ctx context.Context, progress service.ProgressFunc) (map[string]any, error) {
		applied, review, sweepErr := a.engine.AutoClassifyUncategorized(ctx, threshold, maxRecords, progress)
		if sweepErr != nil {
			return nil, sweepErr
		}
		for _, item := range review {
			a.logger.Info("needs review",
				"id", item.TransactionID,
				"description", item.Description,
				"top_category", item.Suggestions[0].Category,
				"top_confidence", item.Suggestions[0].Confidence)
		}
		return map[string]any{
			"run_id":       runID,
			"applied":      applied,
			"review_count": len(review),
			"total":        total,
		}, nil
	}

	if err := a.runner.ExecuteTask(ctx, taskID, payload); err != nil {
		// Lost the race to another submitter; don't leave the row pending.
		if failErr := a.runner.store.FailTask(ctx, taskID, err.Error()); failErr != nil {
			a.logger.Warn("failed to mark rejected task", "task_id", taskID, "error", failErr)
		}
		return 0, err
	}

	a.logger.Info("auto-classify task submitted",
		"task_id", taskID,
		"run_id", runID,
		"threshold", threshold,
		"total", total)
	return taskID, nil
}
