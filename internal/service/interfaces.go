// Package service defines the interfaces the classification core depends on.
package service

import (
	"context"
	"time"

	"github.com/oskarvik/kontosort/internal/model"
)

// TransactionRepository is the ledger-side collaborator. The classification
// core reads uncategorized and classified records through it and writes back
// category assignments; everything else about transactions is out of scope.
type TransactionRepository interface {
	// GetUncategorized returns transactions with no category (or the
	// Uncategorized sentinel), oldest first. limit <= 0 means no limit.
	GetUncategorized(ctx context.Context, limit, offset int) ([]model.Transaction, error)

	// GetClassifiedForPatterns returns every classified transaction as the
	// slim tuple the learned classifier trains on.
	GetClassifiedForPatterns(ctx context.Context) ([]model.ClassifiedTransaction, error)

	// ReclassifyTransaction assigns a category to a transaction, recording
	// the confidence and the classification method that produced it.
	ReclassifyTransaction(ctx context.Context, id int64, category string, confidence float64, method string) error

	// GetCategories returns all known category names.
	GetCategories(ctx context.Context) ([]string, error)

	// CountUncategorized returns the number of unclassified transactions.
	CountUncategorized(ctx context.Context) (int, error)
}

// TaskStore is the durable record of every background job.
type TaskStore interface {
	CreateTask(ctx context.Context, taskType, name string, userID int64, total int, metadata map[string]any) (int64, error)
	StartTask(ctx context.Context, id int64) error
	UpdateTaskProgress(ctx context.Context, id int64, progress int, currentItem string) error
	CompleteTask(ctx context.Context, id int64, result map[string]any) error
	FailTask(ctx context.Context, id int64, errorMessage string) error

	// FailRunningTasks forces every row still marked running to failed with
	// the given message. Used by the orphan-recovery sweep; returns the
	// number of rows repaired.
	FailRunningTasks(ctx context.Context, errorMessage string) (int64, error)

	GetTask(ctx context.Context, id int64) (*model.Task, error)
	GetRunningTask(ctx context.Context) (*model.Task, error)
	ListTasks(ctx context.Context, limit int) ([]model.Task, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// ProgressFunc reports sweep progress: current item index (1-based), total
// item count, and a short label for the item being processed.
type ProgressFunc func(current, total int, currentItem string)
