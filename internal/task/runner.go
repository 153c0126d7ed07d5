// Package task runs background jobs one at a time, persisting their lifecycle
// to a durable store so callers can submit and poll without blocking.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oskarvik/kontosort/internal/common"
	"github.com/oskarvik/kontosort/internal/metrics"
	"github.com/oskarvik/kontosort/internal/model"
	"github.com/oskarvik/kontosort/internal/service"
)

const (
	// orphanMessage marks rows whose worker died without reporting back.
	orphanMessage = "Task thread died unexpectedly"

	defaultResultMessage = "Task completed successfully"

	shutdownTimeout = 30 * time.Second
)

// Payload is the unit of work a task executes. It receives a progress
// callback and returns an optional result payload for the task row.
type Payload func(ctx context.Context, progress service.ProgressFunc) (map[string]any, error)

// workerHandle tracks the single in-flight worker. The worker is alive iff
// done has not been closed.
type workerHandle struct {
	taskID int64
	done   chan struct{}
}

func (h *workerHandle) alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Runner enforces single-flight execution: at most one worker goroutine runs
// at a time, guarded by a mutex around the handle, and every state change is
// written through to the task store.
type Runner struct {
	store  service.TaskStore
	logger *slog.Logger

	mu     sync.Mutex
	handle *workerHandle
}

// NewRunner creates a task runner backed by the given store.
func NewRunner(store service.TaskStore, logger *slog.Logger) *Runner {
	return &Runner{store: store, logger: logger}
}

// CreateTask inserts a pending task row and returns its id.
func (r *Runner) CreateTask(ctx context.Context, taskType, name string, userID int64, total int, metadata map[string]any) (int64, error) {
	id, err := r.store.CreateTask(ctx, taskType, name, userID, total, metadata)
	if err != nil {
		return 0, fmt.Errorf("creating task: %w", err)
	}
	metrics.TasksTotal.WithLabelValues(string(model.TaskStatusPending)).Inc()
	return id, nil
}

// IsTaskRunning reports whether a worker is currently executing. When the
// handle refers to a worker that died without clearing itself, the runner
// treats it as a crash: the handle is dropped and every row still marked
// running is failed with the orphan message. The repair runs lazily here,
// not on a timer.
func (r *Runner) IsTaskRunning(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle == nil {
		return false
	}
	if r.handle.alive() {
		return true
	}

	r.logger.Warn("worker died without cleanup, sweeping orphaned tasks", "task_id", r.handle.taskID)
	r.handle = nil
	r.sweepOrphans(ctx)
	return false
}

// ExecuteTask spawns a worker for the task. It rejects with
// ErrTaskAlreadyRunning when another worker is active; the check and the
// handle assignment happen atomically under the mutex. The in-memory handle
// only covers this process, so the store is consulted too: a running row
// owned by another process sharing the database also blocks execution.
func (r *Runner) ExecuteTask(ctx context.Context, taskID int64, payload Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle != nil {
		if r.handle.alive() {
			return fmt.Errorf("task %d is active: %w", r.handle.taskID, common.ErrTaskAlreadyRunning)
		}
		r.logger.Warn("worker died without cleanup, sweeping orphaned tasks", "task_id", r.handle.taskID)
		r.handle = nil
		if _, err := r.sweepOrphans(ctx); err != nil {
			return err
		}
	}

	if running, err := r.store.GetRunningTask(ctx); err != nil {
		return fmt.Errorf("checking for running tasks: %w", err)
	} else if running != nil {
		return fmt.Errorf("task %d is active: %w", running.ID, common.ErrTaskAlreadyRunning)
	}

	handle := &workerHandle{taskID: taskID, done: make(chan struct{})}
	r.handle = handle

	go r.run(handle, taskID, payload)
	return nil
}

// run is the worker body. It detaches from the submitter's context: a sweep
// keeps going after the submitting request returns, and shutdown joins it
// rather than cancelling it.
func (r *Runner) run(handle *workerHandle, taskID int64, payload Payload) {
	ctx := context.Background()

	// The gauge tracks only the live worker; park it at zero once this task
	// reaches a terminal state.
	defer metrics.TaskProgress.Set(0)
	defer close(handle.done)
	defer func() {
		r.mu.Lock()
		// Only clear the handle if it still refers to this worker; a later
		// task may have replaced it after the orphan sweep.
		if r.handle == handle {
			r.handle = nil
		}
		r.mu.Unlock()
	}()

	if err := r.store.StartTask(ctx, taskID); err != nil {
		r.logger.Error("failed to mark task running", "task_id", taskID, "error", err)
		r.failTask(ctx, taskID, err.Error())
		return
	}
	metrics.TasksTotal.WithLabelValues(string(model.TaskStatusRunning)).Inc()

	progress := func(current, total int, currentItem string) {
		percent := 0
		if total > 0 {
			percent = current * 100 / total
		}
		metrics.TaskProgress.Set(float64(percent))
		if err := r.store.UpdateTaskProgress(ctx, taskID, percent, currentItem); err != nil {
			r.logger.Warn("failed to persist task progress", "task_id", taskID, "error", err)
		}
	}

	result, err := r.invoke(ctx, payload, progress)
	if err != nil {
		r.logger.Error("task failed", "task_id", taskID, "error", err)
		r.failTask(ctx, taskID, err.Error())
		return
	}

	if result == nil {
		result = map[string]any{"message": defaultResultMessage}
	}
	if err := r.store.CompleteTask(ctx, taskID, result); err != nil {
		r.logger.Error("failed to mark task completed", "task_id", taskID, "error", err)
		return
	}
	metrics.TasksTotal.WithLabelValues(string(model.TaskStatusCompleted)).Inc()
	r.logger.Info("task completed", "task_id", taskID)
}

// invoke runs the payload, converting a panic into a task failure so the
// runner itself never goes down with a bad payload.
func (r *Runner) invoke(ctx context.Context, payload Payload, progress service.ProgressFunc) (result map[string]any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task payload panicked: %v", rec)
		}
	}()
	return payload(ctx, progress)
}

func (r *Runner) failTask(ctx context.Context, taskID int64, message string) {
	if err := r.store.FailTask(ctx, taskID, message); err != nil {
		r.logger.Error("failed to mark task failed", "task_id", taskID, "error", err)
		return
	}
	metrics.TasksTotal.WithLabelValues(string(model.TaskStatusFailed)).Inc()
}

// GetRunningTask returns the currently running task row, or nil when idle.
func (r *Runner) GetRunningTask(ctx context.Context) (*model.Task, error) {
	return r.store.GetRunningTask(ctx)
}

// GetTaskStatus returns a snapshot of one task.
func (r *Runner) GetTaskStatus(ctx context.Context, id int64) (*model.Task, error) {
	task, err := r.store.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("task %d: %w", id, err)
	}
	return task, nil
}

// GetAllTasks returns the most recent tasks, newest first.
func (r *Runner) GetAllTasks(ctx context.Context, limit int) ([]model.Task, error) {
	return r.store.ListTasks(ctx, limit)
}

// RecoverSystem is the operator-facing trigger for the orphan repair used
// after a process restart, when every previously running row is necessarily
// orphaned. It refuses to run while a live worker exists.
func (r *Runner) RecoverSystem(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.handle != nil && r.handle.alive() {
		return 0, fmt.Errorf("task %d is active: %w", r.handle.taskID, common.ErrTaskAlreadyRunning)
	}
	r.handle = nil
	return r.sweepOrphans(ctx)
}

// sweepOrphans fails every row still marked running. Callers hold r.mu.
func (r *Runner) sweepOrphans(ctx context.Context) (int64, error) {
	repaired, err := r.store.FailRunningTasks(ctx, orphanMessage)
	if err != nil {
		r.logger.Error("orphan sweep failed", "error", err)
		return 0, fmt.Errorf("failing orphaned tasks: %w", err)
	}
	if repaired > 0 {
		metrics.TasksTotal.WithLabelValues(string(model.TaskStatusFailed)).Add(float64(repaired))
		r.logger.Info("repaired orphaned tasks", "count", repaired)
	}
	return repaired, nil
}

// Shutdown waits for the in-flight worker to finish, bounded by 30s. It does
// not cancel the worker; a long payload may outlive shutdown.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	handle := r.handle
	r.mu.Unlock()

	if handle == nil || !handle.alive() {
		return nil
	}

	r.logger.Info("waiting for running task to finish", "task_id", handle.taskID)
	select {
	case <-handle.done:
		return nil
	case <-time.After(shutdownTimeout):
		return fmt.Errorf("task %d still running after %s", handle.taskID, shutdownTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
