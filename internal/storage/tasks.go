package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oskarvik/kontosort/internal/common"
	"github.com/oskarvik/kontosort/internal/model"
)

// CreateTask inserts a pending task row and returns its id.
func (s *SQLiteStorage) CreateTask(ctx context.Context, taskType, name string, userID int64, total int, metadata map[string]any) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	metadataJSON, err := encodeJSON(metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to encode task metadata: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO background_tasks (task_type, name, user_id, status, total, metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		taskType, name, userID, model.TaskStatusPending, total, metadataJSON)
	if err != nil {
		return 0, fmt.Errorf("failed to insert task: %w", err)
	}
	return result.LastInsertId()
}

// StartTask moves a pending task to running and stamps started_at. The
// transition is guarded in SQL: it refuses while any row is already running,
// which keeps the single-running-row invariant even across processes sharing
// the database file.
func (s *SQLiteStorage) StartTask(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE background_tasks
		 SET status = ?, started_at = ?
		 WHERE id = ? AND status = ?
		   AND NOT EXISTS (SELECT 1 FROM background_tasks WHERE status = ?)`,
		model.TaskStatusRunning, time.Now().UTC(), id, model.TaskStatusPending,
		model.TaskStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to start task: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		if running, runErr := s.GetRunningTask(ctx); runErr == nil && running != nil {
			return fmt.Errorf("task %d is active: %w", running.ID, common.ErrTaskAlreadyRunning)
		}
		return fmt.Errorf("task %d is not pending: %w", id, common.ErrNotFound)
	}
	return nil
}

// UpdateTaskProgress persists the progress percentage and the current item
// label for a running task.
func (s *SQLiteStorage) UpdateTaskProgress(ctx context.Context, id int64, progress int, currentItem string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE background_tasks
		 SET progress = ?, current_item = ?
		 WHERE id = ? AND status = ?`,
		progress, currentItem, id, model.TaskStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to update task progress: %w", err)
	}
	return nil
}

// CompleteTask marks the task completed, storing the result payload and
// forcing progress to total.
func (s *SQLiteStorage) CompleteTask(ctx context.Context, id int64, result map[string]any) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	resultJSON, err := encodeJSON(result)
	if err != nil {
		return fmt.Errorf("failed to encode task result: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE background_tasks
		 SET status = ?, result = ?, progress = total, completed_at = ?
		 WHERE id = ?`,
		model.TaskStatusCompleted, resultJSON, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// FailTask marks the task failed with the given error message.
func (s *SQLiteStorage) FailTask(ctx context.Context, id int64, errorMessage string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE background_tasks
		 SET status = ?, error_message = ?, completed_at = ?
		 WHERE id = ?`,
		model.TaskStatusFailed, errorMessage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to fail task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// FailRunningTasks forces every row still marked running to failed with the
// given message and returns the number of rows repaired.
func (s *SQLiteStorage) FailRunningTasks(ctx context.Context, errorMessage string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE background_tasks
		 SET status = ?, error_message = ?, completed_at = ?
		 WHERE status = ?`,
		model.TaskStatusFailed, errorMessage, time.Now().UTC(), model.TaskStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to repair running tasks: %w", err)
	}
	return res.RowsAffected()
}

const taskColumns = `id, task_type, name, user_id, status, progress, total,
	COALESCE(current_item, ''), metadata, result, COALESCE(error_message, ''),
	created_at, started_at, completed_at`

// GetTask returns a snapshot of one task.
func (s *SQLiteStorage) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM background_tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, common.ErrNotFound)
	}
	return task, err
}

// GetRunningTask returns the running task if any, nil otherwise.
func (s *SQLiteStorage) GetRunningTask(ctx context.Context) (*model.Task, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM background_tasks WHERE status = ? LIMIT 1`,
		model.TaskStatusRunning)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

// ListTasks returns the most recent tasks, newest first.
func (s *SQLiteStorage) ListTasks(ctx context.Context, limit int) ([]model.Task, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM background_tasks
		 ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []model.Task
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var (
		task         model.Task
		metadataJSON sql.NullString
		resultJSON   sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)

	err := row.Scan(&task.ID, &task.Type, &task.Name, &task.UserID, &task.Status,
		&task.Progress, &task.Total, &task.CurrentItem, &metadataJSON, &resultJSON,
		&task.ErrorMessage, &task.CreatedAt, &startedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	if startedAt.Valid {
		task.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	if task.Metadata, err = decodeJSON(metadataJSON); err != nil {
		return nil, fmt.Errorf("failed to decode task metadata: %w", err)
	}
	if task.Result, err = decodeJSON(resultJSON); err != nil {
		return nil, fmt.Errorf("failed to decode task result: %w", err)
	}
	return &task, nil
}

func encodeJSON(payload map[string]any) (any, error) {
	if payload == nil {
		return nil, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeJSON(column sql.NullString) (map[string]any, error) {
	if !column.Valid || column.String == "" {
		return nil, nil
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(column.String), &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
