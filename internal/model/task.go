package model

import "time"

// TaskStatus indicates where a background task is in its lifecycle.
type TaskStatus string

// Task status constants. The only legal transitions are
// pending -> running -> completed|failed.
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// TaskTypeAutoClassify is the task type for a classification sweep.
const TaskTypeAutoClassify = "auto_classify"

// Task is the durable record of one background job. At most one row may be
// in the running state system-wide at any time.
type Task struct {
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	Type         string
	Name         string
	Status       TaskStatus
	CurrentItem  string
	ErrorMessage string
	Result       map[string]any
	Metadata     map[string]any
	ID           int64
	Progress     int
	Total        int
	UserID       int64
}

// Terminal reports whether the task has finished, successfully or not.
func (t *Task) Terminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}
