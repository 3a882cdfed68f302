package model

import (
	"encoding/json"
	"time"
)

// TaskStatus tracks an accepted command through asynchronous execution
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task is a generation command accepted for a device
type Task struct {
	TaskID    string          `json:"task_id"`
	DeviceID  string          `json:"device_id"`
	Type      string          `json:"type"`
	Params    json.RawMessage `json:"params,omitempty"`
	Status    TaskStatus      `json:"status"`
	Progress  int             `json:"progress"`
	Result    *TaskResult     `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TaskResult is the outcome of a successful generation
type TaskResult struct {
	Content     string `json:"content,omitempty"`
	ArtifactURL string `json:"artifact_url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}
