package models

import (
	"time"

	"github.com/google/uuid"
)

// ImportOptions controls how an import reconciles rows with the catalog.
type ImportOptions struct {
	UpdateExisting     bool       `json:"update_existing"`
	DeleteMissing      bool       `json:"delete_missing"`
	CategoryOverrideID *uuid.UUID `json:"category_id,omitempty"`
}

type JobStatus string

const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusFailed    JobStatus = "failed"
)

// JobProgress is the live view of the running import exposed to pollers.
type JobProgress struct {
	JobID         string    `json:"job_id,omitempty"`
	Status        JobStatus `json:"status"`
	ProcessedRows int       `json:"processed_rows"`
	TotalRows     int       `json:"total_rows"`
	Percentage    int       `json:"percentage"`
	Cancelled     bool      `json:"cancelled"`
}

// JobResult is the outcome of one import run.
type JobResult struct {
	JobID         string    `json:"job_id,omitempty"`
	Status        JobStatus `json:"status"`
	Success       bool      `json:"success"`
	ImportedCount int       `json:"imported"`
	UpdatedCount  int       `json:"updated"`
	SkippedCount  int       `json:"skipped"`
	DeletedCount  int       `json:"deleted"`
	Errors        []string  `json:"errors"`
	Warnings      []string  `json:"warnings"`
	Message       string    `json:"message"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Changed reports whether the run created, updated or deleted any product.
func (r *JobResult) Changed() bool {
	return r.ImportedCount > 0 || r.UpdatedCount > 0 || r.DeletedCount > 0
}

// ImportJobRecord is the queued job metadata kept in Redis.
type ImportJobRecord struct {
	ID        string        `json:"id"`
	Status    JobStatus     `json:"status"`
	FilePath  string        `json:"file_path"`
	Extension string        `json:"extension"`
	Options   ImportOptions `json:"options"`
	CreatedAt time.Time     `json:"created_at"`
	Error     string        `json:"error,omitempty"`
	Result    *JobResult    `json:"result,omitempty"`
}

// ImportCompletedEvent is published to SNS when an import finishes.
type ImportCompletedEvent struct {
	EventType  string    `json:"event_type"`
	JobID      string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	Imported   int       `json:"imported"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Deleted    int       `json:"deleted"`
	ErrorCount int       `json:"error_count"`
	CategoryID string    `json:"category_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
