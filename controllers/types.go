package controllers

import (
	"context"
	"io"
	"time"

	"catalog-service/importer"
	"catalog-service/models"
)

// Default configuration values
const (
	DefaultContextTimeout = 30 * time.Second
	StatusLookupTimeout   = 5 * time.Second
)

// ImportServiceAPI defines the import operations exposed over HTTP
type ImportServiceAPI interface {
	Import(ctx context.Context, jobID string, r io.Reader, ext string, opts models.ImportOptions) (*models.JobResult, error)
	Enqueue(ctx context.Context, r io.Reader, ext string, opts models.ImportOptions) (*models.ImportJobRecord, error)
	Job(ctx context.Context, id string) (*models.ImportJobRecord, error)
	Progress() models.JobProgress
	Cancel() bool
	Preview(r io.Reader, ext string) (*importer.PreviewResult, error)
}

// QueuedJobResponse is returned when an upload is accepted for background processing
type QueuedJobResponse struct {
	JobID   string           `json:"job_id"`
	Status  models.JobStatus `json:"status"`
	Message string           `json:"message"`
}

// FailedImportResponse carries the partial result of an import that failed as a whole
type FailedImportResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Result  *models.JobResult `json:"result"`
}
