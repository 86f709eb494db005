package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"catalog-service/importer"
	"catalog-service/models"
	awspkg "catalog-service/pkg/aws"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventImportCompleted is the SNS event type sent after every finished import.
const EventImportCompleted = "import.completed"

// DefaultStorageDir holds uploaded files waiting for the worker.
const DefaultStorageDir = "./data/bulk_imports"

// Runner executes import jobs. *importer.Importer is the production implementation.
type Runner interface {
	Run(ctx context.Context, jobID string, r io.Reader, ext string, opts models.ImportOptions) (*models.JobResult, error)
	Registry() *importer.ProgressRegistry
}

// EventPublisher sends domain events to a topic.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topicArn, eventType string, event interface{}) error
}

// ImportServiceDeps wires an ImportService. Only Runner is required.
type ImportServiceDeps struct {
	Runner     Runner
	Queue      JobQueue
	Cache      CacheInvalidator
	Events     EventPublisher
	TopicArn   string
	Metrics    *awspkg.MetricsClient
	StorageDir string
}

// ImportService runs catalog imports synchronously or through the job queue
// and fans the outcome out to the cache, CloudWatch and SNS.
type ImportService struct {
	runner     Runner
	queue      JobQueue
	cache      CacheInvalidator
	events     EventPublisher
	topicArn   string
	metrics    *awspkg.MetricsClient
	storageDir string
}

func NewImportService(d ImportServiceDeps) *ImportService {
	dir := d.StorageDir
	if dir == "" {
		dir = DefaultStorageDir
	}
	return &ImportService{
		runner:     d.Runner,
		queue:      d.Queue,
		cache:      d.Cache,
		events:     d.Events,
		topicArn:   d.TopicArn,
		metrics:    d.Metrics,
		storageDir: dir,
	}
}

// Import runs one job to completion. The result is nil only when the job
// could not start because another import holds the registry.
func (s *ImportService) Import(ctx context.Context, jobID string, r io.Reader, ext string, opts models.ImportOptions) (*models.JobResult, error) {
	res, err := s.runner.Run(ctx, jobID, r, ext, opts)
	if res == nil {
		return nil, err
	}
	s.afterImport(context.WithoutCancel(ctx), res, opts)
	return res, err
}

// Enqueue stores the upload on disk and queues it for the background worker.
func (s *ImportService) Enqueue(ctx context.Context, r io.Reader, ext string, opts models.ImportOptions) (*models.ImportJobRecord, error) {
	if s.queue == nil {
		return nil, ErrQueueUnavailable
	}
	ext = importer.NormalizeExt(ext)
	if _, err := importer.DecoderFor(ext); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	id := uuid.NewString()
	path := filepath.Join(s.storageDir, id+ext)
	if err := writeUpload(path, r); err != nil {
		return nil, err
	}

	rec := &models.ImportJobRecord{
		ID:        id,
		Status:    models.JobStatusPending,
		FilePath:  path,
		Extension: ext,
		Options:   opts,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, rec); err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	zap.L().Info("Import job queued", zap.String("job_id", id), zap.String("extension", ext))
	return rec, nil
}

func writeUpload(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("save upload: %w", err)
	}
	return f.Close()
}

// Job returns the stored record of a queued import.
func (s *ImportService) Job(ctx context.Context, id string) (*models.ImportJobRecord, error) {
	if s.queue == nil {
		return nil, ErrQueueUnavailable
	}
	return s.queue.Get(ctx, id)
}

func (s *ImportService) Progress() models.JobProgress {
	return s.runner.Registry().Snapshot()
}

// Cancel asks the running job to stop and reports whether one was running.
func (s *ImportService) Cancel() bool {
	return s.runner.Registry().Cancel()
}

func (s *ImportService) Preview(r io.Reader, ext string) (*importer.PreviewResult, error) {
	return importer.Preview(r, ext)
}

func (s *ImportService) afterImport(ctx context.Context, res *models.JobResult, opts models.ImportOptions) {
	if res.Changed() && s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			zap.L().Error("Failed to invalidate catalog cache after import", zap.String("job_id", res.JobID), zap.Error(err))
		}
	}
	s.recordMetrics(ctx, res)
	s.publishCompleted(ctx, res, opts)
}

func (s *ImportService) recordMetrics(ctx context.Context, res *models.JobResult) {
	dims := map[string]string{"Status": string(res.Status)}
	counts := map[string]int{
		awspkg.MetricProductsImported:  res.ImportedCount,
		awspkg.MetricProductsUpdated:   res.UpdatedCount,
		awspkg.MetricProductsDeleted:   res.DeletedCount,
		awspkg.MetricImportRowsSkipped: res.SkippedCount,
		awspkg.MetricImportRowErrors:   len(res.Errors),
	}
	if err := s.metrics.RecordCounts(ctx, counts, dims); err != nil {
		zap.L().Warn("Failed to send import metrics", zap.Error(err))
	}
	if res.Status == models.JobStatusFailed {
		if err := s.metrics.RecordCount(ctx, awspkg.MetricImportFailures, dims); err != nil {
			zap.L().Warn("Failed to send import failure metric", zap.Error(err))
		}
	}
	if !res.FinishedAt.IsZero() {
		if err := s.metrics.RecordLatency(ctx, awspkg.MetricImportDuration, res.FinishedAt.Sub(res.StartedAt), dims); err != nil {
			zap.L().Warn("Failed to send import duration metric", zap.Error(err))
		}
	}
}

func (s *ImportService) publishCompleted(ctx context.Context, res *models.JobResult, opts models.ImportOptions) {
	if s.events == nil || s.topicArn == "" {
		return
	}
	event := models.ImportCompletedEvent{
		EventType:  EventImportCompleted,
		JobID:      res.JobID,
		Status:     res.Status,
		Imported:   res.ImportedCount,
		Updated:    res.UpdatedCount,
		Skipped:    res.SkippedCount,
		Deleted:    res.DeletedCount,
		ErrorCount: len(res.Errors),
		Timestamp:  time.Now().UTC(),
	}
	if opts.CategoryOverrideID != nil {
		event.CategoryID = opts.CategoryOverrideID.String()
	}
	if err := s.events.PublishEvent(ctx, s.topicArn, EventImportCompleted, event); err != nil {
		zap.L().Error("Failed to publish import event", zap.String("job_id", res.JobID), zap.Error(err))
	}
}
