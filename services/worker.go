package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"catalog-service/importer"
	"catalog-service/models"

	"go.uber.org/zap"
)

// Worker consumes job IDs from the queue and runs the stored uploads one at a time.
type Worker struct {
	queue       JobQueue
	svc         *ImportService
	pollTimeout time.Duration
	retryDelay  time.Duration
}

func NewWorker(queue JobQueue, svc *ImportService) *Worker {
	return &Worker{
		queue:       queue,
		svc:         svc,
		pollTimeout: 5 * time.Second,
		retryDelay:  2 * time.Second,
	}
}

// Start runs the consume loop in a goroutine until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	if w.queue == nil || w.svc == nil {
		zap.L().Warn("import worker not started: missing dependencies")
		return
	}
	go w.run(ctx)
}

func (w *Worker) run(ctx context.Context) {
	zap.L().Info("import worker started", zap.String("queue", ImportQueueKey))
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("import worker stopping")
			return
		default:
		}

		if _, err := w.ProcessNext(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			zap.L().Error("import queue pop failed", zap.Error(err))
			w.sleep(ctx, 500*time.Millisecond)
		}
	}
}

// ProcessNext waits for one job ID and runs it. It reports whether a job was taken.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	jobID, err := w.queue.Dequeue(ctx, w.pollTimeout)
	if err != nil {
		return false, err
	}
	if jobID == "" {
		return false, nil
	}
	w.process(ctx, jobID)
	return true, nil
}

// process runs one queued job. A job that meets another running import goes
// back to the head of the queue.
func (w *Worker) process(ctx context.Context, jobID string) {
	log := zap.L().With(zap.String("job_id", jobID))
	storeCtx := context.WithoutCancel(ctx)

	rec, err := w.queue.Get(storeCtx, jobID)
	if err != nil {
		log.Error("failed to read job metadata", zap.Error(err))
		return
	}
	if rec.Status != models.JobStatusPending {
		log.Warn("skipping job that is not pending", zap.String("status", string(rec.Status)))
		return
	}

	f, err := os.Open(filepath.Clean(rec.FilePath))
	if err != nil {
		log.Error("failed to open job file", zap.String("path", rec.FilePath), zap.Error(err))
		rec.Status = models.JobStatusFailed
		rec.Error = err.Error()
		w.save(storeCtx, rec)
		return
	}
	defer f.Close()

	rec.Status = models.JobStatusRunning
	w.save(storeCtx, rec)

	res, err := w.svc.Import(ctx, rec.ID, f, rec.Extension, rec.Options)
	if errors.Is(err, importer.ErrJobRunning) {
		log.Info("another import is running, job requeued")
		rec.Status = models.JobStatusPending
		w.save(storeCtx, rec)
		if err := w.queue.Requeue(storeCtx, rec.ID); err != nil {
			log.Error("failed to requeue job", zap.Error(err))
		}
		w.sleep(ctx, w.retryDelay)
		return
	}

	rec.Result = res
	if res != nil {
		rec.Status = res.Status
	}
	if err != nil {
		log.Error("import job failed", zap.Error(err))
		rec.Error = err.Error()
		rec.Status = models.JobStatusFailed
	}
	w.save(storeCtx, rec)

	f.Close()
	if err := os.Remove(rec.FilePath); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove job file", zap.Error(err))
	}
}

func (w *Worker) save(ctx context.Context, rec *models.ImportJobRecord) {
	if err := w.queue.Save(ctx, rec); err != nil {
		zap.L().Error("failed to store job status", zap.String("job_id", rec.ID), zap.Error(err))
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
