package importer

import (
	"context"
	"math"
	"sync"

	"catalog-service/models"
)

// ProgressRegistry holds the state of the one import that may run at a time.
// The running job writes to it, the poller reads it and a cancel request flips
// the cancelled flag. It is safe for concurrent use.
type ProgressRegistry struct {
	mu        sync.RWMutex
	jobID     string
	status    models.JobStatus
	processed int
	total     int
	cancelled bool
	cancel    context.CancelFunc
}

func NewProgressRegistry() *ProgressRegistry {
	return &ProgressRegistry{status: models.JobStatusIdle}
}

// TryStart claims the registry for a new job and resets its counters.
// It fails with ErrJobRunning while another job holds it.
func (r *ProgressRegistry) TryStart(jobID string, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == models.JobStatusRunning {
		return ErrJobRunning
	}
	r.jobID = jobID
	r.status = models.JobStatusRunning
	r.processed = 0
	r.total = 0
	r.cancelled = false
	r.cancel = cancel
	return nil
}

func (r *ProgressRegistry) SetTotal(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if total < 0 {
		total = 0
	}
	r.total = total
	if r.processed > total {
		r.processed = total
	}
}

// Advance marks one more row as processed.
func (r *ProgressRegistry) Advance() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.processed < r.total {
		r.processed++
	}
}

// Finish records the terminal status and releases the registry.
func (r *ProgressRegistry) Finish(status models.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	r.cancel = nil
}

// Cancel asks the running job to stop at its next checkpoint. It reports
// whether a job was running; calling it when idle or finished does nothing.
func (r *ProgressRegistry) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != models.JobStatusRunning {
		return false
	}
	r.cancelled = true
	if r.cancel != nil {
		r.cancel()
	}
	return true
}

func (r *ProgressRegistry) Cancelled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cancelled
}

func (r *ProgressRegistry) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status == models.JobStatusRunning
}

func (r *ProgressRegistry) Snapshot() models.JobProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.JobProgress{
		JobID:         r.jobID,
		Status:        r.status,
		ProcessedRows: r.processed,
		TotalRows:     r.total,
		Percentage:    Percentage(r.processed, r.total),
		Cancelled:     r.cancelled,
	}
}

// Percentage is round(100*processed/total) clamped to [0, 100].
func Percentage(processed, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(processed) / float64(total)))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
