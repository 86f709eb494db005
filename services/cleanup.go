package services

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// DefaultUploadMaxAge matches the job record TTL: an upload older than its
// record can no longer be picked up by the worker.
const DefaultUploadMaxAge = ImportJobTTL

// CleanupScheduler periodically removes stale uploads from the storage dir.
type CleanupScheduler struct {
	scheduler *gocron.Scheduler
	dir       string
	maxAge    time.Duration
	mu        sync.Mutex
	started   bool
}

func NewCleanupScheduler(dir string, maxAge time.Duration) *CleanupScheduler {
	if dir == "" {
		dir = DefaultStorageDir
	}
	if maxAge <= 0 {
		maxAge = DefaultUploadMaxAge
	}
	return &CleanupScheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		dir:       dir,
		maxAge:    maxAge,
	}
}

// Start registers the hourly sweep and starts the scheduler.
func (c *CleanupScheduler) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	_, err := c.scheduler.Every(1).Hour().Do(func() {
		removed, err := c.RunOnce(time.Now())
		if err != nil {
			zap.L().Warn("Upload cleanup failed", zap.String("dir", c.dir), zap.Error(err))
			return
		}
		if removed > 0 {
			zap.L().Info("Removed stale uploads", zap.Int("count", removed), zap.String("dir", c.dir))
		}
	})
	if err != nil {
		return err
	}
	c.scheduler.StartAsync()
	c.started = true
	return nil
}

func (c *CleanupScheduler) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return
	}
	c.scheduler.Stop()
	c.started = false
}

// RunOnce deletes regular files modified before now-maxAge and returns how
// many were removed. A missing directory is not an error.
func (c *CleanupScheduler) RunOnce(now time.Time) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	cutoff := now.Add(-c.maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			zap.L().Warn("Failed to remove stale upload", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}
