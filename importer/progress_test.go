package importer_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"catalog-service/importer"
	"catalog-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, importer.Percentage(0, 0))
	assert.Equal(t, 0, importer.Percentage(5, 0))
	assert.Equal(t, 33, importer.Percentage(1, 3))
	assert.Equal(t, 67, importer.Percentage(2, 3))
	assert.Equal(t, 100, importer.Percentage(3, 3))
	assert.Equal(t, 100, importer.Percentage(9, 3))
	assert.Equal(t, 0, importer.Percentage(-1, 3))
}

func TestProgressRegistry_Lifecycle(t *testing.T) {
	r := importer.NewProgressRegistry()
	assert.Equal(t, models.JobStatusIdle, r.Snapshot().Status)
	assert.False(t, r.Cancel(), "cancel while idle is a no-op")
	assert.False(t, r.Cancelled())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.TryStart("job-1", cancel))
	assert.True(t, errors.Is(r.TryStart("job-2", nil), importer.ErrJobRunning))

	r.SetTotal(2)
	r.Advance()
	r.Advance()
	r.Advance()
	snap := r.Snapshot()
	assert.Equal(t, "job-1", snap.JobID)
	assert.Equal(t, 2, snap.ProcessedRows)
	assert.Equal(t, 100, snap.Percentage)

	assert.True(t, r.Cancel())
	assert.True(t, r.Cancel())
	assert.True(t, r.Cancelled())
	assert.Error(t, ctx.Err())

	r.Finish(models.JobStatusCancelled)
	assert.False(t, r.Running())
	assert.False(t, r.Cancel())

	require.NoError(t, r.TryStart("job-3", nil))
	snap = r.Snapshot()
	assert.Equal(t, 0, snap.ProcessedRows)
	assert.Equal(t, 0, snap.TotalRows)
	assert.False(t, snap.Cancelled)
}

func TestProgressRegistry_ConcurrentAccess(t *testing.T) {
	r := importer.NewProgressRegistry()
	require.NoError(t, r.TryStart("job", func() {}))
	r.SetTotal(1000)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			r.Advance()
		}
	}()
	go func() {
		defer wg.Done()
		last := 0
		for i := 0; i < 1000; i++ {
			p := r.Snapshot().ProcessedRows
			assert.GreaterOrEqual(t, p, last)
			last = p
		}
	}()
	wg.Wait()

	assert.Equal(t, 1000, r.Snapshot().ProcessedRows)
}
