package services_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"catalog-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupScheduler_RunOnce(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	stale := filepath.Join(dir, "stale.csv")
	fresh := filepath.Join(dir, "fresh.csv")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("y"), 0o644))
	require.NoError(t, os.Chtimes(stale, now.Add(-48*time.Hour), now.Add(-48*time.Hour)))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	c := services.NewCleanupScheduler(dir, 24*time.Hour)
	removed, err := c.RunOnce(now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestCleanupScheduler_MissingDir(t *testing.T) {
	c := services.NewCleanupScheduler(filepath.Join(t.TempDir(), "absent"), time.Hour)
	removed, err := c.RunOnce(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestCleanupScheduler_StartStop(t *testing.T) {
	c := services.NewCleanupScheduler(t.TempDir(), time.Hour)
	require.NoError(t, c.Start())
	require.NoError(t, c.Start())
	c.Stop()
	c.Stop()
}
