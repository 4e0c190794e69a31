package services

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryzhenkov/countd/internal/store"
)

func newBackupStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.NewStore(filepath.Join(t.TempDir(), "state.json"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestBackupService_InvalidSchedule(t *testing.T) {
	st := newBackupStore(t)
	svc := NewBackupService(st, t.TempDir(), "not a cron expr", 3)

	err := svc.Start()
	assert.Error(t, err)
}

func TestBackupService_StartupBackup(t *testing.T) {
	st := newBackupStore(t)
	st.Save(store.Snapshot{Seconds: 10, Running: true, LastUpdate: 1})

	destDir := filepath.Join(t.TempDir(), "backups")
	svc := NewBackupService(st, destDir, "0 3 * * *", 3)

	require.NoError(t, svc.Start())
	defer svc.Stop()

	matches, err := filepath.Glob(filepath.Join(destDir, "*.bak"))
	require.NoError(t, err)
	assert.Len(t, matches, 1, "Start should take an immediate backup")
}

func TestBackupService_NoStateFileYet(t *testing.T) {
	st := newBackupStore(t)
	svc := NewBackupService(st, filepath.Join(t.TempDir(), "backups"), "0 3 * * *", 3)

	require.NoError(t, svc.Start())
	svc.Stop()
}
