package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "timer_state.json")
	st, err := NewStore(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestLoad_MissingFile(t *testing.T) {
	st := newTestStore(t)

	_, ok := st.Load()
	assert.False(t, ok, "missing file must load as absent, not fail")
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	st := newTestStore(t)

	want := Snapshot{Seconds: 90, Running: true, LastUpdate: 1748779200.5}
	st.Save(want)

	got, ok := st.Load()
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestSave_OverwritesWholeFile(t *testing.T) {
	st := newTestStore(t)

	st.Save(Snapshot{Seconds: 100, Running: true, LastUpdate: 1})
	st.Save(Snapshot{Seconds: 5, Running: false, LastUpdate: 2})

	got, ok := st.Load()
	require.True(t, ok)
	assert.Equal(t, 5, got.Seconds)
	assert.False(t, got.Running)

	// Exactly one JSON document on disk
	data, err := os.ReadFile(st.Path())
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
}

func TestLoad_CorruptFile(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, os.WriteFile(st.Path(), []byte("{not json"), 0600))

	_, ok := st.Load()
	assert.False(t, ok, "corrupt file must load as absent")
}

func TestLoad_NegativeSecondsRejected(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, os.WriteFile(st.Path(), []byte(`{"seconds":-7,"running":false,"last_update":0}`), 0600))

	_, ok := st.Load()
	assert.False(t, ok)
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "state.json")

	st, err := NewStore(path, nil)
	require.NoError(t, err)
	defer st.Close()

	st.Save(Snapshot{Seconds: 1})
	_, ok := st.Load()
	assert.True(t, ok)
}

func TestNewStore_LockConflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	first, err := NewStore(path, nil)
	require.NoError(t, err)
	defer first.Close()

	_, err = NewStore(path, nil)
	assert.Error(t, err, "a second store on the same file must be refused")
}

func TestBackup_MissingStateFile(t *testing.T) {
	st := newTestStore(t)

	path, err := st.Backup(filepath.Join(t.TempDir(), "backups"), 3)
	require.NoError(t, err)
	assert.Empty(t, path, "nothing to back up is not an error")
}

func TestBackup_CopiesState(t *testing.T) {
	st := newTestStore(t)
	st.Save(Snapshot{Seconds: 30, Running: true, LastUpdate: 42})

	destDir := filepath.Join(t.TempDir(), "backups")
	backupPath, err := st.Backup(destDir, 3)
	require.NoError(t, err)
	require.NotEmpty(t, backupPath)

	data, err := os.ReadFile(backupPath)
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, 30, snap.Seconds)
	assert.True(t, snap.Running)
}

func TestBackup_PrunesOldCopies(t *testing.T) {
	st := newTestStore(t)
	st.Save(Snapshot{Seconds: 1})

	destDir := filepath.Join(t.TempDir(), "backups")

	// Backups are named by timestamp with second precision, so seed
	// distinct files directly to exercise pruning.
	base := filepath.Base(st.Path())
	for _, stamp := range []string{"20250101-010101", "20250102-010101", "20250103-010101"} {
		name := base + "." + stamp + ".bak"
		require.NoError(t, os.MkdirAll(destDir, 0700))
		require.NoError(t, os.WriteFile(filepath.Join(destDir, name), []byte("{}"), 0600))
	}

	_, err := st.Backup(destDir, 2)
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(destDir, base+".*.bak"))
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}
