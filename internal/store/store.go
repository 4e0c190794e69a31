// Package store persists the timer snapshot as a single JSON blob on disk.
// Persistence is best-effort: a failed save degrades durability, never
// availability, so Save logs and swallows errors while the in-memory state
// stays authoritative.
package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"

	"github.com/ryzhenkov/countd/internal/domain"
	"github.com/ryzhenkov/countd/internal/eventbus"
	"github.com/ryzhenkov/countd/internal/logger"
)

// Snapshot is the on-disk projection of the timer state.
// LastUpdate is wall-clock seconds since the Unix epoch.
type Snapshot struct {
	Seconds    int     `json:"seconds"`
	Running    bool    `json:"running"`
	LastUpdate float64 `json:"last_update"`
}

// Store owns the state file. The file is written whole on every save
// (temp file + rename) and guarded by an advisory lock so two daemons
// cannot share one state file.
type Store struct {
	path     string
	fileLock *flock.Flock
	eventBus eventbus.Publisher
}

// NewStore opens the store at the given path, creating the parent directory
// and acquiring the advisory lock. The event bus may be nil.
func NewStore(path string, eb eventbus.Publisher) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	fileLock := flock.New(path + ".lock")
	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock state file: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("state file %s is locked by another process", path)
	}

	return &Store{path: path, fileLock: fileLock, eventBus: eb}, nil
}

// Load reads the snapshot from disk. The second return value is false when
// the file is absent or malformed; corruption must never prevent startup,
// so the caller defaults to fresh state instead of failing.
func (s *Store) Load() (Snapshot, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("Failed to read state file %s: %v", s.path, err)
		}
		return Snapshot{}, false
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Warnf("State file %s is corrupt, starting fresh: %v", s.path, err)
		return Snapshot{}, false
	}
	if snap.Seconds < 0 {
		logger.Warnf("State file %s holds negative seconds (%d), starting fresh", s.path, snap.Seconds)
		return Snapshot{}, false
	}

	return snap, true
}

// Save writes the snapshot, overwriting the whole file. Errors are logged
// and swallowed; the in-memory state remains the source of truth.
func (s *Store) Save(snap Snapshot) {
	if err := s.write(snap); err != nil {
		logger.Errorf("Failed to save timer state: %v", err)
		if s.eventBus != nil {
			s.eventBus.Publish(domain.Event{
				EventType: domain.SnapshotSaveFailed,
				EventData: map[string]interface{}{"error": err.Error()},
			})
		}
	}
}

func (s *Store) write(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// Write to a temp file in the same directory, then rename over the
	// target so readers never observe a partial file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Backup copies the current state file into destDir with a timestamped name
// and prunes old backups beyond keep. A missing state file is not an error.
func (s *Store) Backup(destDir string, keep int) (string, error) {
	src, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to open state file: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(destDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("%s.%s.bak", filepath.Base(s.path), time.Now().Format("20060102-150405"))
	backupPath := filepath.Join(destDir, name)

	dst, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to copy state file: %w", err)
	}

	s.pruneBackups(destDir, keep)
	return backupPath, nil
}

// pruneBackups removes the oldest backups so at most keep remain.
func (s *Store) pruneBackups(destDir string, keep int) {
	if keep <= 0 {
		return
	}

	pattern := filepath.Join(destDir, filepath.Base(s.path)+".*.bak")
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) <= keep {
		return
	}

	// Timestamped names sort chronologically.
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-keep] {
		if err := os.Remove(old); err != nil {
			logger.Debugf("Failed to prune backup %s: %v", old, err)
		}
	}
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the advisory lock on the state file.
func (s *Store) Close() error {
	if s.fileLock == nil {
		return nil
	}
	return s.fileLock.Unlock()
}
