package services

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/ryzhenkov/countd/internal/logger"
	"github.com/ryzhenkov/countd/internal/store"
)

// BackupService copies the state file to a backup directory on a cron
// schedule and prunes old copies.
type BackupService struct {
	store    *store.Store
	cron     *cron.Cron
	destDir  string
	keep     int
	schedule string
}

// NewBackupService creates a backup service. schedule is a standard
// five-field cron expression.
func NewBackupService(st *store.Store, destDir, schedule string, keep int) *BackupService {
	return &BackupService{
		store:    st,
		cron:     cron.New(),
		destDir:  destDir,
		keep:     keep,
		schedule: schedule,
	}
}

// Start validates the schedule, runs one backup immediately, and begins
// the cron loop.
func (s *BackupService) Start() error {
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %v", s.schedule, err)
	}

	if path, err := s.store.Backup(s.destDir, s.keep); err != nil {
		logger.Errorf("Startup backup failed: %v", err)
	} else if path != "" {
		logger.Infof("State backup created: %s", path)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		if path, err := s.store.Backup(s.destDir, s.keep); err != nil {
			logger.Errorf("Scheduled backup failed: %v", err)
		} else if path != "" {
			logger.Debugf("Scheduled state backup created: %s", path)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	logger.Infof("Backup service started (schedule: %q, dir: %s, keep: %d)", s.schedule, s.destDir, s.keep)
	return nil
}

// Stop halts the cron scheduler. Running jobs finish on their own.
func (s *BackupService) Stop() {
	s.cron.Stop()
}
