package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ryzhenkov/countd/internal/api"
	"github.com/ryzhenkov/countd/internal/clock"
	"github.com/ryzhenkov/countd/internal/config"
	"github.com/ryzhenkov/countd/internal/eventbus"
	"github.com/ryzhenkov/countd/internal/logger"
	"github.com/ryzhenkov/countd/internal/metrics"
	"github.com/ryzhenkov/countd/internal/notifier"
	"github.com/ryzhenkov/countd/internal/services"
	"github.com/ryzhenkov/countd/internal/store"
	"github.com/ryzhenkov/countd/internal/timer"
)

func main() {
	// Define command line flags (these override environment variables)
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.BoolVar(showVersion, "v", false, "Print version and exit (shorthand)")

	// Configuration flags - all can also be set via environment variables (COUNTD_*)
	flagPort := flag.String("port", "", "HTTP server port (env: COUNTD_PORT, default: 8090)")
	flagLogLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (env: COUNTD_LOG_LEVEL, default: info)")
	flagDataDir := flag.String("data-dir", "", "Data directory path (env: COUNTD_DATA_DIR)")
	flagStateFile := flag.String("state-file", "", "Timer state file path (env: COUNTD_STATE_FILE)")
	flagTickInterval := flag.Duration("tick-interval", 0, "Scheduler tick interval (env: COUNTD_TICK_INTERVAL, default: 1s)")
	flagBackupSchedule := flag.String("backup-schedule", "", "Cron expression for state backups (env: COUNTD_BACKUP_SCHEDULE, default: 0 3 * * *)")
	flagBackupKeep := flag.Int("backup-keep", 0, "Number of state backups to retain (env: COUNTD_BACKUP_KEEP, default: 7)")
	flagNotifyURLs := flag.String("notify-urls", "", "Comma-separated shoutrrr URLs for expiry alerts (env: COUNTD_NOTIFY_URLS)")

	flag.Parse()

	if *showVersion {
		fmt.Printf("countd %s\n", config.Version)
		os.Exit(0)
	}

	config.Load()
	config.ApplyFlags(config.FlagOverrides{
		Port:           flagPort,
		LogLevel:       flagLogLevel,
		DataDir:        flagDataDir,
		StateFilePath:  flagStateFile,
		TickInterval:   flagTickInterval,
		BackupSchedule: flagBackupSchedule,
		BackupKeep:     flagBackupKeep,
		NotifyURLs:     flagNotifyURLs,
	})
	cfg := config.Get()

	logger.Init(cfg.LogDir)
	logger.SetLevel(cfg.LogLevel)

	logger.Infof("Starting countd %s...", config.Version)
	logger.Infof("Configuration:")
	logger.Infof("  Port: %s", cfg.Port)
	logger.Infof("  Log Level: %s", cfg.LogLevel)
	logger.Infof("  Data Directory: %s", cfg.DataDir)
	logger.Infof("  State File: %s", cfg.StateFilePath)
	logger.Infof("  Tick Interval: %s", cfg.TickInterval)
	logger.Infof("  Backup Schedule: %q (keep %d)", cfg.BackupSchedule, cfg.BackupKeep)
	if len(cfg.NotifyURLs) > 0 {
		logger.Infof("  Expiry Notifications: %d provider(s)", len(cfg.NotifyURLs))
	}

	// Event bus connects the timer to metrics and notifications
	eb := eventbus.NewEventBus()

	// Persistent store owns the state file and its lock
	st, err := store.NewStore(cfg.StateFilePath, eb)
	if err != nil {
		logger.Errorf("Failed to open state store: %v", err)
		os.Exit(1)
	}
	defer st.Close()

	// Restore the timer, reconciling time elapsed while we were down
	clk := clock.NewRealClock()
	var tm *timer.Timer
	if snap, ok := st.Load(); ok {
		tm = timer.Restore(clk, eb, snap)
		restored := tm.Snapshot()
		logger.Infof("✓ Restored timer state: %ds remaining, running=%v", restored.Seconds, restored.Running)
	} else {
		tm = timer.New(clk, eb)
		logger.Infof("✓ No saved state, starting fresh")
	}
	st.Save(tm.Snapshot())

	// Metrics
	metricsService := metrics.NewMetricsService(eb)
	metricsService.Start()
	logger.Infof("✓ Metrics service (Prometheus endpoint at /metrics)")

	// Expiry notifications
	notifierService := notifier.New(eb, cfg.NotifyURLs)
	notifierService.Start()

	// Push hub
	hub := api.NewWebSocketHub(tm, eb)
	logger.Infof("✓ WebSocket hub")

	// Tick scheduler
	tickerService := services.NewTickerService(tm, st, hub, clk, metricsService, cfg.TickInterval)
	tickerService.Start()

	// Scheduled state backups
	backupService := services.NewBackupService(st, cfg.BackupDir, cfg.BackupSchedule, cfg.BackupKeep)
	if err := backupService.Start(); err != nil {
		logger.Errorf("Failed to start backup service: %v", err)
		// Non-fatal - continue without scheduled backups
	}

	// HTTP server
	apiServer := api.NewRESTServer(api.ServerDeps{
		Timer:   tm,
		Store:   st,
		Hub:     hub,
		Metrics: metricsService,
	})
	go func() {
		addr := ":" + cfg.Port
		if err := apiServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Failed to start API server: %v", err)
			os.Exit(1)
		}
	}()

	logger.Infof("✓ countd %s started, listening on port %s", config.Version, cfg.Port)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Infof("Received signal %v, initiating graceful shutdown...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	// Shutdown in reverse order of startup: stop the scheduler first so no
	// tick is cut off mid-persist, then drain HTTP, then close the rest.
	tickerService.Shutdown()
	backupService.Stop()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API server shutdown error: %v", err)
	}

	hub.Shutdown()
	eb.Shutdown()

	st.Save(tm.Snapshot())
	if err := st.Close(); err != nil {
		logger.Errorf("Failed to release state file lock: %v", err)
	}

	logger.Infof("✓ countd shutdown complete")
}
