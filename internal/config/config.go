package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
// Default "dev" is used for development builds
var Version = "dev"

// Config holds all application configuration loaded from environment variables.
// All fields have sensible defaults if environment variables are not set.
type Config struct {
	// Port is the HTTP server listen port (default: 8090)
	Port string

	// LogLevel controls logging verbosity: "debug", "info", "warn", "error" (default: "info")
	LogLevel string

	// TickInterval is how often the scheduler advances and broadcasts the
	// timer (default: 1s). Accuracy is best-effort.
	TickInterval time.Duration

	// DataDir is the directory for persistent data (state file, logs, backups)
	DataDir string

	// StateFilePath is where the timer snapshot lives (default: <DataDir>/timer_state.json)
	StateFilePath string

	// LogDir is the directory for log files (default: <DataDir>/logs)
	LogDir string

	// BackupDir is where state-file backups go (default: <DataDir>/backups)
	BackupDir string

	// BackupSchedule is a five-field cron expression for state backups (default: daily at 3 AM)
	BackupSchedule string

	// BackupKeep is how many backups to retain (default: 7)
	BackupKeep int

	// NotifyURLs are shoutrrr provider URLs alerted when the countdown
	// reaches zero; empty disables notifications
	NotifyURLs []string

	// CORSOrigin configures allowed cross-origin callers: empty for
	// same-origin only, "*" for any, or a comma-separated list
	CORSOrigin string
}

// Global singleton
var cfg *Config

// Load reads configuration from a .env file (if present) and environment
// variables with sensible defaults. Should be called once at startup.
func Load() *Config {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	dataDir := getEnvOrDefault("COUNTD_DATA_DIR", "")
	if dataDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			dataDir = filepath.Join(cwd, "data")
		} else {
			dataDir = "./data"
		}
	}
	if absDataDir, err := filepath.Abs(dataDir); err == nil {
		dataDir = absDataDir
	}

	statePath := getEnvOrDefault("COUNTD_STATE_FILE", "")
	if statePath == "" {
		statePath = filepath.Join(dataDir, "timer_state.json")
	}

	cfg = &Config{
		Port:           getEnvOrDefault("COUNTD_PORT", "8090"),
		LogLevel:       strings.ToLower(getEnvOrDefault("COUNTD_LOG_LEVEL", "info")),
		TickInterval:   getEnvDurationOrDefault("COUNTD_TICK_INTERVAL", time.Second),
		DataDir:        dataDir,
		StateFilePath:  statePath,
		LogDir:         filepath.Join(dataDir, "logs"),
		BackupDir:      filepath.Join(dataDir, "backups"),
		BackupSchedule: getEnvOrDefault("COUNTD_BACKUP_SCHEDULE", "0 3 * * *"),
		BackupKeep:     getEnvIntOrDefault("COUNTD_BACKUP_KEEP", 7),
		NotifyURLs:     splitList(os.Getenv("COUNTD_NOTIFY_URLS")),
		CORSOrigin:     os.Getenv("COUNTD_CORS_ORIGIN"),
	}

	// Validate log level
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		cfg.LogLevel = "info"
	}

	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}

	return cfg
}

// Get returns the current configuration. Panics if Load() hasn't been called.
func Get() *Config {
	if cfg == nil {
		panic("config.Load() must be called before config.Get()")
	}
	return cfg
}

// SetForTesting allows tests to set the global config without calling Load().
// This should ONLY be used in test code.
func SetForTesting(c *Config) {
	cfg = c
}

// NewTestConfig returns a minimal Config suitable for unit tests.
func NewTestConfig() *Config {
	return &Config{
		Port:           "8080",
		LogLevel:       "debug",
		TickInterval:   time.Second,
		DataDir:        "/tmp/countd-test",
		StateFilePath:  "/tmp/countd-test/timer_state.json",
		LogDir:         "/tmp/countd-test/logs",
		BackupDir:      "/tmp/countd-test/backups",
		BackupSchedule: "0 3 * * *",
		BackupKeep:     7,
	}
}

// FlagOverrides holds command-line flag values that can override environment variables
type FlagOverrides struct {
	Port           *string
	LogLevel       *string
	TickInterval   *time.Duration
	DataDir        *string
	StateFilePath  *string
	BackupSchedule *string
	BackupKeep     *int
	NotifyURLs     *string
}

// ApplyFlags applies command-line flag overrides to the configuration.
// Should be called after Load() and after flag parsing.
// Only non-nil values with non-default flag values will override.
func ApplyFlags(flags FlagOverrides) {
	if cfg == nil {
		return
	}

	if flags.Port != nil && *flags.Port != "" {
		cfg.Port = *flags.Port
	}
	if flags.LogLevel != nil && *flags.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(*flags.LogLevel)
	}
	if flags.TickInterval != nil && *flags.TickInterval != 0 {
		cfg.TickInterval = *flags.TickInterval
	}
	if flags.DataDir != nil && *flags.DataDir != "" {
		dataDir := *flags.DataDir
		if abs, err := filepath.Abs(dataDir); err == nil {
			dataDir = abs
		}
		cfg.DataDir = dataDir
		cfg.StateFilePath = filepath.Join(dataDir, "timer_state.json")
		cfg.LogDir = filepath.Join(dataDir, "logs")
		cfg.BackupDir = filepath.Join(dataDir, "backups")
	}
	if flags.StateFilePath != nil && *flags.StateFilePath != "" {
		cfg.StateFilePath = *flags.StateFilePath
	}
	if flags.BackupSchedule != nil && *flags.BackupSchedule != "" {
		cfg.BackupSchedule = *flags.BackupSchedule
	}
	if flags.BackupKeep != nil && *flags.BackupKeep != 0 {
		cfg.BackupKeep = *flags.BackupKeep
	}
	if flags.NotifyURLs != nil && *flags.NotifyURLs != "" {
		cfg.NotifyURLs = splitList(*flags.NotifyURLs)
	}
}

// splitList parses a comma-separated list, trimming whitespace and
// dropping empty entries.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns the environment variable as an int or the default if not set/invalid.
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault returns the environment variable as a duration or the default if not set/invalid.
// Accepts Go duration strings like "500ms", "1s", "2s".
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
