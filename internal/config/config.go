package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Synchronized store backends
const (
	BackendMemory = "memory"
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
)

var validBackends = []string{BackendMemory, BackendSheets, BackendSQLite}

type Config struct {
	// Local store
	SQLiteDBPath string

	// Synchronized store
	SyncBackend      string
	SyncSQLiteDBPath string
	// SyncSeedFile optionally seeds the memory backend from a JSON object.
	SyncSeedFile string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSyncSheetName      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP, optional. Consumers get their own server-named queue.
	AMQPURL      string
	AMQPExchange string

	// Remote read cache
	CacheTTL  time.Duration
	CacheSize int

	// Worker
	SyncInterval time.Duration
	MetricsPort  string

	LogLevel string
}

func Load() *Config {
	return &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/subtrack.db"),

		SyncBackend:      getEnv("SYNC_BACKEND", BackendSQLite),
		SyncSQLiteDBPath: getEnv("SYNC_SQLITE_DB_PATH", "./data/subtrack-sync.db"),
		SyncSeedFile:     getEnv("SYNC_SEED_FILE", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSyncSheetName:      getEnv("GOOGLE_SYNC_SHEET_NAME", "Sync"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "subtrack"),

		CacheTTL:  getEnvDuration("CACHE_TTL", 30*time.Second),
		CacheSize: getEnvInt("CACHE_SIZE", 64),

		SyncInterval: getEnvDuration("SYNC_INTERVAL", 30*time.Second),
		MetricsPort:  getEnv("METRICS_PORT", "9091"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else if err := ensureDir(c.SQLiteDBPath); err != nil {
		errors = append(errors, err.Error())
	}

	if !slices.Contains(validBackends, c.SyncBackend) {
		errors = append(errors, fmt.Sprintf("invalid sync backend '%s': must be one of %v", c.SyncBackend, validBackends))
	}

	if c.SyncBackend == BackendSQLite {
		switch {
		case c.SyncSQLiteDBPath == "":
			errors = append(errors, "sync SQLite database path cannot be empty when using sqlite sync backend")
		case filepath.Clean(c.SyncSQLiteDBPath) == filepath.Clean(c.SQLiteDBPath):
			errors = append(errors, "sync SQLite database must differ from the local database")
		default:
			if err := ensureDir(c.SyncSQLiteDBPath); err != nil {
				errors = append(errors, err.Error())
			}
		}
	}

	if c.SyncBackend == BackendSheets {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets sync backend")
		}
		if c.GoogleSyncSheetName == "" {
			errors = append(errors, "Google sync sheet name is required when using sheets sync backend")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets sync backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if port, err := strconv.Atoi(c.MetricsPort); err != nil {
		errors = append(errors, fmt.Sprintf("invalid metrics port '%s': must be a number", c.MetricsPort))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid metrics port %d: must be between 1 and 65535", port))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ensureDir creates the parent directory of a database file if needed.
func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create SQLite database directory '%s': %v", dir, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
