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

	"fintrack/internal/core"
)

type Config struct {
	// Database
	SQLiteDBPath string

	// AMQP. An empty URL disables ledger events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Mirror backend selection: memory or sheets
	MirrorBackend string

	// Installment scheduling
	InstallmentStride string
	InstallmentSplit  string

	// Read views
	CommitmentMonths int
	ReportMonths     int

	// Invoice total cache
	InvoiceCacheSize int
	InvoiceCacheTTL  time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	ShutdownTimeout time.Duration
}

func Load() *Config {
	return &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		MirrorBackend: getEnv("MIRROR_BACKEND", "memory"),

		InstallmentStride: getEnv("INSTALLMENT_STRIDE", string(core.StrideFixed30)),
		InstallmentSplit:  getEnv("INSTALLMENT_SPLIT", string(core.SplitLargestRemainder)),

		CommitmentMonths: getEnvInt("COMMITMENT_MONTHS", 3),
		ReportMonths:     getEnvInt("REPORT_MONTHS", 6),

		InvoiceCacheSize: getEnvInt("INVOICE_CACHE_SIZE", 256),
		InvoiceCacheTTL:  getEnvDuration("INVOICE_CACHE_TTL", 5*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// InstallmentPolicy returns the configured scheduling policy.
func (c *Config) InstallmentPolicy() core.InstallmentPolicy {
	return core.InstallmentPolicy{
		Stride: core.StrideKind(c.InstallmentStride),
		Split:  core.SplitPolicy(c.InstallmentSplit),
	}
}

// EventsEnabled reports whether ledger events are published.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	validBackends := []string{"memory", "sheets"}
	if !slices.Contains(validBackends, c.MirrorBackend) {
		errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be one of %v", c.MirrorBackend, validBackends))
	}

	if c.MirrorBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when using sheets backend")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		hasJSON := c.GoogleServiceAccountJSON != ""
		if !hasFile && !hasJSON {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets backend")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if err := c.InstallmentPolicy().Validate(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid installment policy: %v", err))
	}

	if c.CommitmentMonths < 1 || c.CommitmentMonths > 24 {
		errors = append(errors, fmt.Sprintf("invalid commitment months %d: must be between 1 and 24", c.CommitmentMonths))
	}
	if c.ReportMonths < 1 || c.ReportMonths > 36 {
		errors = append(errors, fmt.Sprintf("invalid report months %d: must be between 1 and 36", c.ReportMonths))
	}

	if c.InvoiceCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid invoice cache size %d: must be at least 1", c.InvoiceCacheSize))
	}
	if c.InvoiceCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid invoice cache TTL %v: must be at least 1 second", c.InvoiceCacheTTL))
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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
