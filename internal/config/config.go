package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Google Sheets
	SpreadsheetID         string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string

	// Row store behavior
	CacheTTL      time.Duration
	RetryAttempts int
	RetryBaseWait time.Duration

	// Branch and admin secrets
	BranchPasswordMB string
	BranchPasswordBZ string
	AdminPassword    string

	// Session lifetimes
	AdminSessionTTL    time.Duration
	EmployeeSessionTTL time.Duration

	// Archive mirror
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8081"),
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SpreadsheetID:         getEnv("SPREADSHEET_ID", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		CacheTTL:      getEnvDuration("CACHE_TTL", 2*time.Minute),
		RetryAttempts: getEnvInt("RETRY_ATTEMPTS", 5),
		RetryBaseWait: getEnvDuration("RETRY_BASE_WAIT", 500*time.Millisecond),

		BranchPasswordMB: getEnv("BRANCH_PASSWORD_MB", ""),
		BranchPasswordBZ: getEnv("BRANCH_PASSWORD_BZ", ""),
		AdminPassword:    getEnv("ADMIN_PASSWORD", ""),

		AdminSessionTTL:    getEnvDuration("ADMIN_SESSION_TTL", 30*time.Minute),
		EmployeeSessionTTL: getEnvDuration("EMPLOYEE_SESSION_TTL", 20*time.Minute),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/megafin.db"),
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "megafin"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "mirror_entries"),
	}

	return cfg
}

// Validate checks the configuration and returns all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "google"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "google" {
		if c.SpreadsheetID == "" {
			errors = append(errors, "SPREADSHEET_ID is required when using google backend")
		}
		if c.GoogleCredentialsJSON == "" && c.GoogleCredentialsFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for google backend")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("service account file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if c.BranchPasswordMB == "" || c.BranchPasswordBZ == "" {
		errors = append(errors, "both BRANCH_PASSWORD_MB and BRANCH_PASSWORD_BZ must be set")
	}
	if c.AdminPassword == "" {
		errors = append(errors, "ADMIN_PASSWORD must be set")
	}

	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.RetryAttempts < 1 {
		errors = append(errors, fmt.Sprintf("invalid retry attempts %d: must be at least 1", c.RetryAttempts))
	} else if c.RetryAttempts > 10 {
		errors = append(errors, fmt.Sprintf("invalid retry attempts %d: must be at most 10", c.RetryAttempts))
	}
	if c.RetryBaseWait < 10*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid retry base wait %v: must be at least 10ms", c.RetryBaseWait))
	}

	if c.AdminSessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid admin session TTL %v: must be at least 1 minute", c.AdminSessionTTL))
	}
	if c.EmployeeSessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid employee session TTL %v: must be at least 1 minute", c.EmployeeSessionTTL))
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
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when the mirror is enabled")
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
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// HTTPAddr returns the listen address for the HTTP server.
func (c *Config) HTTPAddr() string {
	return net.JoinHostPort("", c.Port)
}

// BranchPassword returns the configured password for a branch short code.
func (c *Config) BranchPassword(shortCode string) string {
	switch shortCode {
	case "MB":
		return c.BranchPasswordMB
	case "BZ":
		return c.BranchPasswordBZ
	}
	return ""
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
