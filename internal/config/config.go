package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"treasury/internal/storage"
)

type Config struct {
	// Storage
	DataDir           string
	CompressThreshold int
	OptimizeThreshold int64

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Reminder worker
	ReminderHour int

	// Bootstrap
	AdminPassword string
}

func Load() *Config {
	cfg := &Config{
		DataDir:           getEnv("TREASURY_DATA_DIR", "./data"),
		CompressThreshold: getEnvInt("COMPRESS_THRESHOLD", storage.DefaultCompressThreshold),
		OptimizeThreshold: int64(getEnvInt("OPTIMIZE_THRESHOLD", int(storage.DefaultOptimizeThreshold))),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "treasury"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		ReminderHour: getEnvInt("REMINDER_HOUR", 9),

		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.DataDir == "" {
		errors = append(errors, "data directory cannot be empty")
	} else {
		if _, err := os.Stat(c.DataDir); os.IsNotExist(err) {
			if err := os.MkdirAll(c.DataDir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create data directory '%s': %v", c.DataDir, err))
			}
		}
	}

	if c.CompressThreshold < 1 {
		errors = append(errors, fmt.Sprintf("invalid compress threshold %d: must be at least 1 byte", c.CompressThreshold))
	}
	if c.OptimizeThreshold < 1 {
		errors = append(errors, fmt.Sprintf("invalid optimize threshold %d: must be at least 1 byte", c.OptimizeThreshold))
	}
	if c.CompressThreshold >= 1 && c.OptimizeThreshold >= 1 && int64(c.CompressThreshold) > c.OptimizeThreshold {
		errors = append(errors, fmt.Sprintf("compress threshold %d exceeds optimize threshold %d", c.CompressThreshold, c.OptimizeThreshold))
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
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ReminderHour < 0 || c.ReminderHour > 23 {
		errors = append(errors, fmt.Sprintf("invalid reminder hour %d: must be between 0 and 23", c.ReminderHour))
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
