package config

import (
	"os"
	"strconv"
	"time"
)

// RetentionConfig controls how long terminal jobs and processed source files
// are kept before the cleanup service removes them.
type RetentionConfig struct {
	// JobRetentionDays is how long terminal jobs (and their stage rows and
	// resume artifacts) are kept after completion.
	JobRetentionDays int

	// SourceRetentionDays is how long archived and errored source files are
	// kept.
	SourceRetentionDays int

	// CleanupInterval is how often the cleanup pass runs.
	CleanupInterval time.Duration
}

// LoadRetentionConfig reads retention settings from the environment.
func LoadRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		JobRetentionDays:    getEnvInt("JOB_RETENTION_DAYS", 30),
		SourceRetentionDays: getEnvInt("SOURCE_RETENTION_DAYS", 30),
		CleanupInterval:     6 * time.Hour,
	}
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
