package config

import "time"

// QueueConfig contains queue and worker configuration.
// The design assumes a single worker; ClaimNext still provides the
// mutual-exclusion contract a multi-worker setup would need.
type QueueConfig struct {
	// PollInterval is the base interval for checking queued jobs.
	PollInterval time.Duration

	// PollIntervalJitter is the random jitter added to PollInterval.
	// Actual interval: PollInterval ± PollIntervalJitter.
	PollIntervalJitter time.Duration

	// JobTimeout is the maximum time a job can be processed.
	JobTimeout time.Duration

	// HeartbeatInterval is how often the worker refreshes the claimed job's
	// heartbeat timestamp.
	HeartbeatInterval time.Duration

	// GracefulShutdownTimeout is the max time to wait for the active job
	// to complete during shutdown.
	GracefulShutdownTimeout time.Duration

	// OrphanDetectionInterval is how often to scan for orphaned jobs.
	OrphanDetectionInterval time.Duration

	// OrphanThreshold is how long a processing job can go without a
	// heartbeat before it is requeued.
	OrphanThreshold time.Duration
}

// DefaultQueueConfig returns the built-in queue defaults.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		PollInterval:            3 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		JobTimeout:              2 * time.Hour,
		HeartbeatInterval:       30 * time.Second,
		GracefulShutdownTimeout: 10 * time.Minute,
		OrphanDetectionInterval: 5 * time.Minute,
		OrphanThreshold:         5 * time.Minute,
	}
}
