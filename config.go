package blanklogo

import "time"

// Config holds worker-side configuration shared across subsystems.
type Config struct {
	// Concurrency is the number of concurrent worker goroutines.
	Concurrency int

	// Queues is the list of queues the worker pool will poll.
	Queues []string

	// PollInterval is how often idle workers poll for new jobs.
	PollInterval time.Duration

	// LeaseDuration is how long a worker's exclusive claim on a job lasts
	// before another worker may reclaim it. Should exceed the processing
	// timeout by a margin.
	LeaseDuration time.Duration

	// HeartbeatInterval is how often in-flight jobs renew their lease.
	HeartbeatInterval time.Duration

	// ProcessingTimeout bounds a single processing attempt end to end.
	ProcessingTimeout time.Duration

	// MaxAttempts is the default retry budget for new jobs.
	MaxAttempts int

	// BackoffBase and BackoffCap bound the exponential retry delay.
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// MaxSourceBytes and MaxDuration are the service intake limits.
	// Sources exceeding either fail with FAILED_LIMITS.
	MaxSourceBytes int64
	MaxDuration    time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:       2,
		Queues:            []string{"default"},
		PollInterval:      time.Second,
		LeaseDuration:     12 * time.Minute,
		HeartbeatInterval: 30 * time.Second,
		ProcessingTimeout: 10 * time.Minute,
		MaxAttempts:       3,
		BackoffBase:       5 * time.Second,
		BackoffCap:        60 * time.Second,
		MaxSourceBytes:    500 << 20,
		MaxDuration:       300 * time.Second,
		ShutdownTimeout:   30 * time.Second,
	}
}
