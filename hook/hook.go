// Package hook defines the lifecycle hook system for the worker.
// Hooks are notified of job lifecycle events (enqueued, started,
// progressed, completed, failed, retrying, cancelled) and react to them.
// Webhook delivery and event-log auditing are both wired in as hooks.
//
// Each lifecycle moment is a separate interface so a hook opts in only to
// the events it cares about.
package hook

import (
	"context"
	"time"

	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// Hook is the base interface all hooks must implement.
type Hook interface {
	// Name returns a unique human-readable name for the hook.
	Name() string
}

// ──────────────────────────────────────────────────
// Job lifecycle hooks
// ──────────────────────────────────────────────────

// JobEnqueued is called after a job is successfully enqueued.
type JobEnqueued interface {
	OnJobEnqueued(ctx context.Context, j *job.Job) error
}

// JobStarted is called when a worker begins processing a job.
type JobStarted interface {
	OnJobStarted(ctx context.Context, j *job.Job) error
}

// JobProgress is called at pipeline milestones (probe done, transform
// done, upload done) with a 0-100 percentage.
type JobProgress interface {
	OnJobProgress(ctx context.Context, j *job.Job, percent int, stage string) error
}

// JobCompleted is called after a job finishes successfully.
type JobCompleted interface {
	OnJobCompleted(ctx context.Context, j *job.Job, elapsed time.Duration) error
}

// JobFailed is called when a job fails terminally (no more retries).
type JobFailed interface {
	OnJobFailed(ctx context.Context, j *job.Job, err error) error
}

// JobRetrying is called when a job fails but is scheduled for retry.
type JobRetrying interface {
	OnJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) error
}

// JobCancelled is called after a queued job is cancelled.
type JobCancelled interface {
	OnJobCancelled(ctx context.Context, j *job.Job) error
}

// Shutdown is called once when the engine stops, before stores close.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
