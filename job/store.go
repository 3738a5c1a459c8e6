package job

import (
	"context"
	"time"

	"github.com/IsaiahDupree/BlankLogo-sub004/id"
)

// ListOpts controls pagination and filtering for job list queries.
type ListOpts struct {
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
	// Queue filters by queue name. Empty means all queues.
	Queue string
}

// CountOpts controls filtering for job count queries.
type CountOpts struct {
	// Queue filters by queue name. Empty means all queues.
	Queue string
	// Status filters by job status. Empty means all statuses.
	Status Status
}

// Store defines the persistence contract for jobs and their event log.
//
// Dequeue and lease operations must be atomic conditional updates: two
// workers racing on the same job must never both win. The backing store
// must provide compare-and-set semantics on the lease fields.
type Store interface {
	// EnqueueJob persists a new job in queued status.
	EnqueueJob(ctx context.Context, j *Job) error

	// DequeueJobs atomically claims up to limit runnable queued jobs from
	// the given queues for workerID: each returned job has been moved to
	// processing with its lease fields set to workerID / now+lease.
	// Jobs are ordered by RunAt ascending; jobs whose RunAt is in the
	// future are not eligible.
	DequeueJobs(ctx context.Context, queues []string, workerID id.WorkerID, lease time.Duration, limit int) ([]*Job, error)

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID id.JobID) (*Job, error)

	// UpdateJob persists changes to an existing job. It is an
	// unconditional write for administrative callers; workers finalizing
	// an attempt must use UpdateJobOwned instead.
	UpdateJob(ctx context.Context, j *Job) error

	// UpdateJobOwned persists changes to a job only while ownerID matches
	// the lease owner recorded in the store. It returns ok=false without
	// writing when the owners differ: the caller lost its lease to the
	// reaper or to another worker's claim, and its view of the job is
	// stale.
	UpdateJobOwned(ctx context.Context, j *Job, ownerID id.WorkerID) (bool, error)

	// ClaimLease attempts to take the lease on a job for workerID.
	// It succeeds when the lease is unset, expired, or already held by
	// workerID (re-acquisition is idempotent); it fails with ok=false when
	// another worker holds a live lease.
	ClaimLease(ctx context.Context, jobID id.JobID, workerID id.WorkerID, lease time.Duration) (bool, error)

	// RenewLease extends the lease held by workerID. It fails with
	// ok=false if workerID no longer holds the lease.
	RenewLease(ctx context.Context, jobID id.JobID, workerID id.WorkerID, lease time.Duration) (bool, error)

	// ReapExpiredLeases returns processing jobs whose lease expired before
	// now, indicating the owning worker likely crashed mid-job.
	ReapExpiredLeases(ctx context.Context, now time.Time) ([]*Job, error)

	// CancelJob moves a job from queued to cancelled. It is a conditional
	// update: jobs in any other status are left untouched and the call
	// returns ErrInvalidTransition.
	CancelJob(ctx context.Context, jobID id.JobID) error

	// ListJobsByStatus returns jobs matching the given status.
	ListJobsByStatus(ctx context.Context, status Status, opts ListOpts) ([]*Job, error)

	// CountJobs returns the number of jobs matching the given options.
	CountJobs(ctx context.Context, opts CountOpts) (int64, error)

	// AppendEvent appends an entry to a job's event log.
	AppendEvent(ctx context.Context, evt *Event) error

	// ListEvents returns a job's event log in append order.
	ListEvents(ctx context.Context, jobID id.JobID) ([]*Event, error)
}
