// Package ledger tracks credit refunds for terminally failed jobs.
//
// Submitting a job costs the user credits; a job that fails terminally
// refunds them. The refund must be exactly-once across retries and worker
// crashes, so it is recorded as a first-class entry keyed by job ID and
// applied with an insert-if-absent: the first worker to record the entry
// wins, every later attempt is a no-op.
package ledger

import (
	"context"
	"time"

	"github.com/IsaiahDupree/BlankLogo-sub004/id"
)

// Refund is one applied credit refund. At most one exists per job.
type Refund struct {
	JobID     id.JobID  `json:"job_id"`
	UserID    string    `json:"user_id"`
	Credits   int64     `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists refunds with insert-if-absent semantics.
type Store interface {
	// RecordRefund inserts the refund if no refund exists for its job.
	// Returns true when this call applied the refund, false when a
	// previous call already had.
	RecordRefund(ctx context.Context, r *Refund) (bool, error)

	// GetRefund returns the refund for a job, or nil when none exists.
	GetRefund(ctx context.Context, jobID id.JobID) (*Refund, error)
}

// NewRefund builds a refund entry for a failed job.
func NewRefund(jobID id.JobID, userID string, credits int64, now time.Time) *Refund {
	return &Refund{
		JobID:     jobID,
		UserID:    userID,
		Credits:   credits,
		CreatedAt: now.UTC(),
	}
}
