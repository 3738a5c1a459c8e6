package job

import (
	"fmt"
	"time"

	blanklogo "github.com/IsaiahDupree/BlankLogo-sub004"
)

// Status represents the lifecycle state of a job.
type Status string

const (
	// StatusQueued means the job is waiting to be picked up by a worker.
	StatusQueued Status = "queued"
	// StatusProcessing means a worker holds the lease and is executing.
	StatusProcessing Status = "processing"
	// StatusCompleted means the job finished and its output is published.
	StatusCompleted Status = "completed"
	// StatusFailed means the job failed; terminal unless the retry policy
	// moves it back to queued.
	StatusFailed Status = "failed"
	// StatusCancelled means the job was cancelled before processing began.
	StatusCancelled Status = "cancelled"
)

// transitions enumerates the legal lifecycle edges. Everything not listed
// is an invariant violation.
var transitions = map[Status][]Status{
	StatusQueued:     {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusFailed:     {StatusQueued},
}

// CanTransition reports whether the edge from → to is legal.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the job to the given status, enforcing the state
// machine. Illegal edges return ErrInvalidTransition and leave the job
// untouched. Timestamps are maintained as a side effect: StartedAt on
// entering processing, CompletedAt on reaching completed or failed.
func (j *Job) Transition(to Status, now time.Time) error {
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("%w: %s → %s (job %s)",
			blanklogo.ErrInvalidTransition, j.Status, to, j.ID.String())
	}

	from := j.Status
	j.Status = to

	switch to {
	case StatusProcessing:
		n := now
		j.StartedAt = &n
	case StatusCompleted, StatusFailed:
		n := now
		j.CompletedAt = &n
		j.LeaseOwnerID = blanklogo.ID{}
		j.LeaseExpiresAt = nil
	case StatusQueued:
		// failed → queued retry: the failure bookkeeping is cleared so
		// the job record again satisfies the "set only on failed" rule.
		if from == StatusFailed {
			j.ErrorCode = ""
			j.ErrorMessage = ""
			j.CompletedAt = nil
		}
	case StatusCancelled:
	}

	return nil
}
