// Package job defines the job entity, its lifecycle state machine, the
// append-only event log, and the store interface.
//
// # Lifecycle
//
// A [Job] progresses through a closed state machine:
//
//	queued → processing → completed
//	queued → processing → failed → queued   (retryable, attempts remaining)
//	queued → processing → failed            (terminal)
//	queued → cancelled
//
// Any other edge is rejected with blanklogo.ErrInvalidTransition. Use
// [Job.Transition]; never assign Status directly outside a store
// implementation.
//
// # Leases
//
// A lease is the pair (LeaseOwnerID, LeaseExpiresAt) on the job record,
// present only while the job is processing. Dequeue atomically pairs the
// queued → processing transition with lease acquisition; heartbeats renew
// the lease during long transforms; a reaper returns expired-lease jobs to
// the queue so a crashed worker's job is reclaimed.
//
// # Events
//
// [Event] entries are appended at every transition and at progress
// milestones. They are audit data: nothing reads them to make decisions.
package job
