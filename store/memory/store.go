// Package memory provides a fully in-memory store implementation.
// Safe for concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	blanklogo "github.com/IsaiahDupree/BlankLogo-sub004"
	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
	"github.com/IsaiahDupree/BlankLogo-sub004/ledger"
)

// Ensure Store implements store.Store at compile time.
// We can't import store here (import cycle), so we verify each subsystem.
var (
	_ job.Store    = (*Store)(nil)
	_ ledger.Store = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	jobs    map[string]*job.Job
	events  map[string][]*job.Event // key: job ID
	refunds map[string]*ledger.Refund
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		jobs:    make(map[string]*job.Job),
		events:  make(map[string][]*job.Event),
		refunds: make(map[string]*ledger.Refund),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Job Store
// ──────────────────────────────────────────────────

// EnqueueJob persists a new job in queued status.
func (m *Store) EnqueueJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	if _, exists := m.jobs[key]; exists {
		return blanklogo.ErrJobAlreadyExists
	}
	cp := *j
	m.jobs[key] = &cp
	return nil
}

// DequeueJobs atomically claims up to limit runnable queued jobs from the
// given queues: each claimed job is moved to processing with its lease
// fields set before it is returned.
func (m *Store) DequeueJobs(_ context.Context, queues []string, workerID id.WorkerID, lease time.Duration, limit int) ([]*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	queueSet := make(map[string]struct{}, len(queues))
	for _, q := range queues {
		queueSet[q] = struct{}{}
	}

	now := time.Now().UTC()

	// Collect candidates.
	candidates := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if j.Status != job.StatusQueued {
			continue
		}
		if !j.RunAt.IsZero() && j.RunAt.After(now) {
			continue
		}
		if len(queueSet) > 0 {
			if _, ok := queueSet[j.Queue]; !ok {
				continue
			}
		}
		candidates = append(candidates, j)
	}

	// Oldest work first.
	sort.Slice(candidates, func(i, k int) bool {
		return candidates[i].RunAt.Before(candidates[k].RunAt)
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	expires := now.Add(lease)
	result := make([]*job.Job, len(candidates))
	for i, j := range candidates {
		j.Status = job.StatusProcessing
		n := now
		j.StartedAt = &n
		j.LeaseOwnerID = workerID
		e := expires
		j.LeaseExpiresAt = &e
		j.UpdatedAt = now
		// Return a copy so callers can mutate without racing with the store.
		cp := *j
		result[i] = &cp
	}

	return result, nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, blanklogo.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// UpdateJob persists changes to an existing job.
func (m *Store) UpdateJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	if _, ok := m.jobs[key]; !ok {
		return blanklogo.ErrJobNotFound
	}
	cp := *j
	cp.UpdatedAt = time.Now().UTC()
	m.jobs[key] = &cp
	return nil
}

// UpdateJobOwned persists changes to a job only while ownerID matches the
// stored lease owner.
func (m *Store) UpdateJobOwned(_ context.Context, j *job.Job, ownerID id.WorkerID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := j.ID.String()
	cur, ok := m.jobs[key]
	if !ok {
		return false, blanklogo.ErrJobNotFound
	}
	if cur.LeaseOwnerID != ownerID {
		return false, nil
	}
	cp := *j
	cp.UpdatedAt = time.Now().UTC()
	m.jobs[key] = &cp
	return true, nil
}

// ClaimLease attempts to take the lease on a job for workerID.
func (m *Store) ClaimLease(_ context.Context, jobID id.JobID, workerID id.WorkerID, lease time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return false, blanklogo.ErrJobNotFound
	}

	now := time.Now().UTC()
	held := !j.LeaseOwnerID.IsNil() && !j.LeaseExpired(now)
	if held && j.LeaseOwnerID != workerID {
		return false, nil
	}

	j.LeaseOwnerID = workerID
	expires := now.Add(lease)
	j.LeaseExpiresAt = &expires
	j.UpdatedAt = now
	return true, nil
}

// RenewLease extends the lease held by workerID.
func (m *Store) RenewLease(_ context.Context, jobID id.JobID, workerID id.WorkerID, lease time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return false, blanklogo.ErrJobNotFound
	}

	if j.LeaseOwnerID != workerID {
		return false, nil
	}

	now := time.Now().UTC()
	expires := now.Add(lease)
	j.LeaseExpiresAt = &expires
	j.UpdatedAt = now
	return true, nil
}

// ReapExpiredLeases returns processing jobs whose lease expired before now.
func (m *Store) ReapExpiredLeases(_ context.Context, now time.Time) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var expired []*job.Job
	for _, j := range m.jobs {
		if j.Status != job.StatusProcessing {
			continue
		}
		if j.LeaseExpired(now) {
			cp := *j
			expired = append(expired, &cp)
		}
	}
	return expired, nil
}

// CancelJob moves a job from queued to cancelled. A job in any other
// status is left untouched.
func (m *Store) CancelJob(_ context.Context, jobID id.JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return blanklogo.ErrJobNotFound
	}
	if j.Status != job.StatusQueued {
		return blanklogo.ErrInvalidTransition
	}
	j.Status = job.StatusCancelled
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// ListJobsByStatus returns jobs matching the given status.
func (m *Store) ListJobsByStatus(_ context.Context, status job.Status, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*job.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if j.Status != status {
			continue
		}
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		cp := *j
		result = append(result, &cp)
	}

	// Sort by CreatedAt for deterministic output.
	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.Before(result[k].CreatedAt)
	})

	// Apply offset / limit.
	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result, nil
}

// CountJobs returns the number of jobs matching the given options.
func (m *Store) CountJobs(_ context.Context, opts job.CountOpts) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, j := range m.jobs {
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		if opts.Status != "" && j.Status != opts.Status {
			continue
		}
		count++
	}
	return count, nil
}

// AppendEvent appends an entry to a job's event log.
func (m *Store) AppendEvent(_ context.Context, evt *job.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *evt
	key := evt.JobID.String()
	m.events[key] = append(m.events[key], &cp)
	return nil
}

// ListEvents returns a job's event log in append order.
func (m *Store) ListEvents(_ context.Context, jobID id.JobID) ([]*job.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.events[jobID.String()]
	result := make([]*job.Event, len(stored))
	for i, evt := range stored {
		cp := *evt
		result[i] = &cp
	}
	return result, nil
}

// ──────────────────────────────────────────────────
// Ledger Store
// ──────────────────────────────────────────────────

// RecordRefund inserts the refund if no refund exists for its job.
func (m *Store) RecordRefund(_ context.Context, r *ledger.Refund) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := r.JobID.String()
	if _, exists := m.refunds[key]; exists {
		return false, nil
	}
	cp := *r
	m.refunds[key] = &cp
	return true, nil
}

// GetRefund returns the refund for a job, or nil when none exists.
func (m *Store) GetRefund(_ context.Context, jobID id.JobID) (*ledger.Refund, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.refunds[jobID.String()]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}
