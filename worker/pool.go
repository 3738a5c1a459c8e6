package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// QueueManager controls per-queue and per-user rate limiting and
// concurrency. The worker pool calls Acquire before processing a dequeued
// job and Release after processing completes.
type QueueManager interface {
	// Acquire checks rate limits and concurrency for the queue/user
	// combination. Returns true if the job is allowed to proceed.
	Acquire(queue, userID string) bool
	// Release decrements the active count for the queue/user pair.
	Release(queue, userID string)
}

// Pool manages a set of concurrent worker goroutines that poll for jobs
// and run them through the Processor. It also owns the heartbeat loop
// that renews leases for in-flight jobs and the reaper loop that
// requeues jobs whose owning worker crashed.
type Pool struct {
	store        job.Store
	processor    *Processor
	concurrency  int
	queues       []string
	pollInterval time.Duration
	workerID     id.WorkerID
	logger       *slog.Logger

	// Lease configuration.
	leaseDuration     time.Duration
	heartbeatInterval time.Duration
	reapInterval      time.Duration

	// Queue manager (optional).
	queueManager QueueManager

	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
	activeJobs map[string]context.CancelFunc
	activeMu   sync.Mutex
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of concurrent worker goroutines.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) { p.concurrency = n }
}

// WithPoolQueues sets the queues the pool will poll.
func WithPoolQueues(queues []string) PoolOption {
	return func(p *Pool) { p.queues = queues }
}

// WithPollInterval sets how often workers poll for new jobs.
func WithPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.pollInterval = d }
}

// WithLeaseDuration sets how long a dequeued job's lease lasts before
// another worker may reclaim it.
func WithLeaseDuration(d time.Duration) PoolOption {
	return func(p *Pool) { p.leaseDuration = d }
}

// WithHeartbeatInterval sets how often the pool renews leases for active
// jobs. A zero value disables heartbeats.
func WithHeartbeatInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.heartbeatInterval = d }
}

// WithReapInterval sets how often the pool scans for expired leases.
// A zero value disables reaping.
func WithReapInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.reapInterval = d }
}

// WithQueueManager sets the queue manager for rate limiting and
// concurrency control.
func WithQueueManager(m QueueManager) PoolOption {
	return func(p *Pool) { p.queueManager = m }
}

// NewPool creates a worker pool.
func NewPool(store job.Store, processor *Processor, logger *slog.Logger, opts ...PoolOption) *Pool {
	p := &Pool{
		store:             store,
		processor:         processor,
		concurrency:       2,
		queues:            []string{"default"},
		pollInterval:      time.Second,
		leaseDuration:     12 * time.Minute,
		heartbeatInterval: 30 * time.Second,
		reapInterval:      time.Minute,
		workerID:          id.NewWorkerID(),
		logger:            logger,
		stopCh:            make(chan struct{}),
		activeJobs:        make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WorkerID returns the pool's unique worker identifier.
func (p *Pool) WorkerID() id.WorkerID { return p.workerID }

// Start launches the worker goroutines. It returns immediately.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true

	p.logger.Info("worker pool starting",
		slog.String("worker_id", p.workerID.String()),
		slog.Int("concurrency", p.concurrency),
		slog.Any("queues", p.queues),
	)

	for range p.concurrency {
		p.wg.Add(1)
		go p.dequeueLoop()
	}

	if p.heartbeatInterval > 0 {
		p.wg.Add(1)
		go p.heartbeatLoop()
	}

	if p.reapInterval > 0 {
		p.wg.Add(1)
		go p.reaperLoop()
	}

	return nil
}

// Stop signals all workers to stop and waits for them to finish.
// If the context has a deadline, active jobs are cancelled when time runs out.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.logger.Info("worker pool stopping", slog.String("worker_id", p.workerID.String()))

	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out, cancelling active jobs")
		p.cancelActiveJobs()
		p.wg.Wait()
	}

	return nil
}

// dequeueLoop is run by each worker goroutine.
func (p *Pool) dequeueLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		jobs, err := p.store.DequeueJobs(context.Background(), p.queues, p.workerID, p.leaseDuration, 1)
		if err != nil {
			p.logger.Error("dequeue error", slog.String("error", err.Error()))
			p.sleep()
			continue
		}

		if len(jobs) == 0 {
			p.sleep()
			continue
		}

		j := jobs[0]

		// Check queue/user rate limit and concurrency.
		if p.queueManager != nil && !p.queueManager.Acquire(j.Queue, j.UserID) {
			// Rate limited — return the job to queued with a small delay.
			// No attempt was consumed: processing never began.
			p.requeue(j, time.Now().UTC().Add(p.pollInterval), "rate limited")
			p.sleep()
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		p.trackJob(j.ID.String(), cancel)

		if procErr := p.processor.Process(ctx, j); procErr != nil {
			p.logger.Debug("job processing failed",
				slog.String("job_id", j.ID.String()),
				slog.String("error", procErr.Error()),
			)
		}

		p.untrackJob(j.ID.String())
		cancel()

		if p.queueManager != nil {
			p.queueManager.Release(j.Queue, j.UserID)
		}
	}
}

// heartbeatLoop periodically renews leases for all active jobs.
func (p *Pool) heartbeatLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.renewLeases()
		}
	}
}

func (p *Pool) renewLeases() {
	p.activeMu.Lock()
	jobIDs := make([]string, 0, len(p.activeJobs))
	for jobID := range p.activeJobs {
		jobIDs = append(jobIDs, jobID)
	}
	p.activeMu.Unlock()

	for _, jobIDStr := range jobIDs {
		parsedID, parseErr := id.ParseJobID(jobIDStr)
		if parseErr != nil {
			p.logger.Warn("heartbeat: invalid job id", slog.String("job_id", jobIDStr))
			continue
		}
		ok, err := p.store.RenewLease(context.Background(), parsedID, p.workerID, p.leaseDuration)
		if err != nil {
			p.logger.Warn("lease renewal failed",
				slog.String("job_id", jobIDStr),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !ok {
			// The lease moved to another worker; the job will be
			// processed there. Cancel our in-flight attempt.
			p.logger.Warn("lease lost, cancelling in-flight job",
				slog.String("job_id", jobIDStr))
			p.cancelJob(jobIDStr)
		}
	}
}

// reaperLoop periodically requeues processing jobs whose lease expired,
// indicating the owning worker crashed mid-job.
func (p *Pool) reaperLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reapExpiredLeases()
		}
	}
}

func (p *Pool) reapExpiredLeases() {
	expired, err := p.store.ReapExpiredLeases(context.Background(), time.Now().UTC())
	if err != nil {
		p.logger.Error("reap expired leases error", slog.String("error", err.Error()))
		return
	}

	for _, j := range expired {
		p.requeue(j, time.Now().UTC(), "lease expired, reclaimed")
		p.logger.Info("reaped expired lease",
			slog.String("job_id", j.ID.String()),
			slog.String("previous_owner", j.LeaseOwnerID.String()),
		)
	}
}

// requeue returns a job to queued outside the normal lifecycle: the
// attempt never ran to completion, so AttemptsMade is left untouched.
// The write is fenced on the lease owner as of the snapshot: if the owner
// changed in the meantime (the reaped worker came back and reclaimed, or
// finished), the snapshot is stale and nothing is written.
func (p *Pool) requeue(j *job.Job, runAt time.Time, reason string) {
	owner := j.LeaseOwnerID
	j.Status = job.StatusQueued
	j.RunAt = runAt
	j.LeaseOwnerID = id.Nil
	j.LeaseExpiresAt = nil
	j.StartedAt = nil

	ok, err := p.store.UpdateJobOwned(context.Background(), j, owner)
	if err != nil {
		p.logger.Error("failed to requeue job",
			slog.String("job_id", j.ID.String()),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		return
	}
	if !ok {
		p.logger.Info("requeue skipped, lease owner changed",
			slog.String("job_id", j.ID.String()),
			slog.String("reason", reason),
		)
		return
	}

	if evtErr := p.store.AppendEvent(context.Background(),
		job.NewNote(j.ID, "requeued: "+reason)); evtErr != nil {
		p.logger.Warn("failed to append requeue event",
			slog.String("job_id", j.ID.String()),
			slog.String("error", evtErr.Error()),
		)
	}
}

func (p *Pool) sleep() {
	select {
	case <-time.After(p.pollInterval):
	case <-p.stopCh:
	}
}

func (p *Pool) trackJob(jobID string, cancel context.CancelFunc) {
	p.activeMu.Lock()
	p.activeJobs[jobID] = cancel
	p.activeMu.Unlock()
}

func (p *Pool) untrackJob(jobID string) {
	p.activeMu.Lock()
	delete(p.activeJobs, jobID)
	p.activeMu.Unlock()
}

func (p *Pool) cancelJob(jobID string) {
	p.activeMu.Lock()
	cancel, ok := p.activeJobs[jobID]
	p.activeMu.Unlock()
	if ok {
		cancel()
	}
}

func (p *Pool) cancelActiveJobs() {
	p.activeMu.Lock()
	defer p.activeMu.Unlock()
	for jobID, cancel := range p.activeJobs {
		p.logger.Warn("cancelling active job", slog.String("job_id", jobID))
		cancel()
	}
}
