// Package worker provides the job execution engine — a Processor that
// runs one job through the acquire → probe → transform → upload →
// finalize pipeline, and a Pool that manages concurrent worker
// goroutines polling for jobs.
package worker

import (
	"context"
	"log/slog"
	"os"
	"time"

	blanklogo "github.com/IsaiahDupree/BlankLogo-sub004"
	"github.com/IsaiahDupree/BlankLogo-sub004/backoff"
	"github.com/IsaiahDupree/BlankLogo-sub004/fault"
	"github.com/IsaiahDupree/BlankLogo-sub004/hook"
	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
	"github.com/IsaiahDupree/BlankLogo-sub004/ledger"
	"github.com/IsaiahDupree/BlankLogo-sub004/media"
	"github.com/IsaiahDupree/BlankLogo-sub004/middleware"
	"github.com/IsaiahDupree/BlankLogo-sub004/storage"
	"github.com/IsaiahDupree/BlankLogo-sub004/transform"
)

// Store is the persistence surface the processor needs: the job store
// plus the refund ledger.
type Store interface {
	job.Store
	ledger.Store
}

// Processor runs a single job through the processing pipeline, then
// handles finalization: state transition, retry scheduling, refunds, and
// lifecycle events.
type Processor struct {
	store    Store
	router   *transform.Router
	uploader storage.Uploader
	fetcher  *media.Fetcher
	hooks    *hook.Registry
	backoff  backoff.Strategy
	mw       middleware.Middleware
	logger   *slog.Logger

	maxSourceBytes int64
	maxDuration    time.Duration
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithBackoff sets the retry delay strategy.
func WithBackoff(s backoff.Strategy) ProcessorOption {
	return func(p *Processor) { p.backoff = s }
}

// WithMiddleware sets the middleware chain wrapped around the pipeline.
func WithMiddleware(mws ...middleware.Middleware) ProcessorOption {
	return func(p *Processor) { p.mw = middleware.Chain(mws...) }
}

// WithSourceLimits sets the intake limits enforced after probing.
func WithSourceLimits(maxBytes int64, maxDuration time.Duration) ProcessorOption {
	return func(p *Processor) {
		p.maxSourceBytes = maxBytes
		p.maxDuration = maxDuration
	}
}

// NewProcessor creates a Processor with the given dependencies.
func NewProcessor(
	store Store,
	router *transform.Router,
	uploader storage.Uploader,
	fetcher *media.Fetcher,
	hooks *hook.Registry,
	logger *slog.Logger,
	opts ...ProcessorOption,
) *Processor {
	p := &Processor{
		store:    store,
		router:   router,
		uploader: uploader,
		fetcher:  fetcher,
		hooks:    hooks,
		backoff:  backoff.DefaultStrategy(),
		mw:       middleware.Chain(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs a job that has already been dequeued and leased.
// On success: marks completed, emits JobCompleted.
// On failure with a retryable code and attempts remaining: marks failed,
// then moves back to queued with a backoff delay and emits JobRetrying.
// On permanent failure: marks failed, refunds credits once, emits JobFailed.
func (p *Processor) Process(ctx context.Context, j *job.Job) error {
	// Publishing is idempotent: a job that already carries an output URL
	// finished its pipeline in an earlier attempt and only needs
	// finalization. Re-running the transform would waste work, not harm.
	if j.OutputURL != "" {
		p.logger.Info("output already published, finalizing",
			slog.String("job_id", j.ID.String()),
			slog.String("output_url", j.OutputURL))
		return p.handleSuccess(ctx, j, time.Now().UTC(), 0)
	}

	p.hooks.EmitJobStarted(ctx, j)

	start := time.Now()
	err := p.mw(ctx, j, func(ctx context.Context) error {
		return p.runPipeline(ctx, j)
	})
	elapsed := time.Since(start)

	now := time.Now().UTC()
	j.UpdatedAt = now

	if err != nil {
		return p.handleFailure(ctx, j, err, now)
	}

	j.ProcessingTimeMs = elapsed.Milliseconds()
	return p.handleSuccess(ctx, j, now, elapsed)
}

// runPipeline executes the per-attempt stages: acquire the source, probe
// it, transform it, and publish the result. Scratch space is worker-local
// and removed whether or not the attempt succeeds.
func (p *Processor) runPipeline(ctx context.Context, j *job.Job) error {
	scratch, err := media.NewScratch()
	if err != nil {
		return fault.Wrap(fault.FailedUnknown, err, "create scratch dir")
	}
	defer scratch.Cleanup()

	in := scratch.Path("source.mp4")
	out := scratch.Path("output.mp4")

	// Stage 1: download the source.
	p.hooks.EmitJobProgress(ctx, j, 10, "downloading source")
	size, err := p.fetcher.Fetch(ctx, j.SourceURL, in)
	if err != nil {
		return err
	}

	// Stage 2: probe and enforce intake limits.
	p.hooks.EmitJobProgress(ctx, j, 25, "probing video")
	info, err := media.Probe(ctx, in)
	if err != nil {
		return err
	}
	info.SizeBytes = size
	if err := info.CheckLimits(p.maxSourceBytes, p.maxDuration); err != nil {
		return err
	}

	// Stage 3: run the removal strategy.
	p.hooks.EmitJobProgress(ctx, j, 40, "removing watermark")
	result, err := p.router.Process(ctx, &transform.Request{
		JobID:        j.ID,
		InputPath:    in,
		OutputPath:   out,
		Mode:         j.Mode,
		CropPixels:   j.CropPixels,
		CropPosition: j.CropPosition,
		Info:         info,
	})
	if err != nil {
		return err
	}
	j.StrategyUsed = result.StrategyUsed
	if result.Note != "" {
		p.appendEvent(ctx, job.NewNote(j.ID, result.Note))
	}

	// Stage 4: publish the output.
	p.hooks.EmitJobProgress(ctx, j, 80, "uploading result")
	url, sizeBytes, err := p.publish(ctx, j, out)
	if err != nil {
		return err
	}
	j.OutputURL = url
	j.OutputSizeBytes = sizeBytes

	return nil
}

// publish uploads the transformed file under the job's deterministic
// result key. The key depends only on job ID and filename, so a retried
// upload overwrites its own earlier partial object instead of creating a
// duplicate.
func (p *Processor) publish(ctx context.Context, j *job.Job, path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fault.Wrap(fault.FailedStorage, err, "open transformed output")
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", 0, fault.Wrap(fault.FailedStorage, err, "stat transformed output")
	}
	if fi.Size() == 0 {
		return "", 0, fault.New(fault.FailedCodec, "transform produced empty output")
	}

	key := storage.ResultKey(j.ID, j.SourceFilename)
	url, err := p.uploader.Upload(ctx, key, f, fi.Size(), "video/mp4")
	if err != nil {
		return "", 0, err
	}
	return url, fi.Size(), nil
}

// handleSuccess marks the job as completed and emits the lifecycle event.
// The write is fenced on the lease owner captured before the transition:
// a worker whose lease was reaped or reclaimed mid-attempt must not
// overwrite whatever outcome the store holds by then.
func (p *Processor) handleSuccess(ctx context.Context, j *job.Job, now time.Time, elapsed time.Duration) error {
	owner := j.LeaseOwnerID
	from := j.Status
	if err := j.Transition(job.StatusCompleted, now); err != nil {
		return err
	}

	ok, updateErr := p.store.UpdateJobOwned(ctx, j, owner)
	if updateErr != nil {
		p.logger.Error("failed to update job after success",
			slog.String("job_id", j.ID.String()),
			slog.String("error", updateErr.Error()),
		)
		return updateErr
	}
	if !ok {
		p.logger.Warn("lease lost, completion not recorded",
			slog.String("job_id", j.ID.String()),
			slog.String("worker_id", owner.String()),
		)
		return blanklogo.ErrLeaseHeld
	}

	p.appendEvent(ctx, job.NewStateChange(j.ID, from, job.StatusCompleted,
		"completed via "+j.StrategyUsed))
	p.hooks.EmitJobCompleted(ctx, j, elapsed)

	p.logger.Info("job completed",
		slog.String("job_id", j.ID.String()),
		slog.String("strategy", j.StrategyUsed),
		slog.Duration("elapsed", elapsed),
	)
	return nil
}

// handleFailure classifies the error, consumes an attempt, and either
// schedules a retry or finalizes the failure. Each disposition is a single
// write fenced on the lease owner captured before the transition; a fenced
// out worker skips retry scheduling and the refund entirely.
func (p *Processor) handleFailure(ctx context.Context, j *job.Job, procErr error, now time.Time) error {
	owner := j.LeaseOwnerID
	code := fault.CodeOf(procErr)
	j.AttemptsMade++
	j.ErrorCode = code
	j.ErrorMessage = procErr.Error()

	from := j.Status
	if err := j.Transition(job.StatusFailed, now); err != nil {
		return err
	}

	if backoff.ShouldRetry(code, j.AttemptsMade, j.MaxAttempts) {
		return p.scheduleRetry(ctx, j, owner, from, procErr, now)
	}

	ok, updateErr := p.store.UpdateJobOwned(ctx, j, owner)
	if updateErr != nil {
		p.logger.Error("failed to update job as failed",
			slog.String("job_id", j.ID.String()),
			slog.String("error", updateErr.Error()),
		)
		return updateErr
	}
	if !ok {
		p.logger.Warn("lease lost, failure not recorded",
			slog.String("job_id", j.ID.String()),
			slog.String("worker_id", owner.String()),
		)
		return procErr
	}
	p.appendEvent(ctx, job.NewStateChange(j.ID, from, job.StatusFailed,
		string(code)+": "+fault.MessageOf(procErr)))

	return p.finalizeFailure(ctx, j, procErr)
}

// scheduleRetry moves the job back to queued with a backoff delay. The
// transient failed state is not persisted separately; one owned write lands
// the job in queued, and the event log records both hops.
func (p *Processor) scheduleRetry(ctx context.Context, j *job.Job, owner id.WorkerID, from job.Status, procErr error, now time.Time) error {
	delay := p.backoff.Delay(j.AttemptsMade)
	nextRunAt := now.Add(delay)
	attempt := j.AttemptsMade
	code := j.ErrorCode

	if err := j.Transition(job.StatusQueued, now); err != nil {
		return err
	}
	j.RunAt = nextRunAt

	ok, updateErr := p.store.UpdateJobOwned(ctx, j, owner)
	if updateErr != nil {
		p.logger.Error("failed to requeue job for retry",
			slog.String("job_id", j.ID.String()),
			slog.String("error", updateErr.Error()),
		)
		return updateErr
	}
	if !ok {
		p.logger.Warn("lease lost, retry not scheduled",
			slog.String("job_id", j.ID.String()),
			slog.String("worker_id", owner.String()),
		)
		return procErr
	}

	p.appendEvent(ctx, job.NewStateChange(j.ID, from, job.StatusFailed,
		string(code)+": "+fault.MessageOf(procErr)))
	p.appendEvent(ctx, job.NewStateChange(j.ID, job.StatusFailed, job.StatusQueued,
		"retry scheduled"))
	p.hooks.EmitJobRetrying(ctx, j, attempt, nextRunAt)

	p.logger.Info("job scheduled for retry",
		slog.String("job_id", j.ID.String()),
		slog.Int("attempt", attempt),
		slog.Int("max_attempts", j.MaxAttempts),
		slog.Duration("delay", delay),
	)
	return procErr
}

// finalizeFailure handles a permanent failure: refund credits exactly
// once and emit JobFailed.
func (p *Processor) finalizeFailure(ctx context.Context, j *job.Job, procErr error) error {
	if j.CostCredits > 0 && j.UserID != "" {
		refund := ledger.NewRefund(j.ID, j.UserID, j.CostCredits, time.Now())
		applied, refundErr := p.store.RecordRefund(ctx, refund)
		switch {
		case refundErr != nil:
			p.logger.Error("refund failed",
				slog.String("job_id", j.ID.String()),
				slog.String("user_id", j.UserID),
				slog.String("error", refundErr.Error()),
			)
		case applied:
			p.appendEvent(ctx, job.NewNote(j.ID, "credits refunded"))
			p.logger.Info("credits refunded",
				slog.String("job_id", j.ID.String()),
				slog.String("user_id", j.UserID),
				slog.Int64("credits", j.CostCredits),
			)
		}
	}

	p.hooks.EmitJobFailed(ctx, j, procErr)

	p.logger.Warn("job failed permanently",
		slog.String("job_id", j.ID.String()),
		slog.String("error_code", string(j.ErrorCode)),
		slog.Int("attempts_made", j.AttemptsMade),
		slog.String("error", procErr.Error()),
	)
	return procErr
}

// appendEvent writes to the job's event log. The log is advisory: a
// write failure is logged and never fails the job.
func (p *Processor) appendEvent(ctx context.Context, evt *job.Event) {
	if err := p.store.AppendEvent(ctx, evt); err != nil {
		p.logger.Warn("failed to append job event",
			slog.String("job_id", evt.JobID.String()),
			slog.String("error", err.Error()),
		)
	}
}
