package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	blanklogo "github.com/IsaiahDupree/BlankLogo-sub004"
	"github.com/IsaiahDupree/BlankLogo-sub004/backoff"
	"github.com/IsaiahDupree/BlankLogo-sub004/hook"
	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
	"github.com/IsaiahDupree/BlankLogo-sub004/media"
	mw "github.com/IsaiahDupree/BlankLogo-sub004/middleware"
	"github.com/IsaiahDupree/BlankLogo-sub004/queue"
	"github.com/IsaiahDupree/BlankLogo-sub004/storage"
	"github.com/IsaiahDupree/BlankLogo-sub004/store"
	"github.com/IsaiahDupree/BlankLogo-sub004/transform"
	"github.com/IsaiahDupree/BlankLogo-sub004/webhook"
	"github.com/IsaiahDupree/BlankLogo-sub004/worker"
)

// Engine is the assembled job processing core.
// Use Build() to create one.
type Engine struct {
	store     store.Store
	cfg       blanklogo.Config
	hooks     *hook.Registry
	pool      *worker.Pool
	processor *worker.Processor
	notifier  *webhook.Notifier
	logger    *slog.Logger

	// Build inputs collected from options.
	mws          []mw.Middleware
	bo           backoff.Strategy
	uploader     storage.Uploader
	inpaintURL   string
	deliverer    *webhook.Deliverer
	extraHooks   []hook.Hook
	queueConfigs []queue.Config
	userConfigs  []queue.UserConfig
	queueManager *queue.Manager

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithMiddleware adds middleware to the engine's chain, after the
// default stack.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) { eng.mws = append(eng.mws, m) }
}

// WithBackoff sets the retry backoff strategy for the engine.
// If not set, backoff.DefaultStrategy() (exponential with jitter) is used.
func WithBackoff(b backoff.Strategy) Option {
	return func(eng *Engine) { eng.bo = b }
}

// WithUploader sets the object storage backend results are published to.
// Required for successful processing; without it every job fails with
// FAILED_STORAGE.
func WithUploader(u storage.Uploader) Option {
	return func(eng *Engine) { eng.uploader = u }
}

// WithInpaintService sets the base URL of the remote inpainting service.
// Without it, inpaint mode fails with FAILED_PROVIDER and auto mode goes
// straight to crop.
func WithInpaintService(baseURL string) Option {
	return func(eng *Engine) { eng.inpaintURL = baseURL }
}

// WithDeliverer sets a custom webhook deliverer. If not set, a default
// deliverer (3 attempts at 1s/5s/15s) is used.
func WithDeliverer(d *webhook.Deliverer) Option {
	return func(eng *Engine) { eng.deliverer = d }
}

// WithHook registers an additional lifecycle hook.
func WithHook(h hook.Hook) Option {
	return func(eng *Engine) { eng.extraHooks = append(eng.extraHooks, h) }
}

// WithQueueConfig registers queue-level rate limiting and concurrency
// configurations. Queues not listed have no limits.
func WithQueueConfig(configs ...queue.Config) Option {
	return func(eng *Engine) { eng.queueConfigs = append(eng.queueConfigs, configs...) }
}

// WithUserConfig registers per-user rate limiting and concurrency
// configurations within a queue.
func WithUserConfig(configs ...queue.UserConfig) Option {
	return func(eng *Engine) { eng.userConfigs = append(eng.userConfigs, configs...) }
}

// WithTracerProvider sets a custom OTel TracerProvider for the engine.
// If not set, the global otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) { eng.tracerProvider = tp }
}

// WithMeterProvider sets a custom OTel MeterProvider for the engine.
// If not set, the global otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) { eng.meterProvider = mp }
}

// Build assembles an Engine from a store and configuration.
func Build(st store.Store, cfg blanklogo.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, blanklogo.ErrNoStore
	}
	if logger == nil {
		logger = slog.Default()
	}

	eng := &Engine{
		store:  st,
		cfg:    cfg,
		hooks:  hook.NewRegistry(logger),
		logger: logger,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.bo == nil {
		eng.bo = backoff.NewExponentialWithJitter(cfg.BackoffBase, cfg.BackoffCap)
	}
	if eng.uploader == nil {
		return nil, fmt.Errorf("blanklogo: no uploader configured")
	}

	// Webhook delivery: notifier workers deliver asynchronously so a slow
	// or unreachable target never delays job finalization.
	if eng.deliverer == nil {
		eng.deliverer = webhook.NewDeliverer(webhook.WithLogger(logger))
	}
	eng.notifier = webhook.NewNotifier(eng.deliverer, webhook.WithNotifierLogger(logger))

	// Hooks: audit trail first, then webhook bridge, then extras, in
	// registration order.
	eng.hooks.Register(hook.NewAuditHook(st))
	eng.hooks.Register(hook.NewWebhookHook(eng.notifier))
	for _, h := range eng.extraHooks {
		eng.hooks.Register(h)
	}

	// Build tracing middleware (custom provider or global).
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracer := eng.tracerProvider.Tracer("github.com/IsaiahDupree/BlankLogo-sub004")
		tracingMw = mw.TracingWithTracer(tracer)
	} else {
		tracingMw = mw.Tracing()
	}

	// Build metrics middleware (custom provider or global).
	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		meter := eng.meterProvider.Meter("github.com/IsaiahDupree/BlankLogo-sub004")
		metricsMw = mw.MetricsWithMeter(meter)
	} else {
		metricsMw = mw.Metrics()
	}

	// Default middleware stack: recover → tracing → metrics → logging → timeout.
	defaultMws := []mw.Middleware{
		mw.Recover(logger),
		tracingMw,
		metricsMw,
		mw.Logging(logger),
		mw.Timeout(cfg.ProcessingTimeout),
	}
	allMws := make([]mw.Middleware, 0, len(defaultMws)+len(eng.mws))
	allMws = append(allMws, defaultMws...)
	allMws = append(allMws, eng.mws...)

	// Processing router: crop locally, inpaint remotely when configured.
	var inpaint *transform.InpaintClient
	if eng.inpaintURL != "" {
		inpaint = transform.NewInpaintClient(eng.inpaintURL,
			transform.WithInpaintTimeout(cfg.ProcessingTimeout))
	}
	router := transform.NewRouter(transform.NewCropper(), inpaint, logger)

	eng.processor = worker.NewProcessor(
		st,
		router,
		eng.uploader,
		media.NewFetcher(cfg.MaxSourceBytes),
		eng.hooks,
		logger,
		worker.WithBackoff(eng.bo),
		worker.WithMiddleware(allMws...),
		worker.WithSourceLimits(cfg.MaxSourceBytes, cfg.MaxDuration),
	)

	poolOpts := []worker.PoolOption{
		worker.WithPoolConcurrency(cfg.Concurrency),
		worker.WithPoolQueues(cfg.Queues),
		worker.WithPollInterval(cfg.PollInterval),
		worker.WithLeaseDuration(cfg.LeaseDuration),
		worker.WithHeartbeatInterval(cfg.HeartbeatInterval),
	}

	if len(eng.queueConfigs) > 0 || len(eng.userConfigs) > 0 {
		eng.queueManager = queue.NewManager(eng.queueConfigs...)
		for _, uc := range eng.userConfigs {
			eng.queueManager.SetUserConfig(uc)
		}
		poolOpts = append(poolOpts, worker.WithQueueManager(eng.queueManager))
	}

	eng.pool = worker.NewPool(st, eng.processor, logger, poolOpts...)

	return eng, nil
}

// EnqueueRequest describes a new watermark-removal job.
type EnqueueRequest struct {
	SourceURL      string
	SourceFilename string
	PlatformHint   string

	Mode         string // crop, inpaint, or auto; defaults to auto
	CropPixels   int    // defaults to 100
	CropPosition string // top, bottom, left, right; defaults to bottom

	Queue       string // defaults to "default"
	MaxAttempts int    // defaults to Config.MaxAttempts

	WebhookURL    string
	WebhookSecret string

	UserID      string
	CostCredits int64
}

// Enqueue validates the request and persists a new queued job.
// The webhook target is validated at submission time so that a forbidden
// target is rejected before any work or credits are committed.
func (eng *Engine) Enqueue(ctx context.Context, req EnqueueRequest) (*job.Job, error) {
	if req.SourceURL == "" {
		return nil, fmt.Errorf("blanklogo: source URL is required")
	}

	mode := job.ModeAuto
	if req.Mode != "" {
		m, ok := job.ParseMode(req.Mode)
		if !ok {
			return nil, fmt.Errorf("blanklogo: invalid mode %q", req.Mode)
		}
		mode = m
	}

	position := job.PositionBottom
	if req.CropPosition != "" {
		p, ok := job.ParsePosition(req.CropPosition)
		if !ok {
			return nil, fmt.Errorf("blanklogo: invalid crop position %q", req.CropPosition)
		}
		position = p
	}

	pixels := req.CropPixels
	if pixels == 0 {
		pixels = 100
	}
	if pixels < 0 {
		return nil, fmt.Errorf("blanklogo: crop pixels must be positive, got %d", pixels)
	}

	if req.WebhookURL != "" {
		if err := webhook.ValidateTarget(req.WebhookURL); err != nil {
			return nil, fmt.Errorf("blanklogo: webhook target rejected: %w", err)
		}
	}

	queueName := req.Queue
	if queueName == "" {
		queueName = "default"
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = eng.cfg.MaxAttempts
	}

	now := time.Now().UTC()
	j := &job.Job{
		ID:             id.NewJobID(),
		Queue:          queueName,
		SourceURL:      req.SourceURL,
		SourceFilename: req.SourceFilename,
		PlatformHint:   req.PlatformHint,
		Mode:           mode,
		CropPixels:     pixels,
		CropPosition:   position,
		Status:         job.StatusQueued,
		MaxAttempts:    maxAttempts,
		RunAt:          now,
		WebhookURL:     req.WebhookURL,
		WebhookSecret:  req.WebhookSecret,
		UserID:         req.UserID,
		CostCredits:    req.CostCredits,
	}
	j.CreatedAt = now
	j.UpdatedAt = now

	if err := eng.store.EnqueueJob(ctx, j); err != nil {
		return nil, err
	}

	eng.hooks.EmitJobEnqueued(ctx, j)

	eng.logger.Info("job enqueued",
		slog.String("job_id", j.ID.String()),
		slog.String("queue", j.Queue),
		slog.String("mode", string(j.Mode)),
	)
	return j, nil
}

// Cancel moves a queued job to cancelled. Jobs that already hold a lease
// cannot be cancelled; the call returns ErrInvalidTransition.
func (eng *Engine) Cancel(ctx context.Context, jobID id.JobID) error {
	if err := eng.store.CancelJob(ctx, jobID); err != nil {
		return err
	}

	j, err := eng.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	eng.hooks.EmitJobCancelled(ctx, j)

	eng.logger.Info("job cancelled", slog.String("job_id", jobID.String()))
	return nil
}

// GetJob retrieves a job by ID.
func (eng *Engine) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return eng.store.GetJob(ctx, jobID)
}

// ListEvents returns a job's event log in append order.
func (eng *Engine) ListEvents(ctx context.Context, jobID id.JobID) ([]*job.Event, error) {
	return eng.store.ListEvents(ctx, jobID)
}

// Start begins job processing by starting the worker pool.
func (eng *Engine) Start(ctx context.Context) error {
	return eng.pool.Start(ctx)
}

// Stop gracefully shuts down the engine: the pool drains first, then
// hooks (including the webhook notifier) flush their remaining work.
func (eng *Engine) Stop(ctx context.Context) error {
	if err := eng.pool.Stop(ctx); err != nil {
		eng.logger.Error("worker pool stop error", slog.String("error", err.Error()))
	}

	eng.hooks.EmitShutdown(ctx)
	return nil
}

// Hooks returns the hook registry.
func (eng *Engine) Hooks() *hook.Registry { return eng.hooks }

// Pool returns the worker pool.
func (eng *Engine) Pool() *worker.Pool { return eng.pool }

// Store returns the underlying store.
func (eng *Engine) Store() store.Store { return eng.store }

// QueueManager returns the queue manager, or nil if no queue configs
// were provided.
func (eng *Engine) QueueManager() *queue.Manager { return eng.queueManager }
