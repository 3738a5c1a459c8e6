package webhook

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// delivery is one queued webhook send.
type delivery struct {
	url     string
	secret  string
	payload *Payload
}

// Notifier runs webhook deliveries on background workers, decoupled from
// job finalization. Enqueue never blocks: when the buffer is full the
// delivery is dropped with a warning, because a slow receiver must never
// back-pressure the processing pipeline.
type Notifier struct {
	deliverer *Deliverer
	queue     chan delivery
	logger    *slog.Logger

	group  *errgroup.Group
	cancel context.CancelFunc
}

// NotifierOption configures a Notifier.
type NotifierOption func(*notifierConfig)

type notifierConfig struct {
	workers int
	buffer  int
	logger  *slog.Logger
}

// WithWorkers sets the number of concurrent delivery workers (default 4).
func WithWorkers(n int) NotifierOption {
	return func(c *notifierConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithBuffer sets the pending-delivery buffer size (default 256).
func WithBuffer(n int) NotifierOption {
	return func(c *notifierConfig) {
		if n > 0 {
			c.buffer = n
		}
	}
}

// WithNotifierLogger sets the notifier logger.
func WithNotifierLogger(l *slog.Logger) NotifierOption {
	return func(c *notifierConfig) { c.logger = l }
}

// NewNotifier creates a Notifier and starts its workers.
func NewNotifier(deliverer *Deliverer, opts ...NotifierOption) *Notifier {
	cfg := &notifierConfig{
		workers: 4,
		buffer:  256,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	n := &Notifier{
		deliverer: deliverer,
		queue:     make(chan delivery, cfg.buffer),
		logger:    cfg.logger,
		group:     g,
		cancel:    cancel,
	}

	for range cfg.workers {
		g.Go(func() error {
			for d := range n.queue {
				n.deliverer.Deliver(ctx, d.url, d.secret, d.payload)
			}
			return nil
		})
	}
	return n
}

// Notify queues a job event for delivery. Jobs without a webhook URL are
// skipped silently.
func (n *Notifier) Notify(event Event, j *job.Job) {
	if j.WebhookURL == "" {
		return
	}

	d := delivery{
		url:     j.WebhookURL,
		secret:  j.WebhookSecret,
		payload: NewPayload(event, j, time.Now()),
	}

	select {
	case n.queue <- d:
	default:
		n.logger.Warn("webhook buffer full, dropping delivery",
			slog.String("job_id", j.ID.String()),
			slog.String("event", string(event)))
	}
}

// Close stops accepting deliveries and waits for in-flight sends to
// finish. Pending buffered deliveries are still attempted; ctx bounds the
// wait and cancels remaining retries when it expires.
func (n *Notifier) Close(ctx context.Context) error {
	close(n.queue)

	done := make(chan error, 1)
	go func() { done <- n.group.Wait() }()

	select {
	case err := <-done:
		n.cancel()
		return err
	case <-ctx.Done():
		n.cancel()
		<-done
		return ctx.Err()
	}
}
