package webhook

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"
)

// defaultUserAgent identifies the worker to webhook receivers.
const defaultUserAgent = "BlankLogo-Webhook/1.0"

// defaultDelays are the waits between delivery attempts. Three attempts
// total, so two waits are consumed; the third entry covers a configured
// higher attempt count.
var defaultDelays = []time.Duration{1 * time.Second, 5 * time.Second, 15 * time.Second}

// Result reports the outcome of a delivery across all its attempts.
type Result struct {
	Success    bool
	StatusCode int
	Attempts   int
}

// Deliverer sends signed webhook payloads with bounded retries.
type Deliverer struct {
	client    *http.Client
	userAgent string
	attempts  int
	delays    []time.Duration
	logger    *slog.Logger
}

// DelivererOption configures a Deliverer.
type DelivererOption func(*Deliverer)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(c *http.Client) DelivererOption {
	return func(d *Deliverer) { d.client = c }
}

// WithAttempts overrides the maximum delivery attempts (default 3).
func WithAttempts(n int) DelivererOption {
	return func(d *Deliverer) {
		if n > 0 {
			d.attempts = n
		}
	}
}

// WithDelays overrides the waits between attempts.
func WithDelays(delays ...time.Duration) DelivererOption {
	return func(d *Deliverer) {
		if len(delays) > 0 {
			d.delays = delays
		}
	}
}

// WithLogger sets the delivery logger.
func WithLogger(l *slog.Logger) DelivererOption {
	return func(d *Deliverer) { d.logger = l }
}

// NewDeliverer creates a Deliverer with the fixed retry schedule:
// up to 3 attempts, waiting 1s then 5s between them.
func NewDeliverer(opts ...DelivererOption) *Deliverer {
	d := &Deliverer{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: defaultUserAgent,
		attempts:  3,
		delays:    defaultDelays,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver validates the target, then posts the payload until an attempt
// succeeds or the budget runs out.
//
// An attempt is terminal on a 2xx (success) or any 4xx other than 429
// (client error, retrying won't change the answer). 429, 5xx, and
// network errors consume an attempt and continue.
func (d *Deliverer) Deliver(ctx context.Context, url, secret string, p *Payload) *Result {
	res := &Result{}

	if err := ValidateTarget(url); err != nil {
		d.logger.Warn("webhook target rejected",
			slog.String("url", url),
			slog.String("error", err.Error()))
		return res
	}

	body, err := p.Marshal()
	if err != nil {
		d.logger.Error("webhook payload marshal failed", slog.String("error", err.Error()))
		return res
	}

	for attempt := 1; attempt <= d.attempts; attempt++ {
		res.Attempts = attempt

		status, err := d.post(ctx, url, secret, body, p)
		res.StatusCode = status

		switch {
		case err == nil && status >= 200 && status < 300:
			res.Success = true
			return res
		case err == nil && status >= 400 && status < 500 && status != http.StatusTooManyRequests:
			d.logger.Warn("webhook rejected by receiver",
				slog.String("url", url),
				slog.String("event", string(p.Event)),
				slog.Int("status", status))
			return res
		}

		if err != nil {
			d.logger.Warn("webhook attempt failed",
				slog.String("url", url),
				slog.String("event", string(p.Event)),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		} else {
			d.logger.Warn("webhook attempt failed",
				slog.String("url", url),
				slog.String("event", string(p.Event)),
				slog.Int("attempt", attempt),
				slog.Int("status", status))
		}

		if attempt < d.attempts {
			if !sleepCtx(ctx, d.delay(attempt)) {
				return res
			}
		}
	}
	return res
}

func (d *Deliverer) post(ctx context.Context, url, secret string, body []byte, p *Payload) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("X-Webhook-Event", string(p.Event))
	req.Header.Set("X-Webhook-Timestamp", p.Timestamp.Format(time.RFC3339))
	if secret != "" {
		req.Header.Set("X-Webhook-Signature", Sign(secret, body))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// delay returns the wait after the nth attempt (1-indexed), reusing the
// last configured delay when attempts exceed the schedule.
func (d *Deliverer) delay(attempt int) time.Duration {
	if attempt <= len(d.delays) {
		return d.delays[attempt-1]
	}
	return d.delays[len(d.delays)-1]
}

// sleepCtx waits for dur unless ctx finishes first. Reports whether the
// full wait elapsed.
func sleepCtx(ctx context.Context, dur time.Duration) bool {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
