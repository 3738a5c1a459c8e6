package hook

import (
	"context"
	"time"

	"github.com/IsaiahDupree/BlankLogo-sub004/job"
	"github.com/IsaiahDupree/BlankLogo-sub004/webhook"
)

// Compile-time interface checks.
var (
	_ Hook         = (*WebhookHook)(nil)
	_ JobStarted   = (*WebhookHook)(nil)
	_ JobProgress  = (*WebhookHook)(nil)
	_ JobCompleted = (*WebhookHook)(nil)
	_ JobFailed    = (*WebhookHook)(nil)
	_ Shutdown     = (*WebhookHook)(nil)
)

// WebhookHook bridges lifecycle events to the async webhook notifier.
// Every emit returns immediately; delivery retries happen on the
// notifier's own workers.
type WebhookHook struct {
	notifier *webhook.Notifier
}

// NewWebhookHook creates the webhook bridge.
func NewWebhookHook(n *webhook.Notifier) *WebhookHook {
	return &WebhookHook{notifier: n}
}

// Name implements Hook.
func (h *WebhookHook) Name() string { return "webhook" }

// OnJobStarted fires job.started.
func (h *WebhookHook) OnJobStarted(_ context.Context, j *job.Job) error {
	h.notifier.Notify(webhook.EventJobStarted, j)
	return nil
}

// OnJobProgress fires job.progress.
func (h *WebhookHook) OnJobProgress(_ context.Context, j *job.Job, _ int, _ string) error {
	h.notifier.Notify(webhook.EventJobProgress, j)
	return nil
}

// OnJobCompleted fires job.completed.
func (h *WebhookHook) OnJobCompleted(_ context.Context, j *job.Job, _ time.Duration) error {
	h.notifier.Notify(webhook.EventJobCompleted, j)
	return nil
}

// OnJobFailed fires job.failed. Retrying jobs don't reach here; only
// terminal failures notify subscribers.
func (h *WebhookHook) OnJobFailed(_ context.Context, j *job.Job, _ error) error {
	h.notifier.Notify(webhook.EventJobFailed, j)
	return nil
}

// OnShutdown drains the notifier.
func (h *WebhookHook) OnShutdown(ctx context.Context) error {
	return h.notifier.Close(ctx)
}
