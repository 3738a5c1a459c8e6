package hook

import (
	"context"
	"fmt"
	"time"

	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// Compile-time interface checks.
var (
	_ Hook         = (*AuditHook)(nil)
	_ JobEnqueued  = (*AuditHook)(nil)
	_ JobProgress  = (*AuditHook)(nil)
	_ JobRetrying  = (*AuditHook)(nil)
	_ JobCancelled = (*AuditHook)(nil)
)

// EventAppender is the slice of the job store the audit hook needs.
type EventAppender interface {
	AppendEvent(ctx context.Context, e *job.Event) error
}

// AuditHook appends lifecycle milestones to the job's append-only event
// log. State-change events for the core transitions are written by the
// processor itself (they must share the transition's store update); this
// hook covers the informational ones.
type AuditHook struct {
	events EventAppender
}

// NewAuditHook creates the event-log audit hook.
func NewAuditHook(events EventAppender) *AuditHook {
	return &AuditHook{events: events}
}

// Name implements Hook.
func (h *AuditHook) Name() string { return "audit" }

// OnJobEnqueued records the submission.
func (h *AuditHook) OnJobEnqueued(ctx context.Context, j *job.Job) error {
	return h.events.AppendEvent(ctx, job.NewNote(j.ID, "job enqueued"))
}

// OnJobProgress records a pipeline milestone.
func (h *AuditHook) OnJobProgress(ctx context.Context, j *job.Job, percent int, stage string) error {
	return h.events.AppendEvent(ctx, job.NewProgress(j.ID,
		fmt.Sprintf("%s (%d%%)", stage, percent)))
}

// OnJobRetrying records the retry schedule.
func (h *AuditHook) OnJobRetrying(ctx context.Context, j *job.Job, attempt int, nextRunAt time.Time) error {
	return h.events.AppendEvent(ctx, job.NewNote(j.ID,
		fmt.Sprintf("attempt %d failed, retrying at %s", attempt, nextRunAt.UTC().Format(time.RFC3339))))
}

// OnJobCancelled records the cancellation.
func (h *AuditHook) OnJobCancelled(ctx context.Context, j *job.Job) error {
	return h.events.AppendEvent(ctx, job.NewNote(j.ID, "job cancelled before processing"))
}
