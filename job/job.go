package job

import (
	"time"

	blanklogo "github.com/IsaiahDupree/BlankLogo-sub004"
	"github.com/IsaiahDupree/BlankLogo-sub004/fault"
	"github.com/IsaiahDupree/BlankLogo-sub004/id"
)

// Mode selects the watermark-removal strategy for a job.
type Mode string

const (
	// ModeCrop removes the watermark by cropping pixels off one edge.
	ModeCrop Mode = "crop"
	// ModeInpaint removes the watermark via the remote inpainting service.
	ModeInpaint Mode = "inpaint"
	// ModeAuto tries inpainting first and falls back to crop on failure.
	ModeAuto Mode = "auto"
)

// ParseMode validates a mode string against the closed set.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeCrop, ModeInpaint, ModeAuto:
		return Mode(s), true
	}
	return "", false
}

// Position identifies the edge a crop removes pixels from.
type Position string

const (
	PositionTop    Position = "top"
	PositionBottom Position = "bottom"
	PositionLeft   Position = "left"
	PositionRight  Position = "right"
)

// ParsePosition validates a crop position string against the closed set.
func ParsePosition(s string) (Position, bool) {
	switch Position(s) {
	case PositionTop, PositionBottom, PositionLeft, PositionRight:
		return Position(s), true
	}
	return "", false
}

// Job is the unit of work: one source video and one removal request.
type Job struct {
	blanklogo.Entity

	ID    id.JobID `json:"id"`
	Queue string   `json:"queue"`

	// Input.
	SourceURL      string `json:"source_url"`
	SourceFilename string `json:"source_filename"`
	PlatformHint   string `json:"platform_hint,omitempty"`

	// Request.
	Mode         Mode     `json:"mode"`
	CropPixels   int      `json:"crop_pixels"`
	CropPosition Position `json:"crop_position"`

	// Lifecycle.
	Status       Status     `json:"status"`
	AttemptsMade int        `json:"attempts_made"`
	MaxAttempts  int        `json:"max_attempts"`
	RunAt        time.Time  `json:"run_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	// Lease. Present only while Status is StatusProcessing.
	LeaseOwnerID   id.WorkerID `json:"lease_owner_id,omitempty"`
	LeaseExpiresAt *time.Time  `json:"lease_expires_at,omitempty"`

	// Output. Set only on StatusCompleted.
	OutputURL        string `json:"output_url,omitempty"`
	OutputSizeBytes  int64  `json:"output_size_bytes,omitempty"`
	ProcessingTimeMs int64  `json:"processing_time_ms,omitempty"`
	StrategyUsed     string `json:"strategy_used,omitempty"`

	// Failure. Set only on StatusFailed.
	ErrorCode    fault.Code `json:"error_code,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`

	// Delivery.
	WebhookURL    string `json:"webhook_url,omitempty"`
	WebhookSecret string `json:"webhook_secret,omitempty"`

	// Billing. CostCredits is refunded exactly once on permanent failure.
	UserID      string `json:"user_id,omitempty"`
	CostCredits int64  `json:"cost_credits,omitempty"`
}

// LeaseExpired reports whether the job's lease is absent or past expiry
// at the given instant.
func (j *Job) LeaseExpired(now time.Time) bool {
	return j.LeaseExpiresAt == nil || !j.LeaseExpiresAt.After(now)
}

// Terminal reports whether the job has reached a terminal status.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusCancelled ||
		(j.Status == StatusFailed && (j.AttemptsMade >= j.MaxAttempts || !j.ErrorCode.Retryable()))
}
