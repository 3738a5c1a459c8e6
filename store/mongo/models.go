package mongo

import (
	"fmt"
	"time"

	blanklogo "github.com/IsaiahDupree/BlankLogo-sub004"
	"github.com/IsaiahDupree/BlankLogo-sub004/fault"
	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
	"github.com/IsaiahDupree/BlankLogo-sub004/ledger"
)

// ── Job model ─────────────────────────────────────────────────────

type jobModel struct {
	ID    string `bson:"_id"`
	Queue string `bson:"queue"`

	SourceURL      string `bson:"source_url"`
	SourceFilename string `bson:"source_filename"`
	PlatformHint   string `bson:"platform_hint,omitempty"`

	Mode         string `bson:"mode"`
	CropPixels   int    `bson:"crop_pixels"`
	CropPosition string `bson:"crop_position"`

	Status       string     `bson:"status"`
	AttemptsMade int        `bson:"attempts_made"`
	MaxAttempts  int        `bson:"max_attempts"`
	RunAt        time.Time  `bson:"run_at"`
	StartedAt    *time.Time `bson:"started_at,omitempty"`
	CompletedAt  *time.Time `bson:"completed_at,omitempty"`

	LeaseOwnerID   string     `bson:"lease_owner_id,omitempty"`
	LeaseExpiresAt *time.Time `bson:"lease_expires_at,omitempty"`

	OutputURL        string `bson:"output_url,omitempty"`
	OutputSizeBytes  int64  `bson:"output_size_bytes,omitempty"`
	ProcessingTimeMs int64  `bson:"processing_time_ms,omitempty"`
	StrategyUsed     string `bson:"strategy_used,omitempty"`

	ErrorCode    string `bson:"error_code,omitempty"`
	ErrorMessage string `bson:"error_message,omitempty"`

	WebhookURL    string `bson:"webhook_url,omitempty"`
	WebhookSecret string `bson:"webhook_secret,omitempty"`

	UserID      string `bson:"user_id,omitempty"`
	CostCredits int64  `bson:"cost_credits,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toJobModel(j *job.Job) *jobModel {
	return &jobModel{
		ID:               j.ID.String(),
		Queue:            j.Queue,
		SourceURL:        j.SourceURL,
		SourceFilename:   j.SourceFilename,
		PlatformHint:     j.PlatformHint,
		Mode:             string(j.Mode),
		CropPixels:       j.CropPixels,
		CropPosition:     string(j.CropPosition),
		Status:           string(j.Status),
		AttemptsMade:     j.AttemptsMade,
		MaxAttempts:      j.MaxAttempts,
		RunAt:            j.RunAt,
		StartedAt:        j.StartedAt,
		CompletedAt:      j.CompletedAt,
		LeaseOwnerID:     j.LeaseOwnerID.String(),
		LeaseExpiresAt:   j.LeaseExpiresAt,
		OutputURL:        j.OutputURL,
		OutputSizeBytes:  j.OutputSizeBytes,
		ProcessingTimeMs: j.ProcessingTimeMs,
		StrategyUsed:     j.StrategyUsed,
		ErrorCode:        string(j.ErrorCode),
		ErrorMessage:     j.ErrorMessage,
		WebhookURL:       j.WebhookURL,
		WebhookSecret:    j.WebhookSecret,
		UserID:           j.UserID,
		CostCredits:      j.CostCredits,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.UpdatedAt,
	}
}

func fromJobModel(m *jobModel) (*job.Job, error) {
	parsedID, err := id.ParseJobID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("blanklogo/mongo: parse job id %q: %w", m.ID, err)
	}

	j := &job.Job{
		Entity: blanklogo.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:               parsedID,
		Queue:            m.Queue,
		SourceURL:        m.SourceURL,
		SourceFilename:   m.SourceFilename,
		PlatformHint:     m.PlatformHint,
		Mode:             job.Mode(m.Mode),
		CropPixels:       m.CropPixels,
		CropPosition:     job.Position(m.CropPosition),
		Status:           job.Status(m.Status),
		AttemptsMade:     m.AttemptsMade,
		MaxAttempts:      m.MaxAttempts,
		RunAt:            m.RunAt,
		StartedAt:        m.StartedAt,
		CompletedAt:      m.CompletedAt,
		LeaseExpiresAt:   m.LeaseExpiresAt,
		OutputURL:        m.OutputURL,
		OutputSizeBytes:  m.OutputSizeBytes,
		ProcessingTimeMs: m.ProcessingTimeMs,
		StrategyUsed:     m.StrategyUsed,
		ErrorCode:        fault.Code(m.ErrorCode),
		ErrorMessage:     m.ErrorMessage,
		WebhookURL:       m.WebhookURL,
		WebhookSecret:    m.WebhookSecret,
		UserID:           m.UserID,
		CostCredits:      m.CostCredits,
	}

	if m.LeaseOwnerID != "" {
		owner, parseErr := id.ParseWorkerID(m.LeaseOwnerID)
		if parseErr != nil {
			return nil, fmt.Errorf("blanklogo/mongo: parse lease owner %q: %w", m.LeaseOwnerID, parseErr)
		}
		j.LeaseOwnerID = owner
	}

	return j, nil
}

// ── Event model ───────────────────────────────────────────────────

type eventModel struct {
	ID        string    `bson:"_id"`
	JobID     string    `bson:"job_id"`
	Type      string    `bson:"type"`
	FromState string    `bson:"from_state,omitempty"`
	ToState   string    `bson:"to_state,omitempty"`
	Message   string    `bson:"message,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func toEventModel(evt *job.Event) *eventModel {
	return &eventModel{
		ID:        evt.ID.String(),
		JobID:     evt.JobID.String(),
		Type:      string(evt.Type),
		FromState: string(evt.FromState),
		ToState:   string(evt.ToState),
		Message:   evt.Message,
		CreatedAt: evt.CreatedAt,
	}
}

func fromEventModel(m *eventModel) (*job.Event, error) {
	eventID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("blanklogo/mongo: parse event id %q: %w", m.ID, err)
	}
	jobID, err := id.ParseJobID(m.JobID)
	if err != nil {
		return nil, fmt.Errorf("blanklogo/mongo: parse event job id %q: %w", m.JobID, err)
	}
	return &job.Event{
		ID:        eventID,
		JobID:     jobID,
		Type:      job.EventType(m.Type),
		FromState: job.Status(m.FromState),
		ToState:   job.Status(m.ToState),
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}, nil
}

// ── Refund model ──────────────────────────────────────────────────

type refundModel struct {
	JobID     string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Credits   int64     `bson:"credits"`
	CreatedAt time.Time `bson:"created_at"`
}

func toRefundModel(r *ledger.Refund) *refundModel {
	return &refundModel{
		JobID:     r.JobID.String(),
		UserID:    r.UserID,
		Credits:   r.Credits,
		CreatedAt: r.CreatedAt,
	}
}

func fromRefundModel(m *refundModel) (*ledger.Refund, error) {
	jobID, err := id.ParseJobID(m.JobID)
	if err != nil {
		return nil, fmt.Errorf("blanklogo/mongo: parse refund job id %q: %w", m.JobID, err)
	}
	return &ledger.Refund{
		JobID:     jobID,
		UserID:    m.UserID,
		Credits:   m.Credits,
		CreatedAt: m.CreatedAt,
	}, nil
}
