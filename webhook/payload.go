package webhook

import (
	"encoding/json"
	"time"

	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// Event names the lifecycle moments subscribers can observe.
type Event string

const (
	EventJobStarted   Event = "job.started"
	EventJobProgress  Event = "job.progress"
	EventJobCompleted Event = "job.completed"
	EventJobFailed    Event = "job.failed"
)

// Payload is the JSON body delivered to webhook targets. Receivers may see
// the same event+jobID+timestamp more than once and are expected to
// deduplicate.
type Payload struct {
	Event     Event          `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// NewPayload builds a payload for a job event with the per-event data the
// original delivery contract exposes.
func NewPayload(event Event, j *job.Job, now time.Time) *Payload {
	data := map[string]any{
		"job_id": j.ID.String(),
		"status": string(j.Status),
	}

	switch event {
	case EventJobCompleted:
		data["output_url"] = j.OutputURL
		data["output_size_bytes"] = j.OutputSizeBytes
		data["processing_time_ms"] = j.ProcessingTimeMs
		data["strategy_used"] = j.StrategyUsed
	case EventJobFailed:
		data["error_code"] = string(j.ErrorCode)
		data["error_message"] = j.ErrorMessage
		data["attempts_made"] = j.AttemptsMade
	}

	return &Payload{
		Event:     event,
		Timestamp: now.UTC(),
		Data:      data,
	}
}

// Marshal renders the payload to the exact bytes that get signed and sent.
func (p *Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}
