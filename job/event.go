package job

import (
	"time"

	"github.com/IsaiahDupree/BlankLogo-sub004/id"
)

// EventType classifies an entry in a job's append-only event log.
type EventType string

const (
	// EventStateChange records a lifecycle transition.
	EventStateChange EventType = "state_change"
	// EventProgress records a pipeline milestone.
	EventProgress EventType = "progress"
	// EventNote records free-form operational context (e.g. the auto-mode
	// fallback to crop).
	EventNote EventType = "note"
)

// Event is one append-only log entry. Events are never mutated or deleted;
// they exist for audit and debugging, never for control flow.
type Event struct {
	ID        id.EventID `json:"id"`
	JobID     id.JobID   `json:"job_id"`
	Type      EventType  `json:"type"`
	FromState Status     `json:"from_state,omitempty"`
	ToState   Status     `json:"to_state,omitempty"`
	Message   string     `json:"message,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewStateChange builds a state_change event for a transition.
func NewStateChange(jobID id.JobID, from, to Status, message string) *Event {
	return &Event{
		ID:        id.NewEventID(),
		JobID:     jobID,
		Type:      EventStateChange,
		FromState: from,
		ToState:   to,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// NewProgress builds a progress event for a pipeline milestone.
func NewProgress(jobID id.JobID, message string) *Event {
	return &Event{
		ID:        id.NewEventID(),
		JobID:     jobID,
		Type:      EventProgress,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// NewNote builds a note event.
func NewNote(jobID id.JobID, message string) *Event {
	return &Event{
		ID:        id.NewEventID(),
		JobID:     jobID,
		Type:      EventNote,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}
