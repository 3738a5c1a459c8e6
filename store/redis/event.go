package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// AppendEvent appends an entry to a job's event log. The log is a Redis
// List: RPUSH preserves append order, LRANGE reads it back.
func (s *Store) AppendEvent(ctx context.Context, evt *job.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("blanklogo/redis: marshal event: %w", err)
	}
	if err := s.client.RPush(ctx, eventsKey(evt.JobID.String()), data).Err(); err != nil {
		return fmt.Errorf("blanklogo/redis: append event: %w", err)
	}
	return nil
}

// ListEvents returns a job's event log in append order.
func (s *Store) ListEvents(ctx context.Context, jobID id.JobID) ([]*job.Event, error) {
	entries, err := s.client.LRange(ctx, eventsKey(jobID.String()), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("blanklogo/redis: list events: %w", err)
	}

	events := make([]*job.Event, 0, len(entries))
	for _, entry := range entries {
		var evt job.Event
		if err := json.Unmarshal([]byte(entry), &evt); err != nil {
			continue // skip corrupt entries
		}
		events = append(events, &evt)
	}
	return events, nil
}
