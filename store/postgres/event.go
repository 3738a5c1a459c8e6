package postgres

import (
	"context"
	"fmt"

	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// AppendEvent appends an entry to a job's event log.
func (s *Store) AppendEvent(ctx context.Context, evt *job.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blanklogo_job_events (
			id, job_id, type, from_state, to_state, message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		evt.ID, evt.JobID, string(evt.Type),
		string(evt.FromState), string(evt.ToState), evt.Message, evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("blanklogo/postgres: append event: %w", err)
	}
	return nil
}

// ListEvents returns a job's event log in append order.
func (s *Store) ListEvents(ctx context.Context, jobID id.JobID) ([]*job.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, job_id, type, from_state, to_state, message, created_at
		FROM blanklogo_job_events
		WHERE job_id = $1
		ORDER BY seq ASC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("blanklogo/postgres: list events: %w", err)
	}
	defer rows.Close()

	var events []*job.Event
	for rows.Next() {
		var evt job.Event
		if err := rows.Scan(
			&evt.ID, &evt.JobID, &evt.Type,
			&evt.FromState, &evt.ToState, &evt.Message, &evt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("blanklogo/postgres: scan event: %w", err)
		}
		events = append(events, &evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("blanklogo/postgres: iterate events: %w", err)
	}
	return events, nil
}
