package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// AppendEvent appends an entry to a job's event log.
func (s *Store) AppendEvent(ctx context.Context, evt *job.Event) error {
	if _, err := s.db.Collection(colEvents).InsertOne(ctx, toEventModel(evt)); err != nil {
		return fmt.Errorf("blanklogo/mongo: append event: %w", err)
	}
	return nil
}

// ListEvents returns a job's event log in append order.
func (s *Store) ListEvents(ctx context.Context, jobID id.JobID) ([]*job.Event, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.db.Collection(colEvents).Find(ctx, bson.M{"job_id": jobID.String()}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("blanklogo/mongo: list events: %w", err)
	}
	defer cursor.Close(ctx) //nolint:errcheck

	var models []eventModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("blanklogo/mongo: decode events: %w", err)
	}

	events := make([]*job.Event, 0, len(models))
	for i := range models {
		evt, convErr := fromEventModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		events = append(events, evt)
	}
	return events, nil
}
