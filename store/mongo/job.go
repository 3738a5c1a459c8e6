package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	blanklogo "github.com/IsaiahDupree/BlankLogo-sub004"
	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// EnqueueJob persists a new job in queued status.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	m := toJobModel(j)
	if _, err := s.db.Collection(colJobs).InsertOne(ctx, m); err != nil {
		if isDuplicateKey(err) {
			return blanklogo.ErrJobAlreadyExists
		}
		return fmt.Errorf("blanklogo/mongo: enqueue job: %w", err)
	}
	return nil
}

// DequeueJobs atomically claims up to limit runnable queued jobs. Each
// FindOneAndUpdate is a single-document atomic claim, so two workers
// polling the same queues never both receive the same job.
func (s *Store) DequeueJobs(ctx context.Context, queues []string, workerID id.WorkerID, lease time.Duration, limit int) ([]*job.Job, error) {
	now := time.Now().UTC()
	col := s.db.Collection(colJobs)
	jobs := make([]*job.Job, 0, limit)

	for range limit {
		filter := bson.M{
			"status": string(job.StatusQueued),
			"queue":  bson.M{"$in": queues},
			"run_at": bson.M{"$lte": now},
		}
		update := bson.M{
			"$set": bson.M{
				"status":           string(job.StatusProcessing),
				"started_at":       now,
				"lease_owner_id":   workerID.String(),
				"lease_expires_at": now.Add(lease),
				"updated_at":       now,
			},
		}
		opts := options.FindOneAndUpdate().
			SetReturnDocument(options.After).
			SetSort(bson.D{{Key: "run_at", Value: 1}})

		var m jobModel
		err := col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&m)
		if err != nil {
			if isNoDocuments(err) {
				break
			}
			return nil, fmt.Errorf("blanklogo/mongo: dequeue jobs: %w", err)
		}

		j, convErr := fromJobModel(&m)
		if convErr != nil {
			return nil, fmt.Errorf("blanklogo/mongo: dequeue convert: %w", convErr)
		}
		jobs = append(jobs, j)
	}

	return jobs, nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	var m jobModel
	err := s.db.Collection(colJobs).FindOne(ctx, bson.M{"_id": jobID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, blanklogo.ErrJobNotFound
		}
		return nil, fmt.Errorf("blanklogo/mongo: get job: %w", err)
	}
	return fromJobModel(&m)
}

// UpdateJob persists changes to an existing job.
func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	m := toJobModel(j)
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.Collection(colJobs).ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("blanklogo/mongo: update job: %w", err)
	}
	if res.MatchedCount == 0 {
		return blanklogo.ErrJobNotFound
	}
	return nil
}

// UpdateJobOwned persists changes to a job only while ownerID matches the
// stored lease owner. The owner term in the replace filter fences out
// writers whose lease was reaped or reclaimed.
func (s *Store) UpdateJobOwned(ctx context.Context, j *job.Job, ownerID id.WorkerID) (bool, error) {
	m := toJobModel(j)
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.Collection(colJobs).ReplaceOne(ctx,
		bson.M{"_id": m.ID, "lease_owner_id": ownerID.String()}, m)
	if err != nil {
		return false, fmt.Errorf("blanklogo/mongo: owned update job: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	// Distinguish "fenced out" from "no such job".
	count, err := s.db.Collection(colJobs).CountDocuments(ctx, bson.M{"_id": m.ID})
	if err != nil {
		return false, fmt.Errorf("blanklogo/mongo: owned update exists check: %w", err)
	}
	if count == 0 {
		return false, blanklogo.ErrJobNotFound
	}
	return false, nil
}

// ClaimLease attempts to take the lease on a job for workerID. The filter
// only matches when the lease is unset, expired, or already held by
// workerID, making the claim a compare-and-set.
func (s *Store) ClaimLease(ctx context.Context, jobID id.JobID, workerID id.WorkerID, lease time.Duration) (bool, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"_id": jobID.String(),
		"$or": []bson.M{
			{"lease_owner_id": bson.M{"$in": []any{"", nil}}},
			{"lease_owner_id": workerID.String()},
			{"lease_expires_at": nil},
			{"lease_expires_at": bson.M{"$lte": now}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"lease_owner_id":   workerID.String(),
			"lease_expires_at": now.Add(lease),
			"updated_at":       now,
		},
	}

	res, err := s.db.Collection(colJobs).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("blanklogo/mongo: claim lease: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	// Distinguish "held by another worker" from "no such job".
	count, err := s.db.Collection(colJobs).CountDocuments(ctx, bson.M{"_id": jobID.String()})
	if err != nil {
		return false, fmt.Errorf("blanklogo/mongo: claim lease exists check: %w", err)
	}
	if count == 0 {
		return false, blanklogo.ErrJobNotFound
	}
	return false, nil
}

// RenewLease extends the lease held by workerID. Fails with ok=false when
// workerID no longer holds the lease.
func (s *Store) RenewLease(ctx context.Context, jobID id.JobID, workerID id.WorkerID, lease time.Duration) (bool, error) {
	now := time.Now().UTC()
	res, err := s.db.Collection(colJobs).UpdateOne(ctx,
		bson.M{
			"_id":            jobID.String(),
			"lease_owner_id": workerID.String(),
		},
		bson.M{"$set": bson.M{
			"lease_expires_at": now.Add(lease),
			"updated_at":       now,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("blanklogo/mongo: renew lease: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// ReapExpiredLeases returns processing jobs whose lease expired before now.
func (s *Store) ReapExpiredLeases(ctx context.Context, now time.Time) ([]*job.Job, error) {
	filter := bson.M{
		"status": string(job.StatusProcessing),
		"$or": []bson.M{
			{"lease_expires_at": nil},
			{"lease_expires_at": bson.M{"$lte": now}},
		},
	}

	cursor, err := s.db.Collection(colJobs).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("blanklogo/mongo: reap expired leases: %w", err)
	}
	defer cursor.Close(ctx) //nolint:errcheck

	return collectJobs(ctx, cursor)
}

// CancelJob moves a job from queued to cancelled.
func (s *Store) CancelJob(ctx context.Context, jobID id.JobID) error {
	now := time.Now().UTC()
	res, err := s.db.Collection(colJobs).UpdateOne(ctx,
		bson.M{
			"_id":    jobID.String(),
			"status": string(job.StatusQueued),
		},
		bson.M{"$set": bson.M{
			"status":     string(job.StatusCancelled),
			"updated_at": now,
		}},
	)
	if err != nil {
		return fmt.Errorf("blanklogo/mongo: cancel job: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	count, err := s.db.Collection(colJobs).CountDocuments(ctx, bson.M{"_id": jobID.String()})
	if err != nil {
		return fmt.Errorf("blanklogo/mongo: cancel exists check: %w", err)
	}
	if count == 0 {
		return blanklogo.ErrJobNotFound
	}
	return blanklogo.ErrInvalidTransition
}

// ListJobsByStatus returns jobs matching the given status.
func (s *Store) ListJobsByStatus(ctx context.Context, status job.Status, opts job.ListOpts) ([]*job.Job, error) {
	filter := bson.M{"status": string(status)}
	if opts.Queue != "" {
		filter["queue"] = opts.Queue
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.db.Collection(colJobs).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("blanklogo/mongo: list jobs by status: %w", err)
	}
	defer cursor.Close(ctx) //nolint:errcheck

	return collectJobs(ctx, cursor)
}

// CountJobs returns the number of jobs matching the given options.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	filter := bson.M{}
	if opts.Queue != "" {
		filter["queue"] = opts.Queue
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	count, err := s.db.Collection(colJobs).CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("blanklogo/mongo: count jobs: %w", err)
	}
	return count, nil
}

func collectJobs(ctx context.Context, cursor *mongod.Cursor) ([]*job.Job, error) {
	var models []jobModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("blanklogo/mongo: decode jobs: %w", err)
	}

	jobs := make([]*job.Job, 0, len(models))
	for i := range models {
		j, err := fromJobModel(&models[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}
