package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	blanklogo "github.com/IsaiahDupree/BlankLogo-sub004"
	"github.com/IsaiahDupree/BlankLogo-sub004/fault"
	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// EnqueueJob stores the job as a Hash and adds it to the queue's Sorted Set.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	jID := j.ID.String()
	key := jobKey(jID)

	// Check for duplicate.
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("blanklogo/redis: enqueue check exists: %w", err)
	}
	if exists > 0 {
		return blanklogo.ErrJobAlreadyExists
	}

	fields := jobToMap(j)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.SAdd(ctx, jobIDsKey, jID)
	pipe.ZAdd(ctx, queueKey(j.Queue), goredis.Z{Score: jobScore(j.RunAt), Member: jID})

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("blanklogo/redis: enqueue job: %w", err)
	}
	return nil
}

// DequeueJobs claims up to limit runnable jobs from the given queues.
// Claiming is a ZRem per candidate: only one racing worker sees ZRem
// return 1 for a given job ID, so a job is never dequeued twice.
func (s *Store) DequeueJobs(ctx context.Context, queues []string, workerID id.WorkerID, lease time.Duration, limit int) ([]*job.Job, error) {
	now := time.Now().UTC()
	maxScore := strconv.FormatInt(now.UnixMilli(), 10)
	var jobs []*job.Job

	for _, q := range queues {
		if limit > 0 && len(jobs) >= limit {
			break
		}
		remaining := int64(limit - len(jobs))

		// Runnable = score (RunAt ms) <= now. Future RunAt stays put.
		candidates, err := s.client.ZRangeByScore(ctx, queueKey(q), &goredis.ZRangeBy{
			Min: "-inf", Max: maxScore, Count: remaining,
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("blanklogo/redis: dequeue zrangebyscore: %w", err)
		}

		for _, jID := range candidates {
			removed, zErr := s.client.ZRem(ctx, queueKey(q), jID).Result()
			if zErr != nil {
				return nil, fmt.Errorf("blanklogo/redis: dequeue zrem: %w", zErr)
			}
			if removed == 0 {
				continue // another worker won the race
			}

			expires := now.Add(lease)
			pipe := s.client.TxPipeline()
			pipe.HSet(ctx, jobKey(jID),
				"status", string(job.StatusProcessing),
				"started_at", now.Format(time.RFC3339Nano),
				"lease_owner_id", workerID.String(),
				"lease_expires_at", expires.Format(time.RFC3339Nano),
				"updated_at", now.Format(time.RFC3339Nano),
			)
			pipe.Set(ctx, leaseKey(jID), workerID.String(), lease)
			if _, pErr := pipe.Exec(ctx); pErr != nil {
				return nil, fmt.Errorf("blanklogo/redis: dequeue claim: %w", pErr)
			}

			j, getErr := s.getJobByKey(ctx, jobKey(jID))
			if getErr != nil {
				return nil, getErr
			}
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	return s.getJobByKey(ctx, jobKey(jobID.String()))
}

// UpdateJob persists changes to an existing job and re-syncs queue
// membership: a job moved back to queued (the retry path) re-enters its
// queue's sorted set with its new RunAt; any other status leaves it out.
func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	jID := j.ID.String()
	key := jobKey(jID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("blanklogo/redis: update job exists: %w", err)
	}
	if exists == 0 {
		return blanklogo.ErrJobNotFound
	}

	fields := jobToMap(j)
	fields["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if j.Status == job.StatusQueued {
		pipe.ZAdd(ctx, queueKey(j.Queue), goredis.Z{Score: jobScore(j.RunAt), Member: jID})
		pipe.Del(ctx, leaseKey(jID))
	} else {
		pipe.ZRem(ctx, queueKey(j.Queue), jID)
	}
	if j.Status == job.StatusCompleted || j.Status == job.StatusFailed || j.Status == job.StatusCancelled {
		pipe.Del(ctx, leaseKey(jID))
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("blanklogo/redis: update job: %w", err)
	}
	return nil
}

// UpdateJobOwned persists changes to a job only while ownerID matches the
// lease owner recorded on the job hash. A worker whose lease was reaped
// (owner cleared) or reclaimed (owner replaced) gets ok=false and writes
// nothing.
func (s *Store) UpdateJobOwned(ctx context.Context, j *job.Job, ownerID id.WorkerID) (bool, error) {
	holder, err := s.client.HGet(ctx, jobKey(j.ID.String()), "lease_owner_id").Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, blanklogo.ErrJobNotFound
		}
		return false, fmt.Errorf("blanklogo/redis: owned update get holder: %w", err)
	}
	if holder != ownerID.String() {
		return false, nil
	}
	return true, s.UpdateJob(ctx, j)
}

// ClaimLease attempts to take the lease on a job for workerID. The lease
// is an expiring key: SET NX wins only when no live lease exists, and
// re-acquisition by the current holder refreshes the TTL.
func (s *Store) ClaimLease(ctx context.Context, jobID id.JobID, workerID id.WorkerID, lease time.Duration) (bool, error) {
	jID := jobID.String()

	exists, err := s.client.Exists(ctx, jobKey(jID)).Result()
	if err != nil {
		return false, fmt.Errorf("blanklogo/redis: claim lease exists: %w", err)
	}
	if exists == 0 {
		return false, blanklogo.ErrJobNotFound
	}

	wID := workerID.String()
	ok, err := s.client.SetNX(ctx, leaseKey(jID), wID, lease).Result()
	if err != nil {
		return false, fmt.Errorf("blanklogo/redis: claim lease setnx: %w", err)
	}
	if ok {
		return s.recordLease(ctx, jID, wID, lease)
	}

	// A lease key exists; re-acquisition by the holder is idempotent.
	holder, err := s.client.Get(ctx, leaseKey(jID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			// Expired between SetNX and Get; claim it.
			return s.ClaimLease(ctx, jobID, workerID, lease)
		}
		return false, fmt.Errorf("blanklogo/redis: claim lease get: %w", err)
	}
	if holder != wID {
		return false, nil
	}
	if err := s.client.Set(ctx, leaseKey(jID), wID, lease).Err(); err != nil {
		return false, fmt.Errorf("blanklogo/redis: claim lease refresh: %w", err)
	}
	return s.recordLease(ctx, jID, wID, lease)
}

// RenewLease extends the lease held by workerID.
func (s *Store) RenewLease(ctx context.Context, jobID id.JobID, workerID id.WorkerID, lease time.Duration) (bool, error) {
	jID := jobID.String()
	wID := workerID.String()

	holder, err := s.client.Get(ctx, leaseKey(jID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil // lease expired or never held
		}
		return false, fmt.Errorf("blanklogo/redis: renew lease get: %w", err)
	}
	if holder != wID {
		return false, nil
	}
	if err := s.client.Set(ctx, leaseKey(jID), wID, lease).Err(); err != nil {
		return false, fmt.Errorf("blanklogo/redis: renew lease set: %w", err)
	}
	return s.recordLease(ctx, jID, wID, lease)
}

// recordLease mirrors the lease fields onto the job hash so that reads and
// the reaper see the current owner and expiry.
func (s *Store) recordLease(ctx context.Context, jID, wID string, lease time.Duration) (bool, error) {
	now := time.Now().UTC()
	err := s.client.HSet(ctx, jobKey(jID),
		"lease_owner_id", wID,
		"lease_expires_at", now.Add(lease).Format(time.RFC3339Nano),
		"updated_at", now.Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return false, fmt.Errorf("blanklogo/redis: record lease: %w", err)
	}
	return true, nil
}

// ReapExpiredLeases returns processing jobs whose lease expired before now.
func (s *Store) ReapExpiredLeases(ctx context.Context, now time.Time) ([]*job.Job, error) {
	ids, err := s.client.SMembers(ctx, jobIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("blanklogo/redis: reap smembers: %w", err)
	}

	var expired []*job.Job
	for _, jID := range ids {
		j, getErr := s.getJobByKey(ctx, jobKey(jID))
		if getErr != nil {
			continue // skip missing
		}
		if j.Status != job.StatusProcessing {
			continue
		}
		if j.LeaseExpired(now) {
			expired = append(expired, j)
		}
	}
	return expired, nil
}

// CancelJob moves a job from queued to cancelled.
func (s *Store) CancelJob(ctx context.Context, jobID id.JobID) error {
	jID := jobID.String()

	j, err := s.getJobByKey(ctx, jobKey(jID))
	if err != nil {
		return err
	}
	if j.Status != job.StatusQueued {
		return blanklogo.ErrInvalidTransition
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, jobKey(jID), "status", string(job.StatusCancelled), "updated_at", now)
	pipe.ZRem(ctx, queueKey(j.Queue), jID)
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("blanklogo/redis: cancel job: %w", err)
	}
	return nil
}

// ListJobsByStatus returns jobs matching the given status.
func (s *Store) ListJobsByStatus(ctx context.Context, status job.Status, opts job.ListOpts) ([]*job.Job, error) {
	ids, err := s.client.SMembers(ctx, jobIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("blanklogo/redis: list jobs smembers: %w", err)
	}

	jobs := make([]*job.Job, 0, len(ids))
	for _, jID := range ids {
		j, getErr := s.getJobByKey(ctx, jobKey(jID))
		if getErr != nil {
			continue // skip missing
		}
		if j.Status != status {
			continue
		}
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		jobs = append(jobs, j)
	}

	// Apply offset/limit.
	if opts.Offset > 0 && opts.Offset < len(jobs) {
		jobs = jobs[opts.Offset:]
	} else if opts.Offset >= len(jobs) && opts.Offset > 0 {
		return nil, nil
	}
	if opts.Limit > 0 && opts.Limit < len(jobs) {
		jobs = jobs[:opts.Limit]
	}
	return jobs, nil
}

// CountJobs returns the number of jobs matching the given options.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	ids, err := s.client.SMembers(ctx, jobIDsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("blanklogo/redis: count smembers: %w", err)
	}

	var count int64
	for _, jID := range ids {
		j, getErr := s.getJobByKey(ctx, jobKey(jID))
		if getErr != nil {
			continue
		}
		if opts.Status != "" && j.Status != opts.Status {
			continue
		}
		if opts.Queue != "" && j.Queue != opts.Queue {
			continue
		}
		count++
	}
	return count, nil
}

// ── helpers ──

// jobScore computes a sorted-set score from RunAt. Lower score = earlier
// RunAt = dequeued first.
func jobScore(runAt time.Time) float64 {
	return float64(runAt.UnixMilli())
}

func jobToMap(j *job.Job) map[string]interface{} {
	m := map[string]interface{}{
		"id":                 j.ID.String(),
		"queue":              j.Queue,
		"source_url":         j.SourceURL,
		"source_filename":    j.SourceFilename,
		"platform_hint":      j.PlatformHint,
		"mode":               string(j.Mode),
		"crop_pixels":        strconv.Itoa(j.CropPixels),
		"crop_position":      string(j.CropPosition),
		"status":             string(j.Status),
		"attempts_made":      strconv.Itoa(j.AttemptsMade),
		"max_attempts":       strconv.Itoa(j.MaxAttempts),
		"run_at":             j.RunAt.Format(time.RFC3339Nano),
		"lease_owner_id":     j.LeaseOwnerID.String(),
		"output_url":         j.OutputURL,
		"output_size_bytes":  strconv.FormatInt(j.OutputSizeBytes, 10),
		"processing_time_ms": strconv.FormatInt(j.ProcessingTimeMs, 10),
		"strategy_used":      j.StrategyUsed,
		"error_code":         string(j.ErrorCode),
		"error_message":      j.ErrorMessage,
		"webhook_url":        j.WebhookURL,
		"webhook_secret":     j.WebhookSecret,
		"user_id":            j.UserID,
		"cost_credits":       strconv.FormatInt(j.CostCredits, 10),
		"created_at":         j.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":         j.UpdatedAt.Format(time.RFC3339Nano),
	}
	if j.StartedAt != nil {
		m["started_at"] = j.StartedAt.Format(time.RFC3339Nano)
	}
	if j.CompletedAt != nil {
		m["completed_at"] = j.CompletedAt.Format(time.RFC3339Nano)
	}
	if j.LeaseExpiresAt != nil {
		m["lease_expires_at"] = j.LeaseExpiresAt.Format(time.RFC3339Nano)
	}
	return m
}

func (s *Store) getJobByKey(ctx context.Context, key string) (*job.Job, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("blanklogo/redis: get job: %w", err)
	}
	if len(vals) == 0 {
		return nil, blanklogo.ErrJobNotFound
	}
	return mapToJob(vals)
}

func mapToJob(m map[string]string) (*job.Job, error) {
	jID, err := id.ParseJobID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("blanklogo/redis: parse job id: %w", err)
	}

	cropPixels, _ := strconv.Atoi(m["crop_pixels"])                          //nolint:errcheck // best-effort parse from trusted Redis data
	attemptsMade, _ := strconv.Atoi(m["attempts_made"])                      //nolint:errcheck // best-effort parse from trusted Redis data
	maxAttempts, _ := strconv.Atoi(m["max_attempts"])                        //nolint:errcheck // best-effort parse from trusted Redis data
	outputSize, _ := strconv.ParseInt(m["output_size_bytes"], 10, 64)        //nolint:errcheck // best-effort parse from trusted Redis data
	processingMs, _ := strconv.ParseInt(m["processing_time_ms"], 10, 64)     //nolint:errcheck // best-effort parse from trusted Redis data
	costCredits, _ := strconv.ParseInt(m["cost_credits"], 10, 64)            //nolint:errcheck // best-effort parse from trusted Redis data
	runAt, _ := time.Parse(time.RFC3339Nano, m["run_at"])                    //nolint:errcheck // best-effort parse from trusted Redis data
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"])            //nolint:errcheck // best-effort parse from trusted Redis data
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"])            //nolint:errcheck // best-effort parse from trusted Redis data

	j := &job.Job{
		Entity: blanklogo.Entity{
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
		},
		ID:               jID,
		Queue:            m["queue"],
		SourceURL:        m["source_url"],
		SourceFilename:   m["source_filename"],
		PlatformHint:     m["platform_hint"],
		Mode:             job.Mode(m["mode"]),
		CropPixels:       cropPixels,
		CropPosition:     job.Position(m["crop_position"]),
		Status:           job.Status(m["status"]),
		AttemptsMade:     attemptsMade,
		MaxAttempts:      maxAttempts,
		RunAt:            runAt,
		OutputURL:        m["output_url"],
		OutputSizeBytes:  outputSize,
		ProcessingTimeMs: processingMs,
		StrategyUsed:     m["strategy_used"],
		ErrorCode:        fault.Code(m["error_code"]),
		ErrorMessage:     m["error_message"],
		WebhookURL:       m["webhook_url"],
		WebhookSecret:    m["webhook_secret"],
		UserID:           m["user_id"],
		CostCredits:      costCredits,
	}

	if wid := m["lease_owner_id"]; wid != "" {
		j.LeaseOwnerID, _ = id.ParseWorkerID(wid) //nolint:errcheck // best-effort parse from trusted Redis data
	}
	if v := m["started_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		j.StartedAt = &t
	}
	if v := m["completed_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		j.CompletedAt = &t
	}
	if v := m["lease_expires_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v) //nolint:errcheck // best-effort parse from trusted Redis data
		j.LeaseExpiresAt = &t
	}

	return j, nil
}
