package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	blanklogo "github.com/IsaiahDupree/BlankLogo-sub004"
	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/job"
)

// jobColumns is the canonical column list shared by every job query so
// that scanJob stays in sync with a single source.
const jobColumns = `
	id, queue, source_url, source_filename, platform_hint,
	mode, crop_pixels, crop_position,
	status, attempts_made, max_attempts, run_at, started_at, completed_at,
	lease_owner_id, lease_expires_at,
	output_url, output_size_bytes, processing_time_ms, strategy_used,
	error_code, error_message, webhook_url, webhook_secret,
	user_id, cost_credits, created_at, updated_at`

// EnqueueJob persists a new job in queued status.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blanklogo_jobs (
			id, queue, source_url, source_filename, platform_hint,
			mode, crop_pixels, crop_position,
			status, attempts_made, max_attempts, run_at, started_at, completed_at,
			lease_owner_id, lease_expires_at,
			output_url, output_size_bytes, processing_time_ms, strategy_used,
			error_code, error_message, webhook_url, webhook_secret,
			user_id, cost_credits, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12, $13, $14,
			$15, $16,
			$17, $18, $19, $20,
			$21, $22, $23, $24,
			$25, $26, $27, $28
		)`,
		j.ID, j.Queue, j.SourceURL, j.SourceFilename, j.PlatformHint,
		string(j.Mode), j.CropPixels, string(j.CropPosition),
		string(j.Status), j.AttemptsMade, j.MaxAttempts, j.RunAt, j.StartedAt, j.CompletedAt,
		j.LeaseOwnerID, j.LeaseExpiresAt,
		j.OutputURL, j.OutputSizeBytes, j.ProcessingTimeMs, j.StrategyUsed,
		string(j.ErrorCode), j.ErrorMessage, j.WebhookURL, j.WebhookSecret,
		j.UserID, j.CostCredits, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return blanklogo.ErrJobAlreadyExists
		}
		return fmt.Errorf("blanklogo/postgres: enqueue job: %w", err)
	}
	return nil
}

// DequeueJobs atomically claims up to limit runnable queued jobs from the
// given queues for workerID. SELECT FOR UPDATE SKIP LOCKED pairs the
// status flip with the lease grant in one statement, so two workers never
// both win the same job.
func (s *Store) DequeueJobs(ctx context.Context, queues []string, workerID id.WorkerID, lease time.Duration, limit int) ([]*job.Job, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE blanklogo_jobs
		SET status = 'processing',
		    started_at = NOW(),
		    lease_owner_id = $3,
		    lease_expires_at = NOW() + $4,
		    updated_at = NOW()
		WHERE id IN (
			SELECT id FROM blanklogo_jobs
			WHERE status = 'queued'
			  AND queue = ANY($1)
			  AND run_at <= NOW()
			ORDER BY run_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT $2
		)
		RETURNING`+jobColumns,
		queues, limit, workerID, lease,
	)
	if err != nil {
		return nil, fmt.Errorf("blanklogo/postgres: dequeue jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT`+jobColumns+` FROM blanklogo_jobs WHERE id = $1`,
		jobID,
	)

	j, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, blanklogo.ErrJobNotFound
		}
		return nil, fmt.Errorf("blanklogo/postgres: get job: %w", err)
	}
	return j, nil
}

// UpdateJob persists changes to an existing job.
func (s *Store) UpdateJob(ctx context.Context, j *job.Job) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE blanklogo_jobs SET
			queue = $2, source_url = $3, source_filename = $4, platform_hint = $5,
			mode = $6, crop_pixels = $7, crop_position = $8,
			status = $9, attempts_made = $10, max_attempts = $11,
			run_at = $12, started_at = $13, completed_at = $14,
			lease_owner_id = $15, lease_expires_at = $16,
			output_url = $17, output_size_bytes = $18, processing_time_ms = $19,
			strategy_used = $20, error_code = $21, error_message = $22,
			webhook_url = $23, webhook_secret = $24,
			user_id = $25, cost_credits = $26,
			updated_at = NOW()
		WHERE id = $1`,
		j.ID, j.Queue, j.SourceURL, j.SourceFilename, j.PlatformHint,
		string(j.Mode), j.CropPixels, string(j.CropPosition),
		string(j.Status), j.AttemptsMade, j.MaxAttempts,
		j.RunAt, j.StartedAt, j.CompletedAt,
		j.LeaseOwnerID, j.LeaseExpiresAt,
		j.OutputURL, j.OutputSizeBytes, j.ProcessingTimeMs,
		j.StrategyUsed, string(j.ErrorCode), j.ErrorMessage,
		j.WebhookURL, j.WebhookSecret,
		j.UserID, j.CostCredits,
	)
	if err != nil {
		return fmt.Errorf("blanklogo/postgres: update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return blanklogo.ErrJobNotFound
	}
	return nil
}

// UpdateJobOwned persists changes to a job only while ownerID matches the
// stored lease owner. The owner predicate in the WHERE clause fences out
// writers whose lease was reaped or reclaimed; they get ok=false and the
// row is untouched.
func (s *Store) UpdateJobOwned(ctx context.Context, j *job.Job, ownerID id.WorkerID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE blanklogo_jobs SET
			queue = $2, source_url = $3, source_filename = $4, platform_hint = $5,
			mode = $6, crop_pixels = $7, crop_position = $8,
			status = $9, attempts_made = $10, max_attempts = $11,
			run_at = $12, started_at = $13, completed_at = $14,
			lease_owner_id = $15, lease_expires_at = $16,
			output_url = $17, output_size_bytes = $18, processing_time_ms = $19,
			strategy_used = $20, error_code = $21, error_message = $22,
			webhook_url = $23, webhook_secret = $24,
			user_id = $25, cost_credits = $26,
			updated_at = NOW()
		WHERE id = $1 AND lease_owner_id = $27`,
		j.ID, j.Queue, j.SourceURL, j.SourceFilename, j.PlatformHint,
		string(j.Mode), j.CropPixels, string(j.CropPosition),
		string(j.Status), j.AttemptsMade, j.MaxAttempts,
		j.RunAt, j.StartedAt, j.CompletedAt,
		j.LeaseOwnerID, j.LeaseExpiresAt,
		j.OutputURL, j.OutputSizeBytes, j.ProcessingTimeMs,
		j.StrategyUsed, string(j.ErrorCode), j.ErrorMessage,
		j.WebhookURL, j.WebhookSecret,
		j.UserID, j.CostCredits,
		ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("blanklogo/postgres: owned update job: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Distinguish "fenced out" from "no such job".
	var exists bool
	err = s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM blanklogo_jobs WHERE id = $1)`,
		j.ID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("blanklogo/postgres: owned update exists: %w", err)
	}
	if !exists {
		return false, blanklogo.ErrJobNotFound
	}
	return false, nil
}

// ClaimLease attempts to take the lease on a job for workerID. The WHERE
// clause is the compare-and-set: it matches only when the lease is unset,
// expired, or already held by workerID.
func (s *Store) ClaimLease(ctx context.Context, jobID id.JobID, workerID id.WorkerID, lease time.Duration) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE blanklogo_jobs
		SET lease_owner_id = $2,
		    lease_expires_at = NOW() + $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND (lease_owner_id IS NULL
		       OR lease_owner_id = ''
		       OR lease_owner_id = $2
		       OR lease_expires_at IS NULL
		       OR lease_expires_at <= NOW())`,
		jobID, workerID, lease,
	)
	if err != nil {
		return false, fmt.Errorf("blanklogo/postgres: claim lease: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Distinguish "lease held" from "no such job".
	var exists bool
	err = s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM blanklogo_jobs WHERE id = $1)`,
		jobID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("blanklogo/postgres: claim lease exists: %w", err)
	}
	if !exists {
		return false, blanklogo.ErrJobNotFound
	}
	return false, nil
}

// RenewLease extends the lease held by workerID.
func (s *Store) RenewLease(ctx context.Context, jobID id.JobID, workerID id.WorkerID, lease time.Duration) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE blanklogo_jobs
		SET lease_expires_at = NOW() + $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND lease_owner_id = $2`,
		jobID, workerID, lease,
	)
	if err != nil {
		return false, fmt.Errorf("blanklogo/postgres: renew lease: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ReapExpiredLeases returns processing jobs whose lease expired before now.
func (s *Store) ReapExpiredLeases(ctx context.Context, now time.Time) ([]*job.Job, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+jobColumns+`
		FROM blanklogo_jobs
		WHERE status = 'processing'
		  AND (lease_expires_at IS NULL OR lease_expires_at <= $1)
		ORDER BY lease_expires_at ASC NULLS FIRST`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("blanklogo/postgres: reap expired leases: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// CancelJob moves a job from queued to cancelled. The conditional UPDATE
// leaves jobs in any other status untouched.
func (s *Store) CancelJob(ctx context.Context, jobID id.JobID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE blanklogo_jobs
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status = 'queued'`,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("blanklogo/postgres: cancel job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err = s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM blanklogo_jobs WHERE id = $1)`,
			jobID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("blanklogo/postgres: cancel job exists: %w", err)
		}
		if !exists {
			return blanklogo.ErrJobNotFound
		}
		return blanklogo.ErrInvalidTransition
	}
	return nil
}

// ListJobsByStatus returns jobs matching the given status.
func (s *Store) ListJobsByStatus(ctx context.Context, status job.Status, opts job.ListOpts) ([]*job.Job, error) {
	query := `SELECT` + jobColumns + `
		FROM blanklogo_jobs
		WHERE status = $1
		  AND ($2 = '' OR queue = $2)
		ORDER BY created_at ASC`
	args := []any{string(status), opts.Queue}

	if opts.Limit > 0 {
		query += ` LIMIT $3 OFFSET $4`
		args = append(args, opts.Limit, opts.Offset)
	} else if opts.Offset > 0 {
		query += ` OFFSET $3`
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("blanklogo/postgres: list jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// CountJobs returns the number of jobs matching the given options.
func (s *Store) CountJobs(ctx context.Context, opts job.CountOpts) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM blanklogo_jobs
		WHERE ($1 = '' OR queue = $1)
		  AND ($2 = '' OR status = $2)`,
		opts.Queue, string(opts.Status),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("blanklogo/postgres: count jobs: %w", err)
	}
	return count, nil
}

// ── scanning helpers ──

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*job.Job, error) {
	var j job.Job
	err := row.Scan(
		&j.ID, &j.Queue, &j.SourceURL, &j.SourceFilename, &j.PlatformHint,
		&j.Mode, &j.CropPixels, &j.CropPosition,
		&j.Status, &j.AttemptsMade, &j.MaxAttempts, &j.RunAt, &j.StartedAt, &j.CompletedAt,
		&j.LeaseOwnerID, &j.LeaseExpiresAt,
		&j.OutputURL, &j.OutputSizeBytes, &j.ProcessingTimeMs, &j.StrategyUsed,
		&j.ErrorCode, &j.ErrorMessage, &j.WebhookURL, &j.WebhookSecret,
		&j.UserID, &j.CostCredits, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func collectJobs(rows pgx.Rows) ([]*job.Job, error) {
	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("blanklogo/postgres: scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("blanklogo/postgres: iterate jobs: %w", err)
	}
	return jobs, nil
}
