package postgres

import (
	"context"
	"fmt"

	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/ledger"
)

// RecordRefund inserts the refund if no refund exists for its job.
// ON CONFLICT DO NOTHING is the insert-if-absent: exactly one caller ever
// sees an affected row.
func (s *Store) RecordRefund(ctx context.Context, r *ledger.Refund) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO blanklogo_refunds (job_id, user_id, credits, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id) DO NOTHING`,
		r.JobID, r.UserID, r.Credits, r.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("blanklogo/postgres: record refund: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetRefund returns the refund for a job, or nil when none exists.
func (s *Store) GetRefund(ctx context.Context, jobID id.JobID) (*ledger.Refund, error) {
	var r ledger.Refund
	err := s.pool.QueryRow(ctx, `
		SELECT job_id, user_id, credits, created_at
		FROM blanklogo_refunds
		WHERE job_id = $1`,
		jobID,
	).Scan(&r.JobID, &r.UserID, &r.Credits, &r.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("blanklogo/postgres: get refund: %w", err)
	}
	return &r, nil
}
