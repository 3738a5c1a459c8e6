package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/ledger"
)

// RecordRefund inserts the refund if no refund exists for its job.
// SET NX is the insert-if-absent: exactly one caller ever sees true.
func (s *Store) RecordRefund(ctx context.Context, r *ledger.Refund) (bool, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return false, fmt.Errorf("blanklogo/redis: marshal refund: %w", err)
	}

	ok, err := s.client.SetNX(ctx, refundKey(r.JobID.String()), data, 0).Result()
	if err != nil {
		return false, fmt.Errorf("blanklogo/redis: record refund: %w", err)
	}
	return ok, nil
}

// GetRefund returns the refund for a job, or nil when none exists.
func (s *Store) GetRefund(ctx context.Context, jobID id.JobID) (*ledger.Refund, error) {
	data, err := s.client.Get(ctx, refundKey(jobID.String())).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("blanklogo/redis: get refund: %w", err)
	}

	var r ledger.Refund
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("blanklogo/redis: unmarshal refund: %w", err)
	}
	return &r, nil
}
