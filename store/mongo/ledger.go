package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/IsaiahDupree/BlankLogo-sub004/id"
	"github.com/IsaiahDupree/BlankLogo-sub004/ledger"
)

// RecordRefund inserts the refund if none exists for its job. The job ID
// is the document _id, so the unique index makes the insert-if-absent
// race-free: exactly one concurrent caller wins.
func (s *Store) RecordRefund(ctx context.Context, r *ledger.Refund) (bool, error) {
	_, err := s.db.Collection(colRefunds).InsertOne(ctx, toRefundModel(r))
	if err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("blanklogo/mongo: record refund: %w", err)
	}
	return true, nil
}

// GetRefund returns the refund for a job, or nil when none exists.
func (s *Store) GetRefund(ctx context.Context, jobID id.JobID) (*ledger.Refund, error) {
	var m refundModel
	err := s.db.Collection(colRefunds).FindOne(ctx, bson.M{"_id": jobID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("blanklogo/mongo: get refund: %w", err)
	}
	return fromRefundModel(&m)
}
