// Package mongo implements store.Store using MongoDB. Jobs, events, and
// refunds live in separate collections; atomic dequeue and lease claims
// use conditional FindOneAndUpdate/UpdateOne filters so two workers
// racing on the same job can never both win.
//
// Usage:
//
//	client, _ := mongod.Connect(options.Client().ApplyURI(uri))
//	s := mongostore.New(client.Database("blanklogo"))
//	if err := s.Migrate(ctx); err != nil { ... }
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/IsaiahDupree/BlankLogo-sub004/job"
	"github.com/IsaiahDupree/BlankLogo-sub004/ledger"
)

// Collection name constants.
const (
	colJobs    = "blanklogo_jobs"
	colEvents  = "blanklogo_job_events"
	colRefunds = "blanklogo_refunds"
)

// Compile-time interface checks.
var (
	_ job.Store    = (*Store)(nil)
	_ ledger.Store = (*Store)(nil)
)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store implements the composite store.Store interface backed by MongoDB.
type Store struct {
	db     *mongod.Database
	logger *slog.Logger
}

// New creates a new MongoDB-backed store. The caller owns the client
// lifecycle; Close is a no-op.
func New(db *mongod.Database, opts ...Option) *Store {
	s := &Store{db: db, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Database returns the underlying database handle.
func (s *Store) Database() *mongod.Database { return s.db }

// Migrate creates the indexes backing dequeue, reaping, and the event log.
func (s *Store) Migrate(ctx context.Context) error {
	jobIndexes := []mongod.IndexModel{
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "queue", Value: 1},
			{Key: "run_at", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "lease_expires_at", Value: 1},
		}},
	}
	if _, err := s.db.Collection(colJobs).Indexes().CreateMany(ctx, jobIndexes); err != nil {
		return fmt.Errorf("blanklogo/mongo: migrate %s indexes: %w", colJobs, err)
	}

	eventIndexes := []mongod.IndexModel{
		{Keys: bson.D{
			{Key: "job_id", Value: 1},
			{Key: "created_at", Value: 1},
		}},
	}
	if _, err := s.db.Collection(colEvents).Indexes().CreateMany(ctx, eventIndexes); err != nil {
		return fmt.Errorf("blanklogo/mongo: migrate %s indexes: %w", colEvents, err)
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close is a no-op because the caller owns the client lifecycle.
func (s *Store) Close() error { return nil }

// isNoDocuments returns true when err indicates no MongoDB documents found.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// isDuplicateKey returns true when err is a unique index violation.
func isDuplicateKey(err error) bool {
	if mongod.IsDuplicateKeyError(err) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "E11000")
}
