// Package store defines the aggregate persistence interface. The job
// subsystem and the refund ledger each define their own store interface;
// the composite Store composes them. Backends: Postgres, Redis, and
// Memory.
package store

import (
	"context"

	"github.com/IsaiahDupree/BlankLogo-sub004/job"
	"github.com/IsaiahDupree/BlankLogo-sub004/ledger"
)

// Store is the aggregate persistence interface. A single backend
// implements all subsystem stores so that lease claims, state
// transitions, and refund records share one source of truth.
type Store interface {
	job.Store
	ledger.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
