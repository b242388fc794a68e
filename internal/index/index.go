// Package index defines the Schedule Index contract (C2): a global,
// denormalized scheduleId -> IndexEntry projection the Dispatcher scans
// without ever touching a user shard directly.
package index

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/voicepay/scheduler/internal/domain"
)

// Store is implemented by internal/infrastructure/redisindex against
// Redis. It is eventually consistent with the owning shard: a failed
// Put after a successful shard write is repaired by the Reconciler, not
// retried synchronously.
type Store interface {
	Put(ctx context.Context, entry domain.IndexEntry) error
	Delete(ctx context.Context, scheduleID uuid.UUID) error
	Get(ctx context.Context, scheduleID uuid.UUID) (domain.IndexEntry, error)

	// Due returns every entry with NextRun <= asOf, for one Dispatcher
	// tick to fire.
	Due(ctx context.Context, asOf time.Time) ([]domain.IndexEntry, error)

	// All enumerates the full index, for the Reconciler's repair scan.
	All(ctx context.Context) ([]domain.IndexEntry, error)
}
