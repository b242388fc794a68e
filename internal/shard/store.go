package shard

import (
	"context"

	"github.com/google/uuid"

	"github.com/voicepay/scheduler/internal/domain"
)

// Store is the durable, per-user persistence the Shard serializes
// writes against. internal/infrastructure/postgres implements this
// against one Postgres instance, partitioned by user_address.
type Store interface {
	GetRecipients(ctx context.Context, user domain.UserAddress) ([]domain.Recipient, error)
	AddRecipient(ctx context.Context, user domain.UserAddress, r domain.Recipient) error
	UpdateRecipient(ctx context.Context, user domain.UserAddress, oldWallet domain.UserAddress, r domain.Recipient) error
	DeleteRecipient(ctx context.Context, user domain.UserAddress, wallet domain.UserAddress) error

	GetAuthState(ctx context.Context, user domain.UserAddress) (domain.AuthState, error)
	SetNonce(ctx context.Context, user domain.UserAddress, nonce string) error
	ClearNonce(ctx context.Context, user domain.UserAddress) error

	AppendSchedule(ctx context.Context, s domain.Schedule) error
	PatchSchedule(ctx context.Context, user domain.UserAddress, id uuid.UUID, patch domain.SchedulePatch) (domain.Schedule, error)
	DeleteSchedule(ctx context.Context, user domain.UserAddress, id uuid.UUID) error
	ListSchedules(ctx context.Context, user domain.UserAddress) ([]domain.Schedule, error)
	GetSchedule(ctx context.Context, user domain.UserAddress, id uuid.UUID) (domain.Schedule, error)

	AppendTransaction(ctx context.Context, t domain.Transaction) error
	ListTransactions(ctx context.Context, user domain.UserAddress) ([]domain.Transaction, error)

	// ListAllActiveSchedules scans every shard's active schedules, not
	// just one user's. It is the Reconciler's only cross-shard read and
	// bypasses per-Shard locking, since it never mutates anything.
	ListAllActiveSchedules(ctx context.Context) ([]domain.Schedule, error)
}
