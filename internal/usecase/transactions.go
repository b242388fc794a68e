package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/voicepay/scheduler/internal/domain"
	"github.com/voicepay/scheduler/internal/shard"
)

type TransactionUsecase struct {
	registry *shard.Registry
}

func NewTransactionUsecase(registry *shard.Registry) *TransactionUsecase {
	return &TransactionUsecase{registry: registry}
}

func (u *TransactionUsecase) List(ctx context.Context, user domain.UserAddress) ([]domain.Transaction, error) {
	return u.registry.Get(user).ListTransactions(ctx)
}

// Store persists the outcome of a transaction the caller already
// executed, per the `/transactions/store` contract.
func (u *TransactionUsecase) Store(ctx context.Context, t domain.Transaction) (domain.Transaction, error) {
	if t.Amount.IsZero() || t.Amount.IsNegative() {
		return domain.Transaction{}, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	return u.registry.Get(t.UserAddress).AppendTransaction(ctx, t)
}
