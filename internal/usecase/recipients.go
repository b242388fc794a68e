package usecase

import (
	"context"

	"github.com/voicepay/scheduler/internal/domain"
	"github.com/voicepay/scheduler/internal/shard"
)

type RecipientUsecase struct {
	registry *shard.Registry
}

func NewRecipientUsecase(registry *shard.Registry) *RecipientUsecase {
	return &RecipientUsecase{registry: registry}
}

func (u *RecipientUsecase) List(ctx context.Context, user domain.UserAddress) ([]domain.Recipient, error) {
	return u.registry.Get(user).GetRecipients(ctx)
}

func (u *RecipientUsecase) Add(ctx context.Context, user domain.UserAddress, name string, wallet domain.UserAddress, note string) (domain.Recipient, error) {
	return u.registry.Get(user).AddRecipient(ctx, name, wallet, note)
}

type UpdateRecipientInput struct {
	OldWallet domain.UserAddress
	NewWallet *domain.UserAddress
	NewName   *string
	NewNote   *string
}

func (u *RecipientUsecase) Update(ctx context.Context, user domain.UserAddress, input UpdateRecipientInput) (domain.Recipient, error) {
	return u.registry.Get(user).UpdateRecipient(ctx, input.OldWallet, shard.RecipientPatch{
		NewWallet: input.NewWallet,
		NewName:   input.NewName,
		NewNote:   input.NewNote,
	})
}

func (u *RecipientUsecase) Delete(ctx context.Context, user domain.UserAddress, wallet domain.UserAddress) error {
	return u.registry.Get(user).DeleteRecipient(ctx, wallet)
}
