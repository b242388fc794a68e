package usecase

import (
	"context"
	"fmt"

	"github.com/voicepay/scheduler/internal/domain"
	"github.com/voicepay/scheduler/internal/intent"
	"github.com/voicepay/scheduler/internal/shard"
)

// IntentUsecase wires the Intent Resolver (C6) to the create-schedule
// path (C3's entry point) for recurring intents. Nothing is recorded
// or submitted here for send_once — the client executes the wallet
// transaction and reports the outcome via /transactions/store.
type IntentUsecase struct {
	resolver *intent.Resolver
	registry *shard.Registry
	schedule *ScheduleUsecase
}

func NewIntentUsecase(resolver *intent.Resolver, registry *shard.Registry, schedule *ScheduleUsecase) *IntentUsecase {
	return &IntentUsecase{resolver: resolver, registry: registry, schedule: schedule}
}

// Parse resolves free text into a canonical intent without persisting
// anything, matching /intent/parse-intent.
func (u *IntentUsecase) Parse(ctx context.Context, user domain.UserAddress, text string) (intent.Canonical, error) {
	sh := u.registry.Get(user)
	return u.resolver.Resolve(ctx, sh, text)
}

// SetupRecurring resolves text into a canonical recurring intent and
// hands it to the create-schedule path.
func (u *IntentUsecase) SetupRecurring(ctx context.Context, user domain.UserAddress, text string) (domain.Schedule, error) {
	canonical, err := u.Parse(ctx, user, text)
	if err != nil {
		return domain.Schedule{}, err
	}
	if canonical.Intent != intent.KindRecurring {
		return domain.Schedule{}, fmt.Errorf("%w: not a recurring intent", domain.ErrValidation)
	}

	return u.schedule.CreateSchedule(ctx, CreateScheduleInput{
		UserAddress: user,
		Recipient:   canonical.Recipient,
		Amount:      canonical.Fields.Amount,
		Currency:    canonical.Fields.Currency,
		Interval:    canonical.Fields.Interval,
		StartDate:   canonical.StartDate,
		TimeOfDay:   canonical.Fields.TimeOfDay,
		TimesTotal:  canonical.Fields.Times,
		Note:        canonical.Fields.Note,
	})
}
