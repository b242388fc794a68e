package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/voicepay/scheduler/internal/domain"
	"github.com/voicepay/scheduler/internal/index"
	"github.com/voicepay/scheduler/internal/shard"
)

type ScheduleUsecase struct {
	registry *shard.Registry
	index    index.Store
}

func NewScheduleUsecase(registry *shard.Registry, idx index.Store) *ScheduleUsecase {
	return &ScheduleUsecase{registry: registry, index: idx}
}

type CreateScheduleInput struct {
	UserAddress domain.UserAddress
	Name        string
	Recipient   domain.UserAddress
	Amount      decimal.Decimal
	Currency    string
	Interval    domain.IntervalKind
	IntervalMS  *int64
	StartDate   time.Time
	TimeOfDay   *domain.TimeOfDay
	TimesTotal  *int
	Note        string
}

// CreateSchedule is the Dispatcher's create-schedule path: validate,
// compute the first NextRun, append to the owning shard, then mirror
// the schedule as an index entry. A failed index write returns the
// created schedule together with an error wrapping errIndexDegraded;
// the shard record is kept and the Reconciler repairs the index on its
// next pass.
func (u *ScheduleUsecase) CreateSchedule(ctx context.Context, input CreateScheduleInput) (domain.Schedule, error) {
	if input.Amount.IsZero() || input.Amount.IsNegative() {
		return domain.Schedule{}, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if input.Recipient == "" {
		return domain.Schedule{}, domain.ErrRecipientMissing
	}

	sch := domain.Schedule{
		ID:             uuid.New(),
		UserAddress:    input.UserAddress,
		Name:           input.Name,
		Recipient:      input.Recipient,
		Amount:         input.Amount,
		Currency:       input.Currency,
		Interval:       input.Interval,
		IntervalMS:     input.IntervalMS,
		StartDate:      input.StartDate,
		TimeOfDay:      input.TimeOfDay,
		TimesTotal:     input.TimesTotal,
		TimesRemaining: input.TimesTotal,
		Note:           input.Note,
		NextRun:        firstRun(input.StartDate, input.TimeOfDay),
		CreatedAt:      time.Now().UTC(),
		Active:         true,
	}

	created, err := u.registry.Get(input.UserAddress).AppendSchedule(ctx, sch)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("append schedule: %w", err)
	}

	if err := u.index.Put(ctx, created.ToIndexEntry()); err != nil {
		return created, fmt.Errorf("%w: schedule created but index write failed, will self-heal: %w", errIndexDegraded, err)
	}
	return created, nil
}

// firstRun anchors the schedule's first fire at startDate, clamped to
// the requested time of day if one was given.
func firstRun(startDate time.Time, tod *domain.TimeOfDay) time.Time {
	if tod == nil {
		return startDate
	}
	return time.Date(startDate.Year(), startDate.Month(), startDate.Day(), tod.Hour, tod.Minute, tod.Second, 0, time.UTC)
}

func (u *ScheduleUsecase) ListSchedules(ctx context.Context, user domain.UserAddress) ([]domain.Schedule, error) {
	return u.registry.Get(user).ListSchedules(ctx)
}

func (u *ScheduleUsecase) DeleteSchedule(ctx context.Context, user domain.UserAddress, id uuid.UUID) error {
	if err := u.registry.Get(user).DeleteSchedule(ctx, id); err != nil {
		return err
	}
	if err := u.index.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: schedule deleted but index cleanup failed, will self-heal: %w", errIndexDegraded, err)
	}
	return nil
}
