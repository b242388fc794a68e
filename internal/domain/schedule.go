package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IntervalKind is the recurrence cadence of a Schedule.
type IntervalKind string

const (
	IntervalDaily   IntervalKind = "daily"
	IntervalWeekly  IntervalKind = "weekly"
	IntervalMonthly IntervalKind = "monthly"
	IntervalYearly  IntervalKind = "yearly"
	IntervalCustom  IntervalKind = "custom"
)

// TimeOfDay is a wall-clock time with no date component, always
// interpreted in UTC per spec.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// Schedule is a user's standing instruction to send a fixed amount of
// a fixed token at a fixed cadence. The Dispatcher is the only writer
// of NextRun and TimesRemaining after creation.
type Schedule struct {
	ID             uuid.UUID
	UserAddress    UserAddress
	Name           string
	Recipient      UserAddress
	Amount         decimal.Decimal
	Currency       string
	Interval       IntervalKind
	IntervalMS     *int64
	StartDate      time.Time
	TimeOfDay      *TimeOfDay
	TimesTotal     *int
	TimesRemaining *int
	Note           string
	NextRun        time.Time
	CreatedAt      time.Time
	Active         bool
}

// SchedulePatch captures a partial update applied by the Dispatcher
// after a fire (advance NextRun / decrement TimesRemaining / retire).
type SchedulePatch struct {
	NextRun        *time.Time
	TimesRemaining *int
	Active         *bool
}

// IndexEntry is the denormalized projection of a Schedule held by the
// Schedule Index (C2) — sufficient to dispatch a fire without
// consulting the owning shard.
type IndexEntry struct {
	ScheduleID     uuid.UUID
	UserAddress    UserAddress
	NextRun        time.Time
	Recipient      UserAddress
	Amount         decimal.Decimal
	Currency       string
	Interval       IntervalKind
	IntervalMS     *int64
	// StartDate anchors monthly/yearly advancement to the schedule's
	// original day-of-month, so a short-month clamp (Jan 31 -> Feb 28)
	// never becomes the new nominal day for the month after.
	StartDate      time.Time
	TimesRemaining *int
	Name           string
	Note           string
	CreatedAt      time.Time
}

// ToIndexEntry projects a Schedule into its index-entry form.
func (s Schedule) ToIndexEntry() IndexEntry {
	return IndexEntry{
		ScheduleID:     s.ID,
		UserAddress:    s.UserAddress,
		NextRun:        s.NextRun,
		Recipient:      s.Recipient,
		Amount:         s.Amount,
		Currency:       s.Currency,
		Interval:       s.Interval,
		IntervalMS:     s.IntervalMS,
		StartDate:      s.StartDate,
		TimesRemaining: s.TimesRemaining,
		Name:           s.Name,
		Note:           s.Note,
		CreatedAt:      s.CreatedAt,
	}
}
