package scheduler

import (
	"time"

	"github.com/voicepay/scheduler/internal/domain"
)

// advanceNextRun computes the next fire time after from for the given
// cadence, clamped to the schedule's time-of-day. Monthly/yearly
// advancement lands on anchorDay — the schedule's original,
// nominal day-of-month — where possible and clamps to the last day of
// the target month otherwise (Jan 31 -> Feb 28 -> Mar 31, never Mar 3
// or a Mar 28 ratcheted down from the prior clamp).
func advanceNextRun(from time.Time, interval domain.IntervalKind, intervalMS *int64, tod *domain.TimeOfDay, anchorDay int) time.Time {
	next := from

	switch interval {
	case domain.IntervalDaily:
		next = from.AddDate(0, 0, 1)
	case domain.IntervalWeekly:
		next = from.AddDate(0, 0, 7)
	case domain.IntervalMonthly:
		next = addClampedMonths(from, 1, anchorDay)
	case domain.IntervalYearly:
		next = addClampedMonths(from, 12, anchorDay)
	case domain.IntervalCustom:
		ms := int64(0)
		if intervalMS != nil {
			ms = *intervalMS
		}
		next = from.Add(time.Duration(ms) * time.Millisecond)
	default:
		next = from.AddDate(0, 0, 1)
	}

	if tod != nil {
		next = time.Date(next.Year(), next.Month(), next.Day(), tod.Hour, tod.Minute, tod.Second, 0, time.UTC)
	}
	return next
}

// addClampedMonths advances from by n months, landing on anchorDay
// unless the target month is shorter, in which case it lands on that
// month's last day. anchorDay is never permanently ratcheted down by a
// short-month clamp: the month after a Feb 28 clamp still targets the
// schedule's real day 31, not 28.
func addClampedMonths(from time.Time, n int, anchorDay int) time.Time {
	firstOfTarget := time.Date(from.Year(), from.Month(), 1, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), time.UTC).AddDate(0, n, 0)
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()

	day := anchorDay
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), time.UTC)
}

// advanceUntilFuture repeatedly advances next so it lands strictly
// after now, implementing the advance-once-per-tick catch-up policy:
// a schedule that missed several ticks (e.g. after downtime) jumps
// straight to its next *future* run rather than firing once per missed
// tick.
func advanceUntilFuture(next time.Time, now time.Time, interval domain.IntervalKind, intervalMS *int64, tod *domain.TimeOfDay, anchorDay int) time.Time {
	for !next.After(now) {
		advanced := advanceNextRun(next, interval, intervalMS, tod, anchorDay)
		if !advanced.After(next) {
			// Guards against a zero/negative custom interval looping forever.
			break
		}
		next = advanced
	}
	return next
}
