package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/voicepay/scheduler/internal/domain"
	"github.com/voicepay/scheduler/internal/index"
	"github.com/voicepay/scheduler/internal/metrics"
)

// OpsAlerter notifies a human when a fire fails for a reason no retry
// will fix. Degrades to a no-op when no alert sink is configured.
type OpsAlerter interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ExecutorClient is the Dispatcher's view of the Executor Bridge (C4):
// fire one due schedule over the network, signed by internal/serviceauth.
type ExecutorClient interface {
	ProcessRecurring(ctx context.Context, entry domain.IndexEntry) error
}

// ScheduleUpdater lets the Dispatcher advance the shard's copy of a
// schedule after a fire and record the outcome as a Transaction, so
// the shard stays the source of truth the Reconciler diffs the index
// against and every fire leaves at least one durable record.
type ScheduleUpdater interface {
	PatchSchedule(ctx context.Context, user domain.UserAddress, id uuid.UUID, patch domain.SchedulePatch) (domain.Schedule, error)
	AppendTransaction(ctx context.Context, user domain.UserAddress, t domain.Transaction) (domain.Transaction, error)
}

// Dispatcher scans the Schedule Index on a fixed tick and fires every
// due entry through the ExecutorClient. Ticks never overlap: if a
// previous tick is still firing schedules when the next one would
// start, the new tick is skipped and logged rather than queued.
type Dispatcher struct {
	index        index.Store
	executor     ExecutorClient
	schedules    ScheduleUpdater
	alerter      OpsAlerter
	alertTo      string
	logger       *slog.Logger
	interval     time.Duration
	timeout      time.Duration
	retryBackoff time.Duration
	running      atomic.Bool
}

func NewDispatcher(idx index.Store, executor ExecutorClient, schedules ScheduleUpdater, logger *slog.Logger, interval, timeout, retryBackoff time.Duration) *Dispatcher {
	return &Dispatcher{
		index:        idx,
		executor:     executor,
		schedules:    schedules,
		logger:       logger.With("component", "dispatcher"),
		interval:     interval,
		timeout:      timeout,
		retryBackoff: retryBackoff,
	}
}

// WithOpsAlerts enables an alert email to alertTo whenever a fire fails
// with an internal error class, rather than a retryable chain or rpc
// failure. Optional: a Dispatcher with no alerter configured just logs.
func (d *Dispatcher) WithOpsAlerts(alerter OpsAlerter, alertTo string) *Dispatcher {
	d.alerter = alerter
	d.alertTo = alertTo
	return d
}

func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.Info("dispatcher started", "interval", d.interval)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher shut down")
			return
		case <-ticker.C:
			if !d.running.CompareAndSwap(false, true) {
				d.logger.Warn("dispatcher tick skipped: previous tick still running")
				metrics.DispatchTicksSkippedTotal.Inc()
				continue
			}
			d.tick(ctx)
			d.running.Store(false)
		}
	}
}

func (d *Dispatcher) tick(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.DispatchTickDuration.Observe(time.Since(start).Seconds()) }()

	now := time.Now().UTC()

	due, err := d.index.Due(ctx, now)
	if err != nil {
		d.logger.Error("dispatcher list due", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	d.logger.Info("dispatcher firing schedules", "count", len(due))

	for _, entry := range due {
		d.fire(ctx, entry, now)
	}
}

// maybeAlert emails OPS_ALERT_EMAIL when a fire fails for a reason no
// retry will fix — a chain revert or rpc timeout still gets retried on
// backoff, so only domain.ErrInternal pages a human.
func (d *Dispatcher) maybeAlert(ctx context.Context, entry domain.IndexEntry, fireErr error) {
	if d.alerter == nil || d.alertTo == "" || !errors.Is(fireErr, domain.ErrInternal) {
		return
	}
	subject := "voicepay: recurring payment fire failed"
	body := fmt.Sprintf("schedule %s for %s failed: %v", entry.ScheduleID, entry.UserAddress, fireErr)
	if err := d.alerter.Send(ctx, d.alertTo, subject, body); err != nil {
		d.logger.Error("dispatcher send ops alert", "schedule_id", entry.ScheduleID, "error", err)
	}
}

func (d *Dispatcher) fire(ctx context.Context, entry domain.IndexEntry, now time.Time) {
	fireCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.executor.ProcessRecurring(fireCtx, entry); err != nil {
		d.logger.Error("dispatcher fire failed, will retry after backoff", "schedule_id", entry.ScheduleID, "error", err)
		metrics.FiresTotal.WithLabelValues("failed").Inc()
		d.maybeAlert(fireCtx, entry, err)

		scheduleID := entry.ScheduleID
		failedTx := domain.Transaction{
			Type:        domain.TxRecurring,
			Name:        entry.Name,
			Address:     entry.Recipient,
			Amount:      entry.Amount,
			Currency:    entry.Currency,
			Status:      domain.TxFailed,
			ScheduleID:  &scheduleID,
			Note:        fmt.Sprintf("fire failed: %v", err),
			Timestamp:   now,
		}
		if _, err := d.schedules.AppendTransaction(fireCtx, entry.UserAddress, failedTx); err != nil {
			d.logger.Error("dispatcher record failed transaction", "schedule_id", entry.ScheduleID, "error", err)
		}

		retryAt := now.Add(d.retryBackoff)
		entry.NextRun = retryAt
		if _, err := d.schedules.PatchSchedule(fireCtx, entry.UserAddress, entry.ScheduleID, domain.SchedulePatch{NextRun: &retryAt}); err != nil {
			d.logger.Error("dispatcher patch shard after failed fire", "schedule_id", entry.ScheduleID, "error", err)
		}
		if err := d.index.Put(fireCtx, entry); err != nil {
			d.logger.Error("dispatcher schedule retry in index", "schedule_id", entry.ScheduleID, "error", err)
		}
		return
	}

	metrics.FiresTotal.WithLabelValues("completed").Inc()

	next := advanceUntilFuture(entry.NextRun, now, entry.Interval, entry.IntervalMS, nil, entry.StartDate.Day())
	entry.NextRun = next

	var remaining *int
	if entry.TimesRemaining != nil {
		r := *entry.TimesRemaining - 1
		remaining = &r
		entry.TimesRemaining = remaining
	}

	exhausted := remaining != nil && *remaining <= 0
	patch := domain.SchedulePatch{NextRun: &next, TimesRemaining: remaining}
	if exhausted {
		inactive := false
		patch.Active = &inactive
	}
	if _, err := d.schedules.PatchSchedule(fireCtx, entry.UserAddress, entry.ScheduleID, patch); err != nil {
		d.logger.Error("dispatcher advance shard schedule", "schedule_id", entry.ScheduleID, "error", err)
	}

	if exhausted {
		if err := d.index.Delete(fireCtx, entry.ScheduleID); err != nil {
			d.logger.Error("dispatcher remove exhausted schedule from index", "schedule_id", entry.ScheduleID, "error", err)
		}
		return
	}

	if err := d.index.Put(fireCtx, entry); err != nil {
		// The shard is the source of truth and has already advanced its
		// copy of NextRun; a stale index entry is repaired by the
		// Reconciler on its next pass.
		d.logger.Error("dispatcher advance index entry", "schedule_id", entry.ScheduleID, "error", err)
	}
}
