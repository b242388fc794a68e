package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/voicepay/scheduler/internal/domain"
	"github.com/voicepay/scheduler/internal/index"
	"github.com/voicepay/scheduler/internal/metrics"
)

// ShardLister is the Reconciler's read-only view of every shard's
// schedules, used to rebuild the index from its source of truth.
type ShardLister interface {
	ListAllActiveSchedules(ctx context.Context) ([]domain.Schedule, error)
}

// Reconciler periodically rebuilds the Schedule Index from the shards'
// source-of-truth schedules, repairing drift left behind by a failed
// Dispatcher Put/Delete or a crash between a shard write and its index
// projection. Driven by a standard cron expression rather than a fixed
// tick, since repair is a background maintenance job, not a
// latency-sensitive one.
type Reconciler struct {
	shards ShardLister
	index  index.Store
	logger *slog.Logger
	cron   *cron.Cron
}

func NewReconciler(shards ShardLister, idx index.Store, logger *slog.Logger, cronExpr string) (*Reconciler, error) {
	r := &Reconciler{
		shards: shards,
		index:  idx,
		logger: logger.With("component", "reconciler"),
	}

	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(cronExpr, func() { r.reconcile(context.Background()) }); err != nil {
		return nil, err
	}
	r.cron = c
	return r, nil
}

func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("reconciler started")
	r.cron.Start()
	<-ctx.Done()
	r.logger.Info("reconciler shut down")
	<-r.cron.Stop().Done()
}

func (r *Reconciler) reconcile(ctx context.Context) {
	schedules, err := r.shards.ListAllActiveSchedules(ctx)
	if err != nil {
		r.logger.Error("reconciler list active schedules", "error", err)
		return
	}

	want := make(map[string]domain.IndexEntry, len(schedules))
	for _, s := range schedules {
		want[s.ID.String()] = s.ToIndexEntry()
	}

	have, err := r.index.All(ctx)
	if err != nil {
		r.logger.Error("reconciler list index", "error", err)
		return
	}

	haveIDs := make(map[string]bool, len(have))
	for _, entry := range have {
		haveIDs[entry.ScheduleID.String()] = true
		if wanted, ok := want[entry.ScheduleID.String()]; !ok {
			// In the index but no longer an active shard schedule.
			if err := r.index.Delete(ctx, entry.ScheduleID); err != nil {
				r.logger.Error("reconciler delete stale entry", "schedule_id", entry.ScheduleID, "error", err)
			} else {
				metrics.ReconcilerRepairsTotal.WithLabelValues("delete_stale").Inc()
			}
		} else if wanted.NextRun != entry.NextRun {
			if err := r.index.Put(ctx, wanted); err != nil {
				r.logger.Error("reconciler repair entry", "schedule_id", entry.ScheduleID, "error", err)
			} else {
				metrics.ReconcilerRepairsTotal.WithLabelValues("repair_next_run").Inc()
			}
		}
	}

	var repaired int
	for id, entry := range want {
		if !haveIDs[id] {
			if err := r.index.Put(ctx, entry); err != nil {
				r.logger.Error("reconciler insert missing entry", "schedule_id", entry.ScheduleID, "error", err)
				continue
			}
			repaired++
			metrics.ReconcilerRepairsTotal.WithLabelValues("insert_missing").Inc()
		}
	}
	if repaired > 0 {
		r.logger.Info("reconciler repaired missing index entries", "count", repaired)
	}
}
