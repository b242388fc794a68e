package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/voicepay/scheduler/internal/domain"
)

type fakeIndex struct {
	mu      sync.Mutex
	entries map[uuid.UUID]domain.IndexEntry
}

func newFakeIndex(entries ...domain.IndexEntry) *fakeIndex {
	f := &fakeIndex{entries: make(map[uuid.UUID]domain.IndexEntry)}
	for _, e := range entries {
		f.entries[e.ScheduleID] = e
	}
	return f
}

func (f *fakeIndex) Put(_ context.Context, entry domain.IndexEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.ScheduleID] = entry
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, id)
	return nil
}

func (f *fakeIndex) Get(_ context.Context, id uuid.UUID) (domain.IndexEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok {
		return domain.IndexEntry{}, domain.ErrScheduleNotFound
	}
	return e, nil
}

func (f *fakeIndex) Due(_ context.Context, asOf time.Time) ([]domain.IndexEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.IndexEntry
	for _, e := range f.entries {
		if !e.NextRun.After(asOf) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeIndex) All(_ context.Context) ([]domain.IndexEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.IndexEntry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

type fakeExecutor struct {
	mu       sync.Mutex
	fireErr  error
	firedIDs []uuid.UUID
}

func (f *fakeExecutor) ProcessRecurring(_ context.Context, entry domain.IndexEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.firedIDs = append(f.firedIDs, entry.ScheduleID)
	return f.fireErr
}

type fakeScheduleUpdater struct {
	mu           sync.Mutex
	patches      []domain.SchedulePatch
	transactions []domain.Transaction
}

func (f *fakeScheduleUpdater) PatchSchedule(_ context.Context, _ domain.UserAddress, _ uuid.UUID, patch domain.SchedulePatch) (domain.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	return domain.Schedule{}, nil
}

func (f *fakeScheduleUpdater) AppendTransaction(_ context.Context, _ domain.UserAddress, t domain.Transaction) (domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions = append(f.transactions, t)
	return t, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_SuccessfulFire_AdvancesNextRunAndIndex(t *testing.T) {
	id := uuid.New()
	// tick reads the wall clock and advances NextRun past it, so the
	// entry must fall due at the current time for a single daily step.
	now := time.Now().UTC()
	remaining := 2
	entry := domain.IndexEntry{
		ScheduleID:     id,
		UserAddress:    "0xabc",
		NextRun:        now,
		Amount:         decimal.NewFromInt(5),
		Currency:       "USDC",
		Interval:       domain.IntervalDaily,
		TimesRemaining: &remaining,
	}

	idx := newFakeIndex(entry)
	exec := &fakeExecutor{}
	sched := &fakeScheduleUpdater{}

	d := NewDispatcher(idx, exec, sched, testLogger(), time.Minute, time.Second, 10*time.Minute)
	d.tick(context.Background())

	got, err := idx.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	wantNext := now.AddDate(0, 0, 1)
	if !got.NextRun.Equal(wantNext) {
		t.Errorf("NextRun = %v, want %v", got.NextRun, wantNext)
	}
	if got.TimesRemaining == nil || *got.TimesRemaining != 1 {
		t.Errorf("TimesRemaining = %v, want 1", got.TimesRemaining)
	}
	if len(sched.patches) != 1 {
		t.Fatalf("expected one shard patch, got %d", len(sched.patches))
	}
}

func TestDispatcher_ExhaustedSchedule_RemovedFromIndex(t *testing.T) {
	id := uuid.New()
	now := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	remaining := 1
	entry := domain.IndexEntry{
		ScheduleID:     id,
		UserAddress:    "0xabc",
		NextRun:        now,
		Amount:         decimal.NewFromInt(5),
		Interval:       domain.IntervalDaily,
		TimesRemaining: &remaining,
	}

	idx := newFakeIndex(entry)
	d := NewDispatcher(idx, &fakeExecutor{}, &fakeScheduleUpdater{}, testLogger(), time.Minute, time.Second, 10*time.Minute)
	d.tick(context.Background())

	if _, err := idx.Get(context.Background(), id); !errors.Is(err, domain.ErrScheduleNotFound) {
		t.Errorf("expected exhausted schedule to be removed from the index, err = %v", err)
	}
}

// TestDispatcher_FireFailure_SchedulesRetryBackoff matches the spec's
// "retry on executor failure" scenario: NextRun becomes now + backoff
// and TimesRemaining is unchanged.
func TestDispatcher_FireFailure_SchedulesRetryBackoff(t *testing.T) {
	id := uuid.New()
	now := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	remaining := 3
	entry := domain.IndexEntry{
		ScheduleID:     id,
		UserAddress:    "0xabc",
		NextRun:        now,
		Amount:         decimal.NewFromInt(5),
		Interval:       domain.IntervalDaily,
		TimesRemaining: &remaining,
	}

	idx := newFakeIndex(entry)
	exec := &fakeExecutor{fireErr: errors.New("executor returned 500")}
	backoff := 10 * time.Minute

	d := NewDispatcher(idx, exec, &fakeScheduleUpdater{}, testLogger(), time.Minute, time.Second, backoff)
	before := time.Now().UTC()
	d.tick(context.Background())
	after := time.Now().UTC()

	got, err := idx.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.NextRun.Before(before.Add(backoff)) || got.NextRun.After(after.Add(backoff)) {
		t.Errorf("NextRun = %v, want tick time + %v (between %v and %v)", got.NextRun, backoff, before.Add(backoff), after.Add(backoff))
	}
	if got.TimesRemaining == nil || *got.TimesRemaining != 3 {
		t.Errorf("TimesRemaining = %v, want unchanged 3", got.TimesRemaining)
	}
}

// TestDispatcher_FireFailure_RecordsFailedTransaction ensures a
// transport failure still leaves a durable record of the attempt, even
// though the Executor Bridge never ran and so never appended its own.
func TestDispatcher_FireFailure_RecordsFailedTransaction(t *testing.T) {
	id := uuid.New()
	now := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	remaining := 3
	entry := domain.IndexEntry{
		ScheduleID:     id,
		UserAddress:    "0xabc",
		Recipient:      "0xdef",
		NextRun:        now,
		Amount:         decimal.NewFromInt(5),
		Currency:       "USDC",
		Interval:       domain.IntervalDaily,
		TimesRemaining: &remaining,
	}

	idx := newFakeIndex(entry)
	exec := &fakeExecutor{fireErr: errors.New("executor returned 500")}
	sched := &fakeScheduleUpdater{}

	d := NewDispatcher(idx, exec, sched, testLogger(), time.Minute, time.Second, 10*time.Minute)
	d.tick(context.Background())

	if len(sched.transactions) != 1 {
		t.Fatalf("expected one recorded transaction, got %d", len(sched.transactions))
	}
	tx := sched.transactions[0]
	if tx.Status != domain.TxFailed {
		t.Errorf("Status = %v, want %v", tx.Status, domain.TxFailed)
	}
	if tx.ScheduleID == nil || *tx.ScheduleID != id {
		t.Errorf("ScheduleID = %v, want %v", tx.ScheduleID, id)
	}
	if tx.Note == "" {
		t.Error("expected a diagnostic note on the failed transaction")
	}
}

func TestDispatcher_Tick_LeavesRunningFlagSet(t *testing.T) {
	idx := newFakeIndex()
	d := NewDispatcher(idx, &fakeExecutor{}, &fakeScheduleUpdater{}, testLogger(), time.Minute, time.Second, time.Minute)

	d.running.Store(true)
	d.tick(context.Background()) // tick itself doesn't check running; Start does

	if !d.running.Load() {
		t.Fatal("running flag should remain true: only Start's loop clears it")
	}
}
