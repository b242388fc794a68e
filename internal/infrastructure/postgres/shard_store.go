package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voicepay/scheduler/internal/domain"
)

// ShardStore implements shard.Store against one Postgres instance,
// partitioned by user_address. It is the single durable backing for
// every in-memory shard.Shard, regardless of which user the caller
// holds the mutex for.
type ShardStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewShardStore(pool *pgxpool.Pool, logger *slog.Logger) *ShardStore {
	return &ShardStore{pool: pool, logger: logger.With("component", "shard_store")}
}

func (s *ShardStore) GetRecipients(ctx context.Context, user domain.UserAddress) ([]domain.Recipient, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, wallet, note FROM recipients WHERE user_address = $1 ORDER BY name`,
		string(user))
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var out []domain.Recipient
	for rows.Next() {
		var r domain.Recipient
		var wallet string
		if err := rows.Scan(&r.Name, &wallet, &r.Note); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		r.Wallet = domain.UserAddress(wallet)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ShardStore) AddRecipient(ctx context.Context, user domain.UserAddress, r domain.Recipient) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO recipients (user_address, name, wallet, note) VALUES ($1, $2, $3, $4)`,
		string(user), r.Name, string(r.Wallet), r.Note)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateRecipient
		}
		return fmt.Errorf("add recipient: %w", err)
	}
	return nil
}

func (s *ShardStore) UpdateRecipient(ctx context.Context, user domain.UserAddress, oldWallet domain.UserAddress, r domain.Recipient) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE recipients SET name = $1, wallet = $2, note = $3
		 WHERE user_address = $4 AND wallet = $5`,
		r.Name, string(r.Wallet), r.Note, string(user), string(oldWallet))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateRecipient
		}
		return fmt.Errorf("update recipient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecipientNotFound
	}
	return nil
}

func (s *ShardStore) DeleteRecipient(ctx context.Context, user domain.UserAddress, wallet domain.UserAddress) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM recipients WHERE user_address = $1 AND wallet = $2`,
		string(user), string(wallet))
	if err != nil {
		return fmt.Errorf("delete recipient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecipientNotFound
	}
	return nil
}

func (s *ShardStore) GetAuthState(ctx context.Context, user domain.UserAddress) (domain.AuthState, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT nonce, updated_at FROM auth_state WHERE user_address = $1`,
		string(user))

	var state domain.AuthState
	err := row.Scan(&state.Nonce, &state.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AuthState{}, nil
	}
	if err != nil {
		return domain.AuthState{}, fmt.Errorf("get auth state: %w", err)
	}
	return state, nil
}

func (s *ShardStore) SetNonce(ctx context.Context, user domain.UserAddress, nonce string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO auth_state (user_address, nonce, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (user_address) DO UPDATE SET nonce = $2, updated_at = NOW()`,
		string(user), nonce)
	if err != nil {
		return fmt.Errorf("set nonce: %w", err)
	}
	return nil
}

func (s *ShardStore) ClearNonce(ctx context.Context, user domain.UserAddress) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE auth_state SET nonce = NULL, updated_at = NOW() WHERE user_address = $1`,
		string(user))
	if err != nil {
		return fmt.Errorf("clear nonce: %w", err)
	}
	return nil
}

func (s *ShardStore) AppendSchedule(ctx context.Context, sch domain.Schedule) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO schedules (
			id, user_address, name, recipient, amount, currency, interval,
			interval_ms, start_date, tod_hour, tod_minute, tod_second,
			times_total, times_remaining, note, next_run, created_at, active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		sch.ID, string(sch.UserAddress), sch.Name, string(sch.Recipient), sch.Amount, sch.Currency, sch.Interval,
		sch.IntervalMS, sch.StartDate, todField(sch, "hour"), todField(sch, "minute"), todField(sch, "second"),
		sch.TimesTotal, sch.TimesRemaining, sch.Note, sch.NextRun, sch.CreatedAt, sch.Active)
	if err != nil {
		return fmt.Errorf("append schedule: %w", err)
	}
	return nil
}

func todField(sch domain.Schedule, which string) *int {
	if sch.TimeOfDay == nil {
		return nil
	}
	switch which {
	case "hour":
		return &sch.TimeOfDay.Hour
	case "minute":
		return &sch.TimeOfDay.Minute
	default:
		return &sch.TimeOfDay.Second
	}
}

func (s *ShardStore) PatchSchedule(ctx context.Context, user domain.UserAddress, id uuid.UUID, patch domain.SchedulePatch) (domain.Schedule, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if patch.NextRun != nil {
		if _, err := tx.Exec(ctx, `UPDATE schedules SET next_run = $1 WHERE id = $2 AND user_address = $3`,
			*patch.NextRun, id, string(user)); err != nil {
			return domain.Schedule{}, fmt.Errorf("patch next_run: %w", err)
		}
	}
	if patch.TimesRemaining != nil {
		if _, err := tx.Exec(ctx, `UPDATE schedules SET times_remaining = $1 WHERE id = $2 AND user_address = $3`,
			*patch.TimesRemaining, id, string(user)); err != nil {
			return domain.Schedule{}, fmt.Errorf("patch times_remaining: %w", err)
		}
	}
	if patch.Active != nil {
		if _, err := tx.Exec(ctx, `UPDATE schedules SET active = $1 WHERE id = $2 AND user_address = $3`,
			*patch.Active, id, string(user)); err != nil {
			return domain.Schedule{}, fmt.Errorf("patch active: %w", err)
		}
	}

	row := tx.QueryRow(ctx, scheduleSelect+` WHERE id = $1 AND user_address = $2`, id, string(user))
	sch, err := scanSchedule(row)
	if err != nil {
		return domain.Schedule{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Schedule{}, fmt.Errorf("commit patch: %w", err)
	}
	return sch, nil
}

func (s *ShardStore) DeleteSchedule(ctx context.Context, user domain.UserAddress, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM schedules WHERE id = $1 AND user_address = $2`,
		id, string(user))
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduleNotFound
	}
	return nil
}

const scheduleSelect = `
	SELECT id, user_address, name, recipient, amount, currency, interval,
	       interval_ms, start_date, tod_hour, tod_minute, tod_second,
	       times_total, times_remaining, note, next_run, created_at, active
	FROM schedules`

func (s *ShardStore) ListSchedules(ctx context.Context, user domain.UserAddress) ([]domain.Schedule, error) {
	rows, err := s.pool.Query(ctx, scheduleSelect+` WHERE user_address = $1 ORDER BY created_at DESC`, string(user))
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var out []domain.Schedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sch)
	}
	return out, rows.Err()
}

func (s *ShardStore) GetSchedule(ctx context.Context, user domain.UserAddress, id uuid.UUID) (domain.Schedule, error) {
	row := s.pool.QueryRow(ctx, scheduleSelect+` WHERE id = $1 AND user_address = $2`, id, string(user))
	return scanSchedule(row)
}

// ListAllActiveSchedules scans every user's active schedules. Used only
// by the Reconciler to diff shard truth against the Schedule Index.
func (s *ShardStore) ListAllActiveSchedules(ctx context.Context) ([]domain.Schedule, error) {
	rows, err := s.pool.Query(ctx, scheduleSelect+` WHERE active ORDER BY user_address, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list all active schedules: %w", err)
	}
	defer rows.Close()

	var out []domain.Schedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sch)
	}
	return out, rows.Err()
}

func scanSchedule(row pgx.Row) (domain.Schedule, error) {
	var sch domain.Schedule
	var userAddress, recipient string
	var hour, minute, second *int

	err := row.Scan(
		&sch.ID, &userAddress, &sch.Name, &recipient, &sch.Amount, &sch.Currency, &sch.Interval,
		&sch.IntervalMS, &sch.StartDate, &hour, &minute, &second,
		&sch.TimesTotal, &sch.TimesRemaining, &sch.Note, &sch.NextRun, &sch.CreatedAt, &sch.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Schedule{}, domain.ErrScheduleNotFound
	}
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("scan schedule: %w", err)
	}

	sch.UserAddress = domain.UserAddress(userAddress)
	sch.Recipient = domain.UserAddress(recipient)
	if hour != nil && minute != nil && second != nil {
		sch.TimeOfDay = &domain.TimeOfDay{Hour: *hour, Minute: *minute, Second: *second}
	}
	return sch, nil
}

func (s *ShardStore) AppendTransaction(ctx context.Context, t domain.Transaction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (
			id, type, user_address, name, address, amount, currency,
			status, tx_hash, schedule_id, note, ts
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		t.ID, t.Type, string(t.UserAddress), t.Name, string(t.Address), t.Amount, t.Currency,
		t.Status, t.TxHash, t.ScheduleID, t.Note, t.Timestamp)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

func (s *ShardStore) ListTransactions(ctx context.Context, user domain.UserAddress) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, user_address, name, address, amount, currency,
		       status, tx_hash, schedule_id, note, ts
		FROM transactions
		WHERE user_address = $1
		ORDER BY ts DESC`,
		string(user))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var userAddress, address string
		if err := rows.Scan(&t.ID, &t.Type, &userAddress, &t.Name, &address, &t.Amount, &t.Currency,
			&t.Status, &t.TxHash, &t.ScheduleID, &t.Note, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.UserAddress = domain.UserAddress(userAddress)
		t.Address = domain.UserAddress(address)
		out = append(out, t)
	}
	return out, rows.Err()
}
