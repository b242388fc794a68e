// Package redisindex backs internal/index.Store with Redis: one JSON
// blob per schedule plus a sorted set keyed by NextRun unix-nano, so
// Due() is a single ZRANGEBYSCORE rather than a full scan.
package redisindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/voicepay/scheduler/internal/domain"
)

const (
	entryKeyPrefix = "idx:entry:"
	dueSetKey      = "idx:due"
)

type Store struct {
	client *redis.Client
}

func New(url string) (*Store, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Ping satisfies health.Pinger so the Schedule Index can be included in
// readiness checks alongside Postgres.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func entryKey(id uuid.UUID) string {
	return entryKeyPrefix + id.String()
}

func (s *Store) Put(ctx context.Context, entry domain.IndexEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal index entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, entryKey(entry.ScheduleID), data, 0)
	pipe.ZAdd(ctx, dueSetKey, redis.Z{
		Score:  float64(entry.NextRun.UnixNano()),
		Member: entry.ScheduleID.String(),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put index entry: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, scheduleID uuid.UUID) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, entryKey(scheduleID))
	pipe.ZRem(ctx, dueSetKey, scheduleID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete index entry: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, scheduleID uuid.UUID) (domain.IndexEntry, error) {
	data, err := s.client.Get(ctx, entryKey(scheduleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.IndexEntry{}, domain.ErrScheduleNotFound
	}
	if err != nil {
		return domain.IndexEntry{}, fmt.Errorf("get index entry: %w", err)
	}

	var entry domain.IndexEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return domain.IndexEntry{}, fmt.Errorf("unmarshal index entry: %w", err)
	}
	return entry, nil
}

// Due returns every entry due at or before asOf, ordered by NextRun
// ascending, via a bounded ZRANGEBYSCORE on the due set.
func (s *Store) Due(ctx context.Context, asOf time.Time) ([]domain.IndexEntry, error) {
	ids, err := s.client.ZRangeByScore(ctx, dueSetKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", asOf.UnixNano()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range due set: %w", err)
	}

	return s.fetchAll(ctx, ids)
}

func (s *Store) All(ctx context.Context) ([]domain.IndexEntry, error) {
	ids, err := s.client.ZRange(ctx, dueSetKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("range full set: %w", err)
	}
	return s.fetchAll(ctx, ids)
}

func (s *Store) fetchAll(ctx context.Context, ids []string) ([]domain.IndexEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = entryKeyPrefix + id
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget index entries: %w", err)
	}

	entries := make([]domain.IndexEntry, 0, len(values))
	for _, v := range values {
		if v == nil {
			// Entry expired or was deleted out from under the due set.
			// The member is skipped here (and so by the Reconciler's
			// All() scan too); it is rewritten only if the shard still
			// holds the schedule as active.
			continue
		}
		str, ok := v.(string)
		if !ok {
			continue
		}
		var entry domain.IndexEntry
		if err := json.Unmarshal([]byte(str), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal index entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
