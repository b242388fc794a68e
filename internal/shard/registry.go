package shard

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/voicepay/scheduler/internal/domain"
)

// Registry is the process-wide sharded map of UserAddress -> *Shard.
// It never evicts: a user's Shard is created lazily on first access and
// lives for the process lifetime, backed by the same durable Store for
// every user, so Shards are cheap (a mutex and an address).
type Registry struct {
	store    Store
	shards   sync.Map // domain.UserAddress -> *Shard
	creating sync.Mutex
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Get returns the Shard for address, creating it if this is the first
// access. address is lower-cased so "0xABC..." and "0xabc..." resolve
// to the same Shard.
func (reg *Registry) Get(address domain.UserAddress) *Shard {
	key := domain.UserAddress(strings.ToLower(string(address)))

	if v, ok := reg.shards.Load(key); ok {
		return v.(*Shard)
	}

	reg.creating.Lock()
	defer reg.creating.Unlock()

	if v, ok := reg.shards.Load(key); ok {
		return v.(*Shard)
	}

	sh := newShard(key, reg.store)
	reg.shards.Store(key, sh)
	return sh
}

// ListAllActiveSchedules delegates straight to the Store: reconciling
// the Schedule Index against shard truth needs every user's schedules
// at once, not just the shards this process happens to have touched.
func (reg *Registry) ListAllActiveSchedules(ctx context.Context) ([]domain.Schedule, error) {
	return reg.store.ListAllActiveSchedules(ctx)
}

// PatchSchedule is a convenience forward to the owning Shard, letting
// the Dispatcher (internal/scheduler) advance a schedule without
// holding a *Shard reference itself.
func (reg *Registry) PatchSchedule(ctx context.Context, user domain.UserAddress, id uuid.UUID, patch domain.SchedulePatch) (domain.Schedule, error) {
	return reg.Get(user).PatchSchedule(ctx, id, patch)
}

// AppendTransaction is a convenience forward to the owning Shard,
// letting the Dispatcher record a fire's outcome without holding a
// *Shard reference itself.
func (reg *Registry) AppendTransaction(ctx context.Context, user domain.UserAddress, t domain.Transaction) (domain.Transaction, error) {
	return reg.Get(user).AppendTransaction(ctx, t)
}
