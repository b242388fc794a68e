package shard

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/voicepay/scheduler/internal/domain"
)

// Shard is the single-writer state container for one user: recipients,
// schedules, transactions, and the wallet-login nonce. Every exported
// method holds mu while it touches the store (ResolveByName releases it
// before matching names in memory), so concurrent callers on the same
// Shard observe a total order — the serialization spec.md §4.1
// requires. Different Shards run fully in parallel.
type Shard struct {
	mu      sync.Mutex
	address domain.UserAddress
	store   Store
}

func newShard(address domain.UserAddress, store Store) *Shard {
	return &Shard{address: address, store: store}
}

func (s *Shard) GetRecipients(ctx context.Context) ([]domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.GetRecipients(ctx, s.address)
}

func (s *Shard) AddRecipient(ctx context.Context, name string, wallet domain.UserAddress, note string) (domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.GetRecipients(ctx, s.address)
	if err != nil {
		return domain.Recipient{}, err
	}
	for _, r := range existing {
		if r.Wallet == wallet {
			return domain.Recipient{}, domain.ErrDuplicateRecipient
		}
	}

	r := domain.Recipient{Name: name, Wallet: wallet, Note: note}
	if err := s.store.AddRecipient(ctx, s.address, r); err != nil {
		return domain.Recipient{}, err
	}
	return r, nil
}

type RecipientPatch struct {
	NewWallet *domain.UserAddress
	NewName   *string
	NewNote   *string
}

func (s *Shard) UpdateRecipient(ctx context.Context, oldWallet domain.UserAddress, patch RecipientPatch) (domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipients, err := s.store.GetRecipients(ctx, s.address)
	if err != nil {
		return domain.Recipient{}, err
	}

	var current *domain.Recipient
	for i := range recipients {
		if recipients[i].Wallet == oldWallet {
			current = &recipients[i]
			break
		}
	}
	if current == nil {
		return domain.Recipient{}, domain.ErrRecipientNotFound
	}

	updated := *current
	if patch.NewWallet != nil {
		for _, r := range recipients {
			if r.Wallet == *patch.NewWallet && r.Wallet != oldWallet {
				return domain.Recipient{}, domain.ErrDuplicateRecipient
			}
		}
		updated.Wallet = *patch.NewWallet
	}
	if patch.NewName != nil {
		updated.Name = *patch.NewName
	}
	if patch.NewNote != nil {
		updated.Note = *patch.NewNote
	}

	if err := s.store.UpdateRecipient(ctx, s.address, oldWallet, updated); err != nil {
		return domain.Recipient{}, err
	}
	return updated, nil
}

func (s *Shard) DeleteRecipient(ctx context.Context, wallet domain.UserAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.DeleteRecipient(ctx, s.address, wallet)
}

// ResolveByName implements the exact/partial-unique/ambiguous/not-found
// matching rule of spec.md §4.1: case-insensitive; exact-name matches
// win outright; otherwise substring matches on name; ≥2 winners of the
// same class is ambiguous.
func (s *Shard) ResolveByName(ctx context.Context, query string) (domain.ResolveResult, error) {
	s.mu.Lock()
	recipients, err := s.store.GetRecipients(ctx, s.address)
	s.mu.Unlock()
	if err != nil {
		return domain.ResolveResult{}, err
	}

	q := strings.ToLower(strings.TrimSpace(query))

	var exact, partial []domain.Recipient
	for _, r := range recipients {
		name := strings.ToLower(r.Name)
		if name == q {
			exact = append(exact, r)
		} else if strings.Contains(name, q) {
			partial = append(partial, r)
		}
	}

	switch {
	case len(exact) == 1:
		return domain.ResolveResult{Match: &exact[0], Kind: domain.MatchExact}, nil
	case len(exact) > 1:
		return domain.ResolveResult{Options: exact}, nil
	case len(partial) == 1:
		return domain.ResolveResult{Match: &partial[0], Kind: domain.MatchPartial}, nil
	case len(partial) > 1:
		return domain.ResolveResult{Options: partial}, nil
	default:
		return domain.ResolveResult{}, domain.ErrRecipientNotFound
	}
}

// IssueNonce generates a fresh random nonce, storing it and overwriting
// any prior unconsumed nonce.
func (s *Shard) IssueNonce(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(raw)

	if err := s.store.SetNonce(ctx, s.address, nonce); err != nil {
		return "", err
	}
	return nonce, nil
}

// VerifySignature checks sig against the canonical signed message for
// the shard's current nonce, consuming the nonce on success.
func (s *Shard) VerifySignature(ctx context.Context, sig string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.GetAuthState(ctx, s.address)
	if err != nil {
		return err
	}
	if state.Nonce == nil {
		return domain.ErrNoNonce
	}

	recovered, err := recoverSigner(canonicalMessage(*state.Nonce), sig)
	if err != nil || !strings.EqualFold(string(recovered), string(s.address)) {
		return domain.ErrInvalidSignature
	}

	return s.store.ClearNonce(ctx, s.address)
}

func (s *Shard) AppendSchedule(ctx context.Context, sch domain.Schedule) (domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sch.UserAddress = s.address
	if sch.ID == uuid.Nil {
		sch.ID = uuid.New()
	}
	if err := s.store.AppendSchedule(ctx, sch); err != nil {
		return domain.Schedule{}, err
	}
	return sch, nil
}

func (s *Shard) PatchSchedule(ctx context.Context, id uuid.UUID, patch domain.SchedulePatch) (domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.PatchSchedule(ctx, s.address, id, patch)
}

func (s *Shard) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.DeleteSchedule(ctx, s.address, id)
}

func (s *Shard) ListSchedules(ctx context.Context) ([]domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ListSchedules(ctx, s.address)
}

func (s *Shard) GetSchedule(ctx context.Context, id uuid.UUID) (domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.GetSchedule(ctx, s.address, id)
}

func (s *Shard) AppendTransaction(ctx context.Context, t domain.Transaction) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.UserAddress = s.address
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if err := s.store.AppendTransaction(ctx, t); err != nil {
		return domain.Transaction{}, err
	}
	return t, nil
}

func (s *Shard) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ListTransactions(ctx, s.address)
}
