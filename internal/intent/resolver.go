package intent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/voicepay/scheduler/internal/domain"
)

// Shard is the subset of shard.Shard the resolver needs: name
// resolution against the caller's own recipients.
type Shard interface {
	ResolveByName(ctx context.Context, query string) (domain.ResolveResult, error)
}

type Resolver struct {
	parser Parser
}

func NewResolver(parser Parser) *Resolver {
	return &Resolver{parser: parser}
}

// Canonical is the resolved, normalized intent ready for the create
// path or a one-shot send. Fields carries the parser's Amount,
// Currency, Interval, TimeOfDay, Times and Note through unchanged.
type Canonical struct {
	Intent    Kind
	Recipient domain.UserAddress
	Fields    RawIntent
	StartDate time.Time
}

func (r *Resolver) Resolve(ctx context.Context, sh Shard, text string) (Canonical, error) {
	raw, err := r.parser.Parse(ctx, text)
	if err != nil {
		return Canonical{}, fmt.Errorf("parse intent: %w", err)
	}

	recipient := domain.UserAddress(raw.Address)
	if raw.Address == "" && raw.Name != "" {
		result, err := sh.ResolveByName(ctx, raw.Name)
		switch {
		case errors.Is(err, domain.ErrRecipientNotFound):
			return Canonical{}, domain.ErrRecipientMissing
		case err != nil:
			return Canonical{}, err
		case result.Match == nil:
			return Canonical{}, domain.ErrAmbiguousRecipient
		default:
			recipient = result.Match.Wallet
		}
	}

	if raw.Intent == "" {
		return Canonical{}, fmt.Errorf("%w: intent kind missing", domain.ErrValidation)
	}
	if raw.Amount.IsZero() || raw.Amount.IsNegative() {
		return Canonical{}, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if recipient == "" {
		return Canonical{}, domain.ErrRecipientMissing
	}

	startDate := time.Now().UTC()
	if raw.StartDate != "" {
		parsed, err := time.Parse("2006-01-02", raw.StartDate)
		if err != nil {
			return Canonical{}, fmt.Errorf("%w: invalid start_date", domain.ErrValidation)
		}
		startDate = parsed
	}

	return Canonical{
		Intent:    raw.Intent,
		Recipient: recipient,
		Fields:    raw,
		StartDate: startDate,
	}, nil
}
