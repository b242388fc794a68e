// Package intent implements the Intent Resolver (C6): it wraps an
// opaque natural-language parser and turns its candidate intent into a
// canonical, persistence-ready one by resolving recipient names against
// the caller's shard.
package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/voicepay/scheduler/internal/domain"
)

type Kind string

const (
	KindSendOnce  Kind = "send_once"
	KindRecurring Kind = "recurring_payment"
)

// RawIntent is the opaque parser's candidate output, before recipient
// resolution or defaulting.
type RawIntent struct {
	Intent    Kind
	Name      string
	Address   string
	Amount    decimal.Decimal
	Currency  string
	Interval  domain.IntervalKind
	StartDate string
	TimeOfDay *domain.TimeOfDay
	Times     *int
	Note      string
}

// Parser is the opaque-NL-parser port. Its implementation (an LLM or
// rules engine) is explicitly out of scope; only this interface is.
type Parser interface {
	Parse(ctx context.Context, text string) (RawIntent, error)
}

// stubPattern matches a handful of canonical phrasings — enough to
// exercise the resolver end to end without a real NL integration.
var stubPattern = regexp.MustCompile(`(?i)^send\s+([\d.]+)\s*(usdc)?\s+to\s+([a-z0-9 _'-]+?)(\s+(daily|weekly|monthly|yearly))?\s*$`)

// StubParser is a deterministic stand-in for local development and
// tests: it pattern-matches "send N USDC to NAME [weekly|daily|...]"
// and nothing else.
type StubParser struct{}

func (StubParser) Parse(_ context.Context, text string) (RawIntent, error) {
	m := stubPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return RawIntent{}, fmt.Errorf("stub parser: does not recognize %q", text)
	}

	amount, err := decimal.NewFromString(m[1])
	if err != nil {
		return RawIntent{}, fmt.Errorf("stub parser: invalid amount: %w", err)
	}

	raw := RawIntent{
		Name:     strings.TrimSpace(m[3]),
		Amount:   amount,
		Currency: "USDC",
	}

	if interval := strings.ToLower(m[5]); interval != "" {
		raw.Intent = KindRecurring
		raw.Interval = domain.IntervalKind(interval)
	} else {
		raw.Intent = KindSendOnce
	}

	return raw, nil
}
