package domain

import "errors"

// Error kinds from the spec's error-handling design (§7). Handlers map
// these to HTTP status via errors.Is; the Dispatcher treats timeout,
// chain-revert and rpc-unavailable as retryable fire failures rather
// than surfacing them synchronously.
var (
	ErrValidation         = errors.New("validation")
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("duplicate")
	ErrAmbiguousRecipient = errors.New("ambiguous recipient")
	ErrRecipientMissing   = errors.New("recipient missing")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrTimeout            = errors.New("timeout")
	ErrChainRevert        = errors.New("chain revert")
	ErrRPCUnavailable     = errors.New("rpc unavailable")
	ErrInternal           = errors.New("internal")

	ErrNoNonce            = errors.New("no nonce issued")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrScheduleNotFound   = errors.New("schedule not found")
	ErrRecipientNotFound  = errors.New("recipient not found")
	ErrDuplicateRecipient = errors.New("recipient with this wallet already exists")
)
