package domain

import "time"

// AuthState is the single-use wallet-login nonce held per shard.
// The nonce is consumed atomically on the first successful
// verify_signature call.
type AuthState struct {
	Nonce     *string
	UpdatedAt time.Time
}
