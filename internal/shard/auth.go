package shard

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/voicepay/scheduler/internal/domain"
)

// canonicalMessage is the exact text the wallet is asked to sign,
// wrapped with the standard Ethereum personal-sign prefix so it can
// never collide with a transaction payload.
func canonicalMessage(nonce string) []byte {
	msg := fmt.Sprintf(
		"Welcome to VoicePay!\n\nTo securely sign in, please confirm this message.\n\nSecurity code: %s\n\nThis signature will not trigger any blockchain transaction or gas fee.",
		nonce)
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	return []byte(prefixed)
}

// recoverSigner recovers the address that produced sig over msg. sig is
// hex-encoded, with or without a leading 0x, 65 bytes (r||s||v).
func recoverSigner(msg []byte, sig string) (domain.UserAddress, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	if err != nil {
		return "", fmt.Errorf("decode signature: %w", err)
	}
	if len(raw) != 65 {
		return "", fmt.Errorf("%w: signature must be 65 bytes, got %d", domain.ErrInvalidSignature, len(raw))
	}

	// go-ethereum's SigToPub expects the recovery id in [0, 1]; wallets
	// commonly produce EIP-155 style v in {27, 28}.
	if raw[64] >= 27 {
		raw[64] -= 27
	}

	hash := crypto.Keccak256(msg)
	pub, err := crypto.SigToPub(hash, raw)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}

	return domain.UserAddress(strings.ToLower(crypto.PubkeyToAddress(*pub).Hex())), nil
}
