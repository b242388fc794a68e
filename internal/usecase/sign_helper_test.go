package usecase_test

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

// signLoginMessage reproduces the canonical wallet-login signing flow
// so tests can produce a signature the usecase layer will accept,
// without depending on shard's unexported helpers.
func signLoginMessage(t *testing.T, key *ecdsa.PrivateKey, nonce string) string {
	t.Helper()

	msg := fmt.Sprintf(
		"Welcome to VoicePay!\n\nTo securely sign in, please confirm this message.\n\nSecurity code: %s\n\nThis signature will not trigger any blockchain transaction or gas fee.",
		nonce)
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	hash := crypto.Keccak256([]byte(prefixed))

	sig, err := crypto.Sign(hash, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return hex.EncodeToString(sig)
}
