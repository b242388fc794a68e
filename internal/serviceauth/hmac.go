// Package serviceauth implements the timestamped HMAC handshake between
// the Dispatcher and the Executor Bridge (C5): no external IdP sits
// between two trusted internal services, so a shared secret is enough.
package serviceauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderTimestamp = "X-Worker-Timestamp"
	HeaderSignature = "X-Worker-Auth"
)

// Sign returns the timestamp used (milliseconds since epoch) and the
// hex-encoded HMAC-SHA256 over the exact concatenation
// "<timestamp><body>", binding the signature to both the payload and
// the moment it was sent.
func Sign(secret string, body []byte, now time.Time) (timestamp string, signature string) {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	return ts, computeMAC(secret, ts, body)
}

func computeMAC(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the timestamp is within maxSkew of now and that
// signature matches the HMAC computed over timestamp and body,
// comparing in constant time.
func Verify(secret string, body []byte, timestamp, signature string, maxSkew time.Duration, now time.Time) error {
	if timestamp == "" || signature == "" {
		return fmt.Errorf("%w: missing signature headers", ErrUnauthenticated)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp", ErrUnauthenticated)
	}

	sentAt := time.UnixMilli(ts)
	skew := now.Sub(sentAt)
	if skew < 0 {
		skew = -skew
	}
	if skew > maxSkew {
		return fmt.Errorf("%w: timestamp outside allowed skew", ErrUnauthenticated)
	}

	expected := computeMAC(secret, timestamp, body)
	provided := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(signature)), "0x")

	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return fmt.Errorf("%w: signature mismatch", ErrUnauthenticated)
	}
	return nil
}
