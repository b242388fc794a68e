package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// UserAddress is a 20-byte on-chain account identifier, always stored
// lowercased so it can be used directly as a shard key and SQL primary key.
type UserAddress string

// NewUserAddress validates and normalizes a raw hex address.
func NewUserAddress(raw string) (UserAddress, error) {
	raw = strings.TrimSpace(raw)
	if !addressPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: %q is not a 20-byte hex address", ErrValidation, raw)
	}
	return UserAddress(strings.ToLower(raw)), nil
}

func (a UserAddress) String() string { return string(a) }
