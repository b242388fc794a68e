package executor

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func parseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(raw)
}

// scheduleIDBytes32 left-pads a 16-byte schedule UUID into the 32-byte
// slot the contract's bytes32 scheduleId expects.
func scheduleIDBytes32(id uuid.UUID) [32]byte {
	var out [32]byte
	copy(out[16:], id[:])
	return out
}
