package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TxType string

const (
	TxSendOnce  TxType = "send_once"
	TxRecurring TxType = "recurring"
)

type TxStatus string

const (
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
)

// Transaction is an append-only record of one on-chain send attempt,
// successful or not. Never mutated after creation.
type Transaction struct {
	ID          uuid.UUID
	Type        TxType
	UserAddress UserAddress
	Name        string
	Address     UserAddress
	Amount      decimal.Decimal
	Currency    string
	Status      TxStatus
	TxHash      *string
	ScheduleID  *uuid.UUID
	Note        string
	Timestamp   time.Time
}
