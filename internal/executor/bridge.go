package executor

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/voicepay/scheduler/internal/domain"
	"github.com/voicepay/scheduler/internal/shard"
)

// ProcessRecurringRequest is the Dispatcher's wire payload naming one
// due schedule to fire, matching the privileged endpoint's body.
type ProcessRecurringRequest struct {
	ScheduleID  uuid.UUID `json:"scheduleId" binding:"required"`
	UserAddress string    `json:"userAddress" binding:"required"`
	Recipient   string    `json:"recipient" binding:"required"`
	Amount      string    `json:"amount" binding:"required"`
	Currency    string    `json:"token" binding:"required"`
	Timestamp   int64     `json:"timestamp"`
	Name        string    `json:"name"`
	Note        string    `json:"note"`
}

// Bridge is the privileged handler behind serviceauth.Middleware: it
// turns one due-schedule fire into an on-chain pullPayment call and
// records the outcome in the owning user's shard, regardless of
// whether the chain call succeeded.
type Bridge struct {
	chain    *OnChain
	registry *shard.Registry
	logger   *slog.Logger
}

func NewBridge(chain *OnChain, registry *shard.Registry, logger *slog.Logger) *Bridge {
	return &Bridge{chain: chain, registry: registry, logger: logger.With("component", "executor_bridge")}
}

func (b *Bridge) ProcessRecurring(c *gin.Context) {
	var req ProcessRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}

	user := domain.UserAddress(req.UserAddress)
	payer := common.HexToAddress(req.UserAddress)
	recipient := common.HexToAddress(req.Recipient)

	// The whole chain call runs detached from the HTTP request's
	// cancellation: once a transaction is broadcast it must run to
	// completion (mined or timed out on its own terms), not die because
	// the caller's HTTP connection dropped.
	chainCtx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 2*time.Minute)
	defer cancel()

	receipt, chainErr := b.chain.PullPayment(chainCtx, payer, recipient, amount, scheduleIDBytes32(req.ScheduleID))

	tx := domain.Transaction{
		Type:        domain.TxRecurring,
		UserAddress: user,
		Name:        req.Name,
		Address:     domain.UserAddress(req.Recipient),
		Amount:      amount,
		Currency:    req.Currency,
		Note:        req.Note,
		ScheduleID:  &req.ScheduleID,
		Timestamp:   time.Now().UTC(),
	}

	if chainErr != nil {
		b.logger.Error("pull payment failed", "schedule_id", req.ScheduleID, "error", chainErr)
		tx.Status = domain.TxFailed
	} else {
		hash := receipt.TxHash.Hex()
		tx.Status = domain.TxCompleted
		tx.TxHash = &hash
	}

	sh := b.registry.Get(user)
	if _, err := sh.AppendTransaction(context.Background(), tx); err != nil {
		b.logger.Error("record transaction outcome", "schedule_id", req.ScheduleID, "error", err)
	}

	if chainErr != nil {
		c.JSON(http.StatusOK, gin.H{"status": "failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed", "tx_hash": *tx.TxHash})
}
