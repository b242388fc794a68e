package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/voicepay/scheduler/internal/domain"
	"github.com/voicepay/scheduler/internal/intent"
)

type intentUsecaser interface {
	Parse(ctx context.Context, user domain.UserAddress, text string) (intent.Canonical, error)
	SetupRecurring(ctx context.Context, user domain.UserAddress, text string) (domain.Schedule, error)
}

type transactionUsecaser interface {
	List(ctx context.Context, user domain.UserAddress) ([]domain.Transaction, error)
	Store(ctx context.Context, t domain.Transaction) (domain.Transaction, error)
}

// TransactionHandler serves the intent-parsing, recurring-setup, and
// transaction-history endpoints, which all share the caller's bearer
// identity.
type TransactionHandler struct {
	intent       intentUsecaser
	transactions transactionUsecaser
	contractAddr string
	logger       *slog.Logger
}

func NewTransactionHandler(intentUC intentUsecaser, txUC transactionUsecaser, contractAddr string, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		intent:       intentUC,
		transactions: txUC,
		contractAddr: contractAddr,
		logger:       logger.With("component", "transaction_handler"),
	}
}

type parseIntentRequest struct {
	Text string `json:"text" binding:"required"`
}

// POST /intent/parse-intent
func (h *TransactionHandler) ParseIntent(c *gin.Context) {
	var req parseIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parsed, err := h.intent.Parse(c.Request.Context(), userAddress(c), req.Text)
	if err != nil {
		h.respondIntentError(c, "parse intent", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "parsedIntent": parsed})
}

// POST /transactions/setup-recurring
func (h *TransactionHandler) SetupRecurring(c *gin.Context) {
	var req parseIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sch, err := h.intent.SetupRecurring(c.Request.Context(), userAddress(c), req.Text)
	if err != nil {
		h.respondIntentError(c, "setup recurring", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "schedule": sch, "contractAddress": h.contractAddr})
}

func (h *TransactionHandler) respondIntentError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrAmbiguousRecipient):
		c.JSON(http.StatusConflict, gin.H{"error": errAmbiguousRecipient})
	case errors.Is(err, domain.ErrRecipientMissing), errors.Is(err, domain.ErrRecipientNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": errRecipientMissing})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidation})
	default:
		h.logger.Error(op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}

// GET /transactions
func (h *TransactionHandler) List(c *gin.Context) {
	txs, err := h.transactions.List(c.Request.Context(), userAddress(c))
	if err != nil {
		h.logger.Error("list transactions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

type storeTransactionRequest struct {
	Type       domain.TxType  `json:"type" binding:"required,oneof=send_once recurring"`
	Name       string         `json:"name"`
	Address    string         `json:"address" binding:"required"`
	Amount     string         `json:"amount" binding:"required"`
	Currency   string         `json:"currency" binding:"required"`
	Status     domain.TxStatus `json:"status" binding:"required,oneof=completed failed"`
	TxHash     *string        `json:"txHash"`
	ScheduleID *uuid.UUID     `json:"scheduleId"`
	Note       string         `json:"note"`
}

// POST /transactions/store
// Persists the outcome of a send-once transaction the client already
// executed directly against the chain.
func (h *TransactionHandler) Store(c *gin.Context) {
	var req storeTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidation})
		return
	}

	address, err := domain.NewUserAddress(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidation})
		return
	}

	stored, err := h.transactions.Store(c.Request.Context(), domain.Transaction{
		Type:        req.Type,
		UserAddress: userAddress(c),
		Name:        req.Name,
		Address:     address,
		Amount:      amount,
		Currency:    req.Currency,
		Status:      req.Status,
		TxHash:      req.TxHash,
		ScheduleID:  req.ScheduleID,
		Note:        req.Note,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errValidation})
			return
		}
		h.logger.Error("store transaction", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "stored": stored})
}
