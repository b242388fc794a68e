package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicepay/scheduler/internal/domain"
	"github.com/voicepay/scheduler/internal/usecase"
)

type recipientUsecaser interface {
	List(ctx context.Context, user domain.UserAddress) ([]domain.Recipient, error)
	Add(ctx context.Context, user domain.UserAddress, name string, wallet domain.UserAddress, note string) (domain.Recipient, error)
	Update(ctx context.Context, user domain.UserAddress, input usecase.UpdateRecipientInput) (domain.Recipient, error)
	Delete(ctx context.Context, user domain.UserAddress, wallet domain.UserAddress) error
}

type RecipientHandler struct {
	uc     recipientUsecaser
	logger *slog.Logger
}

func NewRecipientHandler(uc recipientUsecaser, logger *slog.Logger) *RecipientHandler {
	return &RecipientHandler{uc: uc, logger: logger.With("component", "recipient_handler")}
}

func userAddress(c *gin.Context) domain.UserAddress {
	return domain.UserAddress(c.GetString("userID"))
}

// GET /recipients
func (h *RecipientHandler) List(c *gin.Context) {
	recipients, err := h.uc.List(c.Request.Context(), userAddress(c))
	if err != nil {
		h.logger.Error("list recipients", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipients": recipients})
}

type addRecipientRequest struct {
	Name   string `json:"name" binding:"required"`
	Wallet string `json:"wallet" binding:"required"`
	Note   string `json:"note"`
}

// POST /recipients
func (h *RecipientHandler) Add(c *gin.Context) {
	var req addRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wallet, err := domain.NewUserAddress(req.Wallet)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidation})
		return
	}

	user := userAddress(c)
	if _, err := h.uc.Add(c.Request.Context(), user, req.Name, wallet, req.Note); err != nil {
		h.respondRecipientError(c, "add recipient", err)
		return
	}

	recipients, err := h.uc.List(c.Request.Context(), user)
	if err != nil {
		h.logger.Error("list recipients after add", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "recipients": recipients})
}

type updateRecipientRequest struct {
	OldWallet string  `json:"oldWallet" binding:"required"`
	NewWallet *string `json:"newWallet"`
	NewName   *string `json:"newName"`
	NewNote   *string `json:"newNote"`
}

// PUT /recipients
func (h *RecipientHandler) Update(c *gin.Context) {
	var req updateRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	oldWallet, err := domain.NewUserAddress(req.OldWallet)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidation})
		return
	}

	var newWallet *domain.UserAddress
	if req.NewWallet != nil {
		w, err := domain.NewUserAddress(*req.NewWallet)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errValidation})
			return
		}
		newWallet = &w
	}

	updated, err := h.uc.Update(c.Request.Context(), userAddress(c), usecase.UpdateRecipientInput{
		OldWallet: oldWallet,
		NewWallet: newWallet,
		NewName:   req.NewName,
		NewNote:   req.NewNote,
	})
	if err != nil {
		h.respondRecipientError(c, "update recipient", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}

type deleteRecipientRequest struct {
	Wallet string `json:"wallet" binding:"required"`
}

// DELETE /recipients
func (h *RecipientHandler) Delete(c *gin.Context) {
	var req deleteRecipientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wallet, err := domain.NewUserAddress(req.Wallet)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidation})
		return
	}

	if err := h.uc.Delete(c.Request.Context(), userAddress(c), wallet); err != nil {
		h.respondRecipientError(c, "delete recipient", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *RecipientHandler) respondRecipientError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrDuplicateRecipient):
		c.JSON(http.StatusConflict, gin.H{"error": errDuplicateRecipient})
	case errors.Is(err, domain.ErrRecipientNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errRecipientNotFound})
	default:
		h.logger.Error(op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}
