package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voicepay/scheduler/internal/domain"
)

// authUsecaser is the subset of AuthUsecase the handler needs. Defined
// here (point of use) so tests can inject a fake.
type authUsecaser interface {
	IssueNonce(ctx context.Context, address domain.UserAddress) (string, error)
	VerifySignature(ctx context.Context, address domain.UserAddress, signature string) (string, error)
}

type AuthHandler struct {
	auth   authUsecaser
	logger *slog.Logger
}

func NewAuthHandler(auth authUsecaser, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger.With("component", "auth_handler")}
}

type nonceRequest struct {
	Address string `json:"address" binding:"required"`
}

// POST /auth/nonce
func (h *AuthHandler) IssueNonce(c *gin.Context) {
	var req nonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	address, err := domain.NewUserAddress(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidation})
		return
	}

	nonce, err := h.auth.IssueNonce(c.Request.Context(), address)
	if err != nil {
		h.logger.Error("issue nonce", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{"nonce": nonce})
}

type verifyRequest struct {
	Address   string `json:"address" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// POST /auth/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	address, err := domain.NewUserAddress(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidation})
		return
	}

	token, err := h.auth.VerifySignature(c.Request.Context(), address, req.Signature)
	if err != nil {
		if errors.Is(err, domain.ErrNoNonce) || errors.Is(err, domain.ErrInvalidSignature) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}
		h.logger.Error("verify signature", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "address": address})
}
