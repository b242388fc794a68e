package handler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/voicepay/scheduler/internal/domain"
	"github.com/voicepay/scheduler/internal/transport/http/handler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuthUsecase struct {
	issueNonce      func(ctx context.Context, address domain.UserAddress) (string, error)
	verifySignature func(ctx context.Context, address domain.UserAddress, signature string) (string, error)
}

func (f *fakeAuthUsecase) IssueNonce(ctx context.Context, address domain.UserAddress) (string, error) {
	return f.issueNonce(ctx, address)
}

func (f *fakeAuthUsecase) VerifySignature(ctx context.Context, address domain.UserAddress, signature string) (string, error) {
	return f.verifySignature(ctx, address, signature)
}

func newAuthTestEngine(uc *fakeAuthUsecase) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handler.NewAuthHandler(uc, logger)

	r := gin.New()
	r.POST("/auth/nonce", h.IssueNonce)
	r.POST("/auth/verify", h.Verify)
	return r
}

func TestIssueNonce_MissingAddress_Returns400(t *testing.T) {
	uc := &fakeAuthUsecase{}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/nonce", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	newAuthTestEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestIssueNonce_Success_ReturnsNonce(t *testing.T) {
	uc := &fakeAuthUsecase{
		issueNonce: func(_ context.Context, _ domain.UserAddress) (string, error) { return "deadbeef", nil },
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/nonce", strings.NewReader(`{"address":"0xAbCdEf0123456789aBcDeF0123456789aBcDeF01"}`))
	req.Header.Set("Content-Type", "application/json")
	newAuthTestEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "deadbeef") {
		t.Errorf("body %q does not contain the nonce", w.Body.String())
	}
}

func TestVerify_InvalidSignature_Returns401(t *testing.T) {
	uc := &fakeAuthUsecase{
		verifySignature: func(_ context.Context, _ domain.UserAddress, _ string) (string, error) {
			return "", domain.ErrInvalidSignature
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/verify",
		strings.NewReader(`{"address":"0xAbCdEf0123456789aBcDeF0123456789aBcDeF01","signature":"bad"}`))
	req.Header.Set("Content-Type", "application/json")
	newAuthTestEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestVerify_NoNonce_Returns401(t *testing.T) {
	uc := &fakeAuthUsecase{
		verifySignature: func(_ context.Context, _ domain.UserAddress, _ string) (string, error) {
			return "", domain.ErrNoNonce
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/verify",
		strings.NewReader(`{"address":"0xAbCdEf0123456789aBcDeF0123456789aBcDeF01","signature":"sig"}`))
	req.Header.Set("Content-Type", "application/json")
	newAuthTestEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestVerify_InternalError_Returns500(t *testing.T) {
	uc := &fakeAuthUsecase{
		verifySignature: func(_ context.Context, _ domain.UserAddress, _ string) (string, error) {
			return "", errors.New("db down")
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/verify",
		strings.NewReader(`{"address":"0xAbCdEf0123456789aBcDeF0123456789aBcDeF01","signature":"sig"}`))
	req.Header.Set("Content-Type", "application/json")
	newAuthTestEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestVerify_Success_ReturnsTokenAndAddress(t *testing.T) {
	uc := &fakeAuthUsecase{
		verifySignature: func(_ context.Context, _ domain.UserAddress, _ string) (string, error) {
			return "header.payload.signature", nil
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/verify",
		strings.NewReader(`{"address":"0xAbCdEf0123456789aBcDeF0123456789aBcDeF01","signature":"sig"}`))
	req.Header.Set("Content-Type", "application/json")
	newAuthTestEngine(uc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "header.payload.signature") || !strings.Contains(body, "0xabcdef0123456789abcdef0123456789abcdef01") {
		t.Errorf("body %q missing lowercased address", body)
	}
}
