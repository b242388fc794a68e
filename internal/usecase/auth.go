package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voicepay/scheduler/internal/domain"
	"github.com/voicepay/scheduler/internal/shard"
)

const defaultJWTTTL = 24 * time.Hour

// AuthUsecase implements the wallet-signature login flow: issue a
// single-use nonce, verify the signature over it, mint a bearer JWT.
// There is no external identity provider in this domain — the wallet
// signature is the credential.
type AuthUsecase struct {
	registry *shard.Registry
	jwtKey   []byte
	jwtTTL   time.Duration
}

func NewAuthUsecase(registry *shard.Registry, jwtKey []byte) *AuthUsecase {
	return &AuthUsecase{registry: registry, jwtKey: jwtKey, jwtTTL: defaultJWTTTL}
}

func (u *AuthUsecase) IssueNonce(ctx context.Context, address domain.UserAddress) (string, error) {
	return u.registry.Get(address).IssueNonce(ctx)
}

// VerifySignature checks the signature against the issued nonce and, on
// success, mints a bearer JWT scoped to address.
func (u *AuthUsecase) VerifySignature(ctx context.Context, address domain.UserAddress, signature string) (string, error) {
	if err := u.registry.Get(address).VerifySignature(ctx, signature); err != nil {
		return "", err
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub": string(address),
		"iat": now.Unix(),
		"exp": now.Add(u.jwtTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(u.jwtKey)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}
