package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/voicepay/scheduler/internal/domain"
	"github.com/voicepay/scheduler/internal/shard"
	"github.com/voicepay/scheduler/internal/usecase"
)

const testJWTKey = "test-jwt-secret-at-least-32-chars!!"

// fakeStore is a minimal in-memory shard.Store covering only what the
// auth flow touches: nonce issuance/clearing.
type fakeStore struct {
	nonce *string
}

func (f *fakeStore) GetRecipients(context.Context, domain.UserAddress) ([]domain.Recipient, error) {
	return nil, nil
}
func (f *fakeStore) AddRecipient(context.Context, domain.UserAddress, domain.Recipient) error {
	return nil
}
func (f *fakeStore) UpdateRecipient(context.Context, domain.UserAddress, domain.UserAddress, domain.Recipient) error {
	return nil
}
func (f *fakeStore) DeleteRecipient(context.Context, domain.UserAddress, domain.UserAddress) error {
	return nil
}
func (f *fakeStore) GetAuthState(context.Context, domain.UserAddress) (domain.AuthState, error) {
	return domain.AuthState{Nonce: f.nonce}, nil
}
func (f *fakeStore) SetNonce(_ context.Context, _ domain.UserAddress, nonce string) error {
	f.nonce = &nonce
	return nil
}
func (f *fakeStore) ClearNonce(context.Context, domain.UserAddress) error {
	f.nonce = nil
	return nil
}
func (f *fakeStore) AppendSchedule(context.Context, domain.Schedule) error { return nil }
func (f *fakeStore) PatchSchedule(context.Context, domain.UserAddress, uuid.UUID, domain.SchedulePatch) (domain.Schedule, error) {
	return domain.Schedule{}, nil
}
func (f *fakeStore) DeleteSchedule(context.Context, domain.UserAddress, uuid.UUID) error { return nil }
func (f *fakeStore) ListSchedules(context.Context, domain.UserAddress) ([]domain.Schedule, error) {
	return nil, nil
}
func (f *fakeStore) GetSchedule(context.Context, domain.UserAddress, uuid.UUID) (domain.Schedule, error) {
	return domain.Schedule{}, nil
}
func (f *fakeStore) AppendTransaction(context.Context, domain.Transaction) error { return nil }
func (f *fakeStore) ListTransactions(context.Context, domain.UserAddress) ([]domain.Transaction, error) {
	return nil, nil
}
func (f *fakeStore) ListAllActiveSchedules(context.Context) ([]domain.Schedule, error) {
	return nil, nil
}

func TestIssueNonceThenVerifySignature_ReturnsSignedJWT(t *testing.T) {
	store := &fakeStore{}
	registry := shard.NewRegistry(store)
	au := usecase.NewAuthUsecase(registry, []byte(testJWTKey))

	privKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	address := domain.UserAddress(crypto.PubkeyToAddress(privKey.PublicKey).Hex())

	nonce, err := au.IssueNonce(context.Background(), address)
	if err != nil {
		t.Fatalf("issue nonce: %v", err)
	}

	sig := signLoginMessage(t, privKey, nonce)

	token, err := au.VerifySignature(context.Background(), address, sig)
	if err != nil {
		t.Fatalf("verify signature: %v", err)
	}

	parsed, parseErr := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(testJWTKey), nil
	})
	if parseErr != nil || !parsed.Valid {
		t.Fatalf("returned JWT is invalid: %v", parseErr)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("could not cast claims")
	}
	if claims["sub"] != string(address) {
		t.Errorf("sub = %v, want %q", claims["sub"], address)
	}
}

func TestVerifySignature_WrongSigner_Fails(t *testing.T) {
	store := &fakeStore{}
	registry := shard.NewRegistry(store)
	au := usecase.NewAuthUsecase(registry, []byte(testJWTKey))

	ownerKey, _ := crypto.GenerateKey()
	impostorKey, _ := crypto.GenerateKey()
	address := domain.UserAddress(crypto.PubkeyToAddress(ownerKey.PublicKey).Hex())

	nonce, err := au.IssueNonce(context.Background(), address)
	if err != nil {
		t.Fatalf("issue nonce: %v", err)
	}

	sig := signLoginMessage(t, impostorKey, nonce)

	if _, err := au.VerifySignature(context.Background(), address, sig); err == nil {
		t.Fatal("expected verification to fail for a signature from a different key")
	}
}

func TestVerifySignature_NoNonceIssued_Fails(t *testing.T) {
	store := &fakeStore{}
	registry := shard.NewRegistry(store)
	au := usecase.NewAuthUsecase(registry, []byte(testJWTKey))

	privKey, _ := crypto.GenerateKey()
	address := domain.UserAddress(crypto.PubkeyToAddress(privKey.PublicKey).Hex())

	sig := signLoginMessage(t, privKey, "never-issued")
	if _, err := au.VerifySignature(context.Background(), address, sig); !errors.Is(err, domain.ErrNoNonce) {
		t.Errorf("err = %v, want ErrNoNonce", err)
	}
}
