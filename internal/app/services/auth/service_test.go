package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ujamaadao/backend/internal/app/storage/memory"
	"github.com/ujamaadao/backend/internal/errors"
)

// stubRecoverer maps exact signed messages to the address they recover to,
// modelling the binding between a signature and the text it covers.
type stubRecoverer struct {
	byMessage map[string]string
}

func (s stubRecoverer) Recover(message, _ string) (string, error) {
	addr, ok := s.byMessage[message]
	if !ok {
		return "", fmt.Errorf("no signature for message %q", message)
	}
	return addr, nil
}

// anyMessageRecoverer accepts every message for one address.
type anyMessageRecoverer struct{ addr string }

func (a anyMessageRecoverer) Recover(string, string) (string, error) { return a.addr, nil }

const wallet = "0x00112233445566778899aabbccddeeff00112233"

func TestNonceRegistersPlaceholderAndIsStable(t *testing.T) {
	store := memory.New()
	svc := New(store, stubRecoverer{}, "secret", time.Hour, nil)
	ctx := context.Background()

	nonce, err := svc.Nonce(ctx, wallet)
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}
	if len(nonce) != 32 {
		t.Fatalf("nonce %q, want 32 hex chars", nonce)
	}

	user, err := store.GetUserByWallet(ctx, wallet)
	if err != nil {
		t.Fatalf("placeholder user missing: %v", err)
	}
	if user.Name != "New User" {
		t.Fatalf("placeholder name %q", user.Name)
	}

	again, err := svc.Nonce(ctx, wallet)
	if err != nil {
		t.Fatalf("second nonce: %v", err)
	}
	if again != nonce {
		t.Fatal("nonce changed without a verification")
	}
}

func TestVerifyIssuesTokenAndRotatesNonce(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	svcForNonce := New(store, stubRecoverer{}, "secret", time.Hour, nil)
	nonce, err := svcForNonce.Nonce(ctx, wallet)
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}

	recoverer := stubRecoverer{byMessage: map[string]string{MessagePrefix + nonce: wallet}}
	svc := New(store, recoverer, "secret", time.Hour, nil)

	session, err := svc.Verify(ctx, wallet, "0xsignature")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if session.Token == "" {
		t.Fatal("empty session token")
	}
	if session.User.Nonce != "" {
		t.Fatal("nonce leaked on session user")
	}

	claims, err := ParseToken(session.Token, "secret")
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.WalletAddress != wallet {
		t.Fatalf("claims wallet %q", claims.WalletAddress)
	}
	if claims.UserID != session.User.ID {
		t.Fatalf("claims user %q, want %q", claims.UserID, session.User.ID)
	}

	// The consumed challenge can never verify again.
	if _, err := svc.Verify(ctx, wallet, "0xsignature"); err == nil {
		t.Fatal("replayed signature accepted")
	}

	user, _ := store.GetUserByWallet(ctx, wallet)
	if user.Nonce == nonce || user.Nonce == "" {
		t.Fatalf("nonce not rotated: %q", user.Nonce)
	}
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	svcForNonce := New(store, stubRecoverer{}, "secret", time.Hour, nil)
	nonce, err := svcForNonce.Nonce(ctx, wallet)
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}

	other := "0xffffffffffffffffffffffffffffffffffffffff"
	recoverer := stubRecoverer{byMessage: map[string]string{MessagePrefix + nonce: other}}
	svc := New(store, recoverer, "secret", time.Hour, nil)

	_, err = svc.Verify(ctx, wallet, "0xsignature")
	svcErr := errors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != errors.CodeUnauthorized {
		t.Fatalf("got %v, want unauthorized", err)
	}

	// A failed verification must not consume the challenge.
	user, _ := store.GetUserByWallet(ctx, wallet)
	if user.Nonce != nonce {
		t.Fatal("nonce rotated on failed verification")
	}
}

func TestVerifyUnknownWallet(t *testing.T) {
	svc := New(memory.New(), stubRecoverer{}, "secret", time.Hour, nil)
	_, err := svc.Verify(context.Background(), wallet, "0xsignature")
	svcErr := errors.GetServiceError(err)
	if svcErr == nil || svcErr.Code != errors.CodeNotFound {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestConcurrentVerifyConsumesNonceOnce(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	svcForNonce := New(store, stubRecoverer{}, "secret", time.Hour, nil)
	nonce, err := svcForNonce.Nonce(ctx, wallet)
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}

	recoverer := stubRecoverer{byMessage: map[string]string{MessagePrefix + nonce: wallet}}
	svc := New(store, recoverer, "secret", time.Hour, nil)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Verify(ctx, wallet, "0xsignature")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes int
	for err := range results {
		if err == nil {
			successes++
		}
	}
	if successes != 1 {
		t.Fatalf("%d verifications succeeded, want exactly 1", successes)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	svcForNonce := New(store, stubRecoverer{}, "secret", time.Hour, nil)
	nonce, err := svcForNonce.Nonce(ctx, wallet)
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}
	svc := New(store, stubRecoverer{byMessage: map[string]string{MessagePrefix + nonce: wallet}}, "secret", time.Hour, nil)
	session, err := svc.Verify(ctx, wallet, "0xsignature")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if _, err := ParseToken(session.Token, "other-secret"); err == nil {
		t.Fatal("token accepted with wrong secret")
	}
	if _, err := ParseToken("not-a-token", "secret"); err == nil {
		t.Fatal("garbage token accepted")
	}
}

func TestNonceRequiresWallet(t *testing.T) {
	svc := New(memory.New(), anyMessageRecoverer{addr: wallet}, "secret", time.Hour, nil)
	if _, err := svc.Nonce(context.Background(), "  "); err == nil {
		t.Fatal("blank wallet accepted")
	}
	if _, err := svc.Verify(context.Background(), wallet, ""); err == nil {
		t.Fatal("blank signature accepted")
	}
}
