package helpers

import (
	"context"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestVault() *CredentialVault {
	return NewCredentialVault(bcrypt.MinCost, 2)
}

func TestCredentialVaultHashVerifies(t *testing.T) {
	v := newTestVault()
	ctx := context.Background()

	hash, err := v.Hash(ctx, "longenough1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "longenough1" || strings.Contains(hash, "longenough1") {
		t.Fatalf("hash leaks plaintext: %q", hash)
	}

	ok, err := v.Verify(ctx, "longenough1", hash)
	if err != nil || !ok {
		t.Fatalf("expected verify true, got %v err=%v", ok, err)
	}
	ok, err = v.Verify(ctx, "wrongpassword", hash)
	if err != nil || ok {
		t.Fatalf("expected verify false, got %v err=%v", ok, err)
	}
}

func TestCredentialVaultSaltsEveryHash(t *testing.T) {
	v := newTestVault()
	ctx := context.Background()

	first, err := v.Hash(ctx, "samepassword")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := v.Hash(ctx, "samepassword")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct hashes for the same plaintext")
	}
	for _, h := range []string{first, second} {
		if ok, err := v.Verify(ctx, "samepassword", h); err != nil || !ok {
			t.Fatalf("expected %q to verify, got %v err=%v", h, ok, err)
		}
	}
}

func TestCredentialVaultMalformedHashIsFalse(t *testing.T) {
	v := newTestVault()
	tests := []struct {
		name string
		hash string
	}{
		{name: "empty", hash: ""},
		{name: "plaintext", hash: "longenough1"},
		{name: "bad prefix", hash: "x2a$10$abcdefghijklmnopqrstuvabcdefghijklmnopqrstuvwxyz01234"},
		{name: "bad cost", hash: "$2a$xx$abcdefghijklmnopqrstuvabcdefghijklmnopqrstuvwxyz01234"},
		{name: "future version", hash: "$3a$10$abcdefghijklmnopqrstuvabcdefghijklmnopqrstuvwxyz01234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := v.Verify(context.Background(), "longenough1", tt.hash)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if ok {
				t.Fatal("expected false for malformed hash")
			}
		})
	}
}

func TestCredentialVaultLongMultibytePassword(t *testing.T) {
	v := newTestVault()
	ctx := context.Background()
	plain := strings.Repeat("😀", 20)
	if len(plain) <= bcryptMaxInput {
		t.Fatalf("test input too short: %d bytes", len(plain))
	}

	hash, err := v.Hash(ctx, plain)
	if err != nil {
		t.Fatalf("hash %d byte password: %v", len(plain), err)
	}
	if ok, err := v.Verify(ctx, plain, hash); err != nil || !ok {
		t.Fatalf("expected verify true, got %v err=%v", ok, err)
	}
	if ok, err := v.Verify(ctx, strings.Repeat("😀", 17), hash); err != nil || ok {
		t.Fatalf("expected shorter password to fail, got %v err=%v", ok, err)
	}
}

func TestCredentialVaultRespectsCancelledContext(t *testing.T) {
	v := NewCredentialVault(bcrypt.MinCost, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := v.Hash(ctx, "longenough1"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestCredentialVaultConcurrentUse(t *testing.T) {
	v := newTestVault()
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := v.Hash(context.Background(), "parallel123")
			if err != nil {
				errs <- err
				return
			}
			if ok, err := v.Verify(context.Background(), "parallel123", h); err != nil || !ok {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent hash/verify failed: %v", err)
	}
}

func TestNewCredentialVaultClampsCost(t *testing.T) {
	if v := NewCredentialVault(100, 0); v.cost != DefaultBcryptCost {
		t.Fatalf("expected default cost, got %d", v.cost)
	}
	if v := NewCredentialVault(bcrypt.MinCost, 0); v.cost != bcrypt.MinCost {
		t.Fatalf("expected min cost kept, got %d", v.cost)
	}
}
