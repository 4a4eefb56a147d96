package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHashAndVerify(t *testing.T) {
	b, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}

	hash, err := b.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Fatalf("unexpected bcrypt prefix: %s", hash)
	}

	ok, err := b.Verify("correct-horse-battery", hash)
	if err != nil || !ok {
		t.Fatalf("expected match: ok=%v err=%v", ok, err)
	}
	ok, err = b.Verify("wrong-horse-battery", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch without error: ok=%v err=%v", ok, err)
	}
}

func TestBcryptRejectsOverlongPassword(t *testing.T) {
	b, _ := NewBcrypt(bcrypt.MinCost)
	if _, err := b.Hash(strings.Repeat("x", 73)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestBcryptCostBounds(t *testing.T) {
	if _, err := NewBcrypt(bcrypt.MaxCost + 1); err == nil {
		t.Fatal("expected cost out of range")
	}
}

func TestAutoDispatchesByPrefix(t *testing.T) {
	argon, err := NewArgon2(Config{Memory: minMemoryKB, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	bc, _ := NewBcrypt(bcrypt.MinCost)
	auto := NewAuto(argon, bc)

	legacy, err := bc.Hash("legacy-password-1")
	if err != nil {
		t.Fatalf("bcrypt hash: %v", err)
	}
	ok, err := auto.Verify("legacy-password-1", legacy)
	if err != nil || !ok {
		t.Fatalf("expected bcrypt hash to verify through Auto: ok=%v err=%v", ok, err)
	}
	if up, _ := auto.NeedsUpgrade(legacy); !up {
		t.Fatal("expected bcrypt hash to need upgrade")
	}

	modern, err := auto.Hash("modern-password-1")
	if err != nil {
		t.Fatalf("auto hash: %v", err)
	}
	if !strings.HasPrefix(modern, "$argon2id$") {
		t.Fatalf("expected argon2id output, got %s", modern)
	}
	if ok, err := auto.Verify("modern-password-1", modern); err != nil || !ok {
		t.Fatalf("expected argon2id hash to verify: ok=%v err=%v", ok, err)
	}

	if _, err := auto.Verify("x", "plaintext"); !errors.Is(err, ErrUnsupportedHash) {
		t.Fatalf("expected ErrUnsupportedHash, got %v", err)
	}
	if _, err := NewAuto(argon, nil).Verify("legacy-password-1", legacy); !errors.Is(err, ErrUnsupportedHash) {
		t.Fatalf("expected bcrypt to be refused without a bcrypt hasher, got %v", err)
	}
}
