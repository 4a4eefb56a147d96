package goSession

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func seedBcryptUser(t *testing.T, te *testEngine) UserRecord {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	rec := UserRecord{ID: "legacy-1", Email: testEmail, PasswordHash: string(hash), Roles: []string{RoleCustomer}}
	te.users.put(rec)
	return rec
}

func TestLoginUpgradesBcryptHash(t *testing.T) {
	te := newTestEngine(t, testConfig())
	rec := seedBcryptUser(t, te)
	ctx := context.Background()

	if _, err := te.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("login with bcrypt hash: %v", err)
	}

	stored, err := te.users.FindByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !strings.HasPrefix(stored.PasswordHash, "$argon2id$") {
		t.Fatalf("expected argon2id hash after login, got %q", stored.PasswordHash)
	}
	if got := te.MetricsSnapshot().Counters[MetricPasswordUpgraded]; got != 1 {
		t.Fatalf("expected one upgrade, got %d", got)
	}

	if _, err := te.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("login with upgraded hash: %v", err)
	}
	if te.users.updates != 1 {
		t.Fatalf("current hash must not be rewritten, updates=%d", te.users.updates)
	}
}

func TestLoginUpgradeFailureDoesNotFailLogin(t *testing.T) {
	te := newTestEngine(t, testConfig())
	rec := seedBcryptUser(t, te)
	te.users.updateErr = errors.New("directory read-only")

	if _, err := te.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("login must succeed when the upgrade write fails: %v", err)
	}
	stored, _ := te.users.FindByID(context.Background(), rec.ID)
	if stored.PasswordHash != rec.PasswordHash {
		t.Fatal("hash should be unchanged after a failed update")
	}
	if got := te.MetricsSnapshot().Counters[MetricPasswordUpgraded]; got != 0 {
		t.Fatalf("expected no upgrade metric, got %d", got)
	}
}

func TestLoginUpgradeDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Password.UpgradeOnLogin = false
	te := newTestEngine(t, cfg)
	seedBcryptUser(t, te)

	if _, err := te.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	if te.users.updates != 0 {
		t.Fatalf("expected no hash rewrite, updates=%d", te.users.updates)
	}
}

func TestFailedLoginNeverUpgrades(t *testing.T) {
	te := newTestEngine(t, testConfig())
	seedBcryptUser(t, te)

	if _, err := te.Login(context.Background(), testEmail, "wrong-password-000"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if te.users.updates != 0 {
		t.Fatalf("expected no hash rewrite, updates=%d", te.users.updates)
	}
}
