package goSession

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.JWT.AccessTTL != 30*time.Minute || cfg.JWT.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected lifetimes %v / %v", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
	if cfg.KeyPair.Bits != 2048 {
		t.Fatalf("unexpected key size %d", cfg.KeyPair.Bits)
	}
	tc := cfg.Transport
	if tc.AccessName != "authorization" || tc.RefreshName != "x-rtoken-id" ||
		tc.ClientIDHeader != "x-client-id" || tc.APIKeyHeader != "x-api-key" {
		t.Fatalf("unexpected transport names %+v", tc)
	}
	if !tc.SecureCookies || tc.SameSite != http.SameSiteStrictMode {
		t.Fatal("cookies must default to Secure and SameSite=Strict")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{name: "leeway within bound", mutate: func(c *Config) { c.JWT.Leeway = 45 * time.Second }, wantValid: true},
		{name: "leeway too large", mutate: func(c *Config) { c.JWT.Leeway = 3 * time.Minute }},
		{name: "zero access ttl", mutate: func(c *Config) { c.JWT.AccessTTL = 0 }},
		{name: "refresh not longer than access", mutate: func(c *Config) { c.JWT.RefreshTTL = c.JWT.AccessTTL }},
		{name: "weak keys", mutate: func(c *Config) { c.KeyPair.Bits = 1024 }},
		{name: "stronger keys", mutate: func(c *Config) { c.KeyPair.Bits = 3072 }, wantValid: true},
		{name: "blank redis prefix", mutate: func(c *Config) { c.Credential.RedisPrefix = "  " }},
		{name: "login throttle without attempts", mutate: func(c *Config) { c.Security.MaxLoginAttempts = 0 }},
		{name: "login throttle disabled without attempts", mutate: func(c *Config) {
			c.Security.EnableLoginThrottle = false
			c.Security.MaxLoginAttempts = 0
		}, wantValid: true},
		{name: "refresh throttle without cooldown", mutate: func(c *Config) { c.Security.RefreshCooldownDuration = 0 }},
		{name: "default role not allowed", mutate: func(c *Config) { c.Account.DefaultRoles = []string{"root"} }},
		{name: "no allowed roles", mutate: func(c *Config) { c.Account.AllowedRoles = nil }},
		{name: "same credential names", mutate: func(c *Config) { c.Transport.RefreshName = c.Transport.AccessName }},
		{name: "samesite none without secure", mutate: func(c *Config) {
			c.Transport.SameSite = http.SameSiteNoneMode
			c.Transport.SecureCookies = false
		}},
		{name: "relative login path", mutate: func(c *Config) { c.Transport.LoginPath = "login" }},
		{name: "audit without buffer", mutate: func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWithConfigCopiesSlices(t *testing.T) {
	cfg := DefaultConfig()
	b := New().WithConfig(cfg)
	cfg.Account.AllowedRoles[0] = "mutated"

	if b.config.Account.AllowedRoles[0] != RoleCustomer {
		t.Fatal("builder must hold its own copy of the config")
	}
}

func TestBuildRequirements(t *testing.T) {
	if _, err := New().WithUserDirectory(newMemDirectory()).Build(); err == nil {
		t.Fatal("expected error without redis or credential store")
	}
	if _, err := New().Build(); err == nil {
		t.Fatal("expected error without user directory")
	}

	b := New().WithUserDirectory(newMemDirectory()).WithCredentialStore(&failingStore{})
	if _, err := b.Build(); err == nil {
		t.Fatal("throttles need redis even with a custom store")
	}

	cfg := DefaultConfig()
	cfg.Security.EnableLoginThrottle = false
	cfg.Security.EnableRefreshThrottle = false
	b = New().WithConfig(cfg).WithUserDirectory(newMemDirectory()).WithCredentialStore(&failingStore{})
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build without redis: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("builder must be single-use")
	}
}

func TestNilEngineNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.Login(context.Background(), testEmail, testPassword); err != ErrEngineNotReady {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if e.AuditDropped() != 0 || len(e.MetricsSnapshot().Counters) != 0 {
		t.Fatal("nil engine accessors must be inert")
	}
	e.Close()
}
