package goSession

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/keypair"
	"github.com/MrEthical07/goSession/password"
)

// Config holds every tunable of the Engine. Build validates it and keeps a
// private copy, so later changes to the caller's value have no effect.
type Config struct {
	JWT        JWTConfig
	KeyPair    KeyPairConfig
	Credential CredentialConfig
	Password   PasswordConfig
	Security   SecurityConfig
	Account    AccountConfig
	Transport  TransportConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig sets token lifetimes. The refresh lifetime also bounds how long a
// credential record is kept.
type JWTConfig struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

/*
====================================
KEY PAIR CONFIG
====================================
*/

// KeyPairConfig sizes the per-user RSA signing keys.
type KeyPairConfig struct {
	Bits int
}

/*
====================================
CREDENTIAL CONFIG
====================================
*/

// CredentialConfig controls the default Redis credential store.
type CredentialConfig struct {
	RedisPrefix string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost parameters for new hashes.
// AcceptBcrypt lets Login verify bcrypt hashes imported from older stores.
// UpgradeOnLogin re-hashes bcrypt or weaker Argon2id hashes after a
// successful login when the UserDirectory supports PasswordHashUpdater.
type PasswordConfig struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
	AcceptBcrypt     bool
	UpgradeOnLogin   bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds the login-failure and refresh throttles.
type SecurityConfig struct {
	RateLimitPrefix         string
	EnableLoginThrottle     bool
	EnableIPThrottle        bool
	MaxLoginAttempts        int
	LoginCooldownDuration   time.Duration
	EnableRefreshThrottle   bool
	MaxRefreshAttempts      int
	RefreshCooldownDuration time.Duration
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls the roles granted to and accepted from new users.
type AccountConfig struct {
	DefaultRoles []string
	AllowedRoles []string
	UserPrefix   string
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig names the request and response channels tokens travel on
// and the attributes of the cookies that carry them.
type TransportConfig struct {
	AccessName     string
	RefreshName    string
	ClientIDHeader string
	APIKeyHeader   string
	CookiePath     string
	CookieDomain   string
	SecureCookies  bool
	SameSite       http.SameSite
	APIPrefix      string
	LoginPath      string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles the in-process counters and the authenticate latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults: 30 minute access tokens,
// 7 day refresh tokens, 2048-bit keys, Argon2id, strict cookies.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			Issuer:     "goSession",
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		KeyPair: KeyPairConfig{
			Bits: keypair.MinBits,
		},
		Credential: CredentialConfig{
			RedisPrefix: "gs:cred",
		},
		Password: PasswordConfig{
			Memory:           pw.Memory,
			Time:             pw.Time,
			Parallelism:      pw.Parallelism,
			SaltLength:       pw.SaltLength,
			KeyLength:        pw.KeyLength,
			MaxPasswordBytes: pw.MaxPasswordBytes,
			AcceptBcrypt:     true,
			UpgradeOnLogin:   true,
		},
		Security: SecurityConfig{
			RateLimitPrefix:         "gs:rl",
			EnableLoginThrottle:     true,
			EnableIPThrottle:        true,
			MaxLoginAttempts:        5,
			LoginCooldownDuration:   15 * time.Minute,
			EnableRefreshThrottle:   true,
			MaxRefreshAttempts:      20,
			RefreshCooldownDuration: time.Minute,
		},
		Account: AccountConfig{
			DefaultRoles: []string{RoleCustomer},
			AllowedRoles: []string{RoleCustomer, RoleAdmin},
			UserPrefix:   "gs:user",
		},
		Transport: TransportConfig{
			AccessName:     AccessCredentialName,
			RefreshName:    RefreshCredentialName,
			ClientIDHeader: ClientIDHeader,
			APIKeyHeader:   APIKeyHeader,
			CookiePath:     "/",
			SecureCookies:  true,
			SameSite:       http.SameSiteStrictMode,
			APIPrefix:      "/v1/api/",
			LoginPath:      "/login",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Account.DefaultRoles = append([]string(nil), cfg.Account.DefaultRoles...)
	out.Account.AllowedRoles = append([]string(nil), cfg.Account.AllowedRoles...)
	return out
}

func (c Config) passwordConfig() password.Config {
	return password.Config{
		Memory:           c.Password.Memory,
		Time:             c.Password.Time,
		Parallelism:      c.Password.Parallelism,
		SaltLength:       c.Password.SaltLength,
		KeyLength:        c.Password.KeyLength,
		MaxPasswordBytes: c.Password.MaxPasswordBytes,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT.AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT.RefreshTTL must exceed JWT.AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT.Leeway must be within [0, 2m]")
	}

	if c.KeyPair.Bits < keypair.MinBits {
		return errors.New("KeyPair.Bits must be >= 2048")
	}

	if strings.TrimSpace(c.Credential.RedisPrefix) == "" {
		return errors.New("Credential.RedisPrefix must not be empty")
	}

	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security.MaxLoginAttempts must be > 0 when login throttle is enabled")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security.LoginCooldownDuration must be > 0 when login throttle is enabled")
		}
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("Security.MaxRefreshAttempts must be > 0 when refresh throttle is enabled")
		}
		if c.Security.RefreshCooldownDuration <= 0 {
			return errors.New("Security.RefreshCooldownDuration must be > 0 when refresh throttle is enabled")
		}
	}

	if len(c.Account.AllowedRoles) == 0 {
		return errors.New("Account.AllowedRoles must not be empty")
	}
	if len(c.Account.DefaultRoles) == 0 {
		return errors.New("Account.DefaultRoles must not be empty")
	}
	for _, r := range c.Account.DefaultRoles {
		if !containsRole(c.Account.AllowedRoles, r) {
			return errors.New("Account.DefaultRoles must be a subset of Account.AllowedRoles")
		}
	}

	t := c.Transport
	if t.AccessName == "" || t.RefreshName == "" {
		return errors.New("Transport credential names must not be empty")
	}
	if t.AccessName == t.RefreshName {
		return errors.New("Transport.AccessName and Transport.RefreshName must differ")
	}
	if t.SameSite == http.SameSiteNoneMode && !t.SecureCookies {
		return errors.New("SameSite=None requires SecureCookies")
	}
	if !strings.HasPrefix(t.LoginPath, "/") {
		return errors.New("Transport.LoginPath must be an absolute path")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
