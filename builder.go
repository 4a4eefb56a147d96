package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/goSession/credential"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/keypair"
	"github.com/MrEthical07/goSession/password"
)

// Builder assembles an Engine. A Builder is single-use: the second Build
// call fails.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store    CredentialStore
	users    UserDirectory
	hasher   PasswordHasher
	keyPairs KeyPairProvider

	auditSink AuditSink
	logger    *zap.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. The value is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used by the default credential store and the
// rate limiters.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialStore overrides the Redis credential store, for example with
// a credential.PostgresStore.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithUserDirectory sets the user store. Required.
func (b *Builder) WithUserDirectory(users UserDirectory) *Builder {
	b.users = users
	return b
}

// WithPasswordHasher overrides the Argon2id hasher built from Config.Password.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithKeyPairProvider overrides the RSA provider built from Config.KeyPair.
// Tests use it to avoid generating a 2048-bit key per login.
func (b *Builder) WithKeyPairProvider(p KeyPairProvider) *Builder {
	b.keyPairs = p
	return b
}

// WithAuditSink sets where audit events go when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the operational logger. Tokens, keys and passwords are
// never logged.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock sets the time source for token issuance, verification and audit
// timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the authenticate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, errors.New("user directory required")
	}

	throttled := cfg.Security.EnableLoginThrottle || cfg.Security.EnableRefreshThrottle
	if b.redis == nil {
		if b.store == nil {
			return nil, errors.New("redis client or credential store required")
		}
		if throttled {
			return nil, errors.New("rate limiting requires redis client")
		}
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// -------- TOKEN CODEC --------
	codec, err := jwt.NewCodec(jwt.Config{
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Leeway:     cfg.JWT.Leeway,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}

	// -------- KEY PAIRS --------
	keyPairs := b.keyPairs
	if keyPairs == nil {
		keyPairs, err = keypair.NewRSAProvider(cfg.KeyPair.Bits)
		if err != nil {
			return nil, err
		}
	}

	// -------- CREDENTIAL STORE --------
	store := b.store
	if store == nil {
		store = credential.NewStore(b.redis, cfg.Credential.RedisPrefix, cfg.JWT.RefreshTTL)
	}

	// -------- PASSWORDS --------
	hasher := b.hasher
	if hasher == nil {
		argon, err := password.NewArgon2(cfg.passwordConfig())
		if err != nil {
			return nil, err
		}
		var bc *password.Bcrypt
		if cfg.Password.AcceptBcrypt {
			if bc, err = password.NewBcrypt(0); err != nil {
				return nil, err
			}
		}
		hasher = password.NewAuto(argon, bc)
	}

	engine := &Engine{
		config:   cfg,
		codec:    codec,
		keyPairs: keyPairs,
		store:    store,
		users:    b.users,
		hasher:   hasher,
		metrics:  NewMetrics(cfg.Metrics),
		logger:   logger,
		now:      now,
	}

	if throttled {
		maxLogin := 0
		if cfg.Security.EnableLoginThrottle {
			maxLogin = cfg.Security.MaxLoginAttempts
		}
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                  cfg.Security.RateLimitPrefix,
			EnableIPThrottle:        cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:        maxLogin,
			LoginCooldownDuration:   cfg.Security.LoginCooldownDuration,
			EnableRefreshThrottle:   cfg.Security.EnableRefreshThrottle,
			MaxRefreshAttempts:      cfg.Security.MaxRefreshAttempts,
			RefreshCooldownDuration: cfg.Security.RefreshCooldownDuration,
		})
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Logger:     engine.logger,
	}, b.auditSink)

	engine.flows = engine.buildFlowDeps()

	b.built = true

	return engine, nil
}

func (e *Engine) buildFlowDeps() flows.Deps {
	issue := flows.IssueDeps{
		KeyPairs: e.keyPairs,
		SignPair: e.codec.SignPair,
		Store:    e.store,
	}

	deps := flows.Deps{
		Issue: issue,
		SignUp: flows.SignUpDeps{
			EmailTaken:     e.emailTaken,
			HashPassword:   e.hasher.Hash,
			DuplicateEmail: ErrDuplicateEmail,
			Issue:          issue,
		},
		Login: flows.LoginDeps{
			RateLimited:    rate.ErrRateLimited,
			VerifyPassword: e.hasher.Verify,
			ClientIP:       clientIPFromContext,
			Warn:           e.warn,
			Issue:          issue,
		},
		Refresh: flows.RefreshDeps{
			RateLimited: rate.ErrRateLimited,
			Store:       e.store,
			SignPair:    e.codec.SignPair,
			Warn:        e.warn,
		},
		Authenticate: flows.AuthenticateDeps{
			Codec: e.codec,
			Store: e.store,
		},
		Logout: flows.LogoutDeps{
			Store: e.store,
		},
	}

	if e.config.Password.UpgradeOnLogin {
		upgrader, canCheck := e.hasher.(PasswordUpgrader)
		updater, canUpdate := e.users.(PasswordHashUpdater)
		if canCheck && canUpdate {
			deps.Login.PasswordNeedsUpgrade = upgrader.NeedsUpgrade
			deps.Login.HashPassword = e.hasher.Hash
			deps.Login.UpdatePasswordHash = updater.UpdatePasswordHash
		}
	}

	// A nil *rate.Limiter must not become a non-nil interface.
	if e.rateLimiter != nil {
		deps.Login.RateLimiter = e.rateLimiter
		deps.Refresh.RateLimiter = e.rateLimiter
	}

	return deps
}

func (e *Engine) emailTaken(ctx context.Context, email string) (bool, error) {
	_, err := e.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrUserNotFound):
		return false, nil
	default:
		return false, err
	}
}
