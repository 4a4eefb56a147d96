package goSession

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goSession/credential"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
)

// Engine issues, verifies and rotates per-user credentials. It is safe for
// concurrent use after Build. All cross-request coordination happens inside
// the CredentialStore.
type Engine struct {
	config      Config
	codec       *jwt.Codec
	keyPairs    KeyPairProvider
	store       CredentialStore
	users       UserDirectory
	hasher      PasswordHasher
	rateLimiter *rate.Limiter
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
	logger      *zap.Logger
	now         func() time.Time
	flows       flows.Deps
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the configuration the engine was built with.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) warn(msg string, userID string, err error) {
	e.logger.Warn(msg, zap.String("user_id", userID), zap.Error(err))
}

func (e *Engine) ready() bool {
	return e != nil && e.codec != nil && e.store != nil && e.users != nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func storeUnavailable(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// Logout deletes the user's credential. Every token signed with the deleted
// key stops verifying immediately.
func (e *Engine) Logout(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if userID == "" {
		return fmt.Errorf("%w: user id required", ErrInvalidInput)
	}

	if err := flows.RunLogout(ctx, userID, e.flows.Logout); err != nil {
		e.logger.Error("logout failed", zap.String("user_id", userID), zap.Error(err))
		e.emitAudit(ctx, auditEventLogout, false, userID, err, nil)
		return storeUnavailable(err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, userID, nil, nil)
	return nil
}

// Authorize fails with ErrForbidden unless result carries at least one of
// roles. An empty role list always fails.
func (e *Engine) Authorize(ctx context.Context, result *AuthResult, roles ...string) error {
	if result == nil || result.UserID == "" {
		return ErrForbidden
	}
	if len(roles) == 0 || !result.HasAnyRole(roles...) {
		e.metricInc(MetricAuthorizeDenied)
		e.emitAudit(ctx, auditEventAuthorizeDenied, false, result.UserID, ErrForbidden, func() map[string]string {
			return map[string]string{
				"required": strings.Join(roles, ","),
				"held":     strings.Join(result.Roles, ","),
			}
		})
		return ErrForbidden
	}
	return nil
}

func isCredentialMissing(err error) bool {
	return errors.Is(err, credential.ErrNotFound)
}
