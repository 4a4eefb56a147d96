package goSession

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MrEthical07/goSession/internal/flows"
)

// Login checks the password and replaces the user's credential with a new
// key pair and token pair. Any session signed with the previous key ends.
//
// A failed attempt leaves the existing credential untouched and counts
// against the login throttle.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" || password == "" {
		err := fmt.Errorf("%w: email and password required", ErrInvalidInput)
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", err, nil)
		return nil, err
	}

	var found UserRecord
	deps := e.flows.Login
	deps.FindUserByEmail = func(ctx context.Context, email string) (flows.UserIdentity, bool, error) {
		rec, err := e.users.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return flows.UserIdentity{}, false, nil
			}
			return flows.UserIdentity{}, false, err
		}
		found = rec
		return flows.UserIdentity{ID: rec.ID, Email: rec.Email, PasswordHash: rec.PasswordHash}, true, nil
	}

	res := flows.RunLogin(ctx, email, password, deps)
	if res.Failure != flows.LoginFailureNone {
		err := e.loginError(res)
		if res.Failure == flows.LoginFailureRateLimited {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", err, func() map[string]string {
				return map[string]string{"identifier": email}
			})
			return nil, err
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.User.ID, err, nil)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricKeyPairGenerated)
	if res.PasswordUpgraded {
		e.metricInc(MetricPasswordUpgraded)
	}
	e.emitAudit(ctx, auditEventLoginSuccess, true, found.ID, nil, nil)

	return &LoginResult{User: found, Tokens: res.Tokens}, nil
}

func (e *Engine) loginError(res flows.LoginResult) error {
	switch res.Failure {
	case flows.LoginFailureRateLimited:
		return ErrLoginRateLimited
	case flows.LoginFailureUserNotFound:
		return ErrUserNotFound
	case flows.LoginFailureInvalidCredentials:
		return ErrInvalidCredentials
	case flows.LoginFailureLimiter, flows.LoginFailureLookup:
		e.logger.Error("login backend failure", zap.String("user_id", res.User.ID), zap.Error(res.Err))
		return storeUnavailable(res.Err)
	case flows.LoginFailureVerify:
		e.logger.Error("stored password hash rejected", zap.String("user_id", res.User.ID), zap.Error(res.Err))
		return fmt.Errorf("verify password: %w", res.Err)
	case flows.LoginFailureIssue:
		e.logger.Error("credential issuance failed", zap.String("user_id", res.User.ID), zap.Error(res.Err))
		return e.issueError(res.Issue, res.Err)
	default:
		return res.Err
	}
}
