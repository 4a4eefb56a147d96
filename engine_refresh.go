package goSession

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/jwt"
)

// Refresh rotates presented to a new token pair signed with the user's
// existing key.
//
// A token that was already rotated away, or a rotation that loses a race,
// deletes the credential before returning an *UnauthorizedError with reason
// "reuse". A token that is neither current nor used fails with reason
// "stale" and changes nothing.
func (e *Engine) Refresh(ctx context.Context, userID, email, presented string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if userID == "" || presented == "" {
		return nil, unauthorized(ReasonNoRefreshToken, ErrMissingCredential)
	}

	tokens, _, err := e.refresh(ctx, userID, normalizeEmail(email), presented)
	if err != nil {
		return nil, err
	}
	return &tokens, nil
}

// RefreshWithToken recovers the user from the refresh token itself, checks
// it is a genuine refresh-class token signed with the user's current key,
// then calls Refresh.
func (e *Engine) RefreshWithToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil, unauthorized(ReasonNoRefreshToken, ErrMissingCredential)
	}

	peeked, err := e.codec.Peek(refreshToken)
	if err != nil {
		return nil, unauthorized(ReasonMalformed, err)
	}

	cred, err := e.store.FindByUserID(ctx, peeked.UserID)
	if err != nil {
		if isCredentialMissing(err) {
			return nil, ErrCredentialNotFound
		}
		return nil, storeUnavailable(err)
	}

	claims, err := e.codec.VerifyClass(refreshToken, cred.PublicKey, jwt.ClassRefresh)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		err = unauthorized(ReasonInvalidRefreshToken, err)
		e.emitAudit(ctx, auditEventRefreshFailure, false, peeked.UserID, err, nil)
		return nil, err
	}

	return e.Refresh(ctx, claims.UserID, claims.Email, refreshToken)
}

func (e *Engine) refresh(ctx context.Context, userID, email, presented string) (TokenPair, UserRecord, error) {
	var owner UserRecord
	deps := e.flows.Refresh
	deps.ResolveUser = func(ctx context.Context, userID, email string) error {
		rec, err := e.users.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if rec.ID != userID {
			return ErrUserNotFound
		}
		owner = rec
		return nil
	}

	res := flows.RunRefresh(ctx, userID, email, presented, deps)
	if res.Failure != flows.RefreshFailureNone {
		err := e.refreshError(res)
		e.recordRefreshFailure(ctx, res, err)
		return TokenPair{}, UserRecord{}, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, userID, nil, nil)
	return res.Tokens, owner, nil
}

func (e *Engine) refreshError(res flows.RefreshResult) error {
	switch res.Failure {
	case flows.RefreshFailureRateLimited:
		return ErrRefreshRateLimited
	case flows.RefreshFailureCredentialNotFound:
		return ErrCredentialNotFound
	case flows.RefreshFailureStale:
		return unauthorized(ReasonStale, ErrRefreshStale)
	case flows.RefreshFailureReuse, flows.RefreshFailureConflict:
		return unauthorized(ReasonReuse, ErrRefreshReuse)
	case flows.RefreshFailureRevoke:
		e.logger.Error("credential revocation failed", zap.String("user_id", res.UserID), zap.Error(res.RevokeErr))
		return errors.Join(unauthorized(ReasonReuse, ErrRefreshReuse), res.Err, storeUnavailable(res.RevokeErr))
	case flows.RefreshFailureUserNotFound:
		if errors.Is(res.Err, ErrNotFound) {
			return ErrUserNotFound
		}
		return storeUnavailable(res.Err)
	case flows.RefreshFailureLimiter, flows.RefreshFailureStore:
		e.logger.Error("refresh backend failure", zap.String("user_id", res.UserID), zap.Error(res.Err))
		return storeUnavailable(res.Err)
	case flows.RefreshFailureSign:
		return fmt.Errorf("sign token pair: %w", res.Err)
	default:
		return res.Err
	}
}

func (e *Engine) recordRefreshFailure(ctx context.Context, res flows.RefreshResult, err error) {
	switch res.Failure {
	case flows.RefreshFailureRateLimited:
		e.metricInc(MetricRefreshRateLimited)
	case flows.RefreshFailureStale:
		e.metricInc(MetricRefreshStale)
	case flows.RefreshFailureReuse, flows.RefreshFailureConflict, flows.RefreshFailureRevoke:
		if res.Failure == flows.RefreshFailureConflict {
			e.metricInc(MetricRefreshConflict)
		} else {
			e.metricInc(MetricRefreshReuseDetected)
		}
		if res.Revoked {
			e.metricInc(MetricSessionRevoked)
			e.logger.Warn("refresh token reuse detected, session revoked",
				zap.String("user_id", res.UserID), zap.Error(res.Err))
		}
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, res.UserID, err, func() map[string]string {
			return map[string]string{"revoked": fmt.Sprint(res.Revoked)}
		})
		return
	}

	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, auditEventRefreshFailure, false, res.UserID, err, nil)
}
