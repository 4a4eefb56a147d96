package goSession

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/jwt"
)

// Authenticate verifies the access token in req against the user's stored
// public key.
//
// When the access token is genuine but expired, the refresh token in req is
// verified and rotated, and the new pair is written to sink. Any failure in
// that second phase clears both credentials on sink before returning.
//
// A token whose user has no credential fails with ErrCredentialNotFound, not
// a signature error, so a logged-out session is told to log in again.
func (e *Engine) Authenticate(ctx context.Context, req AuthRequest, sink CredentialSink) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
		defer func() {
			e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
		}()
	}

	res := flows.RunAuthenticate(ctx, req.AccessToken, e.flows.Authenticate)
	if res.Failure != flows.AuthenticateFailureNone {
		e.metricInc(MetricAuthenticateFailure)
		return nil, e.authenticateError(res)
	}

	if !res.NeedsRefresh {
		rec, err := e.users.FindByID(ctx, res.UserID)
		if err != nil {
			e.metricInc(MetricAuthenticateFailure)
			return nil, e.userLookupError(res.UserID, err)
		}
		e.metricInc(MetricAuthenticateSuccess)
		return &AuthResult{
			UserID:     res.UserID,
			Email:      res.Email,
			Roles:      append([]string(nil), rec.Roles...),
			Credential: res.Credential,
		}, nil
	}

	out, err := e.refreshFromRequest(ctx, res, req.RefreshToken)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		e.ClearTokens(sink)
		return nil, err
	}

	e.EmitTokens(sink, out.Tokens)
	e.metricInc(MetricAuthenticateRefreshed)
	return out, nil
}

func (e *Engine) refreshFromRequest(ctx context.Context, res flows.AuthenticateResult, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, unauthorized(ReasonNoRefreshToken, ErrMissingCredential)
	}

	claims, err := e.codec.VerifyClass(refreshToken, res.Credential.PublicKey, jwt.ClassRefresh)
	if err != nil {
		return nil, unauthorized(ReasonInvalidRefreshToken, err)
	}
	if claims.UserID != res.UserID {
		return nil, unauthorized(ReasonInvalidRefreshToken, ErrInvalidSignature)
	}

	tokens, owner, err := e.refresh(ctx, res.UserID, normalizeEmail(claims.Email), refreshToken)
	if err != nil {
		return nil, err
	}

	cred, err := e.store.FindByUserID(ctx, res.UserID)
	if err != nil {
		// Rotation committed; the caller still holds the new pair.
		e.logger.Warn("credential reload after refresh failed", zap.String("user_id", res.UserID), zap.Error(err))
		cred = nil
	}

	return &AuthResult{
		UserID:     res.UserID,
		Email:      owner.Email,
		Roles:      append([]string(nil), owner.Roles...),
		Credential: cred,
		Refreshed:  true,
		Tokens:     tokens,
	}, nil
}

func (e *Engine) authenticateError(res flows.AuthenticateResult) error {
	switch res.Failure {
	case flows.AuthenticateFailureMissing:
		return unauthorized(ReasonMissing, ErrMissingCredential)
	case flows.AuthenticateFailureMalformed:
		return unauthorized(ReasonMalformed, res.Err)
	case flows.AuthenticateFailureCredentialNotFound:
		return ErrCredentialNotFound
	case flows.AuthenticateFailureInvalidSignature:
		return unauthorized(ReasonInvalidSignature, res.Err)
	default:
		e.logger.Error("credential lookup failed", zap.String("user_id", res.UserID), zap.Error(res.Err))
		return storeUnavailable(res.Err)
	}
}

func (e *Engine) userLookupError(userID string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrUserNotFound
	}
	e.logger.Error("user lookup failed", zap.String("user_id", userID), zap.Error(err))
	return storeUnavailable(err)
}
