package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/jwt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureRateLimited
	RefreshFailureLimiter
	RefreshFailureCredentialNotFound
	RefreshFailureReuse
	RefreshFailureStale
	RefreshFailureConflict
	RefreshFailureUserNotFound
	RefreshFailureSign
	RefreshFailureRevoke
	RefreshFailureStore
)

// RefreshResult carries either the rotated token pair or failure metadata.
// On RefreshFailureRevoke, Err holds the reuse or conflict cause and
// RevokeErr the failed delete.
type RefreshResult struct {
	Failure    RefreshFailureKind
	Err        error
	UserID     string
	Revoked    bool
	RevokeErr  error
	Credential *credential.Credential
	Tokens     jwt.TokenPair
}

// RefreshRateLimiter is the per-user refresh throttle.
type RefreshRateLimiter interface {
	CheckRefresh(ctx context.Context, userID string) error
}

// RefreshCredentialStore is the store surface rotation needs.
type RefreshCredentialStore interface {
	CredentialReader
	CredentialRotator
	CredentialDeleter
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	RateLimiter RefreshRateLimiter
	RateLimited error
	Store       RefreshCredentialStore
	// ResolveUser returns a non-nil error when email no longer belongs to userID.
	ResolveUser func(ctx context.Context, userID, email string) error
	SignPair    PairSigner
	Warn        func(msg string, userID string, err error)
}

// RunRefresh rotates the presented refresh token.
//
// A token already in the used set, or a lost compare-and-swap, revokes the
// credential before the result is returned. A token that is neither current
// nor used fails as stale without side effects.
func RunRefresh(ctx context.Context, userID, email, presented string, deps RefreshDeps) RefreshResult {
	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckRefresh(ctx, userID); err != nil {
			if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
				return RefreshResult{Failure: RefreshFailureRateLimited, Err: err, UserID: userID}
			}
			return RefreshResult{Failure: RefreshFailureLimiter, Err: err, UserID: userID}
		}
	}

	cred, err := deps.Store.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return RefreshResult{Failure: RefreshFailureCredentialNotFound, Err: err, UserID: userID}
		}
		return RefreshResult{Failure: RefreshFailureStore, Err: err, UserID: userID}
	}

	if cred.WasUsed(presented) {
		return revoke(ctx, deps, userID, RefreshFailureReuse, credential.ErrRefreshReused)
	}
	if !cred.IsCurrent(presented) {
		return RefreshResult{Failure: RefreshFailureStale, UserID: userID}
	}

	if err := deps.ResolveUser(ctx, userID, email); err != nil {
		return RefreshResult{Failure: RefreshFailureUserNotFound, Err: err, UserID: userID}
	}

	// Same key pair; only the refresh token moves.
	tokens, err := deps.SignPair(jwt.UserClaims{UserID: userID, Email: email}, cred.PrivateKey)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureSign, Err: err, UserID: userID}
	}

	updated, err := deps.Store.Rotate(ctx, userID, presented, tokens.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, credential.ErrRefreshReused):
			return revoke(ctx, deps, userID, RefreshFailureReuse, err)
		case errors.Is(err, credential.ErrRotationConflict):
			return revoke(ctx, deps, userID, RefreshFailureConflict, err)
		case errors.Is(err, credential.ErrNotFound):
			return RefreshResult{Failure: RefreshFailureCredentialNotFound, Err: err, UserID: userID}
		default:
			return RefreshResult{Failure: RefreshFailureStore, Err: err, UserID: userID}
		}
	}

	return RefreshResult{UserID: userID, Credential: updated, Tokens: tokens}
}

func revoke(ctx context.Context, deps RefreshDeps, userID string, kind RefreshFailureKind, cause error) RefreshResult {
	if err := deps.Store.DeleteByUserID(ctx, userID); err != nil {
		if deps.Warn != nil {
			deps.Warn("credential revocation failed", userID, err)
		}
		return RefreshResult{Failure: RefreshFailureRevoke, Err: cause, RevokeErr: err, UserID: userID}
	}
	return RefreshResult{Failure: kind, Err: cause, UserID: userID, Revoked: true}
}
