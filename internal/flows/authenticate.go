package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/jwt"
)

// AuthenticateFailureKind classifies access-token failures.
type AuthenticateFailureKind int

const (
	AuthenticateFailureNone AuthenticateFailureKind = iota
	AuthenticateFailureMissing
	AuthenticateFailureMalformed
	AuthenticateFailureCredentialNotFound
	AuthenticateFailureInvalidSignature
	AuthenticateFailureStore
)

// AuthenticateResult is the outcome of checking an access token. NeedsRefresh
// is set, with no failure, when the token was genuine but expired.
type AuthenticateResult struct {
	Failure      AuthenticateFailureKind
	Err          error
	UserID       string
	Email        string
	Credential   *credential.Credential
	NeedsRefresh bool
}

// AuthenticateDeps captures access-token verification dependencies.
type AuthenticateDeps struct {
	Codec *jwt.Codec
	Store CredentialReader
}

// RunAuthenticate peeks the token for its user, loads that user's credential
// and verifies the token with the stored public key.
func RunAuthenticate(ctx context.Context, accessToken string, deps AuthenticateDeps) AuthenticateResult {
	if accessToken == "" {
		return AuthenticateResult{Failure: AuthenticateFailureMissing}
	}

	peeked, err := deps.Codec.Peek(accessToken)
	if err != nil {
		return AuthenticateResult{Failure: AuthenticateFailureMalformed, Err: err}
	}

	cred, err := deps.Store.FindByUserID(ctx, peeked.UserID)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return AuthenticateResult{Failure: AuthenticateFailureCredentialNotFound, Err: err, UserID: peeked.UserID}
		}
		return AuthenticateResult{Failure: AuthenticateFailureStore, Err: err, UserID: peeked.UserID}
	}

	claims, err := deps.Codec.VerifyClass(accessToken, cred.PublicKey, jwt.ClassAccess)
	switch {
	case err == nil:
		return AuthenticateResult{UserID: claims.UserID, Email: claims.Email, Credential: cred}
	case errors.Is(err, jwt.ErrTokenExpired):
		if peeked.Class != jwt.ClassAccess {
			return AuthenticateResult{Failure: AuthenticateFailureMalformed, Err: jwt.ErrWrongTokenClass, UserID: peeked.UserID}
		}
		// The signature held, so the peeked identity is trustworthy.
		return AuthenticateResult{UserID: peeked.UserID, Email: peeked.Email, Credential: cred, NeedsRefresh: true}
	case errors.Is(err, jwt.ErrInvalidSignature), errors.Is(err, jwt.ErrInvalidKey):
		return AuthenticateResult{Failure: AuthenticateFailureInvalidSignature, Err: err, UserID: peeked.UserID}
	default:
		return AuthenticateResult{Failure: AuthenticateFailureMalformed, Err: err, UserID: peeked.UserID}
	}
}
