package goSession

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/goSession/jwt"
)

var (
	// ErrMissingCredential indicates no access or refresh token was presented where one is required.
	ErrMissingCredential = errors.New("missing credential")
	// ErrMalformedToken indicates a token that cannot be decoded.
	ErrMalformedToken = jwt.ErrMalformedToken
	// ErrTokenExpired indicates a genuine token past its expiry.
	ErrTokenExpired = jwt.ErrTokenExpired
	// ErrInvalidSignature indicates a token not signed by the user's current key.
	ErrInvalidSignature = jwt.ErrInvalidSignature

	// ErrUnauthorized is the parent of every *UnauthorizedError.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRefreshStale indicates a refresh token that is neither current nor used.
	ErrRefreshStale = errors.New("refresh token is not current")
	// ErrRefreshReuse indicates a consumed refresh token or a lost rotation race. The session has been revoked.
	ErrRefreshReuse = errors.New("refresh token reuse detected")

	// ErrNotFound is the parent of the not-found errors.
	ErrNotFound = errors.New("not found")
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrCredentialNotFound indicates the user has no credential, for example after logout.
	ErrCredentialNotFound = fmt.Errorf("key %w for user", ErrNotFound)

	// ErrDuplicateEmail indicates a sign-up for an email that is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials indicates a password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden indicates an authenticated user without a required role.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput indicates a request that failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLoginRateLimited indicates too many failed logins in the current window.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited indicates too many refresh attempts in the current window.
	ErrRefreshRateLimited = errors.New("refresh rate limited")

	// ErrStoreUnavailable indicates a backing store failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEngineNotReady indicates a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not ready")
)

// Reasons carried by *UnauthorizedError.
const (
	ReasonMissing             = "missing"
	ReasonMalformed           = "malformed"
	ReasonInvalidSignature    = "invalid-signature"
	ReasonStale               = "stale"
	ReasonReuse               = "reuse"
	ReasonNoRefreshToken      = "no-refresh-token"
	ReasonInvalidRefreshToken = "invalid-refresh-token"
)

// UnauthorizedError is a rejected credential. It matches ErrUnauthorized and
// its cause under errors.Is.
type UnauthorizedError struct {
	Reason string
	Err    error
}

func (e *UnauthorizedError) Error() string {
	if e.Err == nil {
		return "unauthorized: " + e.Reason
	}
	return "unauthorized: " + e.Reason + ": " + e.Err.Error()
}

func (e *UnauthorizedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnauthorized}
	}
	return []error{ErrUnauthorized, e.Err}
}

func unauthorized(reason string, cause error) error {
	return &UnauthorizedError{Reason: reason, Err: cause}
}

// UnauthorizedReason returns the reason of an *UnauthorizedError in err's chain.
func UnauthorizedReason(err error) (string, bool) {
	var ue *UnauthorizedError
	if errors.As(err, &ue) {
		return ue.Reason, true
	}
	return "", false
}

// LoginRequired reports whether the caller must authenticate again.
func LoginRequired(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrCredentialNotFound)
}

// StatusCode maps err to the HTTP status an outer layer should answer with.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	// A failed revocation leaves the credential in place, so the caller must
	// retry rather than treat the token as dead.
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, ErrLoginRateLimited), errors.Is(err, ErrRefreshRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
