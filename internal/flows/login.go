package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/jwt"
)

// LoginFailureKind classifies login failures.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureLimiter
	LoginFailureLookup
	LoginFailureUserNotFound
	LoginFailureVerify
	LoginFailureInvalidCredentials
	LoginFailureIssue
)

// LoginResult carries the user and its new token pair. PasswordUpgraded is
// set when the stored hash was replaced during the login.
type LoginResult struct {
	Failure          LoginFailureKind
	Issue            IssueFailureKind
	Err              error
	User             UserIdentity
	Tokens           jwt.TokenPair
	PasswordUpgraded bool
}

// LoginRateLimiter is the login-failure throttle.
type LoginRateLimiter interface {
	CheckLogin(ctx context.Context, email, ip string) error
	IncrementLogin(ctx context.Context, email, ip string) error
	ResetLogin(ctx context.Context, email string) error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	RateLimiter     LoginRateLimiter
	RateLimited     error
	FindUserByEmail func(ctx context.Context, email string) (UserIdentity, bool, error)
	VerifyPassword  func(password, hash string) (bool, error)
	ClientIP        func(ctx context.Context) string
	Warn            func(msg string, userID string, err error)
	Issue           IssueDeps

	// Upgrade hooks. Login skips the upgrade unless all three are set.
	PasswordNeedsUpgrade func(hash string) (bool, error)
	HashPassword         func(password string) (string, error)
	UpdatePasswordHash   func(ctx context.Context, userID, hash string) error
}

// RunLogin checks the password and, on success, replaces the user's
// credential with a new key pair and token pair. A failed attempt never
// touches the existing credential.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	ip := ""
	if deps.ClientIP != nil {
		ip = deps.ClientIP(ctx)
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.CheckLogin(ctx, email, ip); err != nil {
			if deps.RateLimited != nil && errors.Is(err, deps.RateLimited) {
				return LoginResult{Failure: LoginFailureRateLimited, Err: err}
			}
			return LoginResult{Failure: LoginFailureLimiter, Err: err}
		}
	}

	user, found, err := deps.FindUserByEmail(ctx, email)
	if err != nil {
		return LoginResult{Failure: LoginFailureLookup, Err: err}
	}
	if !found {
		recordFailure(ctx, deps, email, ip, "")
		return LoginResult{Failure: LoginFailureUserNotFound}
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return LoginResult{Failure: LoginFailureVerify, Err: err, User: user}
	}
	if !ok {
		recordFailure(ctx, deps, email, ip, user.ID)
		return LoginResult{Failure: LoginFailureInvalidCredentials, User: user}
	}

	issued := RunIssue(ctx, jwt.UserClaims{UserID: user.ID, Email: user.Email}, deps.Issue)
	if issued.Failure != IssueFailureNone {
		return LoginResult{Failure: LoginFailureIssue, Issue: issued.Failure, Err: issued.Err, User: user}
	}

	if deps.RateLimiter != nil {
		if err := deps.RateLimiter.ResetLogin(ctx, email); err != nil && deps.Warn != nil {
			deps.Warn("login limiter reset failed", user.ID, err)
		}
	}

	return LoginResult{User: user, Tokens: issued.Tokens, PasswordUpgraded: upgradePassword(ctx, deps, user, password)}
}

// upgradePassword is best-effort: a failure is reported through Warn and
// never fails the login.
func upgradePassword(ctx context.Context, deps LoginDeps, user UserIdentity, password string) bool {
	if deps.PasswordNeedsUpgrade == nil || deps.HashPassword == nil || deps.UpdatePasswordHash == nil {
		return false
	}
	needsUpgrade, err := deps.PasswordNeedsUpgrade(user.PasswordHash)
	if err != nil || !needsUpgrade {
		return false
	}
	upgraded, err := deps.HashPassword(password)
	if err != nil {
		if deps.Warn != nil {
			deps.Warn("password hash upgrade generation failed", user.ID, err)
		}
		return false
	}
	if err := deps.UpdatePasswordHash(ctx, user.ID, upgraded); err != nil {
		if deps.Warn != nil {
			deps.Warn("password hash upgrade update failed", user.ID, err)
		}
		return false
	}
	return true
}

func recordFailure(ctx context.Context, deps LoginDeps, email, ip, userID string) {
	if deps.RateLimiter == nil {
		return
	}
	if err := deps.RateLimiter.IncrementLogin(ctx, email, ip); err != nil && deps.Warn != nil {
		deps.Warn("login limiter increment failed", userID, err)
	}
}
