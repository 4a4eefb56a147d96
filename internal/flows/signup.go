package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/jwt"
)

// SignUpFailureKind classifies sign-up failures.
type SignUpFailureKind int

const (
	SignUpFailureNone SignUpFailureKind = iota
	SignUpFailureLookup
	SignUpFailureDuplicate
	SignUpFailureHash
	SignUpFailureCreateUser
	SignUpFailureIssue
)

// SignUpResult carries the created user and its first token pair.
type SignUpResult struct {
	Failure SignUpFailureKind
	Issue   IssueFailureKind
	Err     error
	User    UserIdentity
	Tokens  jwt.TokenPair
}

// SignUpDeps captures sign-up dependencies. CreateUser closes over the
// caller's input and receives only the password hash.
type SignUpDeps struct {
	EmailTaken     func(ctx context.Context, email string) (bool, error)
	HashPassword   func(password string) (string, error)
	CreateUser     func(ctx context.Context, passwordHash string) (UserIdentity, error)
	DuplicateEmail error
	Issue          IssueDeps
}

// RunSignUp creates the user and its first credential.
func RunSignUp(ctx context.Context, email, password string, deps SignUpDeps) SignUpResult {
	taken, err := deps.EmailTaken(ctx, email)
	if err != nil {
		return SignUpResult{Failure: SignUpFailureLookup, Err: err}
	}
	if taken {
		return SignUpResult{Failure: SignUpFailureDuplicate, Err: deps.DuplicateEmail}
	}

	hash, err := deps.HashPassword(password)
	if err != nil {
		return SignUpResult{Failure: SignUpFailureHash, Err: err}
	}

	user, err := deps.CreateUser(ctx, hash)
	if err != nil {
		// Lost a race with a concurrent sign-up for the same email.
		if deps.DuplicateEmail != nil && errors.Is(err, deps.DuplicateEmail) {
			return SignUpResult{Failure: SignUpFailureDuplicate, Err: err}
		}
		return SignUpResult{Failure: SignUpFailureCreateUser, Err: err}
	}

	issued := RunIssue(ctx, jwt.UserClaims{UserID: user.ID, Email: user.Email}, deps.Issue)
	if issued.Failure != IssueFailureNone {
		return SignUpResult{Failure: SignUpFailureIssue, Issue: issued.Failure, Err: issued.Err, User: user}
	}

	return SignUpResult{User: user, Tokens: issued.Tokens}
}
