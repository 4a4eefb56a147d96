package flows

import (
	"context"

	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/jwt"
)

// Deps groups flow dependency sets. The Engine builds this once at Build time.
type Deps struct {
	Issue        IssueDeps
	SignUp       SignUpDeps
	Login        LoginDeps
	Refresh      RefreshDeps
	Authenticate AuthenticateDeps
	Logout       LogoutDeps
}

// UserIdentity is the part of a user record the flows need.
type UserIdentity struct {
	ID           string
	Email        string
	PasswordHash string
}

// CredentialReader loads a credential.
type CredentialReader interface {
	FindByUserID(ctx context.Context, userID string) (*credential.Credential, error)
}

// CredentialWriter replaces a credential.
type CredentialWriter interface {
	Create(ctx context.Context, userID string, publicKey, privateKey []byte, refreshToken string) error
}

// CredentialRotator performs the compare-and-swap rotation.
type CredentialRotator interface {
	Rotate(ctx context.Context, userID, presented, next string) (*credential.Credential, error)
}

// CredentialDeleter removes a credential.
type CredentialDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// PairSigner signs an access and refresh token with one private key.
type PairSigner func(uc jwt.UserClaims, privateKeyPEM []byte) (jwt.TokenPair, error)
