package goSession

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goSession/credential"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/keypair"
)

// Built-in roles.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// TokenPair is an access token and a refresh token signed with the same key.
type TokenPair = jwt.TokenPair

// Credential is the per-user server-side record of signing keys and refresh state.
type Credential = credential.Credential

// KeyPairProvider generates fresh signing key pairs.
type KeyPairProvider = keypair.Provider

// UserRecord is a user as the UserDirectory stores it.
type UserRecord struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	PasswordHash string    `json:"password_hash"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateUserInput is what the Engine hands a UserDirectory after hashing.
type CreateUserInput struct {
	Email        string
	Name         string
	PasswordHash string
	Roles        []string
}

// UserDirectory is the user store the Engine reads and creates users in.
// Find methods return ErrUserNotFound when there is no match. Create returns
// ErrDuplicateEmail when the email is taken, atomically with the insert.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (UserRecord, error)
	FindByID(ctx context.Context, id string) (UserRecord, error)
	Create(ctx context.Context, input CreateUserInput) (UserRecord, error)
}

// PasswordHashUpdater is implemented by directories that can replace a
// stored password hash. Login uses it to upgrade legacy hashes.
type PasswordHashUpdater interface {
	UpdatePasswordHash(ctx context.Context, userID, encodedHash string) error
}

// PasswordUpgrader is implemented by hashers that can tell when a stored
// hash is weaker than what Hash would produce today.
type PasswordUpgrader interface {
	NeedsUpgrade(encodedHash string) (bool, error)
}

// PasswordHasher hashes new passwords and verifies stored hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encodedHash string) (bool, error)
}

// CredentialStore persists Credentials. Rotate must be a single atomic
// compare-and-swap on the current refresh token and must report
// credential.ErrRotationConflict without writing when the comparison fails.
type CredentialStore interface {
	Create(ctx context.Context, userID string, publicKey, privateKey []byte, refreshToken string) error
	FindByUserID(ctx context.Context, userID string) (*credential.Credential, error)
	Rotate(ctx context.Context, userID, presented, next string) (*credential.Credential, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

// SignUpInput is the caller-supplied data for a new account.
type SignUpInput struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Name     string   `json:"name"`
	Roles    []string `json:"roles,omitempty"`
}

// SignUpResult is the new user and its first token pair.
type SignUpResult struct {
	User   UserRecord
	Tokens TokenPair
}

// LoginResult is the authenticated user and a token pair signed with a
// freshly generated key.
type LoginResult struct {
	User   UserRecord
	Tokens TokenPair
}

// AuthResult is the identity attached to an authenticated request.
type AuthResult struct {
	UserID     string
	Email      string
	Roles      []string
	Credential *credential.Credential
	// Refreshed is true when the access token had expired and Tokens holds
	// the rotated pair that was emitted to the sink.
	Refreshed bool
	Tokens    TokenPair
}

// HasAnyRole reports whether the result carries at least one of roles.
func (r *AuthResult) HasAnyRole(roles ...string) bool {
	if r == nil {
		return false
	}
	for _, want := range roles {
		if containsRole(r.Roles, want) {
			return true
		}
	}
	return false
}

// AuditEvent is one security-relevant outcome.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events on a channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink writes audit events to a zap logger.
type ZapSink = internalaudit.ZapSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a JSONWriterSink over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink returns a ZapSink over logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(logger)
}
