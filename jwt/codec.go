package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Class distinguishes short-lived access tokens from long-lived refresh tokens.
type Class string

const (
	// ClassAccess marks a token that authorizes requests.
	ClassAccess Class = "access"
	// ClassRefresh marks a token that can only be exchanged for a new pair.
	ClassRefresh Class = "refresh"
)

const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	maxLeeway         = 2 * time.Minute
)

// Config controls token lifetimes and validation.
type Config struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
	// Now overrides the clock used for issuing and validating. Nil means time.Now.
	Now func() time.Time
}

// UserClaims is the identity carried by every token.
type UserClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Claims is the full decoded payload.
type Claims struct {
	UserClaims
	Class Class `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is an access token and refresh token signed with the same key.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Codec signs and verifies tokens. It holds no keys and is safe for concurrent use.
type Codec struct {
	config Config
	now    func() time.Time
}

// NewCodec validates cfg and returns a codec. Zero TTLs select the defaults.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("refresh TTL must exceed access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Codec{config: cfg, now: now}, nil
}

// TTL returns the lifetime of tokens of the given class.
func (c *Codec) TTL(class Class) time.Duration {
	if class == ClassRefresh {
		return c.config.RefreshTTL
	}
	return c.config.AccessTTL
}

// Sign issues a token of the given class for uc, signed with privateKeyPEM.
func (c *Codec) Sign(uc UserClaims, privateKeyPEM []byte, class Class) (string, error) {
	if class != ClassAccess && class != ClassRefresh {
		return "", fmt.Errorf("unknown token class %q", class)
	}
	if uc.UserID == "" {
		return "", errors.New("user id is required")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	now := c.now()
	claims := Claims{
		UserClaims: uc,
		Class:      class,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uc.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL(class))),
			// Distinguishes tokens minted within the same second.
			ID: uuid.NewString(),
		},
	}
	if c.config.Issuer != "" {
		claims.Issuer = c.config.Issuer
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
}

// SignPair issues an access token and a refresh token with the same key.
func (c *Codec) SignPair(uc UserClaims, privateKeyPEM []byte) (TokenPair, error) {
	access, err := c.Sign(uc, privateKeyPEM, ClassAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := c.Sign(uc, privateKeyPEM, ClassRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify checks the signature against publicKeyPEM and then the time claims.
func (c *Codec) Verify(tokenStr string, publicKeyPEM []byte) (*Claims, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return key, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformedToken
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing userId", ErrMalformedToken)
	}

	return claims, nil
}

// VerifyClass verifies the token and requires it to be of the given class.
func (c *Codec) VerifyClass(tokenStr string, publicKeyPEM []byte, class Class) (*Claims, error) {
	claims, err := c.Verify(tokenStr, publicKeyPEM)
	if err != nil {
		return nil, err
	}
	if claims.Class != class {
		return nil, ErrWrongTokenClass
	}
	return claims, nil
}

// Peek decodes a token without any verification. The result identifies whose
// key to verify with and must not be used for authorization.
func (c *Codec) Peek(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing userId", ErrMalformedToken)
	}
	return claims, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}
