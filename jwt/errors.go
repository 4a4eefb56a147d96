package jwt

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenExpired indicates a correctly signed token whose expiry has elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidSignature indicates a token not signed by the supplied key, or signed with a disallowed algorithm.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrMalformedToken indicates a token that cannot be decoded or lacks required claims.
	ErrMalformedToken = errors.New("token malformed")
	// ErrWrongTokenClass indicates a token of the other class was presented.
	ErrWrongTokenClass = fmt.Errorf("%w: wrong token class", ErrMalformedToken)
	// ErrInvalidKey indicates a key PEM that cannot be used for RS256.
	ErrInvalidKey = errors.New("invalid rsa key")
)
