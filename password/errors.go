package password

import "errors"

const (
	minPassBytes = 10
	// DefaultMaxPasswordBytes caps the input hashed per call.
	DefaultMaxPasswordBytes = 1024
)

var (
	// ErrPasswordTooShort is returned for passwords under 10 bytes.
	ErrPasswordTooShort = errors.New("password must be at least 10 bytes")
	// ErrPasswordTooLong is returned for passwords over the configured maximum.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
	// ErrMalformedHash is returned when a stored hash is not in a recognized format.
	ErrMalformedHash = errors.New("invalid PHC format")
	// ErrUnsupportedHash is returned when no hasher recognizes the stored hash.
	ErrUnsupportedHash = errors.New("unsupported password hash")
)

func checkLength(password string, max int) error {
	if len(password) < minPassBytes {
		return ErrPasswordTooShort
	}
	if len(password) > max {
		return ErrPasswordTooLong
	}
	return nil
}
