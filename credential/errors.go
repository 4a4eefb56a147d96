package credential

import "errors"

var (
	// ErrNotFound indicates no credential exists for the user.
	ErrNotFound = errors.New("credential not found")
	// ErrRotationConflict indicates the presented refresh token is no longer the current one.
	ErrRotationConflict = errors.New("credential rotation conflict")
	// ErrRefreshReused indicates the presented refresh token was already rotated away.
	// It is always joined with ErrRotationConflict.
	ErrRefreshReused = errors.New("refresh token reused")
	// ErrInvalidRotation indicates the replacement token would break the single-use invariant.
	ErrInvalidRotation = errors.New("invalid rotation target")
	// ErrRedisUnavailable wraps Redis transport and script failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrPostgresUnavailable wraps Postgres transport failures.
	ErrPostgresUnavailable = errors.New("postgres unavailable")
	// ErrCorrupt indicates a stored record that cannot be decoded.
	ErrCorrupt = errors.New("credential record corrupt")
)
