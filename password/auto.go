package password

import "strings"

// Hasher is the contract shared by every algorithm in this package.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password string, encodedHash string) (bool, error)
}

// Auto hashes new passwords with Argon2id and verifies either format by
// looking at the stored hash prefix.
type Auto struct {
	argon  *Argon2
	bcrypt *Bcrypt
}

// NewAuto combines the two hashers. bcrypt may be nil to accept Argon2id only.
func NewAuto(argon *Argon2, bc *Bcrypt) *Auto {
	return &Auto{argon: argon, bcrypt: bc}
}

// Hash always produces Argon2id.
func (a *Auto) Hash(password string) (string, error) {
	return a.argon.Hash(password)
}

// Verify dispatches on the hash prefix.
func (a *Auto) Verify(password string, encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return a.argon.Verify(password, encodedHash)
	case isBcrypt(encodedHash) && a.bcrypt != nil:
		return a.bcrypt.Verify(password, encodedHash)
	default:
		return false, ErrUnsupportedHash
	}
}

// NeedsUpgrade is true for every non-Argon2id hash and for Argon2id hashes
// with weaker parameters.
func (a *Auto) NeedsUpgrade(encodedHash string) (bool, error) {
	if strings.HasPrefix(encodedHash, argon2Prefix) {
		return a.argon.NeedsUpgrade(encodedHash)
	}
	if isBcrypt(encodedHash) {
		return true, nil
	}
	return false, ErrUnsupportedHash
}
