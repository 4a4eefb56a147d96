package credential

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/MrEthical07/goSession/keypair"
)

// Digest is the SHA-256 of a refresh token.
type Digest [32]byte

// String returns the lowercase hex form used as the stored representation.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// HashRefreshToken returns the digest a refresh token is stored and compared as.
func HashRefreshToken(token string) Digest {
	return sha256.Sum256([]byte(token))
}

// ParseDigest decodes the hex form produced by Digest.String.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(d) {
		return d, ErrCorrupt
	}
	copy(d[:], raw)
	return d, nil
}

// Credential is the server-side state of one user's session line.
type Credential struct {
	UserID     string
	PublicKey  []byte
	PrivateKey []byte

	RefreshHash Digest
	Used        map[Digest]struct{}

	// Version is 1 after Create and increments on every successful rotation.
	Version   uint64
	CreatedAt time.Time
	RotatedAt time.Time
}

// KeyPair returns the signing key pair.
func (c *Credential) KeyPair() keypair.KeyPair {
	return keypair.KeyPair{PublicKey: c.PublicKey, PrivateKey: c.PrivateKey}
}

// IsCurrent reports whether token is the refresh token valid right now.
func (c *Credential) IsCurrent(token string) bool {
	h := HashRefreshToken(token)
	return subtle.ConstantTimeCompare(h[:], c.RefreshHash[:]) == 1
}

// WasUsed reports whether token was already rotated away.
func (c *Credential) WasUsed(token string) bool {
	_, ok := c.Used[HashRefreshToken(token)]
	return ok
}

// UsedCount returns the number of consumed refresh tokens.
func (c *Credential) UsedCount() int {
	return len(c.Used)
}
