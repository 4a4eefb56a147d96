package keypair

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
)

const (
	// MinBits is the smallest RSA modulus accepted for signing keys.
	MinBits = 2048

	pemTypePrivate = "PRIVATE KEY"
	pemTypePublic  = "PUBLIC KEY"
)

var (
	// ErrWeakKeySize is returned when a provider is configured below MinBits.
	ErrWeakKeySize = errors.New("rsa key size below 2048 bits")
	// ErrInvalidPEM is returned when a key half cannot be decoded.
	ErrInvalidPEM = errors.New("invalid key pem")
	// ErrKeyMismatch is returned when the public half does not belong to the private half.
	ErrKeyMismatch = errors.New("public key does not match private key")
)

// KeyPair holds one PEM-encoded signing key pair.
type KeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// Provider produces fresh signing key pairs.
type Provider interface {
	Generate() (KeyPair, error)
}

// RSAProvider generates RSA key pairs from a cryptographically secure source.
type RSAProvider struct {
	bits   int
	random io.Reader
}

// NewRSAProvider returns a provider for keys of the given modulus size.
// A zero size selects MinBits.
func NewRSAProvider(bits int) (*RSAProvider, error) {
	if bits == 0 {
		bits = MinBits
	}
	if bits < MinBits {
		return nil, ErrWeakKeySize
	}
	return &RSAProvider{bits: bits, random: rand.Reader}, nil
}

// Bits reports the configured modulus size.
func (p *RSAProvider) Bits() int {
	return p.bits
}

// Generate creates a new key pair. It has no side effects other than
// consuming randomness and is safe for concurrent use.
func (p *RSAProvider) Generate() (KeyPair, error) {
	priv, err := rsa.GenerateKey(p.random, p.bits)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate rsa key: %w", err)
	}
	return Encode(priv)
}

// Encode serializes an RSA private key and its public half to PEM.
func Encode(priv *rsa.PrivateKey) (KeyPair, error) {
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal public key: %w", err)
	}

	return KeyPair{
		PublicKey:  pem.EncodeToMemory(&pem.Block{Type: pemTypePublic, Bytes: pubDER}),
		PrivateKey: pem.EncodeToMemory(&pem.Block{Type: pemTypePrivate, Bytes: privDER}),
	}, nil
}

// ParsePublicKey decodes a PKIX public key PEM block.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypePublic {
		return nil, ErrInvalidPEM
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPEM, err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an rsa public key", ErrInvalidPEM)
	}
	return pub, nil
}

// ParsePrivateKey decodes a PKCS#8 private key PEM block.
func ParsePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypePrivate {
		return nil, ErrInvalidPEM
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPEM, err)
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an rsa private key", ErrInvalidPEM)
	}
	return priv, nil
}

// Validate checks that both halves parse and belong together.
func Validate(kp KeyPair) error {
	priv, err := ParsePrivateKey(kp.PrivateKey)
	if err != nil {
		return err
	}
	pub, err := ParsePublicKey(kp.PublicKey)
	if err != nil {
		return err
	}
	if !priv.PublicKey.Equal(pub) {
		return ErrKeyMismatch
	}
	return nil
}

// Equal reports whether two key pairs carry the same PEM bytes.
func Equal(a, b KeyPair) bool {
	return bytes.Equal(a.PublicKey, b.PublicKey) && bytes.Equal(a.PrivateKey, b.PrivateKey)
}
