package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/goSession/keypair"
)

var (
	keyOnce sync.Once
	keyA    keypair.KeyPair
	keyB    keypair.KeyPair
)

func testKeys(t testing.TB) (keypair.KeyPair, keypair.KeyPair) {
	t.Helper()
	keyOnce.Do(func() {
		p, err := keypair.NewRSAProvider(keypair.MinBits)
		if err != nil {
			t.Fatalf("new provider: %v", err)
		}
		if keyA, err = p.Generate(); err != nil {
			t.Fatalf("generate a: %v", err)
		}
		if keyB, err = p.Generate(); err != nil {
			t.Fatalf("generate b: %v", err)
		}
	})
	return keyA, keyB
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCodec(t *testing.T, cfg Config) *Codec {
	t.Helper()
	c, err := NewCodec(cfg)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return c
}

func TestSignVerifyRoundTrip(t *testing.T) {
	a, _ := testKeys(t)
	c := newTestCodec(t, Config{Issuer: "gosession"})
	in := UserClaims{UserID: "u-1", Email: "a@x.com"}

	for _, class := range []Class{ClassAccess, ClassRefresh} {
		token, err := c.Sign(in, a.PrivateKey, class)
		if err != nil {
			t.Fatalf("sign %s: %v", class, err)
		}
		claims, err := c.Verify(token, a.PublicKey)
		if err != nil {
			t.Fatalf("verify %s: %v", class, err)
		}
		if claims.UserClaims != in {
			t.Fatalf("%s: expected %+v, got %+v", class, in, claims.UserClaims)
		}
		if claims.Class != class {
			t.Fatalf("expected class %s, got %s", class, claims.Class)
		}
		if claims.Subject != in.UserID || claims.Issuer != "gosession" {
			t.Fatalf("unexpected registered claims %+v", claims.RegisteredClaims)
		}
	}
}

func TestClassLifetimes(t *testing.T) {
	a, _ := testKeys(t)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, Config{Now: clock.Now})

	pair, err := c.SignPair(UserClaims{UserID: "u-1"}, a.PrivateKey)
	if err != nil {
		t.Fatalf("sign pair: %v", err)
	}

	access, _ := c.Peek(pair.AccessToken)
	refresh, _ := c.Peek(pair.RefreshToken)
	if got := access.ExpiresAt.Sub(access.IssuedAt.Time); got != 30*time.Minute {
		t.Fatalf("expected 30m access lifetime, got %v", got)
	}
	if got := refresh.ExpiresAt.Sub(refresh.IssuedAt.Time); got != 7*24*time.Hour {
		t.Fatalf("expected 7d refresh lifetime, got %v", got)
	}
}

func TestSameSecondTokensDiffer(t *testing.T) {
	a, _ := testKeys(t)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, Config{Now: clock.Now})
	uc := UserClaims{UserID: "u-1", Email: "a@x.com"}

	first, err := c.Sign(uc, a.PrivateKey, ClassRefresh)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	second, err := c.Sign(uc, a.PrivateKey, ClassRefresh)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct tokens within the same second")
	}
}

func TestVerifyRejectsOtherKey(t *testing.T) {
	a, b := testKeys(t)
	c := newTestCodec(t, Config{})

	token, err := c.Sign(UserClaims{UserID: "u-1"}, a.PrivateKey, ClassAccess)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := c.Verify(token, b.PublicKey); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestExpiryBoundary(t *testing.T) {
	a, _ := testKeys(t)
	const ttl = 60 * time.Second
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, Config{AccessTTL: ttl, RefreshTTL: time.Hour, Now: clock.Now})

	token, err := c.Sign(UserClaims{UserID: "u-1"}, a.PrivateKey, ClassAccess)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	clock.Advance(ttl - time.Second)
	if _, err := c.Verify(token, a.PublicKey); err != nil {
		t.Fatalf("expected token valid at T-1s: %v", err)
	}

	clock.Advance(2 * time.Second)
	_, err = c.Verify(token, a.PublicKey)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at T+1s, got %v", err)
	}
	if errors.Is(err, ErrInvalidSignature) {
		t.Fatal("expired token must not report invalid signature")
	}
}

func TestExpiredForgeryReportsInvalidSignature(t *testing.T) {
	a, b := testKeys(t)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := newTestCodec(t, Config{Now: clock.Now})

	token, _ := c.Sign(UserClaims{UserID: "u-1"}, b.PrivateKey, ClassAccess)
	clock.Advance(time.Hour)

	if _, err := c.Verify(token, a.PublicKey); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsAlgorithmConfusion(t *testing.T) {
	a, _ := testKeys(t)
	c := newTestCodec(t, Config{})

	claims := Claims{
		UserClaims: UserClaims{UserID: "u-1"},
		Class:      ClassAccess,
		RegisteredClaims: gjwt.RegisteredClaims{
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	forged, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(a.PublicKey)
	if err != nil {
		t.Fatalf("sign hs256: %v", err)
	}
	if _, err := c.Verify(forged, a.PublicKey); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	unsigned, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := c.Verify(unsigned, a.PublicKey); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for alg=none, got %v", err)
	}
}

func TestVerifyRejectsForeignRSAKeyOfOtherSize(t *testing.T) {
	a, _ := testKeys(t)
	c := newTestCodec(t, Config{})

	other, err := rsa.GenerateKey(rand.Reader, 3072)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims := Claims{
		UserClaims:       UserClaims{UserID: "u-1"},
		Class:            ClassAccess,
		RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))},
	}
	token, _ := gjwt.NewWithClaims(gjwt.SigningMethodRS256, claims).SignedString(other)

	if _, err := c.Verify(token, a.PublicKey); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	a, _ := testKeys(t)
	c := newTestCodec(t, Config{})

	for _, in := range []string{"", "not.a.jwt", "abc"} {
		if _, err := c.Verify(in, a.PublicKey); !errors.Is(err, ErrMalformedToken) {
			t.Fatalf("%q: expected ErrMalformedToken, got %v", in, err)
		}
	}
}

func TestVerifyClass(t *testing.T) {
	a, _ := testKeys(t)
	c := newTestCodec(t, Config{})

	refresh, _ := c.Sign(UserClaims{UserID: "u-1"}, a.PrivateKey, ClassRefresh)
	if _, err := c.VerifyClass(refresh, a.PublicKey, ClassAccess); !errors.Is(err, ErrWrongTokenClass) {
		t.Fatalf("expected ErrWrongTokenClass, got %v", err)
	}
	if _, err := c.VerifyClass(refresh, a.PublicKey, ClassRefresh); err != nil {
		t.Fatalf("expected refresh class to verify: %v", err)
	}
}

func TestPeekDoesNotVerify(t *testing.T) {
	_, b := testKeys(t)
	c := newTestCodec(t, Config{})

	token, _ := c.Sign(UserClaims{UserID: "u-9", Email: "z@x.com"}, b.PrivateKey, ClassAccess)
	claims, err := c.Peek(token)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if claims.UserID != "u-9" {
		t.Fatalf("expected u-9, got %q", claims.UserID)
	}

	if _, err := c.Peek("garbage"); !errors.Is(err, ErrMalformedToken) {
		t.Fatalf("expected ErrMalformedToken, got %v", err)
	}
}

func TestNewCodecValidation(t *testing.T) {
	cases := []Config{
		{AccessTTL: -time.Second},
		{AccessTTL: time.Hour, RefreshTTL: time.Minute},
		{Leeway: time.Hour},
	}
	for i, cfg := range cases {
		if _, err := NewCodec(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
