package goSession

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goSession/keypair"
)

const (
	testEmail    = "a@x.com"
	testPassword = "correct-password-123"
)

var (
	testKeyPoolOnce sync.Once
	testKeyPool     []keypair.KeyPair
	testKeyPoolErr  error
)

// poolProvider hands out a fixed ring of real RSA keys so that every test
// does not pay for 2048-bit generation. Consecutive calls never repeat.
type poolProvider struct {
	mu   sync.Mutex
	next int
	keys []keypair.KeyPair
}

func newPoolProvider(t testing.TB) *poolProvider {
	t.Helper()
	testKeyPoolOnce.Do(func() {
		p, err := keypair.NewRSAProvider(keypair.MinBits)
		if err != nil {
			testKeyPoolErr = err
			return
		}
		for i := 0; i < 4; i++ {
			kp, err := p.Generate()
			if err != nil {
				testKeyPoolErr = err
				return
			}
			testKeyPool = append(testKeyPool, kp)
		}
	})
	if testKeyPoolErr != nil {
		t.Fatalf("generate test keys: %v", testKeyPoolErr)
	}
	return &poolProvider{keys: testKeyPool}
}

func (p *poolProvider) Generate() (keypair.KeyPair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kp := p.keys[p.next%len(p.keys)]
	p.next++
	return kp, nil
}

type memDirectory struct {
	mu        sync.Mutex
	byID      map[string]UserRecord
	byEmail   map[string]string
	failAll   error
	updateErr error
	updates   int
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		byID:    map[string]UserRecord{},
		byEmail: map[string]string{},
	}
}

func (d *memDirectory) FindByEmail(_ context.Context, email string) (UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll != nil {
		return UserRecord{}, d.failAll
	}
	id, ok := d.byEmail[email]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return d.byID[id], nil
}

func (d *memDirectory) FindByID(_ context.Context, id string) (UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll != nil {
		return UserRecord{}, d.failAll
	}
	rec, ok := d.byID[id]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return rec, nil
}

func (d *memDirectory) Create(_ context.Context, in CreateUserInput) (UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll != nil {
		return UserRecord{}, d.failAll
	}
	if _, ok := d.byEmail[in.Email]; ok {
		return UserRecord{}, ErrDuplicateEmail
	}
	rec := UserRecord{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: in.PasswordHash,
		Roles:        append([]string(nil), in.Roles...),
		CreatedAt:    time.Now().UTC(),
	}
	d.byID[rec.ID] = rec
	d.byEmail[rec.Email] = rec.ID
	return rec, nil
}

func (d *memDirectory) UpdatePasswordHash(_ context.Context, id, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.updateErr != nil {
		return d.updateErr
	}
	rec, ok := d.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	rec.PasswordHash = hash
	d.byID[id] = rec
	d.updates++
	return nil
}

func (d *memDirectory) put(rec UserRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[rec.ID] = rec
	d.byEmail[rec.Email] = rec.ID
}

func (d *memDirectory) remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec := d.byID[id]
	delete(d.byEmail, rec.Email)
	delete(d.byID, id)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
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

type recordingSink struct {
	mu      sync.Mutex
	set     map[string]string
	maxAge  map[string]time.Duration
	cleared []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{set: map[string]string{}, maxAge: map[string]time.Duration{}}
}

func (s *recordingSink) SetCredential(name, value string, maxAge time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set[name] = value
	s.maxAge[name] = maxAge
}

func (s *recordingSink) ClearCredential(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, name)
}

// testConfig keeps production semantics with cheap Argon2 parameters.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Security.EnableRefreshThrottle = false
	cfg.Metrics.Enabled = true
	return cfg
}

type testEngine struct {
	*Engine
	mr    *miniredis.Miniredis
	rdb   *redis.Client
	users *memDirectory
	clock *fakeClock
}

type engineOption func(*Builder)

func newTestEngine(t *testing.T, cfg Config, opts ...engineOption) *testEngine {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := newMemDirectory()
	clock := newFakeClock()

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(users).
		WithKeyPairProvider(newPoolProvider(t)).
		WithClock(clock.Now)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEngine{Engine: engine, mr: mr, rdb: rdb, users: users, clock: clock}
}

func (te *testEngine) signUp(t *testing.T) *SignUpResult {
	t.Helper()
	res, err := te.SignUp(context.Background(), SignUpInput{
		Email:    testEmail,
		Password: testPassword,
		Name:     "Alice",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	return res
}

func (te *testEngine) credential(t *testing.T, userID string) *Credential {
	t.Helper()
	cred, err := te.store.FindByUserID(context.Background(), userID)
	if err != nil {
		t.Fatalf("find credential: %v", err)
	}
	return cred
}
