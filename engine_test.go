package fastauth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/fastauth/fastauth/token"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockProvider struct {
	mu      sync.Mutex
	records map[string]PrincipalRecord
}

func newMockProvider() *mockProvider {
	return &mockProvider{records: map[string]PrincipalRecord{}}
}

func (p *mockProvider) GetPrincipal(_ context.Context, principalID string) (PrincipalRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.records[principalID]
	if !ok {
		return PrincipalRecord{}, ErrPrincipalNotFound
	}
	return rec, nil
}

func (p *mockProvider) CreatePrincipal(_ context.Context, input CreatePrincipalInput) (PrincipalRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.records[input.PrincipalID]; exists {
		return PrincipalRecord{}, ErrAccountExists
	}
	rec := PrincipalRecord{
		PrincipalID:    input.PrincipalID,
		CredentialHash: input.CredentialHash,
	}
	p.records[input.PrincipalID] = rec
	return rec, nil
}

func (p *mockProvider) UpdateCredentialHash(_ context.Context, principalID, newHash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	rec, ok := p.records[principalID]
	if !ok {
		return ErrPrincipalNotFound
	}
	rec.CredentialHash = newHash
	p.records[principalID] = rec
	return nil
}

func (p *mockProvider) setPrincipal(rec PrincipalRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[rec.PrincipalID] = rec
}

func (p *mockProvider) deletePrincipal(principalID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.records, principalID)
}

func testSigningKey(t *testing.T) token.Key {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519 keygen failed: %v", err)
	}
	return token.Key{ID: "test-key", Private: priv, Public: pub}
}

func engineTestConfig(t *testing.T) Config {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Token.AccessTTL = 15 * time.Minute
	cfg.Token.RefreshTTL = 24 * time.Hour
	cfg.Token.Keys = []token.Key{testSigningKey(t)}
	// minimum argon2 cost keeps the suite fast
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.RateLimit.MaxFailures = 5
	cfg.RateLimit.Window = 15 * time.Minute
	cfg.Store.OpTimeout = time.Second
	cfg.Store.RetryBackoff = time.Millisecond
	return cfg
}

type testEnv struct {
	engine   *Engine
	provider *mockProvider
	redis    *miniredis.Miniredis
	clock    *fakeClock
}

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := engineTestConfig(t)
	if mutate != nil {
		mutate(&cfg)
	}

	provider := newMockProvider()
	clock := newFakeClock()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithPrincipalProvider(provider).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{
		engine:   engine,
		provider: provider,
		redis:    mr,
		clock:    clock,
	}
}

// seedPrincipal hashes the secret with the engine's hasher and installs the
// record in the mock provider.
func (env *testEnv) seedPrincipal(t *testing.T, principalID, secret string) {
	t.Helper()

	hash, err := env.engine.hasher.Hash(secret)
	if err != nil {
		t.Fatalf("seed hash failed: %v", err)
	}
	env.provider.setPrincipal(PrincipalRecord{
		PrincipalID:    principalID,
		CredentialHash: hash,
	})
}

func TestBuilderValidation(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	cfg := engineTestConfig(t)

	if _, err := New().WithConfig(cfg).WithPrincipalProvider(newMockProvider()).Build(); err == nil {
		t.Fatal("expected build without redis to fail")
	}
	if _, err := New().WithConfig(cfg).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected build without provider to fail")
	}

	noKeys := cfg
	noKeys.Token.Keys = nil
	if _, err := New().WithConfig(noKeys).WithRedis(rdb).WithPrincipalProvider(newMockProvider()).Build(); err == nil {
		t.Fatal("expected build without signing keys to fail")
	}

	b := New().WithConfig(cfg).WithRedis(rdb).WithPrincipalProvider(newMockProvider())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build on same builder to fail")
	}
}
