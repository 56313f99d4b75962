package fastauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedPrincipal(t, "alice", "correct-horse-battery")

	pair, err := env.engine.Login(context.Background(), "alice", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected non-empty token pair")
	}
	if pair.AccessTokenID == pair.RefreshTokenID {
		t.Fatal("access and refresh token ids must differ")
	}

	claims, err := env.engine.Introspect(context.Background(), pair.AccessToken)
	if err != nil {
		t.Fatalf("Introspect after login failed: %v", err)
	}
	if claims.PrincipalID != "alice" {
		t.Fatalf("claims.PrincipalID = %q, want alice", claims.PrincipalID)
	}
	if claims.TokenID != pair.AccessTokenID {
		t.Fatalf("claims.TokenID = %q, want %q", claims.TokenID, pair.AccessTokenID)
	}
}

func TestLoginWrongSecret(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedPrincipal(t, "alice", "correct-horse-battery")

	_, err := env.engine.Login(context.Background(), "alice", "not-the-secret")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownPrincipal(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.engine.Login(context.Background(), "nobody", "whatever-secret")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginEmptySecret(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedPrincipal(t, "alice", "correct-horse-battery")
	ctx := context.Background()

	_, err := env.engine.Login(ctx, "alice", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	// empty-string probes share the uniform fail path: the attempt counts
	// against the budget like any other mismatch
	count, err := env.engine.loginLimiter.Failures(ctx, "alice")
	if err != nil {
		t.Fatalf("Failures failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("failure count = %d, want 1", count)
	}
}

func TestLoginDisabledPrincipal(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedPrincipal(t, "alice", "correct-horse-battery")

	rec, _ := env.provider.GetPrincipal(context.Background(), "alice")
	rec.Disabled = true
	env.provider.setPrincipal(rec)

	_, err := env.engine.Login(context.Background(), "alice", "correct-horse-battery")
	if !errors.Is(err, ErrPrincipalDisabled) {
		t.Fatalf("expected ErrPrincipalDisabled, got %v", err)
	}
}

// Five failed attempts exhaust the budget; the sixth is rejected before
// credential verification even when the secret is correct.
func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedPrincipal(t, "alice", "correct-horse-battery")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := env.engine.Login(ctx, "alice", "wrong-secret")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	_, err := env.engine.Login(ctx, "alice", "correct-horse-battery")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on sixth attempt, got %v", err)
	}
	if retry := RetryAfterOf(err); retry <= 0 {
		t.Fatalf("expected positive retry-after, got %v", retry)
	}

	snap := env.engine.MetricsSnapshot()
	if snap.Counters[MetricLoginRateLimited] == 0 {
		t.Fatal("expected rate-limited metric to be incremented")
	}
}

func TestLoginLockoutExpiresWithWindow(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) {
		cfg.RateLimit.Window = time.Minute
	})
	env.seedPrincipal(t, "alice", "correct-horse-battery")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = env.engine.Login(ctx, "alice", "wrong-secret")
	}
	if _, err := env.engine.Login(ctx, "alice", "correct-horse-battery"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	env.redis.FastForward(2 * time.Minute)

	if _, err := env.engine.Login(ctx, "alice", "correct-horse-battery"); err != nil {
		t.Fatalf("expected login to succeed after window expiry, got %v", err)
	}
}

func TestLoginSuccessResetsFailureBudget(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedPrincipal(t, "alice", "correct-horse-battery")
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _ = env.engine.Login(ctx, "alice", "wrong-secret")
	}
	if _, err := env.engine.Login(ctx, "alice", "correct-horse-battery"); err != nil {
		t.Fatalf("expected success within budget, got %v", err)
	}

	// the counter was reset: four more failures stay under the limit
	for i := 0; i < 4; i++ {
		if _, err := env.engine.Login(ctx, "alice", "wrong-secret"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d after reset: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	if _, err := env.engine.Login(ctx, "alice", "correct-horse-battery"); err != nil {
		t.Fatalf("expected success after reset, got %v", err)
	}
}

func TestLoginRateLimitScopedPerPrincipal(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedPrincipal(t, "alice", "correct-horse-battery")
	env.seedPrincipal(t, "bob", "another-long-secret")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = env.engine.Login(ctx, "alice", "wrong-secret")
	}

	if _, err := env.engine.Login(ctx, "bob", "another-long-secret"); err != nil {
		t.Fatalf("bob should not be affected by alice's lockout, got %v", err)
	}
}

func TestLoginStoreUnavailable(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedPrincipal(t, "alice", "correct-horse-battery")

	env.redis.Close()

	_, err := env.engine.Login(context.Background(), "alice", "correct-horse-battery")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
