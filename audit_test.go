package fastauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func collectEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()

	select {
	case event := <-sink.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return AuditEvent{}
	}
}

func newAuditedEnv(t *testing.T) (*testEnv, *ChannelSink) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := engineTestConfig(t)
	cfg.Audit.Enabled = true

	provider := newMockProvider()
	clock := newFakeClock()
	sink := NewChannelSink(64)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithPrincipalProvider(provider).
		WithClock(clock.Now).
		WithAuditSink(sink).
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
	}, sink
}

func TestAuditLoginEvents(t *testing.T) {
	env, sink := newAuditedEnv(t)
	env.seedPrincipal(t, "alice", "correct-horse-battery")
	ctx := context.Background()

	if _, err := env.engine.Login(ctx, "alice", "correct-horse-battery"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	event := collectEvent(t, sink)
	if event.EventType != auditEventLoginSuccess {
		t.Fatalf("EventType = %q, want %q", event.EventType, auditEventLoginSuccess)
	}
	if event.PrincipalID != "alice" || !event.Success {
		t.Fatalf("unexpected event payload: %+v", event)
	}

	if _, err := env.engine.Login(ctx, "alice", "wrong-secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	event = collectEvent(t, sink)
	if event.EventType != auditEventLoginFailure {
		t.Fatalf("EventType = %q, want %q", event.EventType, auditEventLoginFailure)
	}
	if event.Success {
		t.Fatal("failure event must not be marked successful")
	}
}

func TestAuditCarriesClientIP(t *testing.T) {
	env, sink := newAuditedEnv(t)
	env.seedPrincipal(t, "alice", "correct-horse-battery")

	ctx := WithClientIP(context.Background(), "198.51.100.7")
	if _, err := env.engine.Login(ctx, "alice", "correct-horse-battery"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	event := collectEvent(t, sink)
	if event.IP != "198.51.100.7" {
		t.Fatalf("event.IP = %q, want 198.51.100.7", event.IP)
	}
}

func TestAuditRefreshReuseEvent(t *testing.T) {
	env, sink := newAuditedEnv(t)
	env.seedPrincipal(t, "bob", "another-long-secret")
	ctx := context.Background()

	pair, err := env.engine.Login(ctx, "bob", "another-long-secret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	collectEvent(t, sink) // login_success

	if _, err := env.engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	collectEvent(t, sink) // refresh_success

	if _, err := env.engine.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
	event := collectEvent(t, sink)
	if event.EventType != auditEventRefreshReuse {
		t.Fatalf("EventType = %q, want %q", event.EventType, auditEventRefreshReuse)
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp:   time.Unix(1_700_000_000, 0).UTC(),
		EventType:   auditEventRevoke,
		PrincipalID: "alice",
		Success:     true,
	})

	line := strings.TrimSpace(buf.String())
	var decoded AuditEvent
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("sink output is not valid JSON: %v", err)
	}
	if decoded.EventType != auditEventRevoke || decoded.PrincipalID != "alice" {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
}

func TestAuditDisabledEmitsNothing(t *testing.T) {
	sink := NewChannelSink(8)

	d := newAuditDispatcher(AuditConfig{Enabled: false}, sink)
	defer d.Close()

	d.Emit(context.Background(), AuditEvent{EventType: auditEventRevoke})

	select {
	case <-sink.Events():
		t.Fatal("expected no event with audit disabled")
	case <-time.After(50 * time.Millisecond):
	}
}
