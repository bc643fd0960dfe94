package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(rdb), mr
}

// --- Authenticate ---

func TestAuthenticate(t *testing.T) {
	g := New("s3cret", NewMemoryStore(), 0)

	tests := []struct {
		candidate string
		want      bool
	}{
		{"s3cret", true},
		{"S3cret", false},
		{"s3cret ", false},
		{"", false},
		{"s3cre", false},
	}
	for _, tt := range tests {
		if got := g.Authenticate(tt.candidate); got != tt.want {
			t.Errorf("Authenticate(%q) = %v, want %v", tt.candidate, got, tt.want)
		}
	}
}

func TestDisabledGate(t *testing.T) {
	g := New("", NewMemoryStore(), 0)

	if g.Enabled() {
		t.Fatal("Enabled() = true for empty secret")
	}
	if g.Authenticate("") || g.Authenticate("anything") {
		t.Error("Authenticate() must reject every candidate when disabled")
	}
	if _, err := g.Login(context.Background(), ""); !errors.Is(err, ErrDisabled) {
		t.Errorf("Login() error = %v, want ErrDisabled", err)
	}
	ok, err := g.IsAuthenticated(context.Background(), "")
	if err != nil || !ok {
		t.Errorf("IsAuthenticated() = %v, %v; want open dashboard", ok, err)
	}
}

// --- Sessions ---

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()
	g := New("s3cret", NewMemoryStore(), 0)

	if _, err := g.Login(ctx, "wrong"); !errors.Is(err, ErrBadCredential) {
		t.Fatalf("Login(wrong) error = %v, want ErrBadCredential", err)
	}

	id, err := g.Login(ctx, "s3cret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if ok, _ := g.IsAuthenticated(ctx, id); !ok {
		t.Error("session not authenticated after Login")
	}

	if err := g.Logout(ctx, id); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if ok, _ := g.IsAuthenticated(ctx, id); ok {
		t.Error("session still authenticated after Logout")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	g := New("s3cret", NewMemoryStore(), 0)

	a, _ := g.Login(ctx, "s3cret")
	b, _ := g.Login(ctx, "s3cret")
	if a == b {
		t.Fatal("two logins returned the same session id")
	}

	_ = g.Logout(ctx, a)
	if ok, _ := g.IsAuthenticated(ctx, b); !ok {
		t.Error("logging out one session affected another")
	}
	if ok, _ := g.IsAuthenticated(ctx, "never-issued"); ok {
		t.Error("unknown session authenticated")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_ = store.Create(ctx, "short", time.Minute)
	_ = store.Create(ctx, "forever", 0)

	now = now.Add(2 * time.Minute)

	if ok, _ := store.Exists(ctx, "short"); ok {
		t.Error("expired session still exists")
	}
	if ok, _ := store.Exists(ctx, "forever"); !ok {
		t.Error("session without ttl expired")
	}
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)
	g := New("s3cret", store, time.Hour)

	id, err := g.Login(ctx, "s3cret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !mr.Exists(sessionPrefix + id) {
		t.Fatal("session key not written to redis")
	}
	if ttl := mr.TTL(sessionPrefix + id); ttl != time.Hour {
		t.Errorf("session TTL = %v, want 1h", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if ok, _ := g.IsAuthenticated(ctx, id); ok {
		t.Error("session authenticated after TTL elapsed")
	}

	if err := g.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr := newRedisStore(t)
	g := New("s3cret", store, 0)
	mr.Close()

	if _, err := g.Login(context.Background(), "s3cret"); err == nil {
		t.Error("Login() expected error when redis is down")
	}
}
