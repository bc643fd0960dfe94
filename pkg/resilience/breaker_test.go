package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errBroker = errors.New("broker unavailable")

func fail(context.Context) error    { return errBroker }
func succeed(context.Context) error { return nil }

// newTestBreaker returns a breaker with a controllable clock
func newTestBreaker(t *testing.T, cfg Config) (*Breaker, *time.Time) {
	t.Helper()
	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	cfg := DefaultConfig("audit-broker")
	cfg.MaxFailures = 3
	b, _ := newTestBreaker(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Execute(ctx, fail); !errors.Is(err, errBroker) {
			t.Fatalf("call %d error = %v, want errBroker", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("State() = %s, want open", b.State())
	}

	called := false
	err := b.Execute(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrOpen) || called {
		t.Errorf("open breaker: error = %v called = %v, want ErrOpen without call", err, called)
	}
	if b.Counts().Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", b.Counts().Rejected)
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	cfg := DefaultConfig("audit-broker")
	cfg.MaxFailures = 2
	b, _ := newTestBreaker(t, cfg)
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, succeed)
	_ = b.Execute(ctx, fail)

	if b.State() != StateClosed {
		t.Errorf("State() = %s, want closed (failures were not consecutive)", b.State())
	}
	if c := b.Counts(); c.Requests != 3 || c.Failures != 2 || c.ConsecutiveFailures != 1 {
		t.Errorf("Counts() = %+v", c)
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	cfg := DefaultConfig("audit-broker")
	cfg.MaxFailures = 1
	cfg.OpenTimeout = time.Minute
	cfg.SuccessThreshold = 2
	b, now := newTestBreaker(t, cfg)
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	if b.State() != StateOpen {
		t.Fatalf("State() = %s, want open", b.State())
	}

	*now = now.Add(2 * time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatalf("State() after timeout = %s, want half-open", b.State())
	}

	if err := b.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe error: %v", err)
	}
	if b.State() != StateHalfOpen {
		t.Errorf("State() after one probe = %s, want half-open", b.State())
	}
	_ = b.Execute(ctx, succeed)
	if b.State() != StateClosed {
		t.Errorf("State() after threshold = %s, want closed", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cfg := DefaultConfig("audit-broker")
	cfg.MaxFailures = 1
	b, now := newTestBreaker(t, cfg)
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	*now = now.Add(2 * cfg.OpenTimeout)
	_ = b.Execute(ctx, fail)

	if b.State() != StateOpen {
		t.Errorf("State() = %s, want open after failed probe", b.State())
	}
}

func TestBreakerDisabled(t *testing.T) {
	b, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := b.Execute(context.Background(), fail); !errors.Is(err, errBroker) {
			t.Fatalf("disabled breaker error = %v", err)
		}
	}
	if b.State() != StateClosed {
		t.Errorf("disabled breaker State() = %s", b.State())
	}
}

func TestBreakerStateChangeCallback(t *testing.T) {
	var mu sync.Mutex
	var changes []State
	done := make(chan struct{}, 2)

	cfg := DefaultConfig("audit-broker")
	cfg.MaxFailures = 1
	cfg.OnStateChange = func(name string, from, to State) {
		mu.Lock()
		changes = append(changes, to)
		mu.Unlock()
		done <- struct{}{}
	}
	b, _ := newTestBreaker(t, cfg)

	_ = b.Execute(context.Background(), fail)
	b.Reset()

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("OnStateChange not called")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 2 {
		t.Errorf("state changes = %v, want open then closed", changes)
	}
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	cfg := DefaultConfig("audit-broker")
	cfg.MaxFailures = 1
	b, _ := newTestBreaker(t, cfg)

	func() {
		defer func() { _ = recover() }()
		_ = b.Execute(context.Background(), func(context.Context) error { panic("boom") })
	}()
	if b.State() != StateOpen {
		t.Errorf("State() after panic = %s, want open", b.State())
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{}, false},
		{DefaultConfig("x"), false},
		{Config{Enabled: true, OpenTimeout: time.Second}, true},
		{Config{Enabled: true, MaxFailures: 1}, true},
	}
	for i, tt := range tests {
		err := tt.cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("case %d: Validate() error = %v, wantErr %v", i, err, tt.wantErr)
		}
	}

	c := Config{Enabled: true, MaxFailures: 1, OpenTimeout: time.Second}
	_ = c.Validate()
	if c.SuccessThreshold != 1 || c.Name == "" {
		t.Errorf("defaults not applied: %+v", c)
	}
}
