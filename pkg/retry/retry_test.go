package retry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestRetryer_SuccessAfterRetries(t *testing.T) {
	retryer, err := NewRetryer(EnableRetry(5, 5*time.Millisecond))
	if err != nil {
		t.Fatalf("NewRetryer() error: %v", err)
	}

	attempts := 0
	err = retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Errorf("Do() error = %v, want nil", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryer_MaxAttemptsExceeded(t *testing.T) {
	retryer, _ := NewRetryer(EnableRetry(3, time.Millisecond))

	cause := errors.New("persistent error")
	attempts := 0
	err := retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return cause
	})
	if !errors.Is(err, cause) {
		t.Errorf("Do() error = %v, want wrapping cause", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryer_Permanent(t *testing.T) {
	retryer, _ := NewRetryer(EnableRetry(5, time.Millisecond))

	sentinel := errors.New("schema mismatch")
	attempts := 0
	err := retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return Permanent(sentinel)
	})
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 for permanent error", attempts)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("Do() error = %v, want sentinel preserved", err)
	}
}

func TestRetryer_RetryOn(t *testing.T) {
	cfg := EnableRetry(5, time.Millisecond)
	cfg.RetryOn = []string{"timeout"}
	retryer, _ := NewRetryer(cfg)

	attempts := 0
	_ = retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("access denied")
	})
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 for non-matching error", attempts)
	}
}

func TestRetryer_ContextCancellation(t *testing.T) {
	retryer, _ := NewRetryer(EnableRetry(0, 50*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := retryer.Do(ctx, func(ctx context.Context) error {
		return errors.New("unreachable")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error = %v, want DeadlineExceeded", err)
	}
}

func TestRetryer_Disabled(t *testing.T) {
	retryer, _ := NewRetryer(DefaultConfig())

	attempts := 0
	_ = retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("fail")
	})
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 when disabled", attempts)
	}
}

func TestRetryer_Backoff(t *testing.T) {
	cfg := EnableRetry(5, 10*time.Millisecond)
	cfg.MaxDelay = 35 * time.Millisecond
	cfg.Jitter = 0
	retryer, _ := NewRetryer(cfg)

	want := []time.Duration{10, 20, 35, 35}
	for i, w := range want {
		if got := retryer.delay(i + 1); got != w*time.Millisecond {
			t.Errorf("delay(%d) = %v, want %v", i+1, got, w*time.Millisecond)
		}
	}

	cfg.Backoff = BackoffLinear
	linear, _ := NewRetryer(cfg)
	if got := linear.delay(3); got != 30*time.Millisecond {
		t.Errorf("linear delay(3) = %v, want 30ms", got)
	}
}

func TestRetryer_OnRetryCallback(t *testing.T) {
	cfg := EnableRetry(3, time.Millisecond)
	var calls []int
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		calls = append(calls, attempt)
	}
	retryer, _ := NewRetryer(cfg)

	_ = retryer.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("fail")
	})
	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Errorf("OnRetry calls = %v, want [1 2]", calls)
	}
}

func TestRetryer_DLQ(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dlq.json")
	cfg := EnableRetry(2, time.Millisecond)
	cfg.DLQ.Enabled = true
	cfg.DLQ.FilePath = path
	retryer, err := NewRetryer(cfg)
	if err != nil {
		t.Fatalf("NewRetryer() error: %v", err)
	}

	_ = retryer.DoWithData(context.Background(), func(ctx context.Context) error {
		return errors.New("broker down")
	}, map[string]string{"operation": "login"})

	if retryer.DLQ().Size() != 1 {
		t.Fatalf("DLQ size = %d, want 1", retryer.DLQ().Size())
	}
	entry := retryer.DLQ().Entries()[0]
	if entry.Attempts != 2 || entry.FailureType != "max_attempts_exceeded" {
		t.Errorf("DLQ entry = %+v", entry)
	}

	if err := retryer.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	reloaded, err := NewDLQ(cfg.DLQ)
	if err != nil {
		t.Fatalf("NewDLQ() error: %v", err)
	}
	if reloaded.Size() != 1 {
		t.Errorf("reloaded DLQ size = %d, want 1", reloaded.Size())
	}
}

func TestDLQ_MaxSizeAndCleanup(t *testing.T) {
	d, err := NewDLQ(DLQConfig{FilePath: filepath.Join(t.TempDir(), "dlq.json"), MaxSize: 2, Retention: time.Hour})
	if err != nil {
		t.Fatalf("NewDLQ() error: %v", err)
	}

	d.Add(DLQEntry{Timestamp: time.Now().Add(-2 * time.Hour), LastError: "old"})
	d.Add(DLQEntry{Timestamp: time.Now().Add(-2 * time.Hour), LastError: "old"})
	d.Add(DLQEntry{Timestamp: time.Now(), LastError: "new"})

	if d.Size() != 2 {
		t.Fatalf("Size() = %d, want 2 after MaxSize eviction", d.Size())
	}
	if removed := d.CleanupOld(); removed != 1 {
		t.Errorf("CleanupOld() = %d, want 1", removed)
	}
	if d.Entries()[0].LastError != "new" {
		t.Errorf("remaining entry = %+v, want new", d.Entries()[0])
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := EnableRetry(3, time.Second)
	cfg.Backoff = "random"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for unknown backoff")
	}

	cfg = EnableRetry(3, time.Second)
	cfg.Jitter = 2
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for jitter > 1")
	}
}
