package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// RetryableFunc - операция, которую можно повторить
type RetryableFunc func(ctx context.Context) error

// permanentError - ошибка, повтор которой не имеет смысла
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent помечает ошибку как неповторяемую (например, несовпадение схемы)
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retryer выполняет операции с повторами
type Retryer struct {
	config Config
	dlq    *DLQ
}

// NewRetryer создает Retryer
func NewRetryer(config Config) (*Retryer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}

	r := &Retryer{config: config}
	if config.Enabled && config.DLQ.Enabled {
		dlq, err := NewDLQ(config.DLQ)
		if err != nil {
			return nil, fmt.Errorf("failed to create DLQ: %w", err)
		}
		r.dlq = dlq
	}
	return r, nil
}

// Do выполняет операцию с повторами
func (r *Retryer) Do(ctx context.Context, fn RetryableFunc) error {
	return r.run(ctx, fn, nil)
}

// DoWithData выполняет операцию и сохраняет data в DLQ, если все попытки исчерпаны
func (r *Retryer) DoWithData(ctx context.Context, fn RetryableFunc, data any) error {
	return r.run(ctx, fn, data)
}

func (r *Retryer) run(ctx context.Context, fn RetryableFunc, data any) error {
	if !r.config.Enabled {
		return fn(ctx)
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if !r.isRetryable(err) {
			return err
		}

		if r.config.MaxAttempts > 0 && attempt >= r.config.MaxAttempts {
			r.deadLetter(attempt, err, "max_attempts_exceeded", data)
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", r.config.MaxAttempts, err)
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			r.deadLetter(attempt, err, "context_cancelled", data)
			return fmt.Errorf("retry cancelled after %d attempts: %w", attempt, errors.Join(ctx.Err(), err))
		}
	}
}

func (r *Retryer) deadLetter(attempts int, err error, failure string, data any) {
	if r.dlq == nil || data == nil {
		return
	}
	r.dlq.Add(DLQEntry{
		Timestamp:   time.Now(),
		Attempts:    attempts,
		LastError:   err.Error(),
		FailureType: failure,
		Data:        data,
	})
}

// delay вычисляет задержку перед следующей попыткой
func (r *Retryer) delay(attempt int) time.Duration {
	var d time.Duration

	switch r.config.Backoff {
	case BackoffLinear:
		d = r.config.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		d = time.Duration(float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1)))
	default:
		d = r.config.InitialDelay
	}

	if d > r.config.MaxDelay {
		d = r.config.MaxDelay
	}

	if r.config.Jitter > 0 {
		d += time.Duration(float64(d) * r.config.Jitter * (rand.Float64()*2 - 1))
		if d < 0 {
			d = r.config.InitialDelay
		}
	}

	return d
}

func (r *Retryer) isRetryable(err error) bool {
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if len(r.config.RetryOn) == 0 {
		return true
	}
	msg := err.Error()
	for _, pattern := range r.config.RetryOn {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// DLQ возвращает очередь недоставленных данных (nil, если выключена)
func (r *Retryer) DLQ() *DLQ {
	return r.dlq
}

// Close сохраняет DLQ
func (r *Retryer) Close() error {
	if r.dlq != nil {
		return r.dlq.Save()
	}
	return nil
}
