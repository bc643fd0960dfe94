// Package resilience защищает внешние вызовы от каскадных сбоев.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrOpen - цепь разомкнута, вызов не выполнялся
var ErrOpen = errors.New("circuit breaker is open")

// State - состояние breaker
type State int

const (
	// StateClosed - вызовы проходят
	StateClosed State = iota

	// StateHalfOpen - пропускаются пробные вызовы
	StateHalfOpen

	// StateOpen - вызовы отклоняются до истечения OpenTimeout
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Counts - счетчики текущего поколения
type Counts struct {
	Requests             uint32
	Successes            uint32
	Failures             uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
	Rejected             uint32
}

// Breaker - circuit breaker. Результаты вызовов, начатых в предыдущем
// поколении (до смены состояния), не учитываются.
type Breaker struct {
	config Config

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	expiry     time.Time
	now        func() time.Time
}

// New создает breaker в состоянии Closed
func New(config Config) (*Breaker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid circuit breaker config: %w", err)
	}
	return &Breaker{config: config, now: time.Now}, nil
}

// Execute выполняет fn, если цепь не разомкнута.
// При разомкнутой цепи возвращает ErrOpen, не вызывая fn.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if !b.config.Enabled {
		return fn(ctx)
	}

	generation, err := b.before()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			b.after(generation, false)
			panic(r)
		}
	}()

	err = fn(ctx)
	b.after(generation, err == nil)
	return err
}

// State - текущее состояние (Open с истекшим таймаутом считается HalfOpen)
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().After(b.expiry) {
		return StateHalfOpen
	}
	return b.state
}

// Counts - счетчики текущего поколения
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Name - имя breaker
func (b *Breaker) Name() string {
	return b.config.Name
}

// Reset замыкает цепь
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setState(StateClosed)
}

func (b *Breaker) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fmt.Sprintf("Breaker(%s state=%s failures=%d/%d)",
		b.config.Name, b.state, b.counts.ConsecutiveFailures, b.config.MaxFailures)
}

func (b *Breaker) before() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if !b.now().After(b.expiry) {
			b.counts.Rejected++
			return b.generation, ErrOpen
		}
		b.setState(StateHalfOpen)
	}
	b.counts.Requests++
	return b.generation, nil
}

func (b *Breaker) after(generation uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if generation != b.generation {
		return
	}

	if success {
		b.counts.Successes++
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
		if b.state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.config.SuccessThreshold {
			b.setState(StateClosed)
		}
		return
	}

	b.counts.Failures++
	b.counts.ConsecutiveFailures++
	b.counts.ConsecutiveSuccesses = 0
	switch b.state {
	case StateClosed:
		if b.counts.ConsecutiveFailures >= b.config.MaxFailures {
			b.setState(StateOpen)
		}
	case StateHalfOpen:
		b.setState(StateOpen)
	}
}

// setState меняет состояние; вызывается под b.mu
func (b *Breaker) setState(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.generation++
	b.counts = Counts{}
	if to == StateOpen {
		b.expiry = b.now().Add(b.config.OpenTimeout)
	}
	if b.config.OnStateChange != nil {
		go b.config.OnStateChange(b.config.Name, from, to)
	}
}
