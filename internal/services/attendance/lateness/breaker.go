package lateness

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the circuit breaker around a reporter.
type BreakerConfig struct {
	Name string
	// ConsecutiveFailures opens the circuit.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the circuit stays open before a probe.
	OpenTimeout time.Duration
	// OnStateChange is called on every transition. Nil logs it.
	OnStateChange func(name string, from, to gobreaker.State)
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.Name == "" {
		c.Name = "lateness"
	}
	if c.ConsecutiveFailures == 0 {
		c.ConsecutiveFailures = 3
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.OnStateChange == nil {
		c.OnStateChange = func(name string, from, to gobreaker.State) {
			log.Printf("lateness reporter %s circuit %s -> %s", name, from, to)
		}
	}
	return c
}

// Breaker fails fast when the wrapped reporter keeps failing.
type Breaker struct {
	next Reporter
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next with a circuit breaker.
func NewBreaker(next Reporter, cfg BreakerConfig) *Breaker {
	cfg = cfg.withDefaults()
	threshold := cfg.ConsecutiveFailures
	return &Breaker{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: cfg.OnStateChange,
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

// State reports the current circuit state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// IncrementLateCount implements Reporter.
func (b *Breaker) IncrementLateCount(ctx context.Context, name string) (int, error) {
	if b == nil || b.next == nil {
		return 0, fmt.Errorf("lateness reporter is not configured")
	}
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.IncrementLateCount(ctx, name)
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

// RecordFirstLate implements Reporter.
func (b *Breaker) RecordFirstLate(ctx context.Context, name string) error {
	if b == nil || b.next == nil {
		return fmt.Errorf("lateness reporter is not configured")
	}
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.RecordFirstLate(ctx, name)
	})
	return err
}
