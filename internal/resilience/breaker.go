package resilience

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/rhealabs/raengine/internal/errs"
)

// Breaker wraps gobreaker.CircuitBreaker with the engine's error taxonomy:
// an open circuit surfaces as errs.CircuitOpen instead of gobreaker's own
// sentinel, so callers branch only on errs.Kind.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// BreakerConfig configures the Closed/Open/HalfOpen thresholds (spec §4.7).
type BreakerConfig struct {
	Name                string
	ConsecutiveFailures uint32
	OpenDuration        time.Duration // how long the breaker stays Open before probing Half-Open
	OnStateChange       func(from, to string)
}

// NewBreaker returns a Breaker that opens after ConsecutiveFailures
// failures in a row, stays Open for OpenDuration, and then allows a
// single half-open probe before deciding whether to close or re-open.
func NewBreaker(cfg BreakerConfig) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenDuration,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			cfg.OnStateChange(from.String(), to.String())
		}
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Call runs fn through the breaker. If the breaker is open, fn is never
// invoked and the returned error is errs.CircuitOpen.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return errs.New(errs.CircuitOpen, err.Error())
	}
	return err
}

// State reports the breaker's current state as a string ("closed",
// "half-open", "open").
func (b *Breaker) State() string {
	return b.cb.State().String()
}
