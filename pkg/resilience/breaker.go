package resilience

import (
	"time"

	"github.com/sony/gobreaker"

	"autoclip/pkg/errors"
	"autoclip/pkg/metrics"
)

// BreakerConfig maps onto the engine's breaker semantics: the breaker opens
// after FailureThreshold consecutive failures, probes again once ResetTimeout
// has elapsed, and closes after HalfOpenRequests consecutive successes while
// half-open.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	ResetTimeout     time.Duration
	HalfOpenRequests uint32
	OnStateChange    func(name string, from, to gobreaker.State)
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
		HalfOpenRequests: 2,
	}
}

type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 2
	}

	threshold := cfg.FailureThreshold
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetCircuitBreakerState(name, to)
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	}

	cb := gobreaker.NewCircuitBreaker(settings)
	metrics.SetCircuitBreakerState(cfg.Name, cb.State())

	return &Breaker{cb: cb}
}

// Execute runs fn under the breaker. While the breaker is open the call fails
// fast with a CIRCUIT_OPEN error and fn is never invoked; that error is
// always non-retryable.
func (b *Breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)

	metrics.CircuitBreakerRequests.WithLabelValues(b.cb.Name(), b.cb.State().String()).Inc()

	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, errors.ErrCircuitOpen.
			WithMessagef("circuit breaker open for %s", b.cb.Name()).
			WithCause(err).
			AsFatal()
	}
	return result, err
}

func (b *Breaker) Name() string             { return b.cb.Name() }
func (b *Breaker) State() gobreaker.State   { return b.cb.State() }
func (b *Breaker) Counts() gobreaker.Counts { return b.cb.Counts() }

func (b *Breaker) IsOpen() bool   { return b.cb.State() == gobreaker.StateOpen }
func (b *Breaker) IsClosed() bool { return b.cb.State() == gobreaker.StateClosed }
