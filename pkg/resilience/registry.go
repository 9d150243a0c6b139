package resilience

import (
	"context"
	"sync"

	"autoclip/pkg/errors"
	"autoclip/pkg/metrics"
)

// Registry holds one circuit breaker per action type, shared by every rule
// execution in the process. A failing downstream trips the breaker for all
// callers of that action type. Constructed once at startup and injected; no
// package-level state.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
	policy   Policy
	breaker  BreakerConfig
}

func NewRegistry(policy Policy, breakerCfg BreakerConfig) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		policy:   policy,
		breaker:  breakerCfg,
	}
}

func NewDefaultRegistry() *Registry {
	return NewRegistry(DefaultPolicy(), DefaultBreakerConfig(""))
}

// Breaker returns the breaker for name, creating it lazily on first use.
func (r *Registry) Breaker(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}

	cfg := r.breaker
	cfg.Name = name
	b := NewBreaker(cfg)
	r.breakers[name] = b
	return b
}

// Reset discards the breaker for name. The next call recreates it closed.
// This is the operator escape hatch; normal recovery goes through half-open.
func (r *Registry) Reset(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.breakers, name)
}

// Execute runs fn with retry inside the breaker keyed by name. Each attempt
// passes through the breaker individually, so retries count toward the
// failure threshold, while an open-circuit fast fail is non-retryable and
// consumes no retry budget.
func (r *Registry) Execute(ctx context.Context, name string, fn func() (interface{}, error)) (interface{}, error) {
	b := r.Breaker(name)

	var result interface{}
	err := RetryWithCallback(ctx, r.policy, func() error {
		res, execErr := b.Execute(fn)
		if execErr != nil {
			return execErr
		}
		result = res
		return nil
	}, func(attempt int, err error) {
		metrics.RetryAttemptsTotal.WithLabelValues(name).Inc()
	})

	if err != nil {
		return nil, errors.Classify(err)
	}
	return result, nil
}
