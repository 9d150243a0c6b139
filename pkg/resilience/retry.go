package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"autoclip/pkg/errors"
)

// Policy bounds the retry loop for a single action execution. Delays grow by
// Multiplier up to MaxDelay; MaxRetries counts retries after the first
// attempt, so a policy of 3 allows at most 4 invocations.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 1 * time.Second
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2.0
	}
	return p
}

func (p Policy) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialDelay
	exp.MaxInterval = p.MaxDelay
	exp.Multiplier = p.Multiplier
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0

	var b backoff.BackOff = exp
	b = backoff.WithContext(b, ctx)
	return backoff.WithMaxRetries(b, uint64(p.MaxRetries))
}

// Retry invokes fn until it succeeds, the policy is exhausted, or fn returns
// an error classified as non-retryable. Non-retryable failures propagate
// immediately without consuming the retry budget. The last error is returned
// after exhaustion.
func Retry(ctx context.Context, policy Policy, fn func() error) error {
	return RetryWithCallback(ctx, policy, fn, nil)
}

// RetryWithCallback is Retry with an observer invoked before each sleep,
// carrying the attempt number (1-based) and the classified error.
func RetryWithCallback(ctx context.Context, policy Policy, fn func() error, onRetry func(attempt int, err error)) error {
	policy = policy.normalized()

	attempt := 0
	operation := func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}

		classified := errors.Classify(err)
		if !classified.IsRetryable() {
			return backoff.Permanent(err)
		}

		if onRetry != nil && attempt <= policy.MaxRetries {
			onRetry(attempt, err)
		}
		return err
	}

	err := backoff.Retry(operation, policy.newBackOff(ctx))
	if permanent, ok := err.(*backoff.PermanentError); ok {
		return permanent.Unwrap()
	}
	return err
}
