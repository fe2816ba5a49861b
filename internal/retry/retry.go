// Package retry wraps external calls with bounded exponential backoff and per-attempt timeouts.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/easeaico/memorify/internal/apperr"
)

// Policy bounds how an operation is retried.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Timeout     time.Duration
}

// DefaultPolicy is three attempts doubling from one second, each capped at 30 seconds.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// Retrier applies a Policy and logs every non-terminal failure.
type Retrier struct {
	policy Policy
	logger *slog.Logger
}

// New returns a Retrier. A nil logger uses slog.Default.
func New(policy Policy, logger *slog.Logger) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = policy.BaseDelay << (policy.MaxAttempts - 1)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{policy: policy, logger: logger}
}

// Policy returns the effective policy.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Run retries fn while it fails with a retryable kind.
func (r *Retrier) Run(ctx context.Context, action string, fn func(context.Context) error) error {
	_, err := Do(ctx, r, action, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Do retries fn while it fails with a retryable kind and returns its value.
// Non-retryable kinds (quota, auth, validation, duplicate...) return after the first attempt.
func Do[T any](ctx context.Context, r *Retrier, action string, fn func(context.Context) (T, error)) (T, error) {
	attempt := 0

	op := func() (T, error) {
		attempt++
		attemptCtx := ctx
		cancel := func() {}
		if r.policy.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
		}
		defer cancel()

		value, err := fn(attemptCtx)
		if err != nil {
			if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
				err = apperr.E(apperr.KindTimeout, action, err)
			}
			if !apperr.Retryable(err) {
				return value, backoff.Permanent(err)
			}
			return value, err
		}
		return value, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.policy.BaseDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxInterval = r.policy.MaxDelay
	policy.MaxElapsedTime = 0

	notify := func(err error, next time.Duration) {
		r.logger.Warn("retrying after transient failure",
			"action", action,
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"next_delay", next,
			"kind", string(apperr.KindOf(err)),
			"severity", string(apperr.SeverityMedium),
			"error", err.Error(),
		)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.policy.MaxAttempts-1)), ctx)
	return backoff.RetryNotifyWithData(op, b, notify)
}
