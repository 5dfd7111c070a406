package resilience

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Guard combines retry and a circuit breaker for one provider. Each attempt
// passes through the breaker, so an opened circuit also stops retries.
type Guard struct {
	Provider string
	Retry    RetryConfig
	Breaker  *CircuitBreaker
}

// NewGuard builds a Guard with the default breaker and the given number of
// retries after the first attempt.
func NewGuard(provider string, retries int) *Guard {
	rc := DefaultRetryConfig()
	rc.MaxAttempts = retries + 1
	rc.OnRetry = RetryLogger(provider, "call")
	rc.ShouldRetry = func(err error) bool {
		return !errors.Is(err, ErrCircuitOpen) && IsTransient(err)
	}

	bc := DefaultCircuitBreakerConfig()
	bc.OnStateChange = func(from, to CircuitState) {
		zap.L().Warn("circuit breaker state change",
			zap.String("provider", provider),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	return &Guard{
		Provider: provider,
		Retry:    rc,
		Breaker:  NewCircuitBreaker(bc),
	}
}

// Call runs fn under the guard's retry policy and circuit breaker.
func Call[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	return DoVal(ctx, g.Retry, func(ctx context.Context) (T, error) {
		return ExecuteVal(ctx, g.Breaker, fn)
	})
}
