package cafe

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/neexbeast/cafe-swipe/internal/metrics"
)

const breakerTripAfter = 5

// neutralError wraps a failed call that says nothing about the provider's
// health. The breaker neither counts it as a failure nor as a success.
type neutralError struct{ err error }

func (e *neutralError) Error() string { return e.err.Error() }
func (e *neutralError) Unwrap() error { return e.err }

func neutral(err error) error {
	if err == nil {
		return nil
	}
	return &neutralError{err: err}
}

func isNeutral(err error) bool {
	var n *neutralError
	return errors.As(err, &n)
}

// classify marks errors caused by the caller or rejected as a bad request
// as neutral. Transport errors, timeouts of our own client, 429 and 5xx
// replies stay failures.
func classify(ctx context.Context, err error) error {
	if err == nil || isNeutral(err) {
		return err
	}
	if ctx.Err() != nil {
		return neutral(err)
	}
	var se *statusError
	if errors.As(err, &se) && isClientRejection(se.code) {
		return neutral(err)
	}
	return err
}

func isClientRejection(code int) bool {
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}

// newBreaker opens after five consecutive failures and probes again after 30s.
func newBreaker[T any](name string, log *slog.Logger) *gobreaker.CircuitBreaker[T] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripAfter
		},
		IsExcluded: isNeutral,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
