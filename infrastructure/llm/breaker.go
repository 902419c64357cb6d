package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"jdbuilder/application/ports"
	apperrors "jdbuilder/pkg/errors"
)

// BreakerConfig tunes the circuit breaker around the completion service.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the default breaker tuning.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// BreakerCompleter wraps a Completer with a circuit breaker so a failing
// completion service sheds load fast instead of tying up request handlers.
type BreakerCompleter struct {
	inner   ports.Completer
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerCompleter creates the decorated completer.
func NewBreakerCompleter(inner ports.Completer, cfg BreakerConfig, logger *zap.Logger) *BreakerCompleter {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("completion circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// Caller mistakes (validation, cancelled contexts) do not count
			// against the upstream.
			if err == nil || apperrors.IsValidation(err) || errors.Is(err, context.Canceled) {
				return true
			}
			return false
		},
	})

	return &BreakerCompleter{inner: inner, breaker: cb}
}

// Complete executes the inner call under the breaker.
func (b *BreakerCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, opts ports.CompletionOptions) (*ports.Completion, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Complete(ctx, systemPrompt, userPrompt, opts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.NewUnavailableError("completion").
				WithCode(apperrors.CodeUpstreamFailure).
				WithDetails("completion service is temporarily unavailable, try again shortly").
				WithCause(err)
		}
		return nil, err
	}
	return result.(*ports.Completion), nil
}
