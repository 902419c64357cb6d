package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jdbuilder/application/ports"
	apperrors "jdbuilder/pkg/errors"
)

type failingCompleter struct {
	err   error
	calls int
}

func (f *failingCompleter) Complete(context.Context, string, string, ports.CompletionOptions) (*ports.Completion, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &ports.Completion{Text: "{}", TokensUsed: 1}, nil
}

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "test",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      3,
	}
}

func TestBreakerCompleter_PassesThroughSuccess(t *testing.T) {
	inner := &failingCompleter{}
	breaker := NewBreakerCompleter(inner, testBreakerConfig(), zap.NewNop())

	result, err := breaker.Complete(context.Background(), "sys", "user", ports.CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "{}", result.Text)
}

func TestBreakerCompleter_OpensAfterRepeatedFailures(t *testing.T) {
	inner := &failingCompleter{err: apperrors.NewExternalError("gemini", nil).WithCode(apperrors.CodeUpstreamFailure)}
	breaker := NewBreakerCompleter(inner, testBreakerConfig(), zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := breaker.Complete(context.Background(), "", "", ports.CompletionOptions{})
		require.Error(t, err)
	}

	// The breaker is now open; the inner completer must not be called again.
	callsBefore := inner.calls
	_, err := breaker.Complete(context.Background(), "", "", ports.CompletionOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))
	assert.Equal(t, callsBefore, inner.calls)
}

func TestBreakerCompleter_ValidationErrorsDoNotTrip(t *testing.T) {
	inner := &failingCompleter{err: apperrors.NewValidationError("bad input")}
	breaker := NewBreakerCompleter(inner, testBreakerConfig(), zap.NewNop())

	for i := 0; i < 10; i++ {
		_, err := breaker.Complete(context.Background(), "", "", ports.CompletionOptions{})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	}
	assert.Equal(t, 10, inner.calls)
}
