package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jdbuilder/application/ports"
	apperrors "jdbuilder/pkg/errors"
)

func newTestClient(serverURL string) *GeminiClient {
	return NewGeminiClient(GeminiConfig{
		APIKey:  "test-key",
		BaseURL: serverURL,
		Model:   "gemini-2.0-flash",
	}, zap.NewNop())
}

func TestComplete_Success(t *testing.T) {
	var captured geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{{"text": `{"summary": "ok"}`}},
				}},
			},
			"usageMetadata": map[string]int{"totalTokenCount": 42},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.Complete(context.Background(), "system instructions", "user prompt", ports.CompletionOptions{
		JSONMode:    true,
		MaxTokens:   1024,
		Temperature: 0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"summary": "ok"}`, result.Text)
	assert.Equal(t, 42, result.TokensUsed)

	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "system instructions", captured.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "user prompt", captured.Contents[0].Parts[0].Text)
	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
	assert.Equal(t, 1024, captured.GenerationConfig.MaxOutputTokens)
}

func TestComplete_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"candidates": []interface{}{}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Complete(context.Background(), "", "prompt", ports.CompletionOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUpstreamEmptyResponse))
}

func TestComplete_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Complete(context.Background(), "", "prompt", ports.CompletionOptions{})
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.CodeUpstreamFailure, appErr.Code)
	assert.Equal(t, "rate limited by completion service", appErr.Details)
}

func TestComplete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"code":    400,
				"message": "invalid argument",
				"status":  "INVALID_ARGUMENT",
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Complete(context.Background(), "", "prompt", ports.CompletionOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUpstreamFailure))
}

func TestComplete_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(server.URL)
	_, err := client.Complete(ctx, "", "prompt", ports.CompletionOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComplete_MissingAPIKey(t *testing.T) {
	client := NewGeminiClient(GeminiConfig{}, zap.NewNop())
	_, err := client.Complete(context.Background(), "", "prompt", ports.CompletionOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}
