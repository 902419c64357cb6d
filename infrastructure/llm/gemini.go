// Package llm implements the completion collaborator against the Gemini
// REST API, plus a circuit-breaker decorator for it.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"jdbuilder/application/ports"
	apperrors "jdbuilder/pkg/errors"
)

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// GeminiClient implements ports.Completer over the generateContent
// endpoint. It performs exactly one HTTP attempt per call; retry and
// timeout policy belong to the orchestrator.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGeminiClient creates a Gemini-backed completer.
func NewGeminiClient(cfg GeminiConfig, logger *zap.Logger) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &GeminiClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Complete sends one generateContent request and returns the completion
// text with token usage.
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string, opts ports.CompletionOptions) (*ports.Completion, error) {
	if c.apiKey == "" {
		return nil, apperrors.NewInternalError("completion API key not configured")
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: userPrompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		},
	}
	if systemPrompt != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}
	if opts.JSONMode {
		reqBody.GenerationConfig.ResponseMimeType = "application/json"
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperrors.NewInternalError("marshal completion request").WithCause(err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.NewInternalError("build completion request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.NewExternalError("gemini", err).
			WithCode(apperrors.CodeUpstreamFailure)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewExternalError("gemini", err).
			WithCode(apperrors.CodeUpstreamFailure).
			WithDetails("failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("gemini request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(start)),
		)
		details := fmt.Sprintf("status %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests {
			details = "rate limited by completion service"
		}
		return nil, apperrors.NewExternalError("gemini", fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 512))).
			WithCode(apperrors.CodeUpstreamFailure).
			WithDetails(details)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperrors.NewExternalError("gemini", err).
			WithCode(apperrors.CodeUpstreamMalformedJSON).
			WithDetails("completion service returned an unreadable response")
	}
	if parsed.Error != nil {
		return nil, apperrors.NewExternalError("gemini", fmt.Errorf("%s: %s", parsed.Error.Status, parsed.Error.Message)).
			WithCode(apperrors.CodeUpstreamFailure)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, apperrors.NewExternalError("gemini", nil).
			WithCode(apperrors.CodeUpstreamEmptyResponse).
			WithDetails("no completion candidates returned")
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	c.logger.Debug("gemini completion",
		zap.String("model", c.model),
		zap.Int("tokens", parsed.UsageMetadata.TotalTokenCount),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &ports.Completion{
		Text:       strings.TrimSpace(text.String()),
		TokensUsed: parsed.UsageMetadata.TotalTokenCount,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
