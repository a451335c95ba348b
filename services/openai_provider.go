package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chat-meter/models"

	"github.com/tidwall/gjson"
)

// CompletionProvider is the hosted model that answers questions.
type CompletionProvider interface {
	Complete(ctx context.Context, req models.CompletionRequest) (models.Completion, error)
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

// OpenAIProvider calls the chat completions endpoint.
type OpenAIProvider struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func NewOpenAIProvider(baseURL, apiKey, model string, timeout time.Duration) *OpenAIProvider {
	return &OpenAIProvider{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
		Timeout:    timeout,
		HTTPClient: &http.Client{},
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, req models.CompletionRequest) (models.Completion, error) {
	if p.APIKey == "" {
		return models.Completion{}, &ProviderError{Message: "no API key configured"}
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(openAIChatRequest{
		Model: p.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return models.Completion{}, fmt.Errorf("failed to encode completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return models.Completion{}, fmt.Errorf("failed to build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.Completion{}, &ProviderError{Message: "request timed out"}
		}
		return models.Completion{}, &ProviderError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Completion{}, &ProviderError{StatusCode: resp.StatusCode, Message: "failed to read response: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return models.Completion{}, &ProviderError{StatusCode: resp.StatusCode, Message: msg}
	}

	if !gjson.ValidBytes(raw) {
		return models.Completion{}, &ProviderError{StatusCode: resp.StatusCode, Message: "malformed response body"}
	}

	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() {
		return models.Completion{}, &ProviderError{StatusCode: resp.StatusCode, Message: "response has no choices"}
	}

	return models.Completion{
		Text:        strings.TrimSpace(content.String()),
		TotalTokens: int(gjson.GetBytes(raw, "usage.total_tokens").Int()),
	}, nil
}
