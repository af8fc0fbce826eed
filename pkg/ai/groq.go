package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-scheduler/pkg/config"
)

// GroqClient is a minimal client for the Groq OpenAI-compatible chat API
type GroqClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxRetries int
	client     *http.Client
	logger     *zap.Logger
}

var _ Completer = (*GroqClient)(nil)

// NewGroqClient creates a Groq client using values from the provided config
func NewGroqClient(cfg config.GroqConfig, logger *zap.Logger) *GroqClient {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.groq.com"
	}
	model := cfg.Model
	if model == "" {
		model = "llama-3.1-70b-versatile"
	}
	return &GroqClient{
		apiKey:     cfg.APIKey,
		baseURL:    base,
		model:      model,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// ChatMessage is one chat turn
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat asks the model for a JSON object
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model          string          `json:"model,omitempty"`
	Messages       []ChatMessage   `json:"messages,omitempty"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ChatResponse is a minimal response shape
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify runs the intent classification prompt in JSON mode
func (g *GroqClient) Classify(ctx context.Context, prompt string) (string, error) {
	return g.complete(ctx, classifySystemPrompt, prompt)
}

// Extract runs the time-component extraction prompt in JSON mode
func (g *GroqClient) Extract(ctx context.Context, prompt string) (string, error) {
	return g.complete(ctx, extractSystemPrompt, prompt)
}

func (g *GroqClient) complete(ctx context.Context, system, prompt string) (string, error) {
	reqBody := ChatRequest{
		Model: g.model,
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature:    0,
		MaxTokens:      1024,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	var content string
	call := func() error {
		out, err := g.post(ctx, b)
		if err != nil {
			return err
		}
		content = out
		return nil
	}

	// Retry logic with exponential backoff
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 20 * time.Second

	var policy backoff.BackOff = backoff.WithContext(bo, ctx)
	if g.maxRetries > 0 {
		policy = backoff.WithMaxRetries(policy, uint64(g.maxRetries))
	}

	notify := func(err error, wait time.Duration) {
		if g.logger != nil {
			g.logger.Warn("⚠️ Groq call failed, retrying",
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}
	}

	if err := backoff.RetryNotify(call, policy, notify); err != nil {
		return "", err
	}
	return ExtractJSON(content), nil
}

func (g *GroqClient) post(ctx context.Context, body []byte) (string, error) {
	endpoint := g.baseURL + "/openai/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", fmt.Errorf("groq returned status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", backoff.Permanent(fmt.Errorf("groq returned status %d: %s", resp.StatusCode, msg))
	}

	var cr ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", backoff.Permanent(err)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", backoff.Permanent(ErrEmptyCompletion)
	}
	return cr.Choices[0].Message.Content, nil
}
