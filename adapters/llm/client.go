// Package llm implements the model endpoint port over an OpenAI-compatible
// chat-completions API. The adapter stays deliberately thin: one prompt in,
// one raw response out, with usage accounting. Interpretation of the
// response belongs to the scorer.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"feastbench/internal"
	"feastbench/internal/config"
	"feastbench/internal/errors"
	"feastbench/ports"
)

const systemMessage = "You are answering calendar questions. Respond with valid JSON only."

// Client queries an OpenAI-compatible chat-completions endpoint
type Client struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *internal.Logger
}

// NewClient creates a model endpoint client from configuration
func NewClient(cfg config.EndpointConfig, logger *internal.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("ModelClient"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Seed        int64         `json:"seed,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Query sends one prompt to the named model and returns the raw completion.
// Transport faults map to typed endpoint errors so the orchestrator can
// distinguish retryable conditions.
func (c *Client) Query(ctx context.Context, model, prompt string, params ports.DecodingParams) (*ports.ModelResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: prompt},
		},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		Seed:        params.Seed,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.EndpointTimeout(model, err)
		}
		return nil, errors.EndpointError(model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.RateLimited(model)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.EndpointError(model, fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.EndpointError(model, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.EndpointError(model, fmt.Errorf("bad response envelope: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.EndpointError(model, fmt.Errorf("no choices in response"))
	}

	choice := parsed.Choices[0]
	c.logger.Debug("completion from %s: %d tokens, finish=%s", model, parsed.Usage.TotalTokens, choice.FinishReason)

	return &ports.ModelResponse{
		Content:     choice.Message.Content,
		TotalTokens: parsed.Usage.TotalTokens,
		Truncated:   choice.FinishReason == "length",
	}, nil
}

var _ ports.ModelClient = (*Client)(nil)
