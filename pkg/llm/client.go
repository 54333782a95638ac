package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Retry policy for transient remote failures.
const (
	maxRetries5xx = 3
)

// backoffDelays429 is the fixed backoff schedule for rate limits.
var backoffDelays429 = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// APIError is a non-2xx response from a provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api error: status %d: %s", e.StatusCode, e.Body)
}

// IsPermanent reports whether the error should not be retried (4xx other
// than 429: auth failures, model not found, bad request).
func (e *APIError) IsPermanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the OpenAI-chat-compatible request body.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

// ChatResponse is the subset of the completion response we consume.
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Usage holds the token counts reported by a provider.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// CompletionParams configures one chat completion call.
type CompletionParams struct {
	Model         string
	SystemMessage string
	Prompt        string
	Temperature   float64
	MaxTokens     int
	Timeout       time.Duration
}

// Client calls OpenAI-chat-compatible provider endpoints.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new LLM client. The per-call timeout comes from the
// stage configuration, so the shared http.Client carries none.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
	}
}

// Complete performs a single non-streaming chat completion against the given
// provider, retrying transient failures per the retry policy.
func (c *Client) Complete(ctx context.Context, provider Provider, params CompletionParams) (string, Usage, error) {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	body := ChatRequest{
		Model: params.Model,
		Messages: []Message{
			{Role: "system", Content: params.SystemMessage},
			{Role: "user", Content: params.Prompt},
		},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		Stream:      false,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", Usage{}, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := provider.BaseURL + "/chat/completions"

	// The classifier bounds the loop: one attempt follows every scheduled
	// delay, so 429 gets four requests and 5xx/timeout get three.
	for attempt := 1; ; attempt++ {
		resp, err := c.doRequest(ctx, provider, url, payload, timeout)
		if err == nil {
			return parseCompletion(resp)
		}

		delay, retry := retryDelay(err, attempt)
		if !retry {
			if attempt == 1 {
				return "", Usage{}, err
			}
			return "", Usage{}, fmt.Errorf("llm call failed after %d attempts: %w", attempt, err)
		}

		slog.Warn("LLM call failed, retrying",
			"provider", provider.Name,
			"model", params.Model,
			"attempt", attempt,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return "", Usage{}, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// doRequest performs one HTTP attempt and returns the decoded body bytes.
func (c *Client) doRequest(ctx context.Context, provider Provider, url string, payload []byte, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+provider.APIKey())
	for k, v := range provider.ExtraHeaders() {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(data), 500)}
	}
	return data, nil
}

// retryDelay classifies an error and returns the backoff before the next
// attempt. Rate limits use the fixed {1,2,4}s schedule; 5xx, timeouts and
// connection resets use 2^attempt seconds; permanent 4xx are not retried.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			if attempt <= len(backoffDelays429) {
				return backoffDelays429[attempt-1], true
			}
			return 0, false
		case apiErr.StatusCode >= 500:
			if attempt < maxRetries5xx {
				return time.Duration(1<<attempt) * time.Second, true
			}
			return 0, false
		default:
			return 0, false
		}
	}

	// Timeouts and connection errors follow the 5xx policy.
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) || isConnectionError(err) {
		if attempt < maxRetries5xx {
			return time.Duration(1<<attempt) * time.Second, true
		}
	}
	return 0, false
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func parseCompletion(data []byte) (string, Usage, error) {
	var parsed ChatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", Usage{}, fmt.Errorf("failed to decode completion: %w", err)
	}
	content := ""
	if len(parsed.Choices) > 0 {
		content = parsed.Choices[0].Message.Content
	}
	return content, Usage{
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
