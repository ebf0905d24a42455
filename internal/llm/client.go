// Package llm calls the Anthropic Messages API to synthesize seed data and
// turns its free-text replies back into structured JSON.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/planeseed/planeseed/internal/logger"
	"github.com/planeseed/planeseed/internal/ratelimit"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"

	// DefaultModel is used by every generator unless overridden in config.
	DefaultModel = "claude-3-5-sonnet-20241022"

	maxRetries = 5
	initDelay  = 2 * time.Second
)

// Client calls the Anthropic Messages API. All requests pass through the
// injected rate budget, which is shared across generator workers.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	budget  *ratelimit.Budget
	log     *logrus.Logger
}

// Request describes one completion call.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint. Used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// NewClient creates a client for the Anthropic Messages API.
func NewClient(apiKey string, budget *ratelimit.Budget, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: anthropicBaseURL,
		model:   DefaultModel,
		client:  &http.Client{Timeout: 60 * time.Second},
		budget:  budget,
		log:     logger.Get(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends a prompt and returns the model's text reply. Transport
// errors, 429 and 5xx responses are retried with exponential backoff; other
// non-2xx statuses fail immediately.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("ANTHROPIC_API_KEY not set")
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = 1000
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       c.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt))) * initDelay
			c.log.WithFields(logrus.Fields{"attempt": attempt, "delay": delay}).
				Warn("Retrying Anthropic request")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		if c.budget != nil {
			if err := c.budget.Wait(ctx); err != nil {
				return "", err
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("x-api-key", c.apiKey)
		httpReq.Header.Set("anthropic-version", anthropicVersion)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("anthropic returned %d: %s", resp.StatusCode, truncate(string(respBody), 200))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("anthropic returned %d: %s", resp.StatusCode, truncate(string(respBody), 200))
		}

		var parsed anthropicResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if len(parsed.Content) == 0 {
			return "", fmt.Errorf("anthropic response had no content blocks")
		}
		return parsed.Content[0].Text, nil
	}

	return "", fmt.Errorf("anthropic request failed after %d attempts: %w", maxRetries, lastErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
