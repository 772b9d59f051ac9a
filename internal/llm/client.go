package llm

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

	"debate-lab-service/internal/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrEmptyCompletion is returned when the provider answers without any choice.
var ErrEmptyCompletion = errors.New("llm returned no choices")

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("llm api key not configured")

// Message is one chat message in the OpenAI-compatible format.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

type requestPayload struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type responsePayload struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// APIError carries a non-2xx provider response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api status %d: %s", e.Status, e.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL         string
	APIKey          string
	Model           string
	MaxTokens       int
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
}

// Client talks to an OpenAI-compatible chat completion endpoint
// (Upstage Solar by default). Calls go through a circuit breaker so a
// failing provider is not hammered by every request.
type Client struct {
	endpoint  string
	apiKey    string
	model     string
	maxTokens int
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[string]
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := opts.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	return &Client{
		endpoint:  strings.TrimRight(opts.BaseURL, "/") + "/chat/completions",
		apiKey:    opts.APIKey,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		http:      httpClient,
		breaker: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        "llm",
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			// Caller cancellation says nothing about provider health.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

// Complete sends messages and returns the first choice's content.
// purpose only labels metrics.
func (c *Client) Complete(ctx context.Context, purpose string, messages []Message) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}
	start := time.Now()
	out, err := c.breaker.Execute(func() (string, error) {
		return c.do(ctx, messages)
	})
	metrics.RecordLLMRequest(purpose, err, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("llm %s: %w", purpose, err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(requestPayload{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{Status: resp.StatusCode, Body: truncate(string(raw), 512)}
	}

	var parsed responsePayload
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
