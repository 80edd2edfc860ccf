package model

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

	"golang.org/x/time/rate"
)

const anthropicURL = "https://api.anthropic.com/v1/messages"

// ClaudeOptions configures a ClaudeClient.
type ClaudeOptions struct {
	APIKey    string
	Model     string
	MaxInput  int
	RateLimit int
	Timeout   time.Duration
	Stats     *LatencyStats
	// URL overrides the Messages API endpoint.
	URL       string
}

// ClaudeClient summarizes through the Anthropic Messages API.
type ClaudeClient struct {
	apiKey     string
	model      string
	url        string
	maxInput   int
	limiter    *rate.Limiter
	stats      *LatencyStats
	httpClient *http.Client
}

func NewClaudeClient(opts ClaudeOptions) (*ClaudeClient, error) {
	if opts.APIKey == "" {
		return nil, errors.New("anthropic: missing API key")
	}
	if opts.MaxInput <= 0 {
		opts.MaxInput = 1024
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.URL == "" {
		opts.URL = anthropicURL
	}
	c := &ClaudeClient{
		apiKey:     opts.APIKey,
		model:      opts.Model,
		url:        opts.URL,
		maxInput:   opts.MaxInput,
		stats:      opts.Stats,
		httpClient: newHTTPClient(opts.Timeout),
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateLimit)
	}
	return c, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *ClaudeClient) Name() string { return c.model }

func (c *ClaudeClient) CountTokens(text string) int { return countTokens(text) }

func (c *ClaudeClient) MaxInputTokens() int { return c.maxInput }

func systemPrompt(p GenParams) string {
	return fmt.Sprintf("You summarize legal documents. Write a plain-prose summary of the "+
		"user's text between %d and %d tokens long. Keep names, dates and obligations exact. "+
		"Reply with the summary only.", p.MinTokens, p.MaxTokens)
}

func (c *ClaudeClient) Summarize(ctx context.Context, input string, p GenParams) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    systemPrompt(p),
		Messages: []anthropicMessage{
			{Role: "user", Content: input},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("claude api: %w", err)
	}
	defer resp.Body.Close()
	c.stats.Record(time.Since(start))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("claude api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("claude error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	var sb strings.Builder
	for _, part := range apiResp.Content {
		if part.Type == "text" {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("empty response from claude")
	}
	return text, nil
}

// Close releases resources.
func (c *ClaudeClient) Close() {
	c.httpClient.CloseIdleConnections()
}
