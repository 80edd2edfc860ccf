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

// HFOptions configures an HFClient.
type HFOptions struct {
	BaseURL   string
	Model     string
	Token     string
	// MaxInput is the model input limit in tokens.
	MaxInput  int
	// RateLimit is requests per second; <= 0 disables limiting.
	RateLimit int
	Timeout   time.Duration
	Stats     *LatencyStats
}

// HFClient calls a Hugging Face style inference endpoint hosting a
// sequence-to-sequence summarization model.
type HFClient struct {
	url        string
	model      string
	token      string
	maxInput   int
	limiter    *rate.Limiter
	stats      *LatencyStats
	httpClient *http.Client
}

func NewHFClient(opts HFOptions) (*HFClient, error) {
	if opts.Token == "" {
		return nil, errors.New("huggingface: missing API token")
	}
	if opts.BaseURL == "" || opts.Model == "" {
		return nil, errors.New("huggingface: missing inference URL or model name")
	}
	if opts.MaxInput <= 0 {
		opts.MaxInput = 1024
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	c := &HFClient{
		url:        strings.TrimRight(opts.BaseURL, "/") + "/" + opts.Model,
		model:      opts.Model,
		token:      opts.Token,
		maxInput:   opts.MaxInput,
		stats:      opts.Stats,
		httpClient: newHTTPClient(opts.Timeout),
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateLimit)
	}
	return c, nil
}

type hfRequest struct {
	Inputs     string    `json:"inputs"`
	Parameters GenParams `json:"parameters"`
	Options    struct {
		WaitForModel bool `json:"wait_for_model"`
	} `json:"options"`
}

type hfSummary struct {
	SummaryText string `json:"summary_text"`
}

type hfError struct {
	Error string `json:"error"`
}

func (c *HFClient) Name() string { return c.model }

func (c *HFClient) CountTokens(text string) int { return countTokens(text) }

func (c *HFClient) MaxInputTokens() int { return c.maxInput }

// Summarize sends input to the inference endpoint. 429 and 5xx responses
// (including "model is loading") come back as *RetryableError.
func (c *HFClient) Summarize(ctx context.Context, input string, p GenParams) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	req := hfRequest{Inputs: input, Parameters: p}
	req.Options.WaitForModel = true
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("inference api: %w", err)
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
		var e hfError
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			return "", fmt.Errorf("inference api status %d: %s", resp.StatusCode, e.Error)
		}
		return "", fmt.Errorf("inference api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var out []hfSummary
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decode response: %w (raw: %s)", err, truncate(string(respBody), 200))
	}
	if len(out) == 0 || strings.TrimSpace(out[0].SummaryText) == "" {
		return "", errors.New("empty summary from inference api")
	}
	return strings.TrimSpace(out[0].SummaryText), nil
}

// Close releases resources.
func (c *HFClient) Close() {
	c.httpClient.CloseIdleConnections()
}
