// Package model talks to the summarization model: a tokenizer for sizing
// input, a pipeline that turns text into a summary, and a process-wide
// cache holding the loaded backend.
package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dgallion1/lexsum/internal/chunker"
	"github.com/dgallion1/lexsum/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// GenParams are the generation parameters for one summarization call.
type GenParams struct {
	MinTokens         int     `json:"min_length"`
	MaxTokens         int     `json:"max_length"`
	NumBeams          int     `json:"num_beams"`
	LengthPenalty     float64 `json:"length_penalty"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	NoRepeatNgramSize int     `json:"no_repeat_ngram_size,omitempty"`
	EarlyStopping     bool    `json:"early_stopping"`
}

// Tokenizer measures text in model tokens.
type Tokenizer interface {
	CountTokens(text string) int
	MaxInputTokens() int
}

// Pipeline produces a summary of input.
type Pipeline interface {
	Summarize(ctx context.Context, input string, p GenParams) (string, error)
}

// Backend is a loaded model: tokenizer and pipeline sharing one client.
type Backend interface {
	Tokenizer
	Pipeline
	Name() string
	Close()
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable reports whether err carries a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// New builds the backend selected by cfg.ModelBackend.
func New(cfg config.Config, stats *LatencyStats) (Backend, error) {
	switch cfg.ModelBackend {
	case "huggingface", "":
		return NewHFClient(HFOptions{
			BaseURL:   cfg.InferenceURL,
			Model:     cfg.ModelName,
			Token:     cfg.HFAPIToken,
			MaxInput:  cfg.MaxChunkTokens,
			RateLimit: cfg.ModelRateLimit,
			Stats:     stats,
		})
	case "anthropic":
		return NewClaudeClient(ClaudeOptions{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.AnthropicModel,
			MaxInput:  cfg.MaxChunkTokens,
			RateLimit: cfg.ModelRateLimit,
			Stats:     stats,
		})
	}
	return nil, fmt.Errorf("unknown model backend %q", cfg.ModelBackend)
}

// countTokens is the shared heuristic used by the HTTP backends, which do
// not expose their tokenizer.
func countTokens(text string) int { return chunker.EstimateTokens(text) }

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
