package model

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dgallion1/lexsum/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHFClient_Summarize(t *testing.T) {
	var got hfRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/facebook/bart-large-cnn", r.URL.Path)
		assert.Equal(t, "Bearer hf-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`[{"summary_text":"  The tenant pays rent.  "}]`))
	}))
	defer srv.Close()

	stats := NewLatencyStats(0)
	c, err := NewHFClient(HFOptions{BaseURL: srv.URL + "/", Model: "facebook/bart-large-cnn", Token: "hf-token", Stats: stats})
	require.NoError(t, err)
	defer c.Close()

	out, err := c.Summarize(context.Background(), "long lease text", GenParams{MinTokens: 30, MaxTokens: 100, NumBeams: 4})
	require.NoError(t, err)
	assert.Equal(t, "The tenant pays rent.", out)
	assert.Equal(t, "long lease text", got.Inputs)
	assert.Equal(t, 100, got.Parameters.MaxTokens)
	assert.True(t, got.Options.WaitForModel)
	assert.Equal(t, 1, stats.Snapshot().Count)
	assert.Equal(t, 1024, c.MaxInputTokens())
}

func TestHFClient_RetryableStatuses(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusServiceUnavailable} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":"Model is currently loading"}`))
		}))
		c, err := NewHFClient(HFOptions{BaseURL: srv.URL, Model: "m", Token: "t"})
		require.NoError(t, err)

		_, err = c.Summarize(context.Background(), "x", GenParams{})
		var re *RetryableError
		require.True(t, errors.As(err, &re), "status %d", status)
		assert.Equal(t, status, re.StatusCode)
		srv.Close()
	}
}

func TestHFClient_ClientErrorNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"input too long"}`))
	}))
	defer srv.Close()

	c, err := NewHFClient(HFOptions{BaseURL: srv.URL, Model: "m", Token: "t"})
	require.NoError(t, err)
	_, err = c.Summarize(context.Background(), "x", GenParams{})
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "input too long")
}

func TestHFClient_EmptySummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := NewHFClient(HFOptions{BaseURL: srv.URL, Model: "m", Token: "t"})
	require.NoError(t, err)
	_, err = c.Summarize(context.Background(), "x", GenParams{})
	assert.Error(t, err)
}

func TestNewHFClient_RequiresToken(t *testing.T) {
	_, err := NewHFClient(HFOptions{BaseURL: "http://x", Model: "m"})
	assert.Error(t, err)
}

func TestClaudeClient_Summarize(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"content":[{"type":"text","text":"The parties agree."}]}`))
	}))
	defer srv.Close()

	c, err := NewClaudeClient(ClaudeOptions{APIKey: "sk-test", Model: "claude-x", URL: srv.URL})
	require.NoError(t, err)

	out, err := c.Summarize(context.Background(), "contract text", GenParams{MinTokens: 80, MaxTokens: 200})
	require.NoError(t, err)
	assert.Equal(t, "The parties agree.", out)
	assert.Equal(t, 200, got.MaxTokens)
	assert.Contains(t, got.System, "between 80 and 200")
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "contract text", got.Messages[0].Content)
}

func TestClaudeClient_ServerErrorRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClaudeClient(ClaudeOptions{APIKey: "k", URL: srv.URL})
	require.NoError(t, err)
	_, err = c.Summarize(context.Background(), "x", GenParams{})
	assert.True(t, IsRetryable(err))
}

func TestNew_SelectsBackend(t *testing.T) {
	cfg := config.Config{ModelBackend: "huggingface", InferenceURL: "http://x", ModelName: "m", HFAPIToken: "t", MaxChunkTokens: 512}
	b, err := New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &HFClient{}, b)
	assert.Equal(t, 512, b.MaxInputTokens())

	cfg = config.Config{ModelBackend: "anthropic", AnthropicAPIKey: "k", AnthropicModel: "claude-x"}
	b, err = New(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "claude-x", b.Name())

	_, err = New(config.Config{ModelBackend: "onnx"}, nil)
	assert.Error(t, err)
}

type fakeBackend struct{ closed atomic.Bool }

func (f *fakeBackend) Name() string { return "fake" }
func (f *fakeBackend) CountTokens(string) int { return 0 }
func (f *fakeBackend) MaxInputTokens() int { return 1024 }
func (f *fakeBackend) Close() { f.closed.Store(true) }
func (f *fakeBackend) Summarize(context.Context, string, GenParams) (string, error) {
	return "", nil
}

func TestCache_LoadsOnceAndCloses(t *testing.T) {
	var loads atomic.Int32
	fb := &fakeBackend{}
	c := NewCache(func(context.Context) (Backend, error) {
		loads.Add(1)
		return fb, nil
	})

	for i := 0; i < 3; i++ {
		b, err := c.Get(context.Background())
		require.NoError(t, err)
		assert.Same(t, fb, b)
	}
	assert.Equal(t, int32(1), loads.Load())
	assert.True(t, c.Loaded())

	c.Close()
	assert.True(t, fb.closed.Load())
	_, err := c.Get(context.Background())
	assert.ErrorIs(t, err, ErrCacheClosed)
}

func TestCache_FailedLoadIsRetried(t *testing.T) {
	var calls atomic.Int32
	c := NewCache(func(context.Context) (Backend, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("model unavailable")
		}
		return &fakeBackend{}, nil
	})

	_, err := c.Get(context.Background())
	require.Error(t, err)
	assert.False(t, c.Loaded())

	_, err = c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
