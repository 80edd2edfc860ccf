// Package summarizer turns extracted document text into a customized
// summary: it chunks the text to the model's input limit, summarizes each
// chunk with a retry and an extractive fallback, merges the results and
// applies the length and focus settings.
package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/lexsum/internal/chunker"
	"github.com/dgallion1/lexsum/internal/config"
	"github.com/dgallion1/lexsum/internal/errhandler"
	"github.com/dgallion1/lexsum/internal/model"
)

// LowConfidence is the threshold below which a summary is flagged as
// unreliable.
const LowConfidence = 0.5

const (
	confidenceFirstAttempt = 1.0
	confidenceRetry        = 0.8
	confidenceExtractive   = 0.3
)

// Result is a finished summary. It is not modified after creation.
type Result struct {
	Summary           string        `json:"summary"`
	Confidence        float64       `json:"confidence"`
	OriginalWordCount int           `json:"original_word_count"`
	WordCount         int           `json:"word_count"`
	ProcessingTime    time.Duration `json:"-"`
	Chunks            int           `json:"chunks"`
	FallbackUsed      bool          `json:"fallback_used"`
	SourceFilename    string        `json:"source_filename,omitempty"`
	Params            Params        `json:"params"`
	GeneratedAt       time.Time     `json:"generated_at"`
}

// LowConfidence reports whether the result should be flagged.
func (r *Result) LowConfidence() bool { return r.Confidence < LowConfidence }

type resultJSON Result

// MarshalJSON encodes ProcessingTime as "processing_time" in seconds.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		resultJSON
		ProcessingTime float64 `json:"processing_time"`
	}{resultJSON(r), r.ProcessingTime.Seconds()})
}

func (r *Result) UnmarshalJSON(data []byte) error {
	var v struct {
		resultJSON
		ProcessingTime float64 `json:"processing_time"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Result(v.resultJSON)
	r.ProcessingTime = time.Duration(v.ProcessingTime * float64(time.Second))
	return nil
}

// Options tunes a Summarizer.
type Options struct {
	// Timeout bounds one Summarize call. Zero means no limit.
	Timeout time.Duration
	// RetryDelay is the pause before a chunk's second attempt.
	RetryDelay time.Duration
}

// Summarizer produces summaries with the model held by a model.Cache.
type Summarizer struct {
	cache *model.Cache
	errs  *errhandler.Handler
	log   *slog.Logger
	opts  Options
}

func New(cache *model.Cache, errs *errhandler.Handler, log *slog.Logger, opts Options) *Summarizer {
	return &Summarizer{cache: cache, errs: errs, log: log, opts: opts}
}

// Summarize summarizes text with params. If the model cannot be loaded it
// returns an extractive summary with low confidence instead of an error.
// Running past the configured timeout is an error.
func (s *Summarizer) Summarize(ctx context.Context, text string, params Params, filename string) (*Result, error) {
	start := time.Now()
	params = Sanitize(s.log, params)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errhandler.Validation("summarize", "no text to summarize")
	}
	if len(text) > config.MaxTextLength {
		s.log.Warn("text exceeds maximum length, truncating", "length", len(text), "max", config.MaxTextLength)
		text = cutAtRune(text, config.MaxTextLength)
	}

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	res := &Result{
		OriginalWordCount: wordCount(text),
		SourceFilename:    filename,
		Params:            params,
	}

	backend, err := s.cache.Get(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("load model: %w", ctx.Err())
		}
		s.log.Warn("model unavailable, using extractive summary", "error", err)
		s.errs.Handle(errhandler.New(errhandler.CategoryModel, "model_load", err))
		return s.finish(res, emergencySummary(text, params.Length, params.MaxWords), confidenceExtractive, true, start), nil
	}

	prompt := FocusPrompt(params.Focus)
	limit := backend.MaxInputTokens() - backend.CountTokens(prompt) - 2
	if limit < backend.MaxInputTokens()/2 {
		limit = backend.MaxInputTokens() / 2
	}
	chunks := chunker.Split(text, backend, limit)
	gen, _ := LengthParams(params.Length, params.Focus)
	s.log.Info("summarizing", "chunks", len(chunks), "length", string(params.Length), "focus", string(params.Focus))

	summaries := make([]string, 0, len(chunks))
	var confSum float64
	fallback := false
	for _, c := range chunks {
		out, err := s.summarizeChunk(ctx, backend, c, prompt, gen)
		if err != nil {
			return nil, fmt.Errorf("summarize chunk %d/%d: %w", c.Index+1, len(chunks), err)
		}
		summaries = append(summaries, out.text)
		confSum += out.confidence
		if out.confidence < confidenceFirstAttempt {
			fallback = true
		}
	}

	merged := merge(summaries)
	if merged == "" {
		s.log.Warn("model returned no usable text, using extractive summary")
		return s.finish(res, emergencySummary(text, params.Length, params.MaxWords), confidenceExtractive, true, start), nil
	}

	res.Chunks = len(chunks)
	summary := postProcess(merged, params.Focus, params.MaxWords)
	return s.finish(res, summary, confSum/float64(len(chunks)), fallback, start), nil
}

func (s *Summarizer) finish(res *Result, summary string, confidence float64, fallback bool, start time.Time) *Result {
	res.Summary = summary
	res.WordCount = wordCount(summary)
	res.Confidence = confidence
	res.FallbackUsed = fallback
	res.ProcessingTime = time.Since(start)
	res.GeneratedAt = time.Now()
	return res
}

type chunkSummary struct {
	text       string
	confidence float64
}

// summarizeChunk tries the focus prompt with the preset parameters, then
// once more with the default parameters and no prompt. When both fail the
// chunk is summarized by its first three sentences. Only context errors
// are returned.
func (s *Summarizer) summarizeChunk(ctx context.Context, p model.Pipeline, c chunker.Chunk, prompt string, gen model.GenParams) (chunkSummary, error) {
	policy := s.errs.Policy()
	policy.MaxAttempts = 2
	policy.BaseDelay = s.opts.RetryDelay

	out, err := errhandler.RetryWith(ctx, s.errs, "summarize_chunk", policy, func(ctx context.Context, attempt int) errhandler.Outcome[chunkSummary] {
		input, params, conf := prompt+"\n\n"+c.Text, gen, confidenceFirstAttempt
		if attempt > 0 {
			input, params, conf = c.Text, DefaultGenParams(), confidenceRetry
		}
		text, err := p.Summarize(ctx, input, params)
		if err != nil {
			if ctx.Err() != nil {
				return errhandler.Fatal[chunkSummary](ctx.Err())
			}
			return errhandler.Retryable[chunkSummary](err)
		}
		return errhandler.Ok(chunkSummary{text: text, confidence: conf})
	})
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return chunkSummary{}, ctx.Err()
	}
	s.log.Warn("chunk summarization failed, using extractive fallback", "chunk", c.Index, "error", err)
	return chunkSummary{text: firstSentences(c.Text, 3), confidence: confidenceExtractive}, nil
}

func cutAtRune(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
