// Package pipeline runs uploads through validation, text extraction,
// summarization and result preparation, synchronously or as queued jobs.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/lexsum/internal/config"
	"github.com/dgallion1/lexsum/internal/doctree"
	"github.com/dgallion1/lexsum/internal/document"
	"github.com/dgallion1/lexsum/internal/errhandler"
	"github.com/dgallion1/lexsum/internal/model"
	"github.com/dgallion1/lexsum/internal/parser"
	"github.com/dgallion1/lexsum/internal/summarizer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/dgallion1/lexsum/internal/pipeline")

// Upload is a document as received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

// Observer receives stage changes and warnings while a document is
// processed.
type Observer interface {
	OnStage(stage Stage, message string, progress int)
	OnWarning(message string)
}

type nopObserver struct{}

func (nopObserver) OnStage(Stage, string, int) {}
func (nopObserver) OnWarning(string) {}

// Outcome is a successfully processed document.
type Outcome struct {
	Result   *summarizer.Result `json:"result"`
	Metadata document.Metadata  `json:"metadata"`
	Warnings []string           `json:"warnings"`
}

// Failure is returned by Process. Message has already been logged and
// counted by the error handler.
type Failure struct {
	Stage   Stage
	Message errhandler.UserMessage
	Err     error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Summarizer produces a summary from extracted text.
type Summarizer interface {
	Summarize(ctx context.Context, text string, params summarizer.Params, filename string) (*summarizer.Result, error)
}

// ModelCache provides the shared model backend.
type ModelCache interface {
	Get(ctx context.Context) (model.Backend, error)
	Loaded() bool
}

// TempFiles hands data to fn as a file on disk and removes it afterwards.
type TempFiles interface {
	WithTempFile(data []byte, ext string, fn func(path string) error) error
}

// Recorder observes finished documents, e.g. for metrics.
type Recorder interface {
	ObserveDocument(outcome string, d time.Duration)
}

// Deps are the collaborators of a Pipeline. Model, TempFiles and Recorder
// are optional.
type Deps struct {
	Validator  *document.Validator
	Parsers    *parser.Registry
	Summarizer Summarizer
	Model      ModelCache
	TempFiles  TempFiles
	Errors     *errhandler.Handler
	Recorder   Recorder
	Log        *slog.Logger
}

// Pipeline processes one document per Process call. It is safe for
// concurrent use.
type Pipeline struct {
	deps  Deps
	stats statsTracker
}

func New(deps Deps) *Pipeline {
	return &Pipeline{deps: deps}
}

// Stats returns processing statistics.
func (p *Pipeline) Stats() Stats {
	return p.stats.snapshot()
}

// ResetStats clears processing statistics.
func (p *Pipeline) ResetStats() {
	p.stats.reset()
}

// Process validates, extracts and summarizes an upload, reporting each
// stage to obs. Errors are *Failure values carrying the user message.
func (p *Pipeline) Process(ctx context.Context, up Upload, params summarizer.Params, obs Observer) (*Outcome, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	start := time.Now()
	ctx, span := tracer.Start(ctx, "pipeline.Process", trace.WithAttributes(
		attribute.String("document.format", strings.ToLower(filepath.Ext(up.Filename))),
		attribute.Int("document.size", len(up.Data)),
	))
	defer span.End()

	r := &run{
		p:   p,
		m:   NewMachine(),
		obs: obs,
		log: p.deps.Log.With("filename", up.Filename),
	}
	out, err := r.execute(ctx, up, params)
	elapsed := time.Since(start)
	if err != nil {
		stage := r.m.Fail()
		msg := p.deps.Errors.Handle(err, "filename", up.Filename, "stage", string(stage))
		obs.OnStage(StageError, msg.Title, 0)
		p.stats.failure()
		p.record("error", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errhandler.Classify(err)))
		return nil, &Failure{Stage: stage, Message: msg, Err: err}
	}

	p.stats.success(elapsed, time.Now())
	outcome := "ok"
	if out.Result.FallbackUsed {
		outcome = "fallback"
	}
	p.record(outcome, elapsed)
	span.SetAttributes(
		attribute.Int("summary.chunks", out.Result.Chunks),
		attribute.Bool("summary.fallback", out.Result.FallbackUsed),
	)
	r.log.Info("document processed",
		"duration_ms", elapsed.Milliseconds(),
		"chunks", out.Result.Chunks,
		"words", out.Result.WordCount,
		"fallback", out.Result.FallbackUsed,
	)
	return out, nil
}

func (p *Pipeline) record(outcome string, d time.Duration) {
	if p.deps.Recorder != nil {
		p.deps.Recorder.ObserveDocument(outcome, d)
	}
}

// run is the state of one Process call.
type run struct {
	p        *Pipeline
	m        *Machine
	obs      Observer
	log      *slog.Logger
	warnings []string
}

func (r *run) enter(s Stage, message string) error {
	if err := r.m.Advance(s); err != nil {
		return errhandler.New(errhandler.CategorySystem, "pipeline", err)
	}
	r.obs.OnStage(s, message, s.Progress())
	return nil
}

func (r *run) progress(message string, pct int) {
	r.obs.OnStage(r.m.Stage(), message, pct)
}

func (r *run) warn(message string) {
	r.warnings = append(r.warnings, message)
	r.obs.OnWarning(message)
	r.log.Warn("processing warning", "warning", message)
}

// retrying moves through StageError back to the current stage before a
// repeated attempt.
func (r *run) retrying(message string, pct int) {
	r.m.Fail()
	if _, err := r.m.Retry(); err != nil {
		r.log.Error("stage retry", "error", err)
		return
	}
	r.progress(message, pct)
}

func (r *run) execute(ctx context.Context, up Upload, params summarizer.Params) (*Outcome, error) {
	if err := r.enter(StageValidating, "Validating document..."); err != nil {
		return nil, err
	}
	meta, err := r.validate(ctx, up)
	if err != nil {
		return nil, err
	}
	r.progress("Document validated", 20)

	if err := r.enter(StageExtracting, "Extracting text from document..."); err != nil {
		return nil, err
	}
	ext, err := r.extract(ctx, up)
	if err != nil {
		return nil, err
	}
	r.progress("Text extracted", 35)
	if len(ext.text) < config.MinTextLength {
		r.warn("Document contains very little text; the summary may be incomplete")
	}
	if !parser.LooksLegal(ext.text) {
		r.warn("Document may not be legal content")
	}
	meta = meta.WithCounts(ext.pages, len(strings.Fields(ext.text)))
	r.progress("Content checked", 40)

	if err := r.enter(StageSummarizing, "Generating AI summary..."); err != nil {
		return nil, err
	}
	r.loadModel(ctx)
	r.progress("Processing document with AI...", 60)
	res, err := r.p.deps.Summarizer.Summarize(ctx, ext.text, params, meta.Filename)
	if err != nil {
		var cat *errhandler.Error
		if !errors.As(err, &cat) && ctx.Err() == nil && !errors.Is(err, context.DeadlineExceeded) {
			err = errhandler.New(errhandler.CategoryModel, "summary_generation", err)
		}
		return nil, err
	}
	if res.LowConfidence() {
		r.warn("Summary confidence is low; review it against the original document")
	}
	r.progress("Summary generated", 90)

	if err := r.enter(StageFormatting, "Preparing results..."); err != nil {
		return nil, err
	}
	out := &Outcome{Result: res, Metadata: meta, Warnings: r.warnings}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}

	if err := r.enter(StageDone, "Processing complete!"); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *run) validate(ctx context.Context, up Upload) (document.Metadata, error) {
	return errhandler.Retry(ctx, r.p.deps.Errors, "document_validation", func(ctx context.Context, attempt int) errhandler.Outcome[document.Metadata] {
		if attempt > 0 {
			r.retrying("Retrying validation...", 5)
		}
		vr := r.p.deps.Validator.Validate(up.Filename, int64(len(up.Data)))
		if !vr.Valid {
			return errhandler.Fatal[document.Metadata](vr.Err())
		}
		head := up.Data[:min(len(up.Data), 512)]
		if err := document.CheckContent(vr.Metadata.Format, head); err != nil {
			return errhandler.Fatal[document.Metadata](err)
		}
		return errhandler.Ok(*vr.Metadata)
	})
}

type extraction struct {
	text  string
	pages int
}

func (r *run) extract(ctx context.Context, up Upload) (extraction, error) {
	return errhandler.Retry(ctx, r.p.deps.Errors, "text_extraction", func(ctx context.Context, attempt int) errhandler.Outcome[extraction] {
		if attempt > 0 {
			r.retrying("Retrying text extraction...", 25)
		}
		text, tree, err := r.extractOnce(up)
		switch {
		case err == nil:
			return errhandler.Ok(extraction{text: text, pages: tree.Pages})
		case errors.Is(err, parser.ErrNoText):
			return errhandler.Fatal[extraction](errhandler.Extraction("text_extraction", "no readable text found in document"))
		case isIOError(err):
			return errhandler.Retryable[extraction](errhandler.New(errhandler.CategoryExtraction, "text_extraction", err))
		}
		return errhandler.Fatal[extraction](errhandler.New(errhandler.CategoryExtraction, "text_extraction", err))
	})
}

// extractOnce parses the upload, from a scoped temp file when a TempFiles
// provider is configured.
func (r *run) extractOnce(up Upload) (string, *doctree.DocTree, error) {
	tf := r.p.deps.TempFiles
	if tf == nil {
		return r.p.deps.Parsers.Extract(bytes.NewReader(up.Data), up.Filename)
	}

	var (
		text string
		tree *doctree.DocTree
	)
	err := tf.WithTempFile(up.Data, filepath.Ext(up.Filename), func(path string) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		text, tree, err = r.p.deps.Parsers.Extract(f, up.Filename)
		return err
	})
	return text, tree, err
}

func isIOError(err error) bool {
	var pe *fs.PathError
	return errors.As(err, &pe)
}

// loadModel warms the model cache. A load failure is only a warning: the
// summarizer falls back to an extractive summary.
func (r *run) loadModel(ctx context.Context) {
	mc := r.p.deps.Model
	if mc == nil || mc.Loaded() {
		return
	}
	r.progress("Loading AI model...", 50)
	_, err := errhandler.Retry(ctx, r.p.deps.Errors, "model_loading", func(ctx context.Context, attempt int) errhandler.Outcome[struct{}] {
		if attempt > 0 {
			r.retrying("Retrying model load...", 50)
		}
		if _, err := mc.Get(ctx); err != nil {
			if ctx.Err() != nil {
				return errhandler.Fatal[struct{}](ctx.Err())
			}
			return errhandler.Retryable[struct{}](errhandler.New(errhandler.CategoryModel, "model_loading", err))
		}
		return errhandler.Ok(struct{}{})
	})
	if err != nil {
		r.warn("AI model unavailable; an extractive summary will be produced")
	}
}
