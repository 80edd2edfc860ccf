package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/lexsum/internal/api"
	"github.com/dgallion1/lexsum/internal/config"
	"github.com/dgallion1/lexsum/internal/document"
	"github.com/dgallion1/lexsum/internal/errhandler"
	"github.com/dgallion1/lexsum/internal/logging"
	"github.com/dgallion1/lexsum/internal/metrics"
	"github.com/dgallion1/lexsum/internal/model"
	"github.com/dgallion1/lexsum/internal/parser"
	"github.com/dgallion1/lexsum/internal/pipeline"
	"github.com/dgallion1/lexsum/internal/security"
	"github.com/dgallion1/lexsum/internal/summarizer"
	"github.com/dgallion1/lexsum/internal/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.Load()
	log := logging.New(os.Stdout, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, log)
	if err != nil {
		log.Error("tracing init failed", "error", err)
		os.Exit(1)
	}

	// Metrics and error handling.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		log.Error("metrics init failed", "error", err)
		os.Exit(1)
	}
	errs := errhandler.NewHandler(log, errhandler.Policy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
	})
	errs.SetObserver(m)

	// Model, loaded on first use and shared by all requests.
	modelStats := model.NewLatencyStats(time.Hour)
	cache := model.NewCache(func(ctx context.Context) (model.Backend, error) {
		return model.New(cfg, modelStats)
	})
	sum := summarizer.New(cache, errs, log, summarizer.Options{
		Timeout:    cfg.SummarizeTimeout,
		RetryDelay: cfg.RetryBaseDelay,
	})

	// Security: temp files, sessions and rate limits.
	sec := security.New(log, security.Options{
		TempFileMaxAge:        cfg.TempFileMaxAge,
		CleanupInterval:       cfg.CleanupInterval,
		MemoryLimit:           uint64(cfg.MemoryLimit),
		MemoryPressurePercent: cfg.MemoryPressurePercent,
	})
	sessions := security.NewSessionStore[api.Session](cfg.SessionTTL)
	limiter := security.NewClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	sec.Register(sessions)
	sec.Register(limiter)
	sec.Start(ctx)

	// Pipeline.
	p := pipeline.New(pipeline.Deps{
		Validator: document.NewValidator(cfg),
		Parsers: parser.NewRegistry(cfg.SupportedFormats, parser.Options{
			FallbackPdftotext: cfg.PDFFallbackPdftotext,
			TempFile:          sec.WithTempFile,
		}),
		Summarizer: sum,
		Model:      cache,
		TempFiles:  sec,
		Errors:     errs,
		Recorder:   m,
		Log:        log,
	})
	orch := pipeline.NewOrchestrator(cfg, p, log)
	orch.SetQueueGauge(m)
	sec.Register(orch.Jobs())

	// Initialize HTTP server before starting workers so completed jobs
	// land in sessions.
	srv := api.NewServer(api.Deps{
		Pipeline:     p,
		Orchestrator: orch,
		Security:     sec,
		Sessions:     sessions,
		Limiter:      limiter,
		Errors:       errs,
		Metrics:      m,
		Gatherer:     reg,
		ModelStats:   modelStats,
		ModelLoaded:  cache.Loaded,
		Log:          log,
		Config:       cfg,
	})
	orch.Start(ctx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.SummarizeTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		sec.Shutdown()
		cache.Close()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracing shutdown", "error", err)
		}
	}()

	log.Info("starting lexsum", "port", cfg.Port, "backend", cfg.ModelBackend, "model", cfg.ModelName, "https", cfg.HTTPSEnabled)
	if cfg.HTTPSEnabled {
		err = httpServer.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	} else {
		err = httpServer.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
