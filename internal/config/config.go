package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// WordLimits is the word budget attached to a summary length preset.
type WordLimits struct {
	MinWords int
	MaxWords int
}

// SummaryLengths maps each length preset to its word budget.
var SummaryLengths = map[string]WordLimits{
	"brief":    {MinWords: 50, MaxWords: 100},
	"standard": {MinWords: 100, MaxWords: 200},
	"detailed": {MinWords: 200, MaxWords: 400},
}

// FocusOptions lists the accepted focus values in display order.
var FocusOptions = []string{"general", "obligations", "parties", "dates"}

const (
	DefaultLength = "standard"
	DefaultFocus  = "general"

	// Bounds for an explicit max_words request value.
	MinMaxWords = 50
	MaxMaxWords = 1000

	// MinTextLength is the shortest extracted text worth summarizing.
	MinTextLength = 50
	// MaxTextLength caps how much extracted text is fed to the model.
	MaxTextLength = 100000
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Model
	ModelName       string
	ModelBackend    string
	InferenceURL    string
	HFAPIToken      string
	AnthropicAPIKey string
	AnthropicModel  string
	MaxChunkTokens  int
	ModelRateLimit  int

	// Upload limits
	MaxFileSize      int64
	SupportedFormats []string

	// Sessions and temp files
	SessionTTL      time.Duration
	TempFileMaxAge  time.Duration
	CleanupInterval time.Duration

	// Memory pressure: heap budget in bytes (0 disables) and the share of
	// it that triggers an emergency wipe of sessions and jobs.
	MemoryLimit           int64
	MemoryPressurePercent float64

	// HTTPS toggle
	HTTPSEnabled bool
	TLSCertFile  string
	TLSKeyFile   string

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Worker pool
	WorkerCount  int
	MaxQueueSize int
	JobTTL       time.Duration

	// Retry
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration

	SummarizeTimeout time.Duration

	LogLevel string

	// PDF
	PDFFallbackPdftotext bool
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables take precedence.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("API_KEY"),

		ModelName:       envOr("MODEL_NAME", "facebook/bart-large-cnn"),
		ModelBackend:    strings.ToLower(envOr("MODEL_BACKEND", "huggingface")),
		InferenceURL:    envOr("INFERENCE_URL", "https://api-inference.huggingface.co/models"),
		HFAPIToken:      os.Getenv("HF_API_TOKEN"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		MaxChunkTokens:  envInt("MAX_CHUNK_TOKENS", 1024),
		ModelRateLimit:  envInt("MODEL_RATE_LIMIT", 5),

		MaxFileSize:      envInt64("MAX_FILE_SIZE", 10*1024*1024), // 10MB
		SupportedFormats: envList("SUPPORTED_FORMATS", []string{".pdf", ".docx", ".txt"}),

		SessionTTL:      envDuration("SESSION_TTL", 1*time.Hour),
		TempFileMaxAge:  envDuration("TEMP_FILE_MAX_AGE", 1*time.Hour),
		CleanupInterval: envDuration("CLEANUP_INTERVAL", 5*time.Minute),

		MemoryLimit:           envInt64("MEMORY_LIMIT", 1024*1024*1024), // 1GB
		MemoryPressurePercent: envFloat("MEMORY_PRESSURE_PERCENT", 80),

		HTTPSEnabled: envBool("HTTPS_ENABLED", false),
		TLSCertFile:  os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:   os.Getenv("TLS_KEY_FILE"),

		RateLimitRPS:   envFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 10),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 50),
		JobTTL:       envDuration("JOB_TTL", 1*time.Hour),

		RetryMaxAttempts: envInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   envDuration("RETRY_BASE_DELAY", 1*time.Second),

		SummarizeTimeout: envDuration("SUMMARIZE_TIMEOUT", 5*time.Minute),

		LogLevel: envOr("LOG_LEVEL", "info"),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.MaxChunkTokens <= 0 {
		cfg.MaxChunkTokens = 1024
	}
	if cfg.ModelRateLimit <= 0 {
		cfg.ModelRateLimit = 5
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	if len(cfg.SupportedFormats) == 0 {
		cfg.SupportedFormats = []string{".pdf", ".docx", ".txt"}
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 1 * time.Hour
	}
	if cfg.TempFileMaxAge <= 0 {
		cfg.TempFileMaxAge = 1 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.MemoryLimit < 0 {
		cfg.MemoryLimit = 0
	}
	if cfg.MemoryPressurePercent <= 0 || cfg.MemoryPressurePercent > 100 {
		cfg.MemoryPressurePercent = 80
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 2
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 10
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 1 * time.Second
	}
	if cfg.SummarizeTimeout <= 0 {
		cfg.SummarizeTimeout = 5 * time.Minute
	}

	return cfg
}

func (c Config) Validate() error {
	if c.MaxChunkTokens > 4096 {
		return fmt.Errorf("MAX_CHUNK_TOKENS must be between 1 and 4096, got %d", c.MaxChunkTokens)
	}
	switch c.ModelBackend {
	case "huggingface":
		if c.HFAPIToken == "" {
			return fmt.Errorf("HF_API_TOKEN is required for the huggingface backend")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic backend")
		}
	default:
		return fmt.Errorf("unknown MODEL_BACKEND %q", c.ModelBackend)
	}
	if c.HTTPSEnabled && (c.TLSCertFile == "" || c.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE are required when HTTPS_ENABLED is set")
	}
	for name, l := range SummaryLengths {
		if l.MinWords >= l.MaxWords {
			return fmt.Errorf("summary length %q: min words %d >= max words %d", name, l.MinWords, l.MaxWords)
		}
	}
	return nil
}

// WordLimitsFor returns the word budget for a length preset, falling back
// to the default preset for unknown values.
func WordLimitsFor(length string) WordLimits {
	if l, ok := SummaryLengths[length]; ok {
		return l
	}
	return SummaryLengths[DefaultLength]
}

// IsSupportedFormat reports whether ext (with leading dot) is accepted.
func (c Config) IsSupportedFormat(ext string) bool {
	for _, f := range c.SupportedFormats {
		if strings.EqualFold(f, ext) {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList parses a comma-separated list of file extensions, normalizing
// each to lower case with a leading dot.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if !strings.HasPrefix(part, ".") {
			part = "." + part
		}
		out = append(out, part)
	}
	return out
}
