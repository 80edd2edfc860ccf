package errhandler

import (
	"log/slog"
	"maps"
	"sync"
	"time"
)

// Observer receives error and retry events, e.g. to export metrics.
type Observer interface {
	ObserveError(cat Category)
	ObserveRetry(op string)
}

// Handler logs and counts failures and owns the retry policy.
type Handler struct {
	log      *slog.Logger
	policy   Policy
	observer Observer

	mu          sync.Mutex
	counts      map[Category]int
	retryCounts map[string]int
}

// NewHandler returns a Handler using policy for Retry calls.
func NewHandler(log *slog.Logger, policy Policy) *Handler {
	return &Handler{
		log:         log,
		policy:      policy.normalized(),
		counts:      make(map[Category]int),
		retryCounts: make(map[string]int),
	}
}

// SetObserver attaches an observer. It must be called before the handler
// is shared between goroutines.
func (h *Handler) SetObserver(o Observer) {
	h.observer = o
}

// Policy returns the handler's default retry policy.
func (h *Handler) Policy() Policy {
	return h.policy
}

// Handle records err and returns the message to show the user. attrs are
// extra log attributes (e.g. "filename", name).
func (h *Handler) Handle(err error, attrs ...any) UserMessage {
	cat := Classify(err)
	h.record(cat)

	args := append([]any{"category", string(cat), "error", err}, attrs...)
	switch cat {
	case CategorySystem, CategoryModel, CategoryTimeout:
		h.log.Error("request failed", args...)
	case CategoryExtraction, CategoryValidation:
		h.log.Warn("request failed", args...)
	default:
		h.log.Info("request failed", args...)
	}

	return MessageFor(err)
}

func (h *Handler) record(cat Category) {
	h.mu.Lock()
	h.counts[cat]++
	h.mu.Unlock()
	if h.observer != nil {
		h.observer.ObserveError(cat)
	}
}

func (h *Handler) noteRetry(op string) int {
	h.mu.Lock()
	h.retryCounts[op]++
	n := h.retryCounts[op]
	h.mu.Unlock()
	if h.observer != nil {
		h.observer.ObserveRetry(op)
	}
	return n
}

// ResetRetryCount forgets the retry count of op.
func (h *Handler) ResetRetryCount(op string) {
	h.mu.Lock()
	delete(h.retryCounts, op)
	h.mu.Unlock()
}

// RetryCount returns the current retry count of op.
func (h *Handler) RetryCount(op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.retryCounts[op]
}

// Stats is a diagnostic snapshot of error counts.
type Stats struct {
	Counts      map[Category]int `json:"counts"`
	RetryCounts map[string]int   `json:"retry_counts"`
	Total       int              `json:"total"`
	Timestamp   time.Time        `json:"timestamp"`
}

// Stats returns per-category counts and the current retry counts.
func (h *Handler) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	counts := make(map[Category]int, len(Categories))
	total := 0
	for _, c := range Categories {
		counts[c] = h.counts[c]
		total += h.counts[c]
	}
	return Stats{
		Counts:      counts,
		RetryCounts: maps.Clone(h.retryCounts),
		Total:       total,
		Timestamp:   time.Now(),
	}
}

// PruneRetryCounts clears the retry table once it grows past limit.
func (h *Handler) PruneRetryCounts(limit int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.retryCounts) > limit {
		clear(h.retryCounts)
		h.log.Info("cleared stale retry counts", "limit", limit)
	}
}
