package pipeline

import (
	"sync"
	"time"
)

// Stats summarizes documents processed since start or the last reset.
type Stats struct {
	DocumentsProcessed    int        `json:"documents_processed"`
	ErrorsEncountered     int        `json:"errors_encountered"`
	TotalProcessingTime   float64    `json:"total_processing_time"`
	AverageProcessingTime float64    `json:"average_processing_time"`
	LastProcessed         *time.Time `json:"last_processed,omitempty"`
}

type statsTracker struct {
	mu sync.Mutex
	s  Stats
}

func (t *statsTracker) success(d time.Duration, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.DocumentsProcessed++
	t.s.TotalProcessingTime += d.Seconds()
	t.s.AverageProcessingTime = t.s.TotalProcessingTime / float64(t.s.DocumentsProcessed)
	t.s.LastProcessed = &at
}

func (t *statsTracker) failure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.ErrorsEncountered++
}

func (t *statsTracker) snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.s
	if s.LastProcessed != nil {
		at := *s.LastProcessed
		s.LastProcessed = &at
	}
	return s
}

func (t *statsTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s = Stats{}
}
