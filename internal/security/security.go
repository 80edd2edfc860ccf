// Package security keeps confidential document data short-lived: scoped
// temp files with overwrite-before-delete, TTL session stores, a
// background sweeper, request value screening and per-client rate limits.
package security

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Sweeper is a registry the background cleanup visits. Sweep drops
// entries stale at now; ClearAll drops everything on shutdown.
type Sweeper interface {
	Sweep(now time.Time) int
	ClearAll() int
	Len() int
}

// Options configures a Service.
type Options struct {
	// TempDir holds temp files. Empty means os.TempDir().
	TempDir         string
	TempFileMaxAge  time.Duration
	CleanupInterval time.Duration
	// MemoryLimit is the heap budget in bytes. Zero disables the
	// memory pressure check.
	MemoryLimit uint64
	// MemoryPressurePercent is the share of MemoryLimit that triggers an
	// emergency cleanup. Defaults to 80.
	MemoryPressurePercent float64
}

// Service owns the temp file registry and runs periodic cleanup over it
// and every registered Sweeper.
type Service struct {
	log          *slog.Logger
	opts         Options
	now          func() time.Time
	heapBytes    func() uint64
	freeOSMemory func()

	mu                sync.Mutex
	tempFiles         map[string]time.Time
	sweepers          []Sweeper
	lastSweep         time.Time
	running           bool
	heapSample        uint64
	memoryPressure    bool
	emergencyCleanups int
	lastEmergency     time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Service. Call Start to run the cleanup loop.
func New(log *slog.Logger, opts Options) *Service {
	if opts.TempFileMaxAge <= 0 {
		opts.TempFileMaxAge = time.Hour
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 5 * time.Minute
	}
	if opts.MemoryPressurePercent <= 0 {
		opts.MemoryPressurePercent = 80
	}
	return &Service{
		log:          log,
		opts:         opts,
		now:          time.Now,
		heapBytes:    readHeapBytes,
		freeOSMemory: debug.FreeOSMemory,
		tempFiles:    make(map[string]time.Time),
	}
}

// Register adds a registry to the periodic sweep and the shutdown wipe.
func (s *Service) Register(sw Sweeper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepers = append(s.sweepers, sw)
}

// Start launches the cleanup goroutine.
func (s *Service) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()
		ticker := time.NewTicker(s.opts.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Sweep drops expired entries from every registry, removes orphaned
// temp files and then checks memory pressure. It returns the number of
// expired entries removed.
func (s *Service) Sweep() int {
	now := s.now()

	s.mu.Lock()
	sweepers := append([]Sweeper(nil), s.sweepers...)
	s.mu.Unlock()

	removed := s.sweepOrphans(now)
	for _, sw := range sweepers {
		removed += sw.Sweep(now)
	}

	s.mu.Lock()
	s.lastSweep = now
	s.mu.Unlock()

	if removed > 0 {
		s.log.Info("cleanup sweep", "removed", removed)
	}
	s.CheckMemory()
	return removed
}

// Shutdown stops the cleanup loop and wipes all temp files and
// registered registries.
func (s *Service) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	files := s.CleanupTempFiles()

	s.mu.Lock()
	sweepers := append([]Sweeper(nil), s.sweepers...)
	s.mu.Unlock()

	entries := 0
	for _, sw := range sweepers {
		entries += sw.ClearAll()
	}
	s.log.Info("security service shut down", "temp_files", files, "entries", entries)
}

// Status is a diagnostic snapshot.
type Status struct {
	TempFilesTracked  int        `json:"temp_files_tracked"`
	ActiveEntries     int        `json:"active_entries"`
	CleanupRunning    bool       `json:"cleanup_running"`
	LastSweep         time.Time  `json:"last_sweep"`
	HeapBytes         uint64     `json:"heap_bytes"`
	MemoryPressure    bool       `json:"memory_pressure"`
	EmergencyCleanups int        `json:"emergency_cleanups"`
	LastEmergency     *time.Time `json:"last_emergency,omitempty"`
}

// Status reports tracked temp files, live registry entries, the last
// sweep time and the most recent heap sample.
func (s *Service) Status() Status {
	s.mu.Lock()
	st := Status{
		TempFilesTracked:  len(s.tempFiles),
		CleanupRunning:    s.running,
		LastSweep:         s.lastSweep,
		HeapBytes:         s.heapSample,
		MemoryPressure:    s.memoryPressure,
		EmergencyCleanups: s.emergencyCleanups,
		LastEmergency:     s.lastEmergencyTime(),
	}
	sweepers := append([]Sweeper(nil), s.sweepers...)
	s.mu.Unlock()

	for _, sw := range sweepers {
		st.ActiveEntries += sw.Len()
	}
	return st
}
