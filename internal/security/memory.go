package security

import (
	"runtime/metrics"
	"time"
)

const heapObjectsMetric = "/memory/classes/heap/objects:bytes"

// readHeapBytes reports bytes held by live and not-yet-swept heap objects.
func readHeapBytes() uint64 {
	sample := []metrics.Sample{{Name: heapObjectsMetric}}
	metrics.Read(sample)
	if sample[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return sample[0].Value.Uint64()
}

// memoryThreshold is the heap size above which the service runs an
// emergency cleanup. Zero disables the check.
func (o Options) memoryThreshold() uint64 {
	if o.MemoryLimit == 0 || o.MemoryPressurePercent <= 0 {
		return 0
	}
	return uint64(float64(o.MemoryLimit) * o.MemoryPressurePercent / 100)
}

// CheckMemory samples heap usage and, above the pressure threshold, wipes
// every registered registry and returns freed pages to the OS. It reports
// whether a cleanup ran.
func (s *Service) CheckMemory() bool {
	heap := s.heapBytes()
	threshold := s.opts.memoryThreshold()
	pressure := threshold > 0 && heap > threshold

	s.mu.Lock()
	s.heapSample = heap
	s.memoryPressure = pressure
	sweepers := append([]Sweeper(nil), s.sweepers...)
	s.mu.Unlock()

	if !pressure {
		return false
	}

	s.log.Warn("memory pressure detected",
		"heap_bytes", heap,
		"threshold_bytes", threshold,
	)
	cleared := 0
	for _, sw := range sweepers {
		cleared += sw.ClearAll()
	}
	s.freeOSMemory()

	s.mu.Lock()
	s.emergencyCleanups++
	s.lastEmergency = s.now()
	s.mu.Unlock()

	s.log.Warn("emergency cleanup", "entries", cleared)
	return true
}

// lastEmergencyTime returns nil until a cleanup has run. Callers hold s.mu.
func (s *Service) lastEmergencyTime() *time.Time {
	if s.lastEmergency.IsZero() {
		return nil
	}
	t := s.lastEmergency
	return &t
}
