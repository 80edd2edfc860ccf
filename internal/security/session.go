package security

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewSessionID returns a random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

type sessionEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// SessionStore holds per-session values in memory with a fixed TTL.
// Expired entries are never returned and are dropped on read or sweep.
type SessionStore[V any] struct {
	mu      sync.Mutex
	entries map[string]sessionEntry[V]
	ttl     time.Duration
	now     func() time.Time
}

// NewSessionStore returns a store whose entries live for ttl after each Put.
func NewSessionStore[V any](ttl time.Duration) *SessionStore[V] {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionStore[V]{
		entries: make(map[string]sessionEntry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores v under id, replacing any previous value and resetting its TTL.
func (s *SessionStore[V]) Put(id string, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = sessionEntry[V]{value: v, expiresAt: s.now().Add(s.ttl)}
}

// Get returns the value for id if present and not expired.
func (s *SessionStore[V]) Get(id string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		var zero V
		return zero, false
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, id)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Clear removes id and reports whether it existed.
func (s *SessionStore[V]) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	return ok
}

// ClearAll removes every session.
func (s *SessionStore[V]) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	clear(s.entries)
	return n
}

// Sweep removes sessions expired at now.
func (s *SessionStore[V]) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions, expired or not.
func (s *SessionStore[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
