package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleClientTTL is how long an unused client limiter is kept.
const idleClientTTL = 10 * time.Minute

type clientLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter is a token bucket per client key.
type ClientLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     rate.Limit
	burst   int
	now     func() time.Time
}

// NewClientLimiter allows rps sustained requests per client with bursts
// of burst.
func NewClientLimiter(rps float64, burst int) *ClientLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ClientLimiter{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow reports whether key may make a request now.
func (l *ClientLimiter) Allow(key string) bool {
	l.mu.Lock()
	c, ok := l.clients[key]
	now := l.now()
	if !ok {
		c = &clientLimiter{lim: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	l.mu.Unlock()
	return c.lim.AllowN(now, 1)
}

// Sweep forgets clients idle since before now minus idleClientTTL.
func (l *ClientLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, c := range l.clients {
		if now.Sub(c.lastSeen) > idleClientTTL {
			delete(l.clients, k)
			n++
		}
	}
	return n
}

// ClearAll forgets every client.
func (l *ClientLimiter) ClearAll() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.clients)
	clear(l.clients)
	return n
}

// Len returns the number of tracked clients.
func (l *ClientLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
