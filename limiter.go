package shortpost

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SubmitLimiter rate-limits post submissions per IP address. Each IP gets a
// token bucket holding max submissions, refilled evenly over window.
type SubmitLimiter struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	window  time.Duration
	stop    chan struct{}
	once    sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewSubmitLimiter creates a SubmitLimiter that allows max submissions per window.
func NewSubmitLimiter(max int, window time.Duration) *SubmitLimiter {
	if max < 1 {
		max = 1
	}
	l := &SubmitLimiter{
		clients: make(map[string]*limiterEntry),
		limit:   rate.Every(window / time.Duration(max)),
		burst:   max,
		window:  window,
		stop:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// cleanup drops buckets idle for longer than a window; they are full again by then.
func (l *SubmitLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-l.window)
			l.mu.Lock()
			for ip, e := range l.clients {
				if e.lastSeen.Before(cutoff) {
					delete(l.clients, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Allow reports whether ip may submit now and consumes a token if so.
func (l *SubmitLimiter) Allow(ip string) bool {
	l.mu.Lock()
	e, ok := l.clients[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = e
	}
	e.lastSeen = time.Now()
	l.mu.Unlock()
	return e.limiter.Allow()
}

// Len returns the number of tracked IPs.
func (l *SubmitLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Stop ends the cleanup goroutine.
func (l *SubmitLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}
