package auth

import (
	"sync"
	"time"
)

type attempts struct {
	count   int
	resetAt time.Time
}

// Limiter counts failed logins per client and blocks a client that reaches
// the limit within the window.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]attempts
	max     int
	window  time.Duration
	block   time.Duration
	now     func() time.Time
}

// NewLimiter allows max failures per window; the max-th failure blocks the
// client for block.
func NewLimiter(max int, window, block time.Duration) *Limiter {
	return &Limiter{
		clients: make(map[string]attempts),
		max:     max,
		window:  window,
		block:   block,
		now:     time.Now,
	}
}

// Allow reports whether client may try again, and if not, for how long it
// must wait.
func (l *Limiter) Allow(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.clients[client]
	now := l.now()
	if !ok || now.After(a.resetAt) {
		return true, 0
	}
	if a.count >= l.max {
		return false, a.resetAt.Sub(now)
	}
	return true, 0
}

// Fail records a failed attempt.
func (l *Limiter) Fail(client string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	a, ok := l.clients[client]
	if !ok || now.After(a.resetAt) {
		a = attempts{resetAt: now.Add(l.window)}
	}
	a.count++
	if a.count == l.max {
		a.resetAt = now.Add(l.block)
	}
	l.clients[client] = a
	return a.count
}

// Reset forgets client, typically after a successful login.
func (l *Limiter) Reset(client string) {
	l.mu.Lock()
	delete(l.clients, client)
	l.mu.Unlock()
}

// Cleanup drops clients whose window has passed.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for client, a := range l.clients {
		if now.After(a.resetAt) {
			delete(l.clients, client)
			removed++
		}
	}
	return removed
}
