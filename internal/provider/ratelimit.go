package provider

import (
	"sync"
	"time"
)

// RPMLimiter is a token bucket sized in requests per minute.
type RPMLimiter struct {
	mu       sync.Mutex
	tokens   float64
	lastFill time.Time
	rpm      int
}

// NewRPMLimiter creates a limiter. rpm <= 0 means unlimited.
func NewRPMLimiter(rpm int) *RPMLimiter {
	return &RPMLimiter{
		tokens:   float64(rpm),
		lastFill: time.Now(),
		rpm:      rpm,
	}
}

// Allow consumes one token if available.
func (l *RPMLimiter) Allow() bool {
	if l.rpm <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Refill tokens based on elapsed time
	now := time.Now()
	elapsed := now.Sub(l.lastFill).Seconds()
	refillRate := float64(l.rpm) / 60.0 // tokens per second
	l.tokens += elapsed * refillRate
	if l.tokens > float64(l.rpm) {
		l.tokens = float64(l.rpm) // cap at max capacity
	}
	l.lastFill = now

	if l.tokens >= 1.0 {
		l.tokens--
		return true
	}
	return false
}
