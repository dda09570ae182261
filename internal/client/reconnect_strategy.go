package client

import (
	"math"
	"time"
)

// ReconnectStrategy is the transport's retry policy for a single outage:
// exponential backoff from InitialDelay, capped at MaxDelay, for at most
// MaxRetries attempts. The lifecycle manager never consults it; it only
// observes the attempt counter the transport reports.
type ReconnectStrategy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultReconnectStrategy returns the retry budget used by the WebSocket
// transport: 1s, 2s, 4s, 8s, 16s, 30s, then give up. Six attempts keeps the
// total wait around a minute so a dead backend surfaces as failed before the
// user walks away.
func DefaultReconnectStrategy() *ReconnectStrategy {
	return &ReconnectStrategy{
		MaxRetries:    6,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
	}
}

// NextDelay returns the wait before the given zero-based attempt
func (rs *ReconnectStrategy) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(rs.InitialDelay) * math.Pow(rs.BackoffFactor, float64(attempt))
	if delay > float64(rs.MaxDelay) {
		return rs.MaxDelay
	}
	return time.Duration(delay)
}

// ShouldRetry reports whether the zero-based attempt is still in budget
func (rs *ReconnectStrategy) ShouldRetry(attempt int) bool {
	return attempt < rs.MaxRetries
}
