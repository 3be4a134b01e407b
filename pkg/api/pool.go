package api

import (
	"context"
	"sync/atomic"
)

// Limiter bounds concurrent request handling. Short requests (reads and
// submissions) and long-lived streams (SSE and WebSocket) have separate
// limits so that watchers cannot starve the players.
type Limiter struct {
	requestSem     chan struct{}
	streamSem      chan struct{}
	queuedRequests int64
	activeRequests int64
	activeStreams  int64
	totalRequests  int64
	totalStreams   int64
	rejected       int64
}

// LimiterConfig configures the limiter.
type LimiterConfig struct {
	MaxRequests int // Max concurrent short requests (default: 100)
	MaxStreams  int // Max concurrent streams (default: 32)
}

// DefaultLimiterConfig returns a LimiterConfig with sensible defaults.
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{
		MaxRequests: 100,
		MaxStreams:  32,
	}
}

// NewLimiter creates a limiter with the given configuration.
func NewLimiter(config LimiterConfig) *Limiter {
	def := DefaultLimiterConfig()
	if config.MaxRequests <= 0 {
		config.MaxRequests = def.MaxRequests
	}
	if config.MaxStreams <= 0 {
		config.MaxStreams = def.MaxStreams
	}

	return &Limiter{
		requestSem: make(chan struct{}, config.MaxRequests),
		streamSem:  make(chan struct{}, config.MaxStreams),
	}
}

// AcquireRequest waits for a request slot.
// Returns an error if the context is cancelled while waiting.
func (l *Limiter) AcquireRequest(ctx context.Context) error {
	atomic.AddInt64(&l.queuedRequests, 1)
	defer atomic.AddInt64(&l.queuedRequests, -1)

	select {
	case l.requestSem <- struct{}{}:
		atomic.AddInt64(&l.activeRequests, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReleaseRequest releases a request slot.
func (l *Limiter) ReleaseRequest() {
	atomic.AddInt64(&l.activeRequests, -1)
	atomic.AddInt64(&l.totalRequests, 1)
	<-l.requestSem
}

// TryAcquireStream takes a stream slot without blocking. Streams are never
// queued: a client that cannot be served is told so at once.
func (l *Limiter) TryAcquireStream() bool {
	select {
	case l.streamSem <- struct{}{}:
		atomic.AddInt64(&l.activeStreams, 1)
		return true
	default:
		atomic.AddInt64(&l.rejected, 1)
		return false
	}
}

// ReleaseStream releases a stream slot.
func (l *Limiter) ReleaseStream() {
	atomic.AddInt64(&l.activeStreams, -1)
	atomic.AddInt64(&l.totalStreams, 1)
	<-l.streamSem
}

// LimiterStats is a point-in-time view of the limiter.
type LimiterStats struct {
	ActiveRequests int64 `json:"active_requests"`
	QueuedRequests int64 `json:"queued_requests"`
	ActiveStreams  int64 `json:"active_streams"`
	TotalRequests  int64 `json:"total_requests"`
	TotalStreams   int64 `json:"total_streams"`
	RejectedStream int64 `json:"rejected_streams"`
	MaxRequests    int   `json:"max_requests"`
	MaxStreams     int   `json:"max_streams"`
}

// Stats returns current limiter statistics.
func (l *Limiter) Stats() LimiterStats {
	return LimiterStats{
		ActiveRequests: atomic.LoadInt64(&l.activeRequests),
		QueuedRequests: atomic.LoadInt64(&l.queuedRequests),
		ActiveStreams:  atomic.LoadInt64(&l.activeStreams),
		TotalRequests:  atomic.LoadInt64(&l.totalRequests),
		TotalStreams:   atomic.LoadInt64(&l.totalStreams),
		RejectedStream: atomic.LoadInt64(&l.rejected),
		MaxRequests:    cap(l.requestSem),
		MaxStreams:     cap(l.streamSem),
	}
}
