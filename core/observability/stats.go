// Package observability carries the aggregate counters all three backends
// report into, the periodic stats log line, and the optional admin endpoint.
// The Stats handle is passed explicitly into every backend; there is no
// process-wide state.
package observability

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Stats aggregates server-wide counters. All updates are lock-free atomic
// increments so they never block the I/O path.
type Stats struct {
	startTime time.Time

	active     atomic.Int64
	maxActive  atomic.Int64
	totalConns atomic.Uint64
	requests   atomic.Uint64
	bytesSent  atomic.Uint64
}

// NewStats creates a zeroed stats handle.
func NewStats() *Stats {
	return &Stats{startTime: time.Now()}
}

// ConnOpened records an admitted connection.
func (s *Stats) ConnOpened() {
	s.totalConns.Add(1)
	n := s.active.Add(1)
	for {
		max := s.maxActive.Load()
		if n <= max || s.maxActive.CompareAndSwap(max, n) {
			return
		}
	}
}

// ConnClosed records a released connection.
func (s *Stats) ConnClosed() {
	s.active.Add(-1)
}

// RequestServed records one completed request.
func (s *Stats) RequestServed() {
	s.requests.Add(1)
}

// AddBytesSent records payload bytes written to a client.
func (s *Stats) AddBytesSent(n int64) {
	if n > 0 {
		s.bytesSent.Add(uint64(n))
	}
}

// Active returns the current active connection count.
func (s *Stats) Active() int64 {
	return s.active.Load()
}

// Snapshot is a consistent-enough point-in-time view of the counters.
type Snapshot struct {
	Active           int64         `json:"active_connections"`
	MaxActive        int64         `json:"max_active_connections"`
	TotalConnections uint64        `json:"total_connections"`
	TotalRequests    uint64        `json:"total_requests"`
	TotalBytesSent   uint64        `json:"total_bytes_sent"`
	Uptime           time.Duration `json:"uptime_ns"`
}

// Snapshot reads all counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Active:           s.active.Load(),
		MaxActive:        s.maxActive.Load(),
		TotalConnections: s.totalConns.Load(),
		TotalRequests:    s.requests.Load(),
		TotalBytesSent:   s.bytesSent.Load(),
		Uptime:           time.Since(s.startTime),
	}
}

// Report emits a stats line at the given interval until ctx is cancelled.
func (s *Stats) Report(ctx context.Context, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.Snapshot()
			log.Info().
				Int64("active", snap.Active).
				Int64("max_active", snap.MaxActive).
				Uint64("connections", snap.TotalConnections).
				Uint64("requests", snap.TotalRequests).
				Uint64("bytes_sent", snap.TotalBytesSent).
				Msg("stats")
		}
	}
}
