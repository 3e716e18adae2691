package types

import (
	"sync/atomic"
	"time"
)

// Framing modes for the gateway.
const (
	FramingLine  = "line"
	FramingChunk = "chunk"
)

// Metrics holds process-wide counters. All fields are updated atomically
// from connection goroutines and read by the stats loop and web monitor.
type Metrics struct {
	ActiveConnections atomic.Int64
	TotalConnections  atomic.Uint64

	Requests      atomic.Uint64
	Found         atomic.Uint64
	NotFound      atomic.Uint64
	Ignored       atomic.Uint64 // parsed, but no handler for the method
	ParseFailures atomic.Uint64

	Uplink   atomic.Uint64 // bytes written to clients
	Downlink atomic.Uint64 // bytes read from clients
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Timestamp         time.Time `json:"timestamp"`
	ActiveConnections int64     `json:"activeConnections"`
	TotalConnections  uint64    `json:"totalConnections"`
	Requests          uint64    `json:"requests"`
	Found             uint64    `json:"found"`
	NotFound          uint64    `json:"notFound"`
	Ignored           uint64    `json:"ignored"`
	ParseFailures     uint64    `json:"parseFailures"`
	Uplink            uint64    `json:"uplink"`
	Downlink          uint64    `json:"downlink"`
}

// Snapshot reads every counter once. The result is not a consistent cut
// across counters, which is fine for monitoring.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Timestamp:         time.Now(),
		ActiveConnections: m.ActiveConnections.Load(),
		TotalConnections:  m.TotalConnections.Load(),
		Requests:          m.Requests.Load(),
		Found:             m.Found.Load(),
		NotFound:          m.NotFound.Load(),
		Ignored:           m.Ignored.Load(),
		ParseFailures:     m.ParseFailures.Load(),
		Uplink:            m.Uplink.Load(),
		Downlink:          m.Downlink.Load(),
	}
}
