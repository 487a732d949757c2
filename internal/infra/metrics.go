package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	proxyRequests     atomic.Uint64
	proxyFailures     atomic.Uint64
	feedEvents        atomic.Uint64
	feedReconnects    atomic.Uint64
	bundleFetches     atomic.Uint64
	bundleFailures    atomic.Uint64
	snapshotRefreshes atomic.Uint64

	// Gauges
	feedConnected atomic.Int32 // 1 = connected, 0 = down
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordProxyRequest records a forwarded proxy request.
func (m *Metrics) RecordProxyRequest() {
	m.proxyRequests.Add(1)
}

// RecordProxyFailure records a proxy transport failure.
func (m *Metrics) RecordProxyFailure() {
	m.proxyFailures.Add(1)
}

// RecordFeedEvent records one applied realtime update.
func (m *Metrics) RecordFeedEvent() {
	m.feedEvents.Add(1)
}

// RecordFeedReconnect records a websocket reconnect.
func (m *Metrics) RecordFeedReconnect() {
	m.feedReconnects.Add(1)
}

// RecordBundleFetch records a completed market bundle fetch.
func (m *Metrics) RecordBundleFetch() {
	m.bundleFetches.Add(1)
}

// RecordBundleFailure records a failed market bundle fetch.
func (m *Metrics) RecordBundleFailure() {
	m.bundleFailures.Add(1)
}

// RecordSnapshotRefresh records a wholesale snapshot refresh.
func (m *Metrics) RecordSnapshotRefresh() {
	m.snapshotRefreshes.Add(1)
}

// SetFeedConnected sets the feed connection gauge.
func (m *Metrics) SetFeedConnected(connected bool) {
	if connected {
		m.feedConnected.Store(1)
	} else {
		m.feedConnected.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	ProxyRequests     uint64    `json:"proxy_requests"`
	ProxyFailures     uint64    `json:"proxy_failures"`
	FeedEvents        uint64    `json:"feed_events"`
	FeedReconnects    uint64    `json:"feed_reconnects"`
	BundleFetches     uint64    `json:"bundle_fetches"`
	BundleFailures    uint64    `json:"bundle_failures"`
	SnapshotRefreshes uint64    `json:"snapshot_refreshes"`
	FeedConnected     bool      `json:"feed_connected"`
	Timestamp         time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		ProxyRequests:     m.proxyRequests.Load(),
		ProxyFailures:     m.proxyFailures.Load(),
		FeedEvents:        m.feedEvents.Load(),
		FeedReconnects:    m.feedReconnects.Load(),
		BundleFetches:     m.bundleFetches.Load(),
		BundleFailures:    m.bundleFailures.Load(),
		SnapshotRefreshes: m.snapshotRefreshes.Load(),
		FeedConnected:     m.feedConnected.Load() == 1,
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.proxyRequests.Store(0)
	m.proxyFailures.Store(0)
	m.feedEvents.Store(0)
	m.feedReconnects.Store(0)
	m.bundleFetches.Store(0)
	m.bundleFailures.Store(0)
	m.snapshotRefreshes.Store(0)
	m.feedConnected.Store(0)
}
