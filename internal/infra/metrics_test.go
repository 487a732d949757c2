package infra

import "testing"

func TestMetrics(t *testing.T) {
	m := &Metrics{}

	m.RecordProxyRequest()
	m.RecordProxyRequest()
	m.RecordProxyFailure()
	m.RecordFeedEvent()
	m.RecordBundleFetch()
	m.RecordBundleFailure()
	m.RecordSnapshotRefresh()
	m.SetFeedConnected(true)

	snap := m.Snapshot()
	if snap.ProxyRequests != 2 || snap.ProxyFailures != 1 {
		t.Errorf("Unexpected proxy counters: %d/%d", snap.ProxyRequests, snap.ProxyFailures)
	}
	if snap.FeedEvents != 1 || snap.BundleFetches != 1 || snap.BundleFailures != 1 {
		t.Errorf("Unexpected counters: %+v", snap)
	}
	if !snap.FeedConnected {
		t.Error("Expected feed connected gauge to be true")
	}

	m.SetFeedConnected(false)
	m.Reset()
	snap = m.Snapshot()
	if snap.ProxyRequests != 0 || snap.FeedConnected {
		t.Error("Reset should clear all counters and gauges")
	}
}
