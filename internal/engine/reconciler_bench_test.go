package engine

import (
	"context"
	"testing"

	"pi42dash/internal/domain"
	"pi42dash/internal/event"
)

// BenchmarkReconciler_ProcessEvent measures hotpath event processing speed.
// Trade events dominate the live feed, so the trade path is the one that
// matters.
func BenchmarkReconciler_ProcessEvent(b *testing.B) {
	r := NewReconciler(1000, nil)
	r.SetSelection(Selection{Symbol: "BTCINR", Interval: "1m"})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		ev := event.AcquireTradeEvent()
		ev.Symbol = "BTCINR"
		ev.Trade = domain.Trade{ID: int64(i), Symbol: "BTCINR"}

		// processEvent releases the event back to the pool
		r.processEvent(ev)
	}
}

// BenchmarkReconciler_FullPipeline measures end-to-end event processing.
// Note: this benchmark includes channel overhead.
func BenchmarkReconciler_FullPipeline(b *testing.B) {
	r := NewReconciler(b.N+100, nil)
	r.SetSelection(Selection{Symbol: "BTCINR", Interval: "1m"})
	inbox := r.Inbox()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go r.Run(ctx)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		ev := event.AcquireTradeEvent()
		ev.Symbol = "BTCINR"
		ev.Trade = domain.Trade{ID: int64(i), Symbol: "BTCINR"}

		inbox <- ev
	}
}
