package event

import (
	"sync"

	"pi42dash/internal/domain"
)

// Pools for the two high-frequency event kinds (trades and klines arrive
// on every feed message during active markets). Depth and ticker events
// are comparatively rare and are allocated directly.
//
// Usage:
//
//	ev := AcquireTradeEvent()
//	ev.Trade = ...
//	// ... reconciler applies it ...
//	ReleaseTradeEvent(ev)
var tradePool = sync.Pool{
	New: func() interface{} {
		return &TradeEvent{}
	},
}

// AcquireTradeEvent gets a TradeEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireTradeEvent() *TradeEvent {
	return tradePool.Get().(*TradeEvent)
}

// ReleaseTradeEvent returns a TradeEvent to the pool.
func ReleaseTradeEvent(ev *TradeEvent) {
	if ev == nil {
		return
	}
	ev.Symbol = ""
	ev.EventTime = 0
	ev.Trade = domain.Trade{}

	tradePool.Put(ev)
}

var klinePool = sync.Pool{
	New: func() interface{} {
		return &KlineEvent{}
	},
}

// AcquireKlineEvent gets a KlineEvent from the pool.
func AcquireKlineEvent() *KlineEvent {
	return klinePool.Get().(*KlineEvent)
}

// ReleaseKlineEvent returns a KlineEvent to the pool.
func ReleaseKlineEvent(ev *KlineEvent) {
	if ev == nil {
		return
	}
	ev.Symbol = ""
	ev.EventTime = 0
	ev.Interval = ""
	ev.Kline = domain.Kline{}

	klinePool.Put(ev)
}
