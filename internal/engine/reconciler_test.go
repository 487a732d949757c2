package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pi42dash/internal/domain"
	"pi42dash/internal/event"
)

func newTestReconciler(sel Selection) *Reconciler {
	r := NewReconciler(16, nil)
	r.SetSelection(sel)
	return r
}

func TestReconciler_TradeRingBuffer(t *testing.T) {
	r := newTestReconciler(Selection{Symbol: "BTCINR", Interval: "1m"})

	for i := 0; i < 200; i++ {
		r.processEvent(&event.TradeEvent{
			BaseEvent: event.BaseEvent{Symbol: "BTCINR"},
			Trade:     domain.Trade{ID: int64(i), Symbol: "BTCINR"},
		})
	}

	view := r.View()
	if len(view.Trades) != domain.MaxLiveTrades {
		t.Fatalf("Expected %d trades, got %d", domain.MaxLiveTrades, len(view.Trades))
	}
	if view.Trades[0].ID != 20 || view.Trades[len(view.Trades)-1].ID != 199 {
		t.Errorf("Expected oldest-first window [20..199], got [%d..%d]",
			view.Trades[0].ID, view.Trades[len(view.Trades)-1].ID)
	}
}

func TestReconciler_KlineUpsert(t *testing.T) {
	r := newTestReconciler(Selection{Symbol: "BTCINR", Interval: "1m"})

	r.processEvent(&event.KlineEvent{
		BaseEvent: event.BaseEvent{Symbol: "BTCINR"},
		Interval:  "1m",
		Kline:     domain.Kline{StartTime: 100, Close: decimal.NewFromInt(10)},
	})
	r.processEvent(&event.KlineEvent{
		BaseEvent: event.BaseEvent{Symbol: "BTCINR"},
		Interval:  "1m",
		Kline:     domain.Kline{StartTime: 100, Close: decimal.NewFromInt(12)},
	})

	view := r.View()
	if len(view.Klines) != 1 {
		t.Fatalf("Expected exactly one kline for startTime=100, got %d", len(view.Klines))
	}
	if !view.Klines[0].Close.Equal(decimal.NewFromInt(12)) {
		t.Errorf("Expected latest close 12, got %v", view.Klines[0].Close)
	}
}

func TestReconciler_KlineIntervalMismatchDropped(t *testing.T) {
	r := newTestReconciler(Selection{Symbol: "BTCINR", Interval: "1m"})

	r.processEvent(&event.KlineEvent{
		BaseEvent: event.BaseEvent{Symbol: "BTCINR"},
		Interval:  "5m", // stale subscription
		Kline:     domain.Kline{StartTime: 100},
	})

	if got := len(r.View().Klines); got != 0 {
		t.Errorf("Kline for another interval should be dropped, got %d entries", got)
	}
}

func TestReconciler_DepthAndTickerReplace(t *testing.T) {
	r := newTestReconciler(Selection{Symbol: "BTCINR", Interval: "1m"})

	r.processEvent(&event.DepthEvent{
		BaseEvent: event.BaseEvent{Symbol: "BTCINR"},
		Depth: domain.DepthSnapshot{
			Symbol: "BTCINR",
			Bids:   []domain.PriceLevel{{Price: decimal.NewFromInt(99)}, {Price: decimal.NewFromInt(98)}},
		},
	})
	r.processEvent(&event.DepthEvent{
		BaseEvent: event.BaseEvent{Symbol: "BTCINR"},
		Depth: domain.DepthSnapshot{
			Symbol: "BTCINR",
			Bids:   []domain.PriceLevel{{Price: decimal.NewFromInt(100)}},
		},
	})

	view := r.View()
	if view.Depth == nil || len(view.Depth.Bids) != 1 {
		t.Fatal("Depth should be wholesale-replaced, not merged")
	}
	if !view.Depth.Bids[0].Price.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected bid 100, got %v", view.Depth.Bids[0].Price)
	}

	r.processEvent(&event.TickerEvent{
		BaseEvent: event.BaseEvent{Symbol: "BTCINR"},
		Ticker:    domain.Ticker{Symbol: "BTCINR", LastPrice: decimal.NewFromInt(5)},
	})
	r.processEvent(&event.TickerEvent{
		BaseEvent: event.BaseEvent{Symbol: "BTCINR"},
		Ticker:    domain.Ticker{Symbol: "BTCINR", LastPrice: decimal.NewFromInt(6)},
	})

	view = r.View()
	if view.Ticker == nil || !view.Ticker.LastPrice.Equal(decimal.NewFromInt(6)) {
		t.Error("Ticker should be wholesale-replaced with the latest update")
	}
}

func TestReconciler_StaleSymbolDropped(t *testing.T) {
	r := newTestReconciler(Selection{Symbol: "ETHINR", Interval: "1m"})

	// In-flight event for the previously selected symbol.
	r.processEvent(&event.TradeEvent{
		BaseEvent: event.BaseEvent{Symbol: "BTCINR"},
		Trade:     domain.Trade{ID: 1, Symbol: "BTCINR"},
	})

	if got := len(r.View().Trades); got != 0 {
		t.Errorf("Trade for a deselected symbol should be dropped, got %d", got)
	}
}

func TestReconciler_SelectionChangeClearsState(t *testing.T) {
	r := newTestReconciler(Selection{Symbol: "BTCINR", Interval: "1m"})
	r.processEvent(&event.TradeEvent{
		BaseEvent: event.BaseEvent{Symbol: "BTCINR"},
		Trade:     domain.Trade{ID: 1},
	})

	r.SetSelection(Selection{Symbol: "ETHINR", Interval: "1m"})

	view := r.View()
	if len(view.Trades) != 0 || view.Ticker != nil || view.Depth != nil {
		t.Error("Selection change should clear all accumulated state")
	}
}

func TestReconciler_SeedBundle(t *testing.T) {
	t.Run("Matching Selection Applies", func(t *testing.T) {
		r := newTestReconciler(Selection{Symbol: "BTCINR", Interval: "1m"})

		trades := make([]domain.Trade, 150)
		for i := range trades {
			trades[i] = domain.Trade{ID: int64(i)}
		}
		ok := r.SeedBundle(domain.MarketBundle{
			Symbol:   "BTCINR",
			Interval: "1m",
			Trades:   trades,
			Klines:   []domain.Kline{{StartTime: 100}},
		})
		if !ok {
			t.Fatal("Bundle for the current selection should apply")
		}

		view := r.View()
		if len(view.Trades) != domain.MaxBundleTrades {
			t.Errorf("Expected %d bundle trades, got %d", domain.MaxBundleTrades, len(view.Trades))
		}
		if view.Trades[0].ID != 30 {
			t.Errorf("Expected most recent 120 trades (oldest ID 30), got %d", view.Trades[0].ID)
		}
	})

	t.Run("Stale Bundle Silently Discarded", func(t *testing.T) {
		r := newTestReconciler(Selection{Symbol: "ETHINR", Interval: "1m"})

		// Fetch completed after the user moved on.
		ok := r.SeedBundle(domain.MarketBundle{Symbol: "BTCINR", Interval: "1m"})
		if ok {
			t.Error("Bundle for a deselected symbol should be discarded")
		}
		if r.View().Ticker != nil {
			t.Error("Stale bundle must not touch the live state")
		}
	})
}

func TestReconciler_RunLoop(t *testing.T) {
	r := NewReconciler(16, nil)
	r.SetSelection(Selection{Symbol: "BTCINR", Interval: "1m"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go r.Run(ctx)

	r.Inbox() <- &event.TickerEvent{
		BaseEvent: event.BaseEvent{Symbol: "BTCINR"},
		Ticker:    domain.Ticker{Symbol: "BTCINR", LastPrice: decimal.NewFromInt(42)},
	}

	// Wait for processing
	time.Sleep(100 * time.Millisecond)

	view := r.View()
	if view.Ticker == nil || !view.Ticker.LastPrice.Equal(decimal.NewFromInt(42)) {
		t.Fatal("Event sent through the inbox should be applied")
	}
}
