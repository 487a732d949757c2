package engine

import (
	"context"
	"log/slog"
	"sync"

	"pi42dash/internal/domain"
	"pi42dash/internal/event"
	"pi42dash/internal/infra"
)

// Selection is the symbol/interval pair the dashboard is currently showing.
type Selection struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
}

// MarketView is the live state for the current selection. All collections
// are bounded; see the domain retention constants.
type MarketView struct {
	Selection Selection             `json:"selection"`
	Ticker    *domain.Ticker        `json:"ticker,omitempty"`
	Depth     *domain.DepthSnapshot `json:"depth,omitempty"`
	Trades    []domain.Trade        `json:"trades"`
	Klines    []domain.Kline        `json:"klines"`
}

// Reconciler is the single-threaded event processor for the live feed.
// Feed workers push events into the inbox; Run applies one of the four
// merge policies per event type. External readers take a copy via View.
type Reconciler struct {
	inbox chan event.Event

	mu   sync.RWMutex
	view MarketView

	// Boundary: used to notify SSE/UI listeners of state changes
	onUpdate func(MarketView)
}

// NewReconciler creates a reconciler with the given inbox capacity.
func NewReconciler(inboxSize int, onUpdate func(MarketView)) *Reconciler {
	return &Reconciler{
		inbox:    make(chan event.Event, inboxSize),
		onUpdate: onUpdate,
	}
}

// Inbox returns the event channel. The feed worker sends events here.
func (r *Reconciler) Inbox() chan<- event.Event {
	return r.inbox
}

// Run starts the main event loop. This MUST be run in a single goroutine.
func (r *Reconciler) Run(ctx context.Context) {
	slog.Info("Reconciler started")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Reconciler stopping...")
			return
		case ev := <-r.inbox:
			r.processEvent(ev)
		}
	}
}

func (r *Reconciler) processEvent(ev event.Event) {
	r.mu.Lock()

	// Stale guard: events for a previously selected symbol may still be
	// in flight after a switch. They are applied nowhere.
	if ev.GetSymbol() != r.view.Selection.Symbol {
		r.mu.Unlock()
		release(ev)
		return
	}

	switch e := ev.(type) {
	case *event.DepthEvent:
		r.view = applyDepth(r.view, e)
	case *event.TradeEvent:
		r.view = applyTrade(r.view, e)
	case *event.TickerEvent:
		r.view = applyTicker(r.view, e)
	case *event.KlineEvent:
		r.view = applyKline(r.view, e)
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
		r.mu.Unlock()
		return
	}
	infra.GlobalMetrics.RecordFeedEvent()

	snapshot := r.view
	r.mu.Unlock()

	release(ev)

	if r.onUpdate != nil {
		r.onUpdate(snapshot)
	}
}

func release(ev event.Event) {
	switch e := ev.(type) {
	case *event.TradeEvent:
		event.ReleaseTradeEvent(e)
	case *event.KlineEvent:
		event.ReleaseKlineEvent(e)
	}
}

// The reducers are pure: they take the current view plus one event and
// return the next view, so the merge policies are testable in isolation.

// applyDepth replaces the whole depth state. The feed delivers full
// snapshots; the U/u/pu fields on the event are not consulted.
func applyDepth(v MarketView, e *event.DepthEvent) MarketView {
	depth := e.Depth
	v.Depth = &depth
	return v
}

// applyTrade appends to the bounded trade tape, newest last.
func applyTrade(v MarketView, e *event.TradeEvent) MarketView {
	v.Trades = domain.AppendTrade(v.Trades, e.Trade, domain.MaxLiveTrades)
	return v
}

// applyTicker replaces the whole 24h ticker.
func applyTicker(v MarketView, e *event.TickerEvent) MarketView {
	ticker := e.Ticker
	v.Ticker = &ticker
	return v
}

// applyKline upserts by candle start time. An interval mismatch means the
// event belongs to a stale subscription and is dropped.
func applyKline(v MarketView, e *event.KlineEvent) MarketView {
	if e.Interval != v.Selection.Interval {
		return v
	}
	v.Klines = domain.UpsertKline(v.Klines, e.Kline, domain.MaxKlines)
	return v
}

// SetSelection switches the live view to a new symbol/interval and clears
// all state accumulated for the previous one.
func (r *Reconciler) SetSelection(sel Selection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.view.Selection == sel {
		return
	}
	r.view = MarketView{Selection: sel}
}

// SeedBundle applies a REST bundle wholesale. A bundle fetched for a
// selection that has since changed is silently discarded: the fetch is
// never cancelled on the wire, only its result is dropped.
func (r *Reconciler) SeedBundle(b domain.MarketBundle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.Symbol != r.view.Selection.Symbol || b.Interval != r.view.Selection.Interval {
		return false
	}

	ticker := b.Ticker
	depth := b.Depth
	r.view.Ticker = &ticker
	r.view.Depth = &depth
	r.view.Trades = append([]domain.Trade(nil), b.Trades...)
	r.view.Klines = append([]domain.Kline(nil), b.Klines...)
	if len(r.view.Trades) > domain.MaxBundleTrades {
		r.view.Trades = r.view.Trades[len(r.view.Trades)-domain.MaxBundleTrades:]
	}
	return true
}

// View returns a copy of the live state (external read).
func (r *Reconciler) View() MarketView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v := r.view
	v.Trades = append([]domain.Trade(nil), r.view.Trades...)
	v.Klines = append([]domain.Kline(nil), r.view.Klines...)
	return v
}
