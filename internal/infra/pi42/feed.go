package pi42

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pi42dash/internal/domain"
	"pi42dash/internal/event"
	"pi42dash/internal/infra"
)

// selection is one topic-switch command handled by the command loop.
type selection struct {
	Symbol   string
	Interval string
	Grouping string
}

// Feed maintains the single streaming connection for the whole dashboard.
// Topic changes are serialized through a command channel so that a rapid
// double-switch can never interleave its unsubscribe/subscribe pairs.
type Feed struct {
	url   string
	inbox chan<- event.Event

	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	topics    []string
	current   selection

	commands chan selection
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewFeed creates the feed worker. Events are pushed into inbox.
func NewFeed(url string, inbox chan<- event.Event) *Feed {
	return &Feed{
		url:      url,
		inbox:    inbox,
		commands: make(chan selection, 16),
	}
}

// Connect starts the connection and command loops. The connection lives
// until Disconnect; selection changes never tear it down.
func (f *Feed) Connect(ctx context.Context) error {
	ctx, f.cancel = context.WithCancel(ctx)
	f.wg.Add(2)
	go f.connectionLoop(ctx)
	go f.commandLoop(ctx)
	return nil
}

// SetSelection requests a topic switch. Pending switches are coalesced:
// only the most recent selection ends up subscribed. Must never block
// the caller: once the command loop has exited after Disconnect the
// request is dropped.
func (f *Feed) SetSelection(symbol, interval, grouping string) {
	select {
	case f.commands <- selection{Symbol: symbol, Interval: interval, Grouping: grouping}:
	default:
		slog.Warn("Selection switch dropped", slog.String("symbol", symbol))
	}
}

// Topics returns the currently subscribed topic set.
func (f *Feed) Topics() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.topics...)
}

// topicsFor builds the per-selection topic set.
func topicsFor(sel selection) []string {
	s := strings.ToLower(sel.Symbol)
	return []string{
		s + "@depth_" + sel.Grouping,
		s + "@aggTrade",
		s + "@ticker",
		s + "@kline_" + sel.Interval,
	}
}

func (f *Feed) commandLoop(ctx context.Context) {
	defer f.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-f.commands:
			// Coalesce: a newer switch supersedes the one in hand.
		drain:
			for {
				select {
				case next := <-f.commands:
					cmd = next
				default:
					break drain
				}
			}
			f.applySelection(cmd)
		}
	}
}

// applySelection unsubscribes the previous topic set and subscribes the
// new one. When the connection is down only the desired state is
// recorded; the connect path replays it.
func (f *Feed) applySelection(sel selection) {
	next := topicsFor(sel)

	f.mu.Lock()
	prev := f.topics
	f.topics = next
	f.current = sel
	up := f.connected
	f.mu.Unlock()

	if !up {
		return
	}
	if len(prev) > 0 {
		if err := f.sendRequest("UNSUBSCRIBE", prev); err != nil {
			slog.Warn("Unsubscribe failed", slog.Any("error", err))
		}
	}
	if err := f.sendRequest("SUBSCRIBE", next); err != nil {
		slog.Warn("Subscribe failed", slog.Any("error", err))
	}
}

func (f *Feed) sendRequest(method string, topics []string) error {
	b, _ := json.Marshal(wsRequest{Method: method, Params: topics})
	return f.threadSafeWrite(websocket.TextMessage, b)
}

func (f *Feed) connectionLoop(ctx context.Context) {
	defer f.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := f.connect(ctx); err != nil {
			slog.Warn("Feed connection failed", slog.Any("error", err))
			infra.GlobalMetrics.SetFeedConnected(false)
			time.Sleep(baseDelay)
		} else {
			f.readLoop(ctx)
			infra.GlobalMetrics.SetFeedConnected(false)
			infra.GlobalMetrics.RecordFeedReconnect()
		}
	}
}

func (f *Feed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.conn = conn
	f.connected = true
	topics := append([]string(nil), f.topics...)
	f.mu.Unlock()

	// Replay the current topic set so a reconnect restores exactly one
	// active subscription per selection.
	if len(topics) > 0 {
		if err := f.sendRequest("SUBSCRIBE", topics); err != nil {
			f.closeConnection()
			return err
		}
	}

	go f.pingLoop(ctx)
	infra.GlobalMetrics.SetFeedConnected(true)
	slog.Info("Feed connected", slog.Int("topics", len(topics)))
	return nil
}

func (f *Feed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.threadSafeWrite(websocket.PingMessage, nil)
		}
	}
}

func (f *Feed) threadSafeWrite(msgType int, data []byte) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	f.mu.RLock()
	conn := f.conn
	f.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("connection is nil")
	}
	return conn.WriteMessage(msgType, data)
}

func (f *Feed) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Copy under the lock; Disconnect may nil the field concurrently.
		f.mu.RLock()
		conn := f.conn
		f.mu.RUnlock()

		if conn == nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			f.closeConnection()
			return
		}
		f.handleMessage(msg)
	}
}

func (f *Feed) handleMessage(msg []byte) {
	var env wsEnvelope
	if err := json.Unmarshal(msg, &env); err != nil || len(env.Data) == 0 {
		return
	}

	var header wsEventHeader
	if err := json.Unmarshal(env.Data, &header); err != nil {
		return
	}

	switch event.Type(header.Event) {
	case event.TypeDepth:
		f.handleDepth(env.Data)
	case event.TypeTrade:
		f.handleTrade(env.Data)
	case event.TypeTicker:
		f.handleTicker(env.Data)
	case event.TypeKline:
		f.handleKline(env.Data)
	}
}

func (f *Feed) handleDepth(data []byte) {
	var payload wsDepthUpdate
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	ev := &event.DepthEvent{
		BaseEvent: event.BaseEvent{Symbol: payload.Symbol, EventTime: payload.EventTime},
		Depth: domain.DepthSnapshot{
			Symbol:    payload.Symbol,
			Bids:      toLevels(payload.Bids),
			Asks:      toLevels(payload.Asks),
			EventTime: payload.EventTime,
		},
		FirstUpdateID: payload.FirstUpdateID,
		FinalUpdateID: payload.FinalUpdateID,
		PrevFinalID:   payload.PrevFinalID,
	}
	f.dispatch(ev)
}

func (f *Feed) handleTrade(data []byte) {
	var payload wsAggTrade
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	ev := event.AcquireTradeEvent()
	ev.Symbol = payload.Symbol
	ev.EventTime = payload.EventTime
	ev.Trade = domain.Trade{
		ID:         payload.TradeID,
		Symbol:     payload.Symbol,
		Price:      payload.Price,
		Qty:        payload.Qty,
		Time:       payload.TradeTime,
		BuyerMaker: payload.BuyerMaker,
	}
	f.dispatch(ev)
}

func (f *Feed) handleTicker(data []byte) {
	var payload wsTicker
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	ev := &event.TickerEvent{
		BaseEvent: event.BaseEvent{Symbol: payload.Symbol, EventTime: payload.EventTime},
		Ticker: domain.Ticker{
			Symbol:         payload.Symbol,
			LastPrice:      payload.LastPrice,
			PriceChange:    payload.PriceChange,
			PriceChangePct: payload.PriceChangePct,
			High:           payload.High,
			Low:            payload.Low,
			BaseVolume:     payload.BaseVolume,
			QuoteVolume:    payload.QuoteVolume,
			EventTime:      payload.EventTime,
		},
	}
	f.dispatch(ev)
}

func (f *Feed) handleKline(data []byte) {
	var payload wsKline
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}
	ev := event.AcquireKlineEvent()
	ev.Symbol = payload.Symbol
	ev.EventTime = payload.EventTime
	ev.Interval = payload.K.Interval
	ev.Kline = domain.Kline{
		StartTime: payload.K.StartTime,
		Interval:  payload.K.Interval,
		Open:      payload.K.Open,
		High:      payload.K.High,
		Low:       payload.K.Low,
		Close:     payload.K.Close,
		Volume:    payload.K.Volume,
	}
	f.dispatch(ev)
}

// dispatch drops on a full inbox rather than blocking the read loop.
// Dropped pooled events go straight back to their pool.
func (f *Feed) dispatch(ev event.Event) {
	select {
	case f.inbox <- ev:
	default:
		switch e := ev.(type) {
		case *event.TradeEvent:
			event.ReleaseTradeEvent(e)
		case *event.KlineEvent:
			event.ReleaseKlineEvent(e)
		}
	}
}

func (f *Feed) closeConnection() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connected = false
}

// Disconnect tears the connection down for good (full disposal only).
func (f *Feed) Disconnect() {
	if f.cancel != nil {
		f.cancel()
	}
	f.closeConnection()
	f.wg.Wait()
}
