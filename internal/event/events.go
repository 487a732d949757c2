package event

import "pi42dash/internal/domain"

// Type identifies which merge policy the reconciler applies.
type Type string

const (
	TypeDepth  Type = "depthUpdate"
	TypeTrade  Type = "aggTrade"
	TypeTicker Type = "24hrTicker"
	TypeKline  Type = "kline"
)

// Event is a single push update from the streaming feed.
type Event interface {
	GetType() Type
	GetSymbol() string
}

// BaseEvent carries the fields common to all feed events.
type BaseEvent struct {
	Symbol    string
	EventTime int64
}

func (b BaseEvent) GetSymbol() string { return b.Symbol }

// DepthEvent carries a full order-book snapshot. The U/u/pu sequencing
// fields are parsed from the wire but not used for gap detection: the
// feed delivers complete snapshots, not diffs.
type DepthEvent struct {
	BaseEvent
	Depth         domain.DepthSnapshot
	FirstUpdateID int64 // U
	FinalUpdateID int64 // u
	PrevFinalID   int64 // pu
}

func (e *DepthEvent) GetType() Type { return TypeDepth }

// TradeEvent carries one aggregated trade print.
type TradeEvent struct {
	BaseEvent
	Trade domain.Trade
}

func (e *TradeEvent) GetType() Type { return TypeTrade }

// TickerEvent carries a full 24h ticker replacement.
type TickerEvent struct {
	BaseEvent
	Ticker domain.Ticker
}

func (e *TickerEvent) GetType() Type { return TypeTicker }

// KlineEvent carries one candle upsert for an interval.
type KlineEvent struct {
	BaseEvent
	Interval string
	Kline    domain.Kline
}

func (e *KlineEvent) GetType() Type { return TypeKline }
