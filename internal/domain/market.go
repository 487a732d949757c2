package domain

import "github.com/shopspring/decimal"

// Ticker is the rolling 24h statistics for one symbol. Wholesale-replaced
// on every update; partial merges are never applied.
type Ticker struct {
	Symbol         string          `json:"symbol"`
	LastPrice      decimal.Decimal `json:"lastPrice"`
	PriceChange    decimal.Decimal `json:"priceChange"`
	PriceChangePct decimal.Decimal `json:"priceChangePct"`
	High           decimal.Decimal `json:"high"`
	Low            decimal.Decimal `json:"low"`
	BaseVolume     decimal.Decimal `json:"baseVolume"`
	QuoteVolume    decimal.Decimal `json:"quoteVolume"`
	EventTime      int64           `json:"eventTime"`
}

// PriceLevel is one order-book level.
type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Qty   decimal.Decimal `json:"qty"`
}

// DepthSnapshot holds the ordered bid/ask levels for one symbol. The feed
// delivers full snapshots, so the whole struct is replaced on each update.
type DepthSnapshot struct {
	Symbol    string       `json:"symbol"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	EventTime int64        `json:"eventTime"`
}

// Trade is a single execution print.
type Trade struct {
	ID         int64           `json:"id"`
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	Qty        decimal.Decimal `json:"qty"`
	Time       int64           `json:"time"`
	BuyerMaker bool            `json:"buyerMaker"` // true: aggressor was a seller
}

// Kline is one OHLC candle keyed by StartTime for a given interval.
type Kline struct {
	StartTime int64           `json:"startTime"`
	Interval  string          `json:"interval"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// Retention bounds for the live collections. All of them are ring/upsert
// buffers: growth past the bound is truncated on every update.
const (
	// MaxLiveTrades bounds the realtime trade tape. The feed path keeps
	// more history than the REST bundle on purpose; this matches the
	// upstream dashboard behaviour.
	MaxLiveTrades = 180
	// MaxBundleTrades bounds trades returned by a REST bundle fetch.
	MaxBundleTrades = 120
	// MaxKlines bounds the candle set per selection.
	MaxKlines = 400
)

// MarketBundle is the REST snapshot for one symbol and interval: the
// four sub-fetches of a bundle, applied all-or-nothing.
type MarketBundle struct {
	Symbol   string        `json:"symbol"`
	Interval string        `json:"interval"`
	Ticker   Ticker        `json:"ticker"`
	Depth    DepthSnapshot `json:"depth"`
	Trades   []Trade       `json:"trades"`
	Klines   []Kline       `json:"klines"`
}

// AppendTrade appends t and truncates to the most recent max entries,
// oldest first.
func AppendTrade(trades []Trade, t Trade, max int) []Trade {
	trades = append(trades, t)
	if len(trades) > max {
		trades = append([]Trade(nil), trades[len(trades)-max:]...)
	}
	return trades
}

// UpsertKline replaces the candle with a matching start time in place
// (keeping chart continuity for the still-open candle) or appends, then
// truncates to the most recent max entries.
func UpsertKline(klines []Kline, k Kline, max int) []Kline {
	for i := len(klines) - 1; i >= 0; i-- {
		if klines[i].StartTime == k.StartTime {
			klines[i] = k
			return klines
		}
	}
	klines = append(klines, k)
	if len(klines) > max {
		klines = append([]Kline(nil), klines[len(klines)-max:]...)
	}
	return klines
}
