package pi42

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"pi42dash/internal/domain"
)

const (
	baseDelay    = 1 * time.Second
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
)

// ---- REST payloads ----

type exchangeInfoResponse struct {
	Contracts []domain.Contract `json:"contracts"`
}

type ticker24hResponse struct {
	Symbol         string          `json:"symbol"`
	LastPrice      decimal.Decimal `json:"lastPrice"`
	PriceChange    decimal.Decimal `json:"priceChange"`
	PriceChangePct decimal.Decimal `json:"priceChangePercent"`
	HighPrice      decimal.Decimal `json:"highPrice"`
	LowPrice       decimal.Decimal `json:"lowPrice"`
	Volume         decimal.Decimal `json:"volume"`
	QuoteVolume    decimal.Decimal `json:"quoteVolume"`
	CloseTime      int64           `json:"closeTime"`
}

func (t ticker24hResponse) toDomain() domain.Ticker {
	return domain.Ticker{
		Symbol:         t.Symbol,
		LastPrice:      t.LastPrice,
		PriceChange:    t.PriceChange,
		PriceChangePct: t.PriceChangePct,
		High:           t.HighPrice,
		Low:            t.LowPrice,
		BaseVolume:     t.Volume,
		QuoteVolume:    t.QuoteVolume,
		EventTime:      t.CloseTime,
	}
}

// depthResponse levels arrive as ["price", "qty"] string pairs.
type depthResponse struct {
	Bids         [][]decimal.Decimal `json:"bids"`
	Asks         [][]decimal.Decimal `json:"asks"`
	LastUpdateID int64               `json:"lastUpdateId"`
}

func (d depthResponse) toDomain(symbol string) domain.DepthSnapshot {
	return domain.DepthSnapshot{
		Symbol: symbol,
		Bids:   toLevels(d.Bids),
		Asks:   toLevels(d.Asks),
	}
}

func toLevels(rows [][]decimal.Decimal) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		levels = append(levels, domain.PriceLevel{Price: row[0], Qty: row[1]})
	}
	return levels
}

type aggTradeRow struct {
	ID         int64           `json:"a"`
	Price      decimal.Decimal `json:"p"`
	Qty        decimal.Decimal `json:"q"`
	Time       int64           `json:"T"`
	BuyerMaker bool            `json:"m"`
}

func (t aggTradeRow) toDomain(symbol string) domain.Trade {
	return domain.Trade{
		ID:         t.ID,
		Symbol:     symbol,
		Price:      t.Price,
		Qty:        t.Qty,
		Time:       t.Time,
		BuyerMaker: t.BuyerMaker,
	}
}

type klineRow struct {
	StartTime int64           `json:"startTime"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

func (k klineRow) toDomain(interval string) domain.Kline {
	return domain.Kline{
		StartTime: k.StartTime,
		Interval:  interval,
		Open:      k.Open,
		High:      k.High,
		Low:       k.Low,
		Close:     k.Close,
		Volume:    k.Volume,
	}
}

// ---- websocket frames ----

type wsRequest struct {
	Method string   `json:"method"` // SUBSCRIBE / UNSUBSCRIBE
	Params []string `json:"params"`
}

// wsEnvelope is the combined-stream wrapper around every pushed event.
type wsEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type wsEventHeader struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
}

type wsDepthUpdate struct {
	wsEventHeader
	FirstUpdateID int64               `json:"U"`
	FinalUpdateID int64               `json:"u"`
	PrevFinalID   int64               `json:"pu"`
	Bids          [][]decimal.Decimal `json:"b"`
	Asks          [][]decimal.Decimal `json:"a"`
}

type wsAggTrade struct {
	wsEventHeader
	TradeID    int64           `json:"a"`
	Price      decimal.Decimal `json:"p"`
	Qty        decimal.Decimal `json:"q"`
	TradeTime  int64           `json:"T"`
	BuyerMaker bool            `json:"m"`
}

type wsTicker struct {
	wsEventHeader
	LastPrice      decimal.Decimal `json:"c"`
	PriceChange    decimal.Decimal `json:"p"`
	PriceChangePct decimal.Decimal `json:"P"`
	High           decimal.Decimal `json:"h"`
	Low            decimal.Decimal `json:"l"`
	BaseVolume     decimal.Decimal `json:"v"`
	QuoteVolume    decimal.Decimal `json:"q"`
}

type wsKline struct {
	wsEventHeader
	K struct {
		StartTime int64           `json:"t"`
		Interval  string          `json:"i"`
		Open      decimal.Decimal `json:"o"`
		High      decimal.Decimal `json:"h"`
		Low       decimal.Decimal `json:"l"`
		Close     decimal.Decimal `json:"c"`
		Volume    decimal.Decimal `json:"v"`
	} `json:"k"`
}
