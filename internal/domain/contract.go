package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Contract describes a tradable derivative instrument. Immutable once
// fetched from exchangeInfo; keyed by Name.
type Contract struct {
	Name          string   `json:"name"`
	BaseAsset     string   `json:"baseAsset"`
	QuoteAsset    string   `json:"quoteAsset"`
	MaxLeverage   string   `json:"maxLeverage"`
	DepthGrouping []string `json:"depthGrouping"` // configured order-book grouping buckets
	Tags          []string `json:"tags"`
}

// DefaultDepthGrouping is used when a contract has no configured buckets.
const DefaultDepthGrouping = "0.1"

// Grouping returns the depth grouping bucket used for topic subscription:
// the first configured bucket with whitespace stripped, or the default.
func (c *Contract) Grouping() string {
	if len(c.DepthGrouping) == 0 {
		return DefaultDepthGrouping
	}
	g := strings.TrimSpace(c.DepthGrouping[0])
	if g == "" {
		return DefaultDepthGrouping
	}
	return g
}

// MarketStatsEntry holds the per-contract 24h statistics returned by the
// market-info endpoint. Refreshed wholesale on every snapshot fetch.
type MarketStatsEntry struct {
	ContractName    string           `json:"contractName"`
	LastPrice       decimal.Decimal  `json:"lastPrice"`
	MarkPrice       decimal.Decimal  `json:"markPrice"`
	PriceChangePct  decimal.Decimal  `json:"priceChangePercent"`
	BaseVolume      decimal.Decimal  `json:"baseAssetVolume"`
	QuoteVolume     decimal.Decimal  `json:"quoteAssetVolume"`
	NextFundingRate *decimal.Decimal `json:"nextFundingRate,omitempty"`
}

// CombinedMetric joins a Contract with its stats entry and adds derived
// fields. Recomputed on every snapshot fetch, never mutated in place.
type CombinedMetric struct {
	Contract       Contract         `json:"contract"`
	LastPrice      decimal.Decimal  `json:"lastPrice"`
	MarkPrice      decimal.Decimal  `json:"markPrice"`
	PriceChangePct decimal.Decimal  `json:"priceChangePct"`
	BaseVolume     decimal.Decimal  `json:"baseVolume"`
	QuoteVolume    decimal.Decimal  `json:"quoteVolume"`
	FundingBps     *decimal.Decimal `json:"fundingBps,omitempty"`
}

var bpsFactor = decimal.NewFromInt(10000)

// FundingBps converts a funding rate into basis points (rate * 10000).
// A nil rate stays nil: the field is simply absent for that contract.
func FundingBps(rate *decimal.Decimal) *decimal.Decimal {
	if rate == nil {
		return nil
	}
	bps := rate.Mul(bpsFactor)
	return &bps
}

// MarketSummary holds pure reductions over a combined metric list.
type MarketSummary struct {
	TotalQuoteVolume decimal.Decimal  `json:"totalQuoteVolume"`
	TotalBaseVolume  decimal.Decimal  `json:"totalBaseVolume"`
	AvgFundingBps    decimal.Decimal  `json:"avgFundingBps"`
	TopMovers        []CombinedMetric `json:"topMovers"`
}
