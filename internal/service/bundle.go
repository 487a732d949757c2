package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"pi42dash/internal/domain"
	"pi42dash/internal/infra"
)

// BundleSource provides the four per-symbol REST fetches.
type BundleSource interface {
	Ticker24h(ctx context.Context, symbol string) (domain.Ticker, error)
	Depth(ctx context.Context, symbol string) (domain.DepthSnapshot, error)
	AggTrades(ctx context.Context, symbol string, limit int) ([]domain.Trade, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Kline, error)
}

// BundleFetcher refreshes the full REST snapshot for one selection.
type BundleFetcher struct {
	source BundleSource
}

// NewBundleFetcher wraps a bundle source.
func NewBundleFetcher(source BundleSource) *BundleFetcher {
	return &BundleFetcher{source: source}
}

// Fetch runs the four sub-requests concurrently. Any single failure
// fails the whole bundle: no partial result is ever returned, so the
// caller keeps whatever state it was already showing.
func (f *BundleFetcher) Fetch(ctx context.Context, symbol, interval string) (domain.MarketBundle, error) {
	bundle := domain.MarketBundle{Symbol: symbol, Interval: interval}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bundle.Ticker, err = f.source.Ticker24h(gctx, symbol)
		return err
	})
	g.Go(func() error {
		var err error
		bundle.Depth, err = f.source.Depth(gctx, symbol)
		return err
	})
	g.Go(func() error {
		var err error
		bundle.Trades, err = f.source.AggTrades(gctx, symbol, domain.MaxBundleTrades)
		return err
	})
	g.Go(func() error {
		var err error
		bundle.Klines, err = f.source.Klines(gctx, symbol, interval, domain.MaxKlines)
		return err
	})

	if err := g.Wait(); err != nil {
		infra.GlobalMetrics.RecordBundleFailure()
		return domain.MarketBundle{}, fmt.Errorf("%w: %v", domain.ErrBundleIncomplete, err)
	}

	// The upstream may ignore the limit parameter; enforce the bound here.
	if len(bundle.Trades) > domain.MaxBundleTrades {
		bundle.Trades = bundle.Trades[len(bundle.Trades)-domain.MaxBundleTrades:]
	}
	if len(bundle.Klines) > domain.MaxKlines {
		bundle.Klines = bundle.Klines[len(bundle.Klines)-domain.MaxKlines:]
	}

	infra.GlobalMetrics.RecordBundleFetch()
	return bundle, nil
}
