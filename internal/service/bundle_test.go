package service

import (
	"context"
	"errors"
	"testing"

	"pi42dash/internal/domain"
)

type fakeBundleSource struct {
	trades    []domain.Trade
	klines    []domain.Kline
	tickerErr error
	depthErr  error
}

func (f *fakeBundleSource) Ticker24h(ctx context.Context, symbol string) (domain.Ticker, error) {
	return domain.Ticker{Symbol: symbol}, f.tickerErr
}

func (f *fakeBundleSource) Depth(ctx context.Context, symbol string) (domain.DepthSnapshot, error) {
	return domain.DepthSnapshot{Symbol: symbol}, f.depthErr
}

func (f *fakeBundleSource) AggTrades(ctx context.Context, symbol string, limit int) ([]domain.Trade, error) {
	return f.trades, nil
}

func (f *fakeBundleSource) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Kline, error) {
	return f.klines, nil
}

func TestBundleFetcher_Fetch(t *testing.T) {
	trades := make([]domain.Trade, 150)
	for i := range trades {
		trades[i] = domain.Trade{ID: int64(i)}
	}
	fetcher := NewBundleFetcher(&fakeBundleSource{
		trades: trades,
		klines: []domain.Kline{{StartTime: 100}},
	})

	bundle, err := fetcher.Fetch(context.Background(), "BTCINR", "1m")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if bundle.Symbol != "BTCINR" || bundle.Interval != "1m" {
		t.Errorf("Bundle should carry its selection, got %s/%s", bundle.Symbol, bundle.Interval)
	}
	if len(bundle.Trades) != domain.MaxBundleTrades {
		t.Fatalf("Expected trades capped at %d, got %d", domain.MaxBundleTrades, len(bundle.Trades))
	}
	if bundle.Trades[0].ID != 30 {
		t.Errorf("Cap should keep the most recent trades, got oldest ID %d", bundle.Trades[0].ID)
	}
}

func TestBundleFetcher_AllOrNothing(t *testing.T) {
	fetcher := NewBundleFetcher(&fakeBundleSource{
		trades:   []domain.Trade{{ID: 1}},
		depthErr: errors.New("timeout"),
	})

	bundle, err := fetcher.Fetch(context.Background(), "BTCINR", "1m")
	if !errors.Is(err, domain.ErrBundleIncomplete) {
		t.Fatalf("Expected ErrBundleIncomplete, got %v", err)
	}
	if len(bundle.Trades) != 0 || bundle.Depth.Symbol != "" {
		t.Error("A failed bundle must not return partial data")
	}
}
