package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"pi42dash/internal/domain"
	"pi42dash/internal/infra"
)

// TopMoverCount is how many contracts the summary ranks by absolute
// 24h change magnitude.
const TopMoverCount = 6

// SnapshotSource provides the two page-load fetches the aggregator joins.
type SnapshotSource interface {
	ExchangeInfo(ctx context.Context) ([]domain.Contract, error)
	MarketStats(ctx context.Context) ([]domain.MarketStatsEntry, error)
}

// Combine joins contracts with their stats entries. Contracts without a
// matching entry are dropped; the result is sorted descending by quote
// volume. The input is never mutated.
func Combine(contracts []domain.Contract, stats []domain.MarketStatsEntry) []domain.CombinedMetric {
	byName := make(map[string]domain.MarketStatsEntry, len(stats))
	for _, s := range stats {
		byName[s.ContractName] = s
	}

	combined := make([]domain.CombinedMetric, 0, len(contracts))
	for _, c := range contracts {
		s, ok := byName[c.Name]
		if !ok {
			continue
		}
		combined = append(combined, domain.CombinedMetric{
			Contract:       c,
			LastPrice:      s.LastPrice,
			MarkPrice:      s.MarkPrice,
			PriceChangePct: s.PriceChangePct,
			BaseVolume:     s.BaseVolume,
			QuoteVolume:    s.QuoteVolume,
			FundingBps:     domain.FundingBps(s.NextFundingRate),
		})
	}

	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].QuoteVolume.GreaterThan(combined[j].QuoteVolume)
	})
	return combined
}

// Summarize computes the pure reductions over a combined list: volume
// totals, mean funding in basis points (an absent rate contributes 0 to
// the numerator but still counts in the denominator), and the top movers
// by absolute change magnitude. Ties keep the volume-descending input
// order since the sort is stable.
func Summarize(combined []domain.CombinedMetric) domain.MarketSummary {
	summary := domain.MarketSummary{TopMovers: []domain.CombinedMetric{}}

	var fundingSum decimal.Decimal
	for _, m := range combined {
		summary.TotalQuoteVolume = summary.TotalQuoteVolume.Add(m.QuoteVolume)
		summary.TotalBaseVolume = summary.TotalBaseVolume.Add(m.BaseVolume)
		if m.FundingBps != nil {
			fundingSum = fundingSum.Add(*m.FundingBps)
		}
	}
	if len(combined) > 0 {
		summary.AvgFundingBps = fundingSum.Div(decimal.NewFromInt(int64(len(combined))))
	}

	movers := append([]domain.CombinedMetric(nil), combined...)
	sort.SliceStable(movers, func(i, j int) bool {
		return movers[i].PriceChangePct.Abs().GreaterThan(movers[j].PriceChangePct.Abs())
	})
	if len(movers) > TopMoverCount {
		movers = movers[:TopMoverCount]
	}
	summary.TopMovers = movers

	return summary
}

// MarketService holds the latest combined snapshot and refreshes it
// wholesale, either on demand or on a poll interval.
type MarketService struct {
	source SnapshotSource

	mu        sync.RWMutex
	contracts map[string]domain.Contract
	combined  []domain.CombinedMetric
	summary   domain.MarketSummary

	pollInterval time.Duration
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewMarketService creates the aggregator. pollIntervalSec <= 0 disables
// background polling.
func NewMarketService(source SnapshotSource, pollIntervalSec int) *MarketService {
	return &MarketService{
		source:       source,
		contracts:    make(map[string]domain.Contract),
		pollInterval: time.Duration(pollIntervalSec) * time.Second,
	}
}

// Refresh refetches metadata and stats and recomputes the combined view.
// On failure the previously displayed snapshot is left untouched.
func (s *MarketService) Refresh(ctx context.Context) error {
	var (
		contracts []domain.Contract
		stats     []domain.MarketStatsEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		contracts, err = s.source.ExchangeInfo(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.source.MarketStats(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	combined := Combine(contracts, stats)
	summary := Summarize(combined)

	s.mu.Lock()
	s.contracts = make(map[string]domain.Contract, len(contracts))
	for _, c := range contracts {
		s.contracts[c.Name] = c
	}
	s.combined = combined
	s.summary = summary
	s.mu.Unlock()

	infra.GlobalMetrics.RecordSnapshotRefresh()
	return nil
}

// Start performs the initial refresh and begins background polling.
func (s *MarketService) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if err := s.Refresh(ctx); err != nil {
		slog.Warn("Initial snapshot refresh failed", slog.Any("error", err))
		// Continue anyway - will retry on next tick
	}

	if s.pollInterval <= 0 {
		return nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Snapshot polling stopped")
				return
			case <-ticker.C:
				if err := s.Refresh(ctx); err != nil {
					slog.Warn("Snapshot refresh failed", slog.Any("error", err))
				}
			}
		}
	}()

	return nil
}

// Stop stops the polling
func (s *MarketService) Stop() {
	if s.cancel != nil {
		s.cancel()
		s.wg.Wait()
	}
}

// Combined returns the current combined metric list.
func (s *MarketService) Combined() []domain.CombinedMetric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.CombinedMetric(nil), s.combined...)
}

// Summary returns the current market summary.
func (s *MarketService) Summary() domain.MarketSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// Contracts returns all known contracts.
func (s *MarketService) Contracts() []domain.Contract {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		out = append(out, c)
	}
	return out
}

// Contract looks up a contract by name.
func (s *MarketService) Contract(name string) (domain.Contract, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[name]
	return c, ok
}
