package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pi42dash/internal/domain"
	"pi42dash/internal/infra"
	"pi42dash/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Storage    *storage.Storage
	Downloader *infra.IconDownloader
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logging, DB)
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("Bootstrapping Pi42 dashboard...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage()
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("Database initialized")

	// 4. Initialize Icon Downloader
	downloader, err := infra.NewIconDownloader()
	if err != nil {
		return err
	}
	b.Downloader = downloader
	slog.Info("Icon downloader ready")

	return nil
}

// SyncContracts persists contract metadata and fetches missing base-asset
// icons in the background after the first snapshot refresh.
func (b *Bootstrap) SyncContracts(ctx context.Context, contracts []domain.Contract) {
	slog.Info("Starting contract synchronization...", slog.Int("contracts", len(contracts)))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent downloads

	for _, contract := range contracts {
		wg.Add(1)
		go func(c domain.Contract) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			info := &domain.ContractInfo{
				Symbol:     c.Name,
				BaseAsset:  c.BaseAsset,
				QuoteAsset: c.QuoteAsset,
				IsActive:   true,
				UpdatedAt:  time.Now(),
			}

			// Check if exists to preserve IsFavorite
			if existing, _ := b.Storage.GetContract(c.Name); existing != nil {
				info.IsFavorite = existing.IsFavorite
				info.IconPath = existing.IconPath
				info.LastSyncedAt = existing.LastSyncedAt
			}

			if err := b.Storage.UpsertContract(info); err != nil {
				slog.Error("Failed to upsert contract", slog.String("symbol", c.Name), slog.Any("error", err))
			}

			// Download Icon (if missing)
			path, err := b.Downloader.DownloadIcon(c.BaseAsset)
			if err != nil {
				slog.Warn("Failed to download icon", slog.String("asset", c.BaseAsset), slog.Any("error", err))
			} else if path != "" {
				info.IconPath = path
				info.LastSyncedAt = time.Now()
				b.Storage.UpsertContract(info)
			}
		}(contract)
	}

	wg.Wait()
	slog.Info("Contract synchronization completed")
}
