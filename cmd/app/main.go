package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pi42dash/internal/app"
	"pi42dash/internal/domain"
	"pi42dash/internal/engine"
	"pi42dash/internal/infra/pi42"
	"pi42dash/internal/server"
	"pi42dash/internal/service"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize("configs/config.yaml"); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Reconciler (single-threaded live-state loop)
	reconciler := engine.NewReconciler(1024, nil)
	go reconciler.Run(ctx)
	slog.InfoContext(ctx, "Reconciler started")

	// 5. Exchange boundary: REST client + streaming feed
	client := pi42.NewClient(cfg)

	feed := pi42.NewFeed(cfg.API.Pi42.WSURL, reconciler.Inbox())
	if err := feed.Connect(ctx); err != nil {
		slog.Error("Failed to connect feed", slog.Any("error", err))
	}
	defer feed.Disconnect()

	// 6. Snapshot aggregator with background polling
	markets := service.NewMarketService(client, cfg.Dashboard.SnapshotPollSec)
	if err := markets.Start(ctx); err != nil {
		slog.Error("Failed to start market service", slog.Any("error", err))
	}
	defer markets.Stop()

	// 7. Background contract metadata/icon sync
	go bootstrap.SyncContracts(ctx, markets.Contracts())

	// 8. Default selection so the live view is populated immediately
	if sym := cfg.Dashboard.DefaultSymbol; sym != "" {
		grouping := domain.DefaultDepthGrouping
		if c, ok := markets.Contract(sym); ok {
			grouping = c.Grouping()
		}
		reconciler.SetSelection(engine.Selection{Symbol: sym, Interval: cfg.Dashboard.DefaultInterval})
		feed.SetSelection(sym, cfg.Dashboard.DefaultInterval, grouping)
	}

	// 9. HTTP surface
	bundles := service.NewBundleFetcher(client)
	srv := server.NewServer(cfg.Dashboard.Address, client, markets, bundles, reconciler, feed, bootstrap.Storage)

	slog.InfoContext(ctx, "Dashboard operational", slog.String("address", cfg.Dashboard.Address))

	if err := srv.Run(ctx); err != nil {
		slog.Error("HTTP server failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.InfoContext(ctx, "Shutting down gracefully...")
}
