package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/marketlens-lab/marketlens/internal/aggregation"
	"github.com/marketlens-lab/marketlens/internal/catalogsource"
	"github.com/marketlens-lab/marketlens/internal/core/catalog"
	corecfg "github.com/marketlens-lab/marketlens/internal/core/config"
	"github.com/marketlens-lab/marketlens/internal/migrations"
	"github.com/marketlens-lab/marketlens/internal/query"
	"github.com/marketlens-lab/marketlens/internal/refresh"
	"github.com/marketlens-lab/marketlens/internal/server"
)

func main() {
	configPath := flag.String("config", "marketlens.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"catalog_source", cfg.Catalog.SourceType,
		"refresh_interval", cfg.Catalog.RefreshInterval,
		"cache_capacity", cfg.Cache.Capacity,
	)

	refreshInterval, err := cfg.Catalog.EffectiveRefreshInterval()
	if err != nil {
		slog.Error("Invalid refresh interval", "value", cfg.Catalog.RefreshInterval, "error", err)
		os.Exit(1)
	}

	// 2. Initialize Catalog Source
	var source catalogsource.Source
	switch cfg.Catalog.SourceType {
	case "postgres":
		pg, err := catalogsource.NewPostgresSource(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
		)
		if err != nil {
			slog.Error("Failed to initialize postgres catalog source", "error", err)
			os.Exit(1)
		}
		defer pg.Close()

		if err := migrations.Run(pg.DB(), cfg.Database.AutoMigrate); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}
		source = pg
	default:
		source = catalogsource.NewCSVSource(cfg.Catalog.Path)
	}

	// 3. Initialize Catalog Store + Aggregation
	store := catalog.NewStore()
	engine := aggregation.NewEngine(cfg.Aggregation.WorkerCount)
	cache := aggregation.NewViewCache(cfg.Cache.Capacity)

	refresher := refresh.New(source, store, refreshInterval)

	// 4. Initialize Server + Query API
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), store, cfg.Server.Mode)
	srv.Engine.Use(server.APIKeyAuth(cfg.Server.APIKey))

	querySvc := query.NewService(store, engine, cache)
	querySvc.RegisterRoutes(srv.Engine, refresher)

	// 5. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The initial catalog load runs in the background: the API is live
	// immediately and serves catalog_unavailable until the first
	// generation is published.
	go func() {
		if err := refresher.Start(ctx); err != nil {
			slog.Error("Refresher stopped with error", "error", err)
		}
	}()

	// Signal handler → triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
