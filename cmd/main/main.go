package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-gateway/src/cache"
	"market-gateway/src/config"
	datasource "market-gateway/src/data_source"
	"market-gateway/src/data_source/binance"
	"market-gateway/src/fetcher"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/network"
	"market-gateway/src/ratelimit"
	"market-gateway/src/server"
	"market-gateway/src/storage"
	"market-gateway/src/subscription"
	"market-gateway/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// 1. Catalog storage
	var catalog interfaces.ICatalogStore

	switch cfg.Storage.DBType {
	case "postgres":
		catalog, err = storage.NewPostgresCatalog(cfg.MConfig, appLogger)
	default:
		// Default to SQLite
		catalog, err = storage.NewSQLiteCatalog(cfg.MConfig, appLogger)
	}
	if err != nil {
		appLogger.Critical("Failed to init catalog store: %v", err)
	}
	if err := catalog.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate catalog store: %v", err)
	}

	// 2. Providers
	netMgr := network.NewNetworkManager(cfg.MConfig, appLogger)
	registry := datasource.NewRegistry(appLogger)

	for _, src := range cfg.Sources {
		switch src.Type {
		case "binance":
			provider := binance.NewBinanceSource(src, netMgr, appLogger)
			if err := registry.Register(provider); err != nil {
				appLogger.Critical("Failed to register source %s: %v", src.Name, err)
			}
		default:
			appLogger.Warning("Skipping source %s: unsupported type %q", src.Name, src.Type)
		}
	}
	if len(registry.Names()) == 0 {
		appLogger.Critical("No usable data sources configured")
	}

	// 3. Request path: fetcher, caches, admission control
	ftch := fetcher.NewFetcher(registry, cfg.Retry, appLogger)

	quoteCache := cache.NewResultCache(cfg.Cache.TickerSize,
		time.Duration(cfg.Cache.TickerTTLSeconds)*time.Second)
	histCache := cache.NewResultCache(cfg.Cache.HistoricalSize,
		time.Duration(cfg.Cache.HistoricalTTLSeconds)*time.Second)

	limiter := ratelimit.NewClientLimiter(cfg.RateLimit.PerMinute,
		time.Duration(cfg.RateLimit.IdleTTLSeconds)*time.Second, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter.StartJanitor(ctx, time.Minute)

	// 4. Subscription manager
	subs := subscription.NewManager(ftch,
		time.Duration(cfg.PollIntervalSeconds)*time.Second, appLogger)
	subs.SetSessionGate(utils.NewMarketHours(cfg.Sources, appLogger))

	// 5. Gateway surface
	srv := server.NewGatewayServer(cfg.MConfig, appLogger, ftch, quoteCache, histCache, limiter, subs, catalog)

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	appLogger.Info("Gateway started with sources: %v", registry.Names())

	// 6. Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()
	srv.Stop()
	subs.Stop()
	if err := catalog.Close(); err != nil {
		appLogger.Error("Failed to close catalog store: %v", err)
	}
}
