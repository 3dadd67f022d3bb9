package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ahorro/internal/backend"
	"ahorro/internal/cache"
	"ahorro/internal/cli"
	"ahorro/internal/config"
	"ahorro/internal/core"
	apphttp "ahorro/internal/http"
	"ahorro/internal/identity"
	"ahorro/internal/log"
	"ahorro/internal/services"
	gsheet "ahorro/internal/sheets/google"
	"ahorro/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	idp := identity.NewProvider(res.Store, identity.Config{
		Secret:   cfg.JWTSecret,
		TokenTTL: cfg.TokenTTL,
	})

	caches := cache.NewManager()
	profiles := cache.NewLRUCache[core.Profile](cfg.ProfileCacheSize, cfg.ProfileCacheTTL)
	caches.Register(profiles)
	caches.StartCleanup(cfg.ProfileCacheTTL)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Accounts: services.NewAccountService(res.Store, idp),
		Finance:  services.NewFinanceService(res.Store, res.Broker),
		Friends:  services.NewFriendService(res.Store, res.Broker, profiles),
		Ranking:  services.NewRankingService(res.Store),
		Sharing:  services.NewSharingService(res.Store),
	}, idp, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(log.ComponentHTTP),
		Ping:               res.Ping,
		Caches:             caches,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ahorro server", "port", cfg.Port, "backend", cfg.DataBackend, "amqp", cfg.AMQPURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Without RabbitMQ there is no summary-worker to feed, so export in process.
	if cfg.AMQPURL == "" && cfg.GoogleSpreadsheetID != "" {
		exporter, err := gsheet.NewFromEnv(gctx)
		if err != nil {
			logger.Warn("Summary export disabled", "error", err)
		} else {
			w := worker.NewSummaryExportWorker(res.Store, exporter)
			g.Go(func() error { return w.RunSubscription(gctx, res.Broker) })
			logger.Info("In-process summary export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		}
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		_ = srv.Shutdown(context.Background())
		os.Exit(1)
	}
	<-done
	logger.Info("Server stopped gracefully")
}
