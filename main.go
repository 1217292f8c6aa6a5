package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/algrsh400-debug/ser/config"
	"github.com/algrsh400-debug/ser/internal/adapters/binanceclient"
	"github.com/algrsh400-debug/ser/internal/adapters/httpserver"
	"github.com/algrsh400-debug/ser/internal/adapters/logger"
	"github.com/algrsh400-debug/ser/internal/adapters/mockstore"
	"github.com/algrsh400-debug/ser/internal/adapters/pricecache"
	"github.com/algrsh400-debug/ser/internal/app"
	"github.com/algrsh400-debug/ser/internal/domain"
	"github.com/algrsh400-debug/ser/internal/observability"
	"github.com/algrsh400-debug/ser/internal/ports"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger, err := logger.New(logger.ParseLevel(cfg.LogLevel))
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()
	ctx := context.Background()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel})

	// 3. Initialize Metrics
	metrics := observability.New(nil)

	// 4. Initialize Demo Store
	// Seeded with the demo dataset; credentials from the environment also
	// land here so the settings endpoint reflects them from the start.
	store := mockstore.New(mockstore.Config{
		Logger: appLogger,
		Settings: domain.BotSettings{
			APIKey:       cfg.BinanceAPIKey,
			APISecret:    cfg.BinanceAPISecret,
			Testnet:      cfg.BinanceTestnet,
			TradingPairs: cfg.TradingPairs,
		},
		HistoryPageSize: cfg.HistoryPageSize,
	})
	appLogger.Info(ctx, "Demo store initialized")

	// 5. Initialize Quote Cache
	quotes, err := pricecache.New(cfg.QuoteCacheTTL, metrics)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize quote cache")
		log.Fatalf("FATAL: Failed to initialize quote cache: %v", err)
	}

	// 6. Initialize Live Trading Service
	svc, err := app.New(app.Config{
		Logger:   appLogger,
		Settings: store,
		Activity: store,
		Quotes:   quotes,
		NewClient: func(creds app.Credentials) (ports.FuturesClient, error) {
			return binanceclient.New(binanceclient.Config{
				APIKey:     creds.APIKey,
				SecretKey:  creds.APISecret,
				UseTestnet: creds.Testnet,
				BaseURL:    cfg.BinanceBaseURL,
				RecvWindow: cfg.RecvWindow,
				Timeout:    cfg.RequestTimeout,
				RateLimit:  cfg.RateLimitRPS,
				Logger:     appLogger,
				Metrics:    metrics,
			})
		},
		EnvCreds: app.Credentials{
			APIKey:    cfg.BinanceAPIKey,
			APISecret: cfg.BinanceAPISecret,
			Testnet:   cfg.BinanceTestnet,
		},
		PageSize: cfg.HistoryPageSize,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}
	appLogger.Info(ctx, "Trading service initialized", map[string]interface{}{
		"demoMode": !svc.HasCredentials(),
	})

	// 7. Initialize HTTP Server
	gin.SetMode(gin.ReleaseMode)
	srv, err := httpserver.New(httpserver.Config{
		Logger:     appLogger,
		Metrics:    metrics,
		Mock:       store,
		Live:       svc,
		CORSOrigin: cfg.CORSOrigin,
		StaticDir:  cfg.StaticDir,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize HTTP server")
		log.Fatalf("FATAL: Failed to initialize HTTP server: %v", err)
	}

	// 8. Serve until interrupted
	server := &http.Server{Addr: cfg.Addr(), Handler: srv.Handler()}
	go func() {
		appLogger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": cfg.Addr()})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error(ctx, err, "FATAL: HTTP server exited")
			log.Fatalf("FATAL: HTTP server exited: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutCtx); err != nil {
		appLogger.Error(ctx, err, "HTTP server shutdown failed")
	}
	appLogger.Info(ctx, "Shutdown complete")
}
