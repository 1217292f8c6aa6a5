// Command fetch_klines exports a candlestick series to CSV, from the
// exchange when credentials are configured and from the simulated market
// otherwise. Handy for inspecting chart data outside the dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/algrsh400-debug/ser/config"
	"github.com/algrsh400-debug/ser/internal/adapters/binanceclient"
	"github.com/algrsh400-debug/ser/internal/adapters/logger"
	"github.com/algrsh400-debug/ser/internal/adapters/mockstore"
	"github.com/algrsh400-debug/ser/internal/domain"
	"github.com/algrsh400-debug/ser/internal/utils"
)

func main() {
	symbol := flag.String("symbol", "BTC/USDT", "symbol to export")
	interval := flag.String("interval", "1h", "kline interval")
	limit := flag.Int("limit", 200, "number of candles (max 500)")
	out := flag.String("out", "", "output file, defaults to <symbol>_<interval>.csv")
	flag.Parse()

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

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// 3. Fetch the series, live when credentials allow it
	var klines []*domain.Kline
	if cfg.BinanceAPIKey != "" {
		client, err := binanceclient.New(binanceclient.Config{
			APIKey:     cfg.BinanceAPIKey,
			SecretKey:  cfg.BinanceAPISecret,
			UseTestnet: cfg.BinanceTestnet,
			BaseURL:    cfg.BinanceBaseURL,
			RecvWindow: cfg.RecvWindow,
			Timeout:    cfg.RequestTimeout,
			RateLimit:  cfg.RateLimitRPS,
			Logger:     appLogger,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize exchange client: %v", err)
		}
		klines, err = client.Klines(ctx, domain.ToWireSymbol(*symbol), *interval, *limit)
		if err != nil {
			log.Fatalf("FATAL: Failed to fetch klines: %v", err)
		}
	} else {
		appLogger.Info(ctx, "No API credentials, exporting the simulated series")
		store := mockstore.New(mockstore.Config{Logger: appLogger})
		klines, err = store.Klines(domain.FromWireSymbol(domain.ToWireSymbol(*symbol)), *interval, *limit)
		if err != nil {
			log.Fatalf("FATAL: Failed to generate klines: %v", err)
		}
	}

	// 4. Write CSV
	path := *out
	if path == "" {
		path = fmt.Sprintf("%s_%s.csv", strings.ReplaceAll(strings.ToUpper(*symbol), "/", ""), *interval)
	}
	if err := utils.WriteKlinesFile(path, klines); err != nil {
		log.Fatalf("FATAL: Failed to write CSV: %v", err)
	}
	appLogger.Info(ctx, "Saved klines", map[string]interface{}{"file": path, "count": len(klines)})
}
