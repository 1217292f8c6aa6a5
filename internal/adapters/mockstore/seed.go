package mockstore

import (
	"time"

	"github.com/algrsh400-debug/ser/internal/domain"
	"github.com/algrsh400-debug/ser/internal/risk"
)

const seedBalance = 12450.75

// seed populates the store with the demo dataset: four markets, three open
// positions, a week of closed trades and a short activity feed. Entry and
// exit timestamps are relative to the injected clock so the dashboard always
// looks current.
func (s *Store) seed() {
	now := s.now()

	s.markets = make(map[string]marketTemplate)
	for _, tpl := range []marketTemplate{
		{symbol: "BTC/USDT", basePrice: 64250.50, baseChange: 2.35, baseVolume: 185000},
		{symbol: "ETH/USDT", basePrice: 3150.25, baseChange: -1.12, baseVolume: 920000},
		{symbol: "SOL/USDT", basePrice: 144.80, baseChange: 4.72, baseVolume: 2400000},
		{symbol: "BNB/USDT", basePrice: 580.40, baseChange: 0.58, baseVolume: 310000},
	} {
		tpl.phase = symbolPhase(tpl.symbol)
		s.markets[tpl.symbol] = tpl
		s.symbols = append(s.symbols, tpl.symbol)
	}

	if len(s.settings.TradingPairs) == 0 {
		s.settings.TradingPairs = append([]string(nil), s.symbols...)
	}
	if s.settings.Leverage <= 0 {
		s.settings.Leverage = 10
	}

	s.balance = seedBalance
	s.active = []domain.Trade{
		openTrade("demo-1", "BTC/USDT", domain.Long, 63800.00, 0.05, 10, now.Add(-6*time.Hour),
			"RSI rebound from oversold", "Breakout above MA20"),
		openTrade("demo-2", "ETH/USDT", domain.Short, 3240.00, 0.8, 5, now.Add(-3*time.Hour),
			"MACD bearish cross"),
		openTrade("demo-3", "SOL/USDT", domain.Long, 138.40, 12, 8, now.Add(-80*time.Minute),
			"Volume spike", "Support bounce"),
	}

	// Closed history, newest first. Profits are derived from the entry/exit
	// pair so the numbers always reconcile.
	s.history = []domain.Trade{
		closedTrade("demo-h1", "BTC/USDT", domain.Long, 61200.00, 62850.00, 0.04, 10, now.Add(-9*time.Hour), now.Add(-5*time.Hour)),
		closedTrade("demo-h2", "ETH/USDT", domain.Short, 3310.00, 3185.00, 0.6, 5, now.Add(-22*time.Hour), now.Add(-16*time.Hour)),
		closedTrade("demo-h3", "SOL/USDT", domain.Long, 149.60, 143.20, 10, 8, now.Add(-30*time.Hour), now.Add(-26*time.Hour)),
		closedTrade("demo-h4", "BNB/USDT", domain.Long, 565.00, 577.90, 1.5, 6, now.AddDate(0, 0, -2).Add(-3*time.Hour), now.AddDate(0, 0, -2)),
		closedTrade("demo-h5", "BTC/USDT", domain.Short, 65900.00, 66480.00, 0.03, 10, now.AddDate(0, 0, -3).Add(-6*time.Hour), now.AddDate(0, 0, -3)),
		closedTrade("demo-h6", "ETH/USDT", domain.Long, 3050.00, 3148.00, 1.2, 5, now.AddDate(0, 0, -4).Add(-2*time.Hour), now.AddDate(0, 0, -4)),
	}

	s.logs = []domain.LogEntry{}
	s.Record(domain.LogInfo, "Dashboard started in demo mode", "simulated account and market data")
	s.Record(domain.LogSuccess, "Opened SOL/USDT long @ 138.40", "demo-3")
	s.Record(domain.LogInfo, "Watching "+joinSymbols(s.symbols), "")
}

func openTrade(id, symbol string, dir domain.Direction, entry, qty float64, leverage int, entryTime time.Time, signals ...string) domain.Trade {
	brackets := risk.BracketsFor(entry, dir, 0, 0)
	return domain.Trade{
		ID:           id,
		Symbol:       symbol,
		Direction:    dir,
		Status:       domain.TradeStatusActive,
		EntryPrice:   entry,
		Quantity:     qty,
		Leverage:     leverage,
		StopLoss:     domain.Round2(brackets.StopLoss),
		TakeProfit:   domain.Round2(brackets.TakeProfit),
		EntryTime:    entryTime,
		EntrySignals: signals,
	}
}

func closedTrade(id, symbol string, dir domain.Direction, entry, exit, qty float64, leverage int, entryTime, exitTime time.Time) domain.Trade {
	profit := domain.RealizedProfit(entry, exit, qty, dir)
	pct := domain.ReturnOnMargin(entry, exit, leverage, dir)
	return domain.Trade{
		ID:            id,
		Symbol:        symbol,
		Direction:     dir,
		Status:        domain.TradeStatusClosed,
		EntryPrice:    entry,
		ExitPrice:     &exit,
		Quantity:      qty,
		Leverage:      leverage,
		Profit:        &profit,
		ProfitPercent: &pct,
		EntryTime:     entryTime,
		ExitTime:      &exitTime,
	}
}

func joinSymbols(symbols []string) string {
	if len(symbols) == 0 {
		return ""
	}
	out := symbols[0]
	for _, s := range symbols[1:] {
		out += ", " + s
	}
	return out
}
