// Package mockstore is the in-memory demo backend. It owns the seeded demo
// account, trades, activity feed and settings, and serves deterministic
// simulated market data so the dashboard is fully usable without exchange
// credentials.
package mockstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/algrsh400-debug/ser/internal/analytics"
	"github.com/algrsh400-debug/ser/internal/domain"
	"github.com/algrsh400-debug/ser/internal/ports"
)

const (
	maxLogEntries = 100

	// Simulated market close fills slightly worse than the current price.
	closeSlippage = 0.0005

	defaultHistoryPageSize = 20
	dailyProfitDays        = 7
)

// Config holds the demo store configuration.
type Config struct {
	Logger          ports.Logger
	Settings        domain.BotSettings // initial settings, usually seeded from the environment
	HistoryPageSize int                // window for the summary success rate (default 20)
	Now             func() time.Time   // injectable clock, defaults to time.Now
}

// Store holds all mutable dashboard state. Every request runs in its own
// goroutine, so all access goes through the RWMutex.
type Store struct {
	logger   ports.Logger
	now      func() time.Time
	pageSize int

	mu       sync.RWMutex
	settings domain.BotSettings
	balance  float64
	active   []domain.Trade // open demo positions
	history  []domain.Trade // closed trades, newest first
	logs     []domain.LogEntry
	markets  map[string]marketTemplate
	symbols  []string // display form, stable order
}

// New builds the store and seeds it with the demo dataset.
func New(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = ports.NopLogger{}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	pageSize := cfg.HistoryPageSize
	if pageSize <= 0 {
		pageSize = defaultHistoryPageSize
	}

	s := &Store{
		logger:   logger,
		now:      now,
		pageSize: pageSize,
		settings: cfg.Settings,
	}
	s.seed()
	return s
}

// --- Settings ---

// Settings returns the current settings with secrets unmasked. Callers that
// serve them must mask first.
func (s *Store) Settings() domain.BotSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.settings
	out.TradingPairs = append([]string(nil), s.settings.TradingPairs...)
	return out
}

// UpdateSettings merges a partial update and returns the new settings.
// Masked secret values in the update are discarded by Apply.
func (s *Store) UpdateSettings(u domain.SettingsUpdate) domain.BotSettings {
	s.mu.Lock()
	u.Apply(&s.settings)
	out := s.settings
	out.TradingPairs = append([]string(nil), s.settings.TradingPairs...)
	s.mu.Unlock()

	s.Record(domain.LogInfo, "Settings updated", updatedFields(u))
	return out
}

// SetAutoTrading flips the auto-trading flag and returns the new state.
func (s *Store) SetAutoTrading(enabled bool) bool {
	s.mu.Lock()
	s.settings.AutoTradingEnabled = enabled
	s.mu.Unlock()

	if enabled {
		s.Record(domain.LogSuccess, "Auto-trading started", "")
	} else {
		s.Record(domain.LogWarning, "Auto-trading stopped", "")
	}
	return enabled
}

// ToggleBot flips the master bot switch and returns the new state.
func (s *Store) ToggleBot() bool {
	s.mu.Lock()
	s.settings.BotActive = !s.settings.BotActive
	active := s.settings.BotActive
	s.mu.Unlock()

	if active {
		s.Record(domain.LogSuccess, "Bot activated", "")
	} else {
		s.Record(domain.LogWarning, "Bot deactivated", "")
	}
	return active
}

// updatedFields names the fields a settings update carried, for the activity
// feed.
func updatedFields(u domain.SettingsUpdate) string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(u.APIKey != nil, "apiKey")
	add(u.APISecret != nil, "apiSecret")
	add(u.Testnet != nil, "testnet")
	add(u.TradingPairs != nil, "tradingPairs")
	add(u.Leverage != nil, "leverage")
	add(u.RiskPerTrade != nil, "riskPerTrade")
	add(u.StopLossPercent != nil, "stopLossPercent")
	add(u.TakeProfitPercent != nil, "takeProfitPercent")
	add(u.AutoTradingEnabled != nil, "autoTradingEnabled")
	add(u.BotActive != nil, "botActive")
	add(u.TelegramBotToken != nil, "telegramBotToken")
	add(u.TelegramChatID != nil, "telegramChatId")
	add(u.NotifyOnTrade != nil, "notifyOnTrade")
	if len(fields) == 0 {
		return "no fields changed"
	}
	out := fields[0]
	for _, f := range fields[1:] {
		out += ", " + f
	}
	return out
}

// --- Activity log ---

// Record appends one activity entry, newest first, keeping the feed bounded.
func (s *Store) Record(level domain.LogLevel, message, details string) domain.LogEntry {
	entry := domain.LogEntry{
		ID:      uuid.NewString(),
		Time:    s.now(),
		Level:   level,
		Message: message,
		Details: details,
	}

	s.mu.Lock()
	s.logs = append([]domain.LogEntry{entry}, s.logs...)
	if len(s.logs) > maxLogEntries {
		s.logs = s.logs[:maxLogEntries]
	}
	s.mu.Unlock()
	return entry
}

// Logs returns up to limit entries, newest first, optionally filtered by
// level. limit <= 0 means all retained entries.
func (s *Store) Logs(limit int, level string) []domain.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.LogEntry, 0, len(s.logs))
	for _, e := range s.logs {
		if level != "" && e.Level != domain.LogLevel(level) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// --- Account and trades ---

// AccountState implements ports.TradingBackend. The demo account always
// reports connected=false with the no-credentials code; the HTTP layer
// overrides the code when a live attempt failed instead.
func (s *Store) AccountState(ctx context.Context) (domain.AccountState, error) {
	return s.DisconnectedAccount(domain.AccountErrNoCredentials), nil
}

// DisconnectedAccount renders the demo balances with the given error code.
// Available balance is recomputed from the open positions' margin, and mark
// prices come from the simulated market.
func (s *Store) DisconnectedAccount(code string) domain.AccountState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	state := domain.AccountState{
		Connected:    false,
		TotalBalance: domain.Round2(s.balance),
		Error:        code,
		Positions:    make([]domain.Position, 0, len(s.active)),
	}

	var margin, unrealized float64
	for _, t := range s.active {
		mark := domain.Round2(s.priceAtLocked(t.Symbol, now))
		pnl := domain.UnrealizedPnl(t.EntryPrice, mark, t.Quantity, t.Direction)
		lev := t.Leverage
		if lev <= 0 {
			lev = 1
		}
		margin += t.EntryPrice * t.Quantity / float64(lev)
		unrealized += pnl
		state.Positions = append(state.Positions, domain.Position{
			Symbol:           t.Symbol,
			Side:             t.Direction,
			EntryPrice:       t.EntryPrice,
			MarkPrice:        mark,
			Quantity:         t.Quantity,
			Leverage:         t.Leverage,
			UnrealizedProfit: pnl,
		})
	}
	state.AvailableBalance = domain.Round2(s.balance - margin)
	state.UnrealizedProfit = domain.Round2(unrealized)
	return state
}

// ActiveTrades implements ports.TradingBackend.
func (s *Store) ActiveTrades(ctx context.Context) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyTrades(s.active), nil
}

// TradeHistory implements ports.TradingBackend, newest first.
func (s *Store) TradeHistory(ctx context.Context, limit int) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.history
	if limit > 0 && limit < len(history) {
		history = history[:limit]
	}
	return copyTrades(history), nil
}

// SummaryStats implements ports.TradingBackend.
func (s *Store) SummaryStats(ctx context.Context) (domain.SummaryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	page := s.history
	if len(page) > s.pageSize {
		page = page[:s.pageSize]
	}
	return domain.SummaryStats{
		TodayProfit:  analytics.ProfitSince(s.history, now.Add(-24*time.Hour)),
		TotalBalance: domain.Round2(s.balance),
		ActiveTrades: len(s.active),
		SuccessRate:  analytics.WinRate(page),
	}, nil
}

// DetailedStats implements ports.TradingBackend.
func (s *Store) DetailedStats(ctx context.Context) (domain.DetailedStats, error) {
	summary, err := s.SummaryStats(ctx)
	if err != nil {
		return domain.DetailedStats{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.DetailedStats{
		SummaryStats: summary,
		TradeStats:   analytics.Compute(s.history),
		DailyProfit:  analytics.DailyProfit(s.history, dailyProfitDays, s.now()),
	}, nil
}

// ClosePosition implements ports.TradingBackend. The exit fills at the
// simulated current price with a small fixed slippage against the position.
func (s *Store) ClosePosition(ctx context.Context, id string) (domain.CloseResult, error) {
	s.mu.Lock()
	idx := -1
	for i := range s.active {
		if s.active[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		s.Record(domain.LogError, "Close failed: position not found", id)
		return domain.CloseResult{}, fmt.Errorf("close %q: %w", id, ports.ErrPositionNotFound)
	}

	result := s.closeLocked(idx)
	s.mu.Unlock()

	s.recordCloseResult(result)
	return result, nil
}

// CloseAllPositions implements ports.TradingBackend. Zero-quantity positions
// are skipped; every other position closes independently.
func (s *Store) CloseAllPositions(ctx context.Context) (domain.CloseAllResult, error) {
	s.mu.Lock()
	var results []domain.CloseResult
	// closeLocked shrinks s.active, so keep closing the first eligible entry.
	for i := 0; i < len(s.active); {
		if s.active[i].Quantity == 0 {
			i++
			continue
		}
		results = append(results, s.closeLocked(i))
	}
	s.mu.Unlock()

	for _, r := range results {
		s.recordCloseResult(r)
	}
	return domain.NewCloseAllResult(results), nil
}

// closeLocked closes s.active[idx]. Caller holds the write lock.
func (s *Store) closeLocked(idx int) domain.CloseResult {
	t := s.active[idx]
	now := s.now()

	price := s.priceAtLocked(t.Symbol, now)
	exit := domain.Round2(price * (1 - closeSlippage*t.Direction.Sign()))
	profit := domain.RealizedProfit(t.EntryPrice, exit, t.Quantity, t.Direction)
	pct := domain.ReturnOnMargin(t.EntryPrice, exit, t.Leverage, t.Direction)

	t.Status = domain.TradeStatusClosed
	t.ExitPrice = &exit
	t.ExitTime = &now
	t.Profit = &profit
	t.ProfitPercent = &pct
	t.TrailingStop = nil

	s.active = append(s.active[:idx], s.active[idx+1:]...)
	s.history = append([]domain.Trade{t}, s.history...)
	s.balance += profit

	return domain.CloseResult{
		TradeID: t.ID,
		Symbol:  t.Symbol,
		Success: true,
		Profit:  &profit,
		Message: "position closed (simulated fill)",
	}
}

func (s *Store) recordCloseResult(r domain.CloseResult) {
	profit := 0.0
	if r.Profit != nil {
		profit = *r.Profit
	}
	level := domain.LogSuccess
	if profit < 0 {
		level = domain.LogWarning
	}
	s.Record(level, fmt.Sprintf("Closed %s: %+.2f USDT", r.Symbol, profit), r.TradeID)
}

// Symbols returns the demo symbols in display form, stable order.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.symbols...)
}

func copyTrades(trades []domain.Trade) []domain.Trade {
	out := make([]domain.Trade, len(trades))
	copy(out, trades)
	return out
}
