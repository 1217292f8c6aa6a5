package ports

import (
	"context"

	"github.com/algrsh400-debug/ser/internal/domain"
)

// TradingBackend is the read/mutate surface the HTTP layer uses for account
// and trade data. Both the live exchange service and the in-memory demo
// store implement it, so handlers stay agnostic to which one answered.
type TradingBackend interface {
	// AccountState returns balances and open positions.
	AccountState(ctx context.Context) (domain.AccountState, error)
	// ActiveTrades returns all open positions rendered as trades.
	ActiveTrades(ctx context.Context) ([]domain.Trade, error)
	// TradeHistory returns up to limit closed trades, newest first.
	TradeHistory(ctx context.Context, limit int) ([]domain.Trade, error)
	// SummaryStats returns the headline dashboard numbers.
	SummaryStats(ctx context.Context) (domain.SummaryStats, error)
	// DetailedStats returns the full statistics payload.
	DetailedStats(ctx context.Context) (domain.DetailedStats, error)
	// ClosePosition closes the position identified by id with a market order.
	// Unknown ids yield ErrPositionNotFound.
	ClosePosition(ctx context.Context, id string) (domain.CloseResult, error)
	// CloseAllPositions closes every open position independently and reports
	// per-position outcomes, partial failures included.
	CloseAllPositions(ctx context.Context) (domain.CloseAllResult, error)
}

// SettingsStore owns the single mutable copy of the bot settings.
type SettingsStore interface {
	// Settings returns the current settings with secrets unmasked.
	Settings() domain.BotSettings
	// UpdateSettings applies a partial update and returns the new settings
	// with secrets unmasked. Masked secret values in the update are ignored.
	UpdateSettings(u domain.SettingsUpdate) domain.BotSettings
}

// ActivityRecorder appends entries to the bounded dashboard activity feed.
type ActivityRecorder interface {
	// Record appends one entry and returns it with id and timestamp filled.
	Record(level domain.LogLevel, message, details string) domain.LogEntry
}
