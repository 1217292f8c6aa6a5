package ports

import (
	"context"
	"time"

	"github.com/algrsh400-debug/ser/internal/domain"
)

// AccountInfo holds the futures account totals and per-symbol settings
// returned by the exchange.
type AccountInfo struct {
	TotalWalletBalance float64           // Total wallet balance in quote asset
	AvailableBalance   float64           // Balance available for new positions
	UnrealizedProfit   float64           // Sum of unrealized P&L across positions
	Positions          []AccountPosition // Per-symbol account rows, including flat ones
}

// AccountPosition is one per-symbol row of the account payload. Rows exist
// for every symbol the account ever touched, so flat rows are common.
type AccountPosition struct {
	Symbol           string  // Exchange symbol (e.g., "BTCUSDT")
	PositionSide     string  // LONG, SHORT or BOTH (one-way mode)
	PositionAmt      float64 // Signed position size (negative for short)
	EntryPrice       float64 // Average entry price
	UnrealizedProfit float64 // Unrealized P&L as reported by the exchange
	Leverage         int     // Leverage configured for the symbol
	Isolated         bool    // Whether the position uses isolated margin
}

// PositionRisk represents the risk details for a position.
type PositionRisk struct {
	Symbol           string    // Exchange symbol
	PositionSide     string    // LONG, SHORT or BOTH (one-way mode)
	PositionAmt      float64   // Signed position size (negative for short)
	EntryPrice       float64   // Average entry price
	MarkPrice        float64   // Current mark price
	UnRealizedProfit float64   // Unrealized profit/loss
	LiquidationPrice float64   // Estimated liquidation price
	Leverage         int       // Current leverage for the position
	UpdateTime       time.Time // Last time the exchange updated the row
}

// TradeFill is one account fill from the user trade history.
type TradeFill struct {
	ID           int64     // Exchange trade id
	OrderID      int64     // Order the fill belongs to
	Symbol       string    // Exchange symbol
	Side         string    // BUY or SELL
	PositionSide string    // LONG, SHORT or BOTH
	Price        float64   // Fill price
	Quantity     float64   // Fill quantity in base asset
	QuoteQty     float64   // Fill notional in quote asset
	RealizedPnl  float64   // Realized P&L booked by this fill
	Commission   float64   // Fee charged for the fill
	Maker        bool      // Whether the fill was a maker fill
	Time         time.Time // Fill timestamp
}

// IncomeEvent is one income-history record (realized P&L, funding, fees...).
type IncomeEvent struct {
	Symbol     string    // Exchange symbol, empty for account-level income
	IncomeType string    // e.g., REALIZED_PNL, FUNDING_FEE, COMMISSION
	Income     float64   // Signed amount in Asset
	Asset      string    // Asset the amount is denominated in
	Time       time.Time // When the income was booked
	TranID     int64     // Exchange transaction id
}

// Income types used by the dashboard.
const (
	IncomeRealizedPnl = "REALIZED_PNL"
)

// Quote is the 24h ticker readout for one symbol.
type Quote struct {
	Symbol        string    // Exchange symbol
	Price         float64   // Last traded price
	ChangePercent float64   // 24h change in percent
	High24h       float64   // 24h high
	Low24h        float64   // 24h low
	Volume24h     float64   // 24h base-asset volume
	Time          time.Time // When the quote was fetched
}

// OrderRequest describes an order to be placed. Only market orders are used
// by the dashboard; PositionSide is set in hedge mode, ReduceOnly in one-way
// mode. The two are mutually exclusive on the wire.
type OrderRequest struct {
	Symbol        string           // Exchange symbol
	Side          domain.OrderSide // BUY or SELL
	PositionSide  string           // LONG or SHORT in hedge mode, empty otherwise
	Type          string           // Order type, e.g. MARKET
	Quantity      string           // Quantity as a decimal string, trailing zeros stripped
	ReduceOnly    bool             // Close-only flag for one-way mode
	ClientOrderID string           // Optional client-assigned order id
}

// Order types.
const (
	OrderTypeMarket = "MARKET"
)

// OrderResponse represents the essential details returned after placing or
// cancelling an order.
type OrderResponse struct {
	OrderID       int64     // Exchange's order id
	Symbol        string    // Symbol for the order
	ClientOrderID string    // Client-assigned order id
	Price         float64   // Order price (0 for market orders)
	AvgPrice      float64   // Average filled price
	OrigQuantity  float64   // Original quantity requested
	ExecutedQty   float64   // Quantity filled so far
	Status        string    // Order status (e.g., NEW, FILLED, CANCELED)
	Type          string    // Order type (e.g., MARKET)
	Side          string    // Order side (BUY, SELL)
	PositionSide  string    // LONG, SHORT or BOTH
	ReduceOnly    bool      // Whether the order only reduces a position
	UpdateTime    time.Time // Last update time reported by the exchange
}

// FuturesClient defines the interface for the signed USDT-margined futures
// REST API. This abstraction keeps the dashboard logic decoupled from the
// concrete HTTP client, and lets tests substitute a fake exchange.
type FuturesClient interface {
	// Ping checks connectivity to the exchange API.
	Ping(ctx context.Context) error

	// ServerTime retrieves the current exchange server time.
	ServerTime(ctx context.Context) (time.Time, error)

	// Account retrieves balances and per-symbol account rows.
	Account(ctx context.Context) (*AccountInfo, error)

	// PositionRisk retrieves risk rows for all positions, flat ones included.
	PositionRisk(ctx context.Context) ([]PositionRisk, error)

	// UserTrades retrieves the most recent fills for a symbol, up to limit.
	UserTrades(ctx context.Context, symbol string, limit int) ([]TradeFill, error)

	// Income retrieves income history of the given type since startTime.
	Income(ctx context.Context, incomeType string, startTime time.Time, limit int) ([]IncomeEvent, error)

	// Klines retrieves historical candlesticks for the given symbol.
	Klines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error)

	// Ticker24h retrieves the rolling 24h ticker for a symbol.
	Ticker24h(ctx context.Context, symbol string) (*Quote, error)

	// MarkPrice retrieves the current mark price for a symbol.
	MarkPrice(ctx context.Context, symbol string) (float64, error)

	// PositionMode reports whether the account is in hedge (dual-side) mode.
	PositionMode(ctx context.Context) (dual bool, err error)

	// PlaceOrder submits an order and returns the exchange's response.
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error)

	// CancelOrder cancels an open order by its id.
	CancelOrder(ctx context.Context, symbol string, orderID int64) (*OrderResponse, error)
}
