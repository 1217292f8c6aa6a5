package domain

import (
	"math"
	"time"
)

// Trade represents a single trade shown on the dashboard, either an open
// position or a closed entry from trade history.
type Trade struct {
	ID            string      `json:"id"`                      // Identifier ("SYMBOL:SIDE" for live positions, opaque for demo trades)
	Symbol        string      `json:"symbol"`                  // Display symbol (e.g., "BTC/USDT")
	Direction     Direction   `json:"direction"`               // long or short
	Status        TradeStatus `json:"status"`                  // active, closed, pending or cancelled
	EntryPrice    float64     `json:"entryPrice"`              // Price at which the position was entered
	ExitPrice     *float64    `json:"exitPrice,omitempty"`     // Price at which the position was exited (closed trades only)
	Quantity      float64     `json:"quantity"`                // Absolute position size in base asset
	Leverage      int         `json:"leverage"`                // Leverage used for the position
	StopLoss      float64     `json:"stopLoss,omitempty"`      // Stop-loss price level
	TakeProfit    float64     `json:"takeProfit,omitempty"`    // Take-profit price level
	Profit        *float64    `json:"profit,omitempty"`        // Realized profit in quote asset (closed trades only)
	ProfitPercent *float64    `json:"profitPercent,omitempty"` // Realized return on margin, in percent
	EntryTime     time.Time   `json:"entryTime"`               // Timestamp when the position was entered
	ExitTime      *time.Time  `json:"exitTime,omitempty"`      // Timestamp when the position was exited (closed trades only)
	EntrySignals  []string    `json:"entrySignals,omitempty"`  // Signals that triggered the entry, newest first
	OrderID       string      `json:"orderId,omitempty"`       // Exchange order id associated with the entry or exit
	TrailingStop  *Trailing   `json:"trailingStop,omitempty"`  // Trailing stop state, if armed
}

// Trailing holds the trailing-stop state attached to an open trade.
type Trailing struct {
	Active    bool    `json:"active"`    // Whether the trailing stop is armed
	Distance  float64 `json:"distance"`  // Distance from the best price, in price units
	StopPrice float64 `json:"stopPrice"` // Current trailing stop level
}

// IsClosed reports whether the trade has been fully exited.
func (t *Trade) IsClosed() bool {
	return t.Status == TradeStatusClosed
}

// RealizedProfit returns the quote-asset profit of a position entered at entry
// and exited at exit, rounded to 2 decimal places.
func RealizedProfit(entry, exit, quantity float64, dir Direction) float64 {
	return Round2((exit - entry) * quantity * dir.Sign())
}

// ReturnOnMargin returns the leveraged percentage return of a closed position,
// rounded to 2 decimal places. A zero entry price yields 0.
func ReturnOnMargin(entry, exit float64, leverage int, dir Direction) float64 {
	if entry == 0 {
		return 0
	}
	if leverage <= 0 {
		leverage = 1
	}
	return Round2((exit - entry) / entry * dir.Sign() * float64(leverage) * 100)
}

// Round2 rounds v to 2 decimal places, the precision used for every monetary
// value the dashboard serves.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CloseResult describes the outcome of one close attempt against a position.
type CloseResult struct {
	TradeID string   `json:"tradeId"`           // Identifier the close was requested for
	Symbol  string   `json:"symbol"`            // Display symbol of the position
	Success bool     `json:"success"`           // Whether the position is no longer open
	OrderID int64    `json:"orderId,omitempty"` // Exchange order id of the close order, when one was placed
	Profit  *float64 `json:"profit,omitempty"`  // Realized profit, when known at close time
	Message string   `json:"message,omitempty"` // Human-readable detail (e.g., "position has no open quantity")
}

// CloseAllResult aggregates the per-position outcomes of a close-all request.
type CloseAllResult struct {
	Results []CloseResult `json:"results"` // One entry per position that a close was attempted for
	Closed  int           `json:"closed"`  // Number of positions closed successfully
	Failed  int           `json:"failed"`  // Number of positions whose close failed
}

// NewCloseAllResult tallies results into a CloseAllResult.
func NewCloseAllResult(results []CloseResult) CloseAllResult {
	out := CloseAllResult{Results: results}
	if out.Results == nil {
		out.Results = []CloseResult{}
	}
	for _, r := range results {
		if r.Success {
			out.Closed++
		} else {
			out.Failed++
		}
	}
	return out
}
