package domain

// Position represents an open futures position as shown on the account panel.
type Position struct {
	Symbol           string    `json:"symbol"`                     // Display symbol (e.g., "BTC/USDT")
	Side             Direction `json:"side"`                       // long or short
	EntryPrice       float64   `json:"entryPrice"`                 // Average entry price
	MarkPrice        float64   `json:"markPrice"`                  // Current mark price
	Quantity         float64   `json:"quantity"`                   // Absolute position size in base asset
	Leverage         int       `json:"leverage"`                   // Leverage applied to the position
	UnrealizedProfit float64   `json:"unrealizedProfit"`           // (mark - entry) * qty * direction, rounded to 2 dp
	LiquidationPrice float64   `json:"liquidationPrice,omitempty"` // Estimated liquidation price, 0 when unknown
}

// UnrealizedPnl computes the mark-to-market profit of a position, rounded to
// 2 decimal places.
func UnrealizedPnl(entry, mark, quantity float64, dir Direction) float64 {
	return Round2((mark - entry) * quantity * dir.Sign())
}
