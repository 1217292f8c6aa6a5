package domain

import "strings"

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Opposite returns the side that closes a position opened with s.
func (s OrderSide) Opposite() OrderSide {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Direction represents the direction of a position (long or short).
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// Sign returns +1 for long positions and -1 for short positions.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// CloseSide returns the order side that reduces a position in this direction.
func (d Direction) CloseSide() OrderSide {
	if d == Short {
		return Buy
	}
	return Sell
}

// PositionSide returns the hedge-mode position side label (LONG or SHORT).
func (d Direction) PositionSide() string {
	return strings.ToUpper(string(d))
}

// DirectionFromPositionSide maps an exchange position side label to a direction.
// The one-way mode label "BOTH" yields a direction based on the signed quantity.
func DirectionFromPositionSide(positionSide string, signedQty float64) Direction {
	switch strings.ToUpper(positionSide) {
	case "LONG":
		return Long
	case "SHORT":
		return Short
	default:
		if signedQty < 0 {
			return Short
		}
		return Long
	}
}

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	TradeStatusActive    TradeStatus = "active"
	TradeStatusClosed    TradeStatus = "closed"
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusCancelled TradeStatus = "cancelled"
)

// LogLevel classifies activity log entries shown on the dashboard.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogSuccess LogLevel = "success"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

// ValidLogLevel reports whether s is a known activity log level.
func ValidLogLevel(s string) bool {
	switch LogLevel(strings.ToLower(s)) {
	case LogInfo, LogSuccess, LogWarning, LogError:
		return true
	}
	return false
}
