// Package risk derives the protective price levels the dashboard renders on
// open positions.
package risk

import "github.com/algrsh400-debug/ser/internal/domain"

// Defaults applied when the stored settings carry no explicit distances.
const (
	DefaultStopLossPct   = 2.0
	DefaultTakeProfitPct = 2.0
)

// Brackets is a stop-loss/take-profit pair around an entry price.
type Brackets struct {
	StopLoss   float64
	TakeProfit float64
}

// BracketsFor places the protective levels around entry for the given
// direction. Distances are in percent of the entry price; zero or negative
// distances fall back to the defaults. No orders are derived from these
// levels, they are display values.
func BracketsFor(entry float64, dir domain.Direction, stopLossPct, takeProfitPct float64) Brackets {
	if stopLossPct <= 0 {
		stopLossPct = DefaultStopLossPct
	}
	if takeProfitPct <= 0 {
		takeProfitPct = DefaultTakeProfitPct
	}
	return Brackets{
		StopLoss:   entry * (1 - stopLossPct/100*dir.Sign()),
		TakeProfit: entry * (1 + takeProfitPct/100*dir.Sign()),
	}
}
