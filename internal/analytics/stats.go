package analytics

import (
	"math"
	"time"

	"github.com/algrsh400-debug/ser/internal/domain"
)

// Compute derives aggregate performance numbers from a set of trades.
// Only closed trades participate in the ratios; a closed trade without a
// recorded profit counts as break-even. The result is identical whether the
// trades came from the exchange adapter or the demo store.
func Compute(trades []domain.Trade) domain.TradeStats {
	stats := domain.TradeStats{TotalTrades: len(trades)}

	var volume float64
	for _, trade := range trades {
		if !trade.IsClosed() {
			continue
		}
		stats.ClosedTrades++
		volume += trade.EntryPrice * trade.Quantity

		profit := 0.0
		if trade.Profit != nil {
			profit = *trade.Profit
		}
		stats.TotalProfit += profit

		switch {
		case profit > 0:
			stats.Wins++
			stats.AvgProfit = (stats.AvgProfit*float64(stats.Wins-1) + profit) / float64(stats.Wins)
		case profit < 0:
			stats.Losses++
			stats.AvgLoss = (stats.AvgLoss*float64(stats.Losses-1) - profit) / float64(stats.Losses)
		}

		// Extremes start at zero, so a streak of losses keeps BestTrade at 0
		// and a streak of wins keeps WorstTrade at 0.
		if profit > stats.BestTrade {
			stats.BestTrade = profit
		}
		if profit < stats.WorstTrade {
			stats.WorstTrade = profit
		}
	}

	if stats.ClosedTrades > 0 {
		stats.WinRate = domain.Round2(float64(stats.Wins) / float64(stats.ClosedTrades) * 100)
	}
	stats.AvgProfit = domain.Round2(stats.AvgProfit)
	stats.AvgLoss = domain.Round2(stats.AvgLoss)
	stats.TotalProfit = domain.Round2(stats.TotalProfit)
	stats.TotalVolume = int64(math.Trunc(volume))
	return stats
}

// WinRate returns just the win-rate percentage over the given trades.
func WinRate(trades []domain.Trade) float64 {
	return Compute(trades).WinRate
}

// ProfitSince sums realized profit of trades closed at or after cutoff.
func ProfitSince(trades []domain.Trade, cutoff time.Time) float64 {
	var total float64
	for _, trade := range trades {
		if !trade.IsClosed() || trade.Profit == nil || trade.ExitTime == nil {
			continue
		}
		if trade.ExitTime.Before(cutoff) {
			continue
		}
		total += *trade.Profit
	}
	return domain.Round2(total)
}

// DailyProfit buckets closed-trade profits into calendar days (UTC) and
// returns a continuous series of the last days entries, oldest first.
// Days without trades appear with zero profit so charts stay gap-free.
func DailyProfit(trades []domain.Trade, days int, now time.Time) []domain.DailyProfit {
	if days <= 0 {
		return []domain.DailyProfit{}
	}

	profits := make(map[string]float64)
	counts := make(map[string]int)
	for _, trade := range trades {
		if !trade.IsClosed() || trade.ExitTime == nil {
			continue
		}
		day := trade.ExitTime.UTC().Format("2006-01-02")
		if trade.Profit != nil {
			profits[day] += *trade.Profit
		}
		counts[day]++
	}

	series := make([]domain.DailyProfit, 0, days)
	start := now.UTC().AddDate(0, 0, -(days - 1))
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		series = append(series, domain.DailyProfit{
			Date:   day,
			Profit: domain.Round2(profits[day]),
			Trades: counts[day],
		})
	}
	return series
}
