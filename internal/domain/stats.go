package domain

// SummaryStats is the headline stats strip at the top of the dashboard.
type SummaryStats struct {
	TodayProfit  float64 `json:"todayProfit"`  // Realized P&L over the last 24 hours
	TotalBalance float64 `json:"totalBalance"` // Current total balance
	ActiveTrades int     `json:"activeTrades"` // Number of open positions
	SuccessRate  float64 `json:"successRate"`  // Win rate over the most recent history page, in percent
}

// TradeStats is the aggregate performance readout over a set of closed trades.
type TradeStats struct {
	TotalTrades  int     `json:"totalTrades"`  // Trades considered, open and closed
	ClosedTrades int     `json:"closedTrades"` // Closed trades the ratios are computed from
	Wins         int     `json:"wins"`         // Closed trades with profit > 0
	Losses       int     `json:"losses"`       // Closed trades with profit < 0
	WinRate      float64 `json:"winRate"`      // wins / closed * 100, 0 when nothing closed
	AvgProfit    float64 `json:"avgProfit"`    // Mean profit of winning trades
	AvgLoss      float64 `json:"avgLoss"`      // Mean absolute loss of losing trades
	BestTrade    float64 `json:"bestTrade"`    // Highest single-trade profit seen, never below 0
	WorstTrade   float64 `json:"worstTrade"`   // Lowest single-trade profit seen, never above 0
	TotalProfit  float64 `json:"totalProfit"`  // Sum of all closed-trade profits
	TotalVolume  int64   `json:"totalVolume"`  // Sum of entry notionals, truncated to a whole number
}

// DetailedStats is the full statistics payload: headline numbers, aggregate
// trade performance and a per-day profit series for the chart.
type DetailedStats struct {
	SummaryStats
	TradeStats
	DailyProfit []DailyProfit `json:"dailyProfit"` // Oldest day first
}

// DailyProfit is one bar of the daily P&L chart.
type DailyProfit struct {
	Date   string  `json:"date"`   // Calendar day in YYYY-MM-DD (UTC)
	Profit float64 `json:"profit"` // Realized profit of that day
	Trades int     `json:"trades"` // Closed trades that day
}
