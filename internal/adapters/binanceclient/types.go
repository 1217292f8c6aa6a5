package binanceclient

import (
	"fmt"
	"strconv"
)

// Wire payloads as the exchange sends them. Numeric fields arrive as decimal
// strings and are parsed during translation.

type serverTimeResponse struct {
	ServerTime int64 `json:"serverTime"`
}

type accountResponse struct {
	TotalWalletBalance    string            `json:"totalWalletBalance"`
	AvailableBalance      string            `json:"availableBalance"`
	TotalUnrealizedProfit string            `json:"totalUnrealizedProfit"`
	Positions             []accountPosition `json:"positions"`
}

type accountPosition struct {
	Symbol           string `json:"symbol"`
	PositionSide     string `json:"positionSide"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	UnrealizedProfit string `json:"unrealizedProfit"`
	Leverage         string `json:"leverage"`
	Isolated         bool   `json:"isolated"`
}

type positionRiskRow struct {
	Symbol           string `json:"symbol"`
	PositionSide     string `json:"positionSide"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	MarkPrice        string `json:"markPrice"`
	UnRealizedProfit string `json:"unRealizedProfit"`
	LiquidationPrice string `json:"liquidationPrice"`
	Leverage         string `json:"leverage"`
	UpdateTime       int64  `json:"updateTime"`
}

type userTradeRow struct {
	ID           int64  `json:"id"`
	OrderID      int64  `json:"orderId"`
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	PositionSide string `json:"positionSide"`
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	QuoteQty     string `json:"quoteQty"`
	RealizedPnl  string `json:"realizedPnl"`
	Commission   string `json:"commission"`
	Maker        bool   `json:"maker"`
	Time         int64  `json:"time"`
}

type incomeRow struct {
	Symbol     string `json:"symbol"`
	IncomeType string `json:"incomeType"`
	Income     string `json:"income"`
	Asset      string `json:"asset"`
	Time       int64  `json:"time"`
	TranID     int64  `json:"tranId"`
}

type ticker24hResponse struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	Volume             string `json:"volume"`
	CloseTime          int64  `json:"closeTime"`
}

type premiumIndexResponse struct {
	Symbol    string `json:"symbol"`
	MarkPrice string `json:"markPrice"`
	Time      int64  `json:"time"`
}

type positionModeResponse struct {
	DualSidePosition bool `json:"dualSidePosition"`
}

type orderWire struct {
	OrderID       int64  `json:"orderId"`
	Symbol        string `json:"symbol"`
	ClientOrderID string `json:"clientOrderId"`
	Price         string `json:"price"`
	AvgPrice      string `json:"avgPrice"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	Status        string `json:"status"`
	Type          string `json:"type"`
	Side          string `json:"side"`
	PositionSide  string `json:"positionSide"`
	ReduceOnly    bool   `json:"reduceOnly"`
	UpdateTime    int64  `json:"updateTime"`
}

// parseDecimal parses a decimal-string wire field, reporting which field was
// malformed.
func parseDecimal(field, value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse %s %q: %w", field, value, err)
	}
	return v, nil
}

// looseDecimal parses a decimal-string wire field, defaulting to 0 on
// malformed input. Used for bulk row translation where one bad field should
// not discard the whole payload.
func looseDecimal(value string) float64 {
	v, _ := strconv.ParseFloat(value, 64)
	return v
}

// looseInt parses an integer wire field (leverage arrives as a string).
func looseInt(value string) int {
	v, _ := strconv.Atoi(value)
	return v
}
