package domain

import "time"

// MarketSnapshot is the market overview payload for one symbol.
type MarketSnapshot struct {
	Symbol    string    `json:"symbol"`    // Display symbol (e.g., "BTC/USDT")
	Price     float64   `json:"price"`     // Last traded or simulated price
	Change24h float64   `json:"change24h"` // 24h price change in percent
	High24h   float64   `json:"high24h"`   // 24h high
	Low24h    float64   `json:"low24h"`    // 24h low
	Volume24h float64   `json:"volume24h"` // 24h traded volume in base asset
	Source    string    `json:"source"`    // "exchange" or "simulated"
	Timestamp time.Time `json:"timestamp"` // When the snapshot was taken
}

// Market data sources reported in MarketSnapshot.Source.
const (
	SourceExchange  = "exchange"
	SourceSimulated = "simulated"
)

// TechnicalAnalysis bundles the indicator readout for one symbol.
type TechnicalAnalysis struct {
	Symbol         string         `json:"symbol"`         // Display symbol
	Price          float64        `json:"price"`          // Price the indicators were derived from
	RSI            float64        `json:"rsi"`            // Relative strength index (0..100)
	MACD           MACD           `json:"macd"`           // MACD line, signal and histogram
	MovingAverages MovingAverages `json:"movingAverages"` // MA20/MA50/MA200 levels
	Bollinger      BollingerBands `json:"bollinger"`      // Bollinger band levels
	Support        float64        `json:"support"`        // Nearest support level
	Resistance     float64        `json:"resistance"`     // Nearest resistance level
	Trend          string         `json:"trend"`          // bullish, bearish or neutral
	Recommendation string         `json:"recommendation"` // buy, sell or hold
	Timestamp      time.Time      `json:"timestamp"`      // When the readout was produced
}

// MACD holds the moving average convergence/divergence readout.
type MACD struct {
	Value     float64 `json:"value"`     // MACD line
	Signal    float64 `json:"signal"`    // Signal line
	Histogram float64 `json:"histogram"` // Value - Signal
}

// MovingAverages holds the common moving average levels.
type MovingAverages struct {
	MA20  float64 `json:"ma20"`
	MA50  float64 `json:"ma50"`
	MA200 float64 `json:"ma200"`
}

// BollingerBands holds the Bollinger band levels.
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// AIPrediction is one model forecast for a symbol on a given timeframe.
type AIPrediction struct {
	Symbol      string    `json:"symbol"`      // Display symbol
	Timeframe   string    `json:"timeframe"`   // Forecast horizon (e.g., "1h", "4h", "1d")
	Direction   string    `json:"direction"`   // up, down or sideways
	Confidence  float64   `json:"confidence"`  // Model confidence in percent
	TargetPrice float64   `json:"targetPrice"` // Predicted price at the end of the horizon
	Reasoning   string    `json:"reasoning"`   // Short explanation shown on the card
	GeneratedAt time.Time `json:"generatedAt"` // When the forecast was produced
}

// Prediction directions.
const (
	PredictUp       = "up"
	PredictDown     = "down"
	PredictSideways = "sideways"
)

// Trend labels.
const (
	TrendBullish = "bullish"
	TrendBearish = "bearish"
	TrendNeutral = "neutral"
)

// Recommendations.
const (
	RecommendBuy  = "buy"
	RecommendSell = "sell"
	RecommendHold = "hold"
)
