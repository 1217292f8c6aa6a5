package domain

import "time"

// Kline represents a single candlestick data point.
type Kline struct {
	OpenTime  time.Time `json:"openTime"`  // Start time of the interval
	CloseTime time.Time `json:"closeTime"` // End time of the interval
	Symbol    string    `json:"symbol"`    // Display symbol
	Interval  string    `json:"interval"`  // Kline interval (e.g., "1m", "1h")
	Open      float64   `json:"open"`      // Opening price
	High      float64   `json:"high"`      // Highest price
	Low       float64   `json:"low"`       // Lowest price
	Close     float64   `json:"close"`     // Closing price
	Volume    float64   `json:"volume"`    // Trading volume in base asset
}
