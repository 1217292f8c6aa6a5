// Package utils holds small shared helpers without domain logic of their own.
package utils

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/algrsh400-debug/ser/internal/domain"
)

var klineHeader = []string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"}

// WriteKlines writes the candles as CSV, one row per candle under a header
// line. Timestamps are RFC 3339 in UTC and prices keep full precision, so
// the file round-trips losslessly.
func WriteKlines(w io.Writer, klines []*domain.Kline) error {
	cw := csv.NewWriter(w)
	cw.Write(klineHeader)
	for _, k := range klines {
		cw.Write([]string{
			k.OpenTime.UTC().Format(time.RFC3339),
			k.CloseTime.UTC().Format(time.RFC3339),
			k.Symbol,
			k.Interval,
			formatFloat(k.Open),
			formatFloat(k.High),
			formatFloat(k.Low),
			formatFloat(k.Close),
			formatFloat(k.Volume),
		})
	}
	cw.Flush()
	return cw.Error()
}

// WriteKlinesFile writes the candles to a freshly created file at path.
func WriteKlinesFile(path string, klines []*domain.Kline) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteKlines(file, klines); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
