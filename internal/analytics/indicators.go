package analytics

import "math"

// Indicator parameters follow the common charting defaults: Wilder smoothing
// for RSI, EMA 12/26 with an EMA 9 signal line for MACD.
const (
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
)

// SMA returns the simple moving average of the last period values, or 0 when
// the series is too short.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	total := 0.0
	for _, v := range values[len(values)-period:] {
		total += v
	}
	return total / float64(period)
}

// EMA returns the exponential moving average of the whole series, seeded
// with the SMA of its first period values.
func EMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	multiplier := 2.0 / float64(period+1)
	ema := SMA(values[:period], period)
	for _, v := range values[period:] {
		ema = (v-ema)*multiplier + ema
	}
	return ema
}

// RSI returns Wilder's Relative Strength Index of the series. A flat or too
// short series reads as the neutral 50.
func RSI(values []float64, period int) float64 {
	if period <= 0 || len(values) <= period {
		return 50
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD returns the MACD line (fast EMA minus slow EMA), its signal line and
// the histogram between them. Series shorter than the slow period plus the
// signal period read as flat.
func MACD(values []float64) (value, signal, histogram float64) {
	if len(values) < macdSlowPeriod+macdSignalPeriod {
		return 0, 0, 0
	}

	fastEMA := SMA(values[:macdFastPeriod], macdFastPeriod)
	slowEMA := SMA(values[:macdSlowPeriod], macdSlowPeriod)
	fastMult := 2.0 / float64(macdFastPeriod+1)
	slowMult := 2.0 / float64(macdSlowPeriod+1)

	// Roll the fast EMA forward to where the slow one starts, then walk both
	// together collecting the MACD line.
	for _, v := range values[macdFastPeriod:macdSlowPeriod] {
		fastEMA = (v-fastEMA)*fastMult + fastEMA
	}
	line := make([]float64, 0, len(values)-macdSlowPeriod+1)
	line = append(line, fastEMA-slowEMA)
	for _, v := range values[macdSlowPeriod:] {
		fastEMA = (v-fastEMA)*fastMult + fastEMA
		slowEMA = (v-slowEMA)*slowMult + slowEMA
		line = append(line, fastEMA-slowEMA)
	}

	value = line[len(line)-1]
	signal = EMA(line, macdSignalPeriod)
	return value, signal, value - signal
}

// StdDev returns the population standard deviation of the last period
// values, or 0 when the series is too short.
func StdDev(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	mean := SMA(values, period)
	var sum float64
	for _, v := range values[len(values)-period:] {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(period))
}
