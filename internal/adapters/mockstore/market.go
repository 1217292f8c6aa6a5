package mockstore

import (
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/algrsh400-debug/ser/internal/analytics"
	"github.com/algrsh400-debug/ser/internal/domain"
	"github.com/algrsh400-debug/ser/internal/ports"
)

// marketTemplate is the per-symbol baseline the simulated market oscillates
// around. All derived values are pure functions of (template, time), so two
// calls at the same instant always agree.
type marketTemplate struct {
	symbol     string  // display form
	basePrice  float64 // price the simulation oscillates around
	baseChange float64 // baseline 24h change in percent
	baseVolume float64 // baseline 24h volume in base asset
	phase      float64 // per-symbol phase offset so symbols do not move in lockstep
}

// Wave periods of the simulated price: a short ripple on top of a slow swing.
const (
	rippleAmp    = 0.004
	ripplePeriod = 5 * time.Minute
	swingAmp     = 0.011
	swingPeriod  = 4 * time.Hour
)

var intervalDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// predictionHorizons maps a forecast timeframe to its expected move in
// percent.
var predictionHorizons = map[string]float64{
	"15m": 0.35,
	"1h":  0.8,
	"4h":  2.0,
	"1d":  4.5,
}

// ValidTimeframe reports whether tf is a supported prediction timeframe.
func ValidTimeframe(tf string) bool {
	_, ok := predictionHorizons[tf]
	return ok
}

// ValidInterval reports whether iv is a supported kline interval.
func ValidInterval(iv string) bool {
	_, ok := intervalDurations[iv]
	return ok
}

// waveAt evaluates a unit sine wave of the given period at t.
func waveAt(t time.Time, period time.Duration, phase float64) float64 {
	ms := period.Milliseconds()
	frac := float64(t.UnixMilli()%ms) / float64(ms)
	return math.Sin(2*math.Pi*frac + phase)
}

// priceAt is the simulated price series: baseline plus ripple plus swing.
func (tpl marketTemplate) priceAt(t time.Time) float64 {
	ripple := rippleAmp * waveAt(t, ripplePeriod, tpl.phase)
	swing := swingAmp * waveAt(t, swingPeriod, tpl.phase*1.7)
	return tpl.basePrice * (1 + ripple + swing)
}

// Sampling grid of the indicator readout. The step shares no divisor with
// the wave periods, so consecutive readouts drift instead of repeating a
// four-sample cycle.
const (
	analysisPoints = 240
	analysisStep   = 37 * time.Minute
)

// closeSeries samples the simulated price walk backwards from now, oldest
// first, for the indicator computations to run on.
func (tpl marketTemplate) closeSeries(now time.Time, n int, step time.Duration) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = tpl.priceAt(now.Add(-time.Duration(n-1-i) * step))
	}
	return closes
}

func symbolPhase(symbol string) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return float64(h.Sum32()%6283) / 1000 // 0 .. 2π
}

// priceAtLocked returns the simulated price for a known symbol. Caller holds
// at least the read lock. The bool reports whether the symbol is known.
func (s *Store) priceAtLocked(symbol string, t time.Time) float64 {
	tpl, ok := s.markets[symbol]
	if !ok {
		return 0
	}
	return tpl.priceAt(t)
}

// MarketSnapshot renders the market overview for one display symbol. When a
// live quote is supplied it wins; otherwise the simulated series answers,
// failing with ErrNotFound for symbols outside the demo set.
func (s *Store) MarketSnapshot(symbol string, live *ports.Quote) (domain.MarketSnapshot, error) {
	now := s.now()
	if live != nil {
		return domain.MarketSnapshot{
			Symbol:    symbol,
			Price:     live.Price,
			Change24h: live.ChangePercent,
			High24h:   live.High24h,
			Low24h:    live.Low24h,
			Volume24h: live.Volume24h,
			Source:    domain.SourceExchange,
			Timestamp: now,
		}, nil
	}

	s.mu.RLock()
	tpl, ok := s.markets[symbol]
	s.mu.RUnlock()
	if !ok {
		return domain.MarketSnapshot{}, fmt.Errorf("market %q: %w", symbol, ports.ErrNotFound)
	}

	price := tpl.priceAt(now)
	return domain.MarketSnapshot{
		Symbol:    symbol,
		Price:     domain.Round2(price),
		Change24h: domain.Round2(tpl.baseChange + 1.2*waveAt(now, 7*time.Minute, tpl.phase+1.3)),
		High24h:   domain.Round2(tpl.basePrice * (1 + swingAmp + rippleAmp)),
		Low24h:    domain.Round2(tpl.basePrice * (1 - swingAmp - rippleAmp)),
		Volume24h: domain.Round2(tpl.baseVolume * (1 + 0.15*waveAt(now, 11*time.Minute, tpl.phase+2.4))),
		Source:    domain.SourceSimulated,
		Timestamp: now,
	}, nil
}

// TechnicalAnalysis derives the indicator readout for one display symbol.
// The indicators are computed from the simulated close series, so RSI, the
// moving averages and MACD always agree with the price walk the charts show.
// livePrice > 0 re-anchors the series on the live quote; unknown symbols are
// only served when a live price is present.
func (s *Store) TechnicalAnalysis(symbol string, livePrice float64) (domain.TechnicalAnalysis, error) {
	now := s.now()

	s.mu.RLock()
	tpl, ok := s.markets[symbol]
	s.mu.RUnlock()
	if !ok {
		if livePrice <= 0 {
			return domain.TechnicalAnalysis{}, fmt.Errorf("analysis %q: %w", symbol, ports.ErrNotFound)
		}
		tpl = marketTemplate{
			symbol:    symbol,
			basePrice: livePrice,
			phase:     symbolPhase(symbol),
		}
	}

	closes := tpl.closeSeries(now, analysisPoints, analysisStep)
	if livePrice > 0 {
		scale := livePrice / closes[len(closes)-1]
		for i := range closes {
			closes[i] *= scale
		}
		closes[len(closes)-1] = livePrice
	}
	price := closes[len(closes)-1]

	rsi := clamp(analytics.RSI(closes, 14), 5, 95)
	macdValue, macdSignal, macdHist := analytics.MACD(closes)
	ma20 := analytics.SMA(closes, 20)
	band := 2 * analytics.StdDev(closes, 20)

	trend := domain.TrendNeutral
	switch {
	case rsi >= 55:
		trend = domain.TrendBullish
	case rsi <= 45:
		trend = domain.TrendBearish
	}
	recommendation := domain.RecommendHold
	switch {
	case rsi < 35:
		recommendation = domain.RecommendBuy
	case rsi > 65:
		recommendation = domain.RecommendSell
	}

	return domain.TechnicalAnalysis{
		Symbol: symbol,
		Price:  domain.Round2(price),
		RSI:    domain.Round2(rsi),
		MACD: domain.MACD{
			Value:     domain.Round2(macdValue),
			Signal:    domain.Round2(macdSignal),
			Histogram: domain.Round2(macdHist),
		},
		MovingAverages: domain.MovingAverages{
			MA20:  domain.Round2(ma20),
			MA50:  domain.Round2(analytics.SMA(closes, 50)),
			MA200: domain.Round2(analytics.SMA(closes, 200)),
		},
		Bollinger: domain.BollingerBands{
			Upper:  domain.Round2(ma20 + band),
			Middle: domain.Round2(ma20),
			Lower:  domain.Round2(ma20 - band),
		},
		Support:        domain.Round2(price * 0.985),
		Resistance:     domain.Round2(price * 1.015),
		Trend:          trend,
		Recommendation: recommendation,
		Timestamp:      now,
	}, nil
}

// AIPredictions renders one forecast per demo symbol for the given
// timeframe. livePrices (keyed by display symbol) re-price the forecasts when
// the exchange path is available.
func (s *Store) AIPredictions(timeframe string, livePrices map[string]float64) ([]domain.AIPrediction, error) {
	movePct, ok := predictionHorizons[timeframe]
	if !ok {
		return nil, fmt.Errorf("timeframe %q: %w", timeframe, ports.ErrInvalidRequest)
	}
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	tfPhase := symbolPhase(timeframe)
	out := make([]domain.AIPrediction, 0, len(s.symbols))
	for _, symbol := range s.symbols {
		tpl := s.markets[symbol]
		price := livePrices[symbol]
		if price <= 0 {
			price = tpl.priceAt(now)
		}

		w := waveAt(now, 15*time.Minute, tpl.phase+tfPhase)
		direction := domain.PredictSideways
		switch {
		case w > 0.25:
			direction = domain.PredictUp
		case w < -0.25:
			direction = domain.PredictDown
		}

		move := movePct / 100 * (0.6 + 0.4*math.Abs(w))
		target := price
		var reasoning string
		switch direction {
		case domain.PredictUp:
			target = price * (1 + move)
			reasoning = fmt.Sprintf("Momentum and volume profile favour continuation; next resistance near %.2f.", price*1.015)
		case domain.PredictDown:
			target = price * (1 - move)
			reasoning = fmt.Sprintf("Weakening momentum suggests a pullback toward support near %.2f.", price*0.985)
		default:
			target = price * (1 + 0.001*w)
			reasoning = "Mixed signals; price likely to range until a breakout confirms."
		}

		out = append(out, domain.AIPrediction{
			Symbol:      symbol,
			Timeframe:   timeframe,
			Direction:   direction,
			Confidence:  domain.Round2(55 + 35*math.Abs(w)),
			TargetPrice: domain.Round2(target),
			Reasoning:   reasoning,
			GeneratedAt: now,
		})
	}
	return out, nil
}

// Klines synthesizes a candlestick series from the simulated price walk so
// charts render without exchange access. Candles align to the interval grid.
func (s *Store) Klines(symbol, interval string, limit int) ([]*domain.Kline, error) {
	step, ok := intervalDurations[interval]
	if !ok {
		return nil, fmt.Errorf("interval %q: %w", interval, ports.ErrInvalidRequest)
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	s.mu.RLock()
	tpl, known := s.markets[symbol]
	s.mu.RUnlock()
	if !known {
		return nil, fmt.Errorf("klines %q: %w", symbol, ports.ErrNotFound)
	}

	perCandleVolume := tpl.baseVolume / (24 * time.Hour).Seconds() * step.Seconds()
	end := s.now().Truncate(step)

	klines := make([]*domain.Kline, 0, limit)
	for i := limit - 1; i >= 0; i-- {
		openTime := end.Add(-time.Duration(i) * step)
		openPx := tpl.priceAt(openTime)
		closePx := tpl.priceAt(openTime.Add(step - time.Second))
		high := math.Max(openPx, closePx) * 1.002
		low := math.Min(openPx, closePx) * 0.998

		klines = append(klines, &domain.Kline{
			OpenTime:  openTime,
			CloseTime: openTime.Add(step - time.Millisecond),
			Symbol:    symbol,
			Interval:  interval,
			Open:      domain.Round2(openPx),
			High:      domain.Round2(high),
			Low:       domain.Round2(low),
			Close:     domain.Round2(closePx),
			Volume:    domain.Round2(perCandleVolume * (1 + 0.3*waveAt(openTime, 13*time.Minute, tpl.phase))),
		})
	}
	return klines, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
