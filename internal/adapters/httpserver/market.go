package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/algrsh400-debug/ser/internal/adapters/mockstore"
	"github.com/algrsh400-debug/ser/internal/domain"
	"github.com/algrsh400-debug/ser/internal/ports"
)

// Market endpoints always render through the demo store's templates; under
// live credentials the templates are re-priced from real quotes first, so a
// live failure degrades to fully simulated data instead of an error.

func (s *Server) getMarket(c *gin.Context) {
	symbol := normalizeSymbol(c.Param("symbol"))

	var live *ports.Quote
	if s.live.HasCredentials() {
		quote, err := s.live.Quote(c.Request.Context(), domain.ToWireSymbol(symbol))
		if err != nil {
			s.fallback(c, "market", err)
		} else {
			live = quote
		}
	}

	snapshot, err := s.mock.MarketSnapshot(symbol, live)
	if err != nil {
		s.notFound(c, "unknown_symbol", fmt.Sprintf("no market data for %q", symbol))
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) getAnalysis(c *gin.Context) {
	symbol := normalizeSymbol(c.Param("symbol"))

	var livePrice float64
	if s.live.HasCredentials() {
		price, err := s.live.MarkPrice(c.Request.Context(), domain.ToWireSymbol(symbol))
		if err != nil {
			s.fallback(c, "analyze", err)
		} else {
			livePrice = price
		}
	}

	analysis, err := s.mock.TechnicalAnalysis(symbol, livePrice)
	if err != nil {
		s.notFound(c, "unknown_symbol", fmt.Sprintf("no analysis for %q", symbol))
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) getPredictions(c *gin.Context) {
	timeframe := c.Param("timeframe")

	var livePrices map[string]float64
	if s.live.HasCredentials() {
		prices, err := s.live.MarkPrices(c.Request.Context(), s.mock.Symbols())
		if err != nil {
			s.fallback(c, "ai_predictions", err)
		} else {
			livePrices = prices
		}
	}

	predictions, err := s.mock.AIPredictions(timeframe, livePrices)
	if err != nil {
		s.badRequest(c, "invalid_timeframe", fmt.Sprintf("unsupported timeframe %q", timeframe))
		return
	}
	c.JSON(http.StatusOK, predictions)
}

func (s *Server) getKlines(c *gin.Context) {
	symbol := normalizeSymbol(c.Param("symbol"))
	interval := c.DefaultQuery("interval", "1h")
	limit := parseLimit(c.Query("limit"), 0, 500) // 0 means the backend's default

	if !mockstore.ValidInterval(interval) {
		s.badRequest(c, "invalid_interval", fmt.Sprintf("unsupported interval %q", interval))
		return
	}

	if s.live.HasCredentials() {
		klines, err := s.live.Klines(c.Request.Context(), domain.ToWireSymbol(symbol), interval, limit)
		if err == nil {
			c.JSON(http.StatusOK, klines)
			return
		}
		s.fallback(c, "klines", err)
	}

	klines, err := s.mock.Klines(symbol, interval, limit)
	if err != nil {
		s.notFound(c, "unknown_symbol", fmt.Sprintf("no kline data for %q", symbol))
		return
	}
	c.JSON(http.StatusOK, klines)
}
