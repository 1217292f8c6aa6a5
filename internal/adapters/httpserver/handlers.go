package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/algrsh400-debug/ser/internal/domain"
	"github.com/algrsh400-debug/ser/internal/ports"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 100
	recentLogCount  = 10
	maxHistoryLimit = 500
)

// --- Settings ---

func (s *Server) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.mock.Settings().Masked())
}

func (s *Server) updateSettings(c *gin.Context) {
	var update domain.SettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		s.badRequest(c, "invalid_request", "malformed settings payload: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, s.mock.UpdateSettings(update).Masked())
}

// --- Account ---

// getAccount never fails at the HTTP level: when the live path is
// unavailable the demo balances are served with connected=false and a code
// explaining why, and the dashboard renders the disconnected state.
func (s *Server) getAccount(c *gin.Context) {
	if !s.live.HasCredentials() {
		c.JSON(http.StatusOK, s.mock.DisconnectedAccount(domain.AccountErrNoCredentials))
		return
	}

	state, err := s.live.AccountState(c.Request.Context())
	if err != nil {
		s.fallback(c, "account", err)
		c.JSON(http.StatusOK, s.mock.DisconnectedAccount(domain.AccountErrConnectionFailed))
		return
	}
	c.JSON(http.StatusOK, state)
}

// --- Trades ---

func (s *Server) getActiveTrades(c *gin.Context) {
	ctx := c.Request.Context()
	serveRead(s, c, "trades_active", func(b ports.TradingBackend) ([]domain.Trade, error) {
		return b.ActiveTrades(ctx)
	})
}

func (s *Server) getTradeHistory(c *gin.Context) {
	ctx := c.Request.Context()
	limit := parseLimit(c.Query("limit"), 0, maxHistoryLimit) // 0 means the backend's page size
	serveRead(s, c, "trades_history", func(b ports.TradingBackend) ([]domain.Trade, error) {
		return b.TradeHistory(ctx, limit)
	})
}

func (s *Server) closeTrade(c *gin.Context) {
	id := c.Param("id")
	result, err := s.backend().ClosePosition(c.Request.Context(), id)
	switch {
	case errors.Is(err, ports.ErrPositionNotFound):
		s.notFound(c, "position_not_found", fmt.Sprintf("no open position matches %q", id))
	case err != nil:
		s.upstreamError(c, "close_failed", err)
	default:
		c.JSON(http.StatusOK, result)
	}
}

func (s *Server) closeAllTrades(c *gin.Context) {
	result, err := s.backend().CloseAllPositions(c.Request.Context())
	if err != nil {
		s.upstreamError(c, "close_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// --- Statistics ---

func (s *Server) getSummaryStats(c *gin.Context) {
	ctx := c.Request.Context()
	serveRead(s, c, "stats_summary", func(b ports.TradingBackend) (domain.SummaryStats, error) {
		return b.SummaryStats(ctx)
	})
}

func (s *Server) getDetailedStats(c *gin.Context) {
	ctx := c.Request.Context()
	serveRead(s, c, "stats", func(b ports.TradingBackend) (domain.DetailedStats, error) {
		return b.DetailedStats(ctx)
	})
}

// --- Activity feed ---

// The activity feed is process-local: live trading writes into the same
// store, so both modes read from it.
func (s *Server) getLogs(c *gin.Context) {
	level := c.Query("level")
	if level != "" && !domain.ValidLogLevel(level) {
		s.badRequest(c, "invalid_level", fmt.Sprintf("unknown log level %q", level))
		return
	}
	limit := parseLimit(c.Query("limit"), defaultLogLimit, maxLogLimit)
	c.JSON(http.StatusOK, s.mock.Logs(limit, level))
}

func (s *Server) getRecentLogs(c *gin.Context) {
	c.JSON(http.StatusOK, s.mock.Logs(recentLogCount, ""))
}

// --- Control ---

func (s *Server) testConnection(c *gin.Context) {
	if !s.live.HasCredentials() {
		s.mock.Record(domain.LogInfo, "Connection test: demo mode, no API credentials", "")
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Demo mode active: serving simulated exchange data",
			"source":  domain.SourceSimulated,
		})
		return
	}

	check, err := s.live.TestConnection(c.Request.Context())
	if err != nil {
		s.upstreamError(c, "connection_failed", err)
		return
	}
	c.JSON(http.StatusOK, check)
}

func (s *Server) startAutoTrading(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"autoTradingEnabled": s.mock.SetAutoTrading(true)})
}

func (s *Server) stopAutoTrading(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"autoTradingEnabled": s.mock.SetAutoTrading(false)})
}

func (s *Server) toggleBot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"botActive": s.mock.ToggleBot()})
}
