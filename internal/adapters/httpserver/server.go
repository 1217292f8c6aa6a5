// Package httpserver exposes the dashboard JSON API over gin. Read
// endpoints answer from the live exchange service when credentials resolve
// and fall back to the demo store when the live call fails; mutations never
// fall back, a failed live close must surface to the caller.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/algrsh400-debug/ser/internal/adapters/mockstore"
	"github.com/algrsh400-debug/ser/internal/app"
	"github.com/algrsh400-debug/ser/internal/domain"
	"github.com/algrsh400-debug/ser/internal/observability"
	"github.com/algrsh400-debug/ser/internal/ports"
)

// LiveService is the slice of the exchange-backed service the HTTP layer
// consumes. *app.Service implements it; tests substitute fakes.
type LiveService interface {
	ports.TradingBackend

	// HasCredentials reports whether the live path can be attempted at all.
	HasCredentials() bool

	Quote(ctx context.Context, symbol string) (*ports.Quote, error)
	MarkPrice(ctx context.Context, symbol string) (float64, error)
	MarkPrices(ctx context.Context, symbols []string) (map[string]float64, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error)
	TestConnection(ctx context.Context) (app.ConnectionCheck, error)
}

// apiError is the JSON failure body: a stable machine code plus a human
// message.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Config holds the HTTP server dependencies.
type Config struct {
	Logger     ports.Logger
	Metrics    *observability.Metrics
	Mock       *mockstore.Store
	Live       LiveService
	Gatherer   prometheus.Gatherer // metrics source, defaults to prometheus.DefaultGatherer
	CORSOrigin string              // "*" or a single allowed origin
	StaticDir  string              // dashboard SPA directory, skipped when missing
}

// Server owns the gin engine and the two backends.
type Server struct {
	engine  *gin.Engine
	logger  ports.Logger
	metrics *observability.Metrics
	mock    *mockstore.Store
	live    LiveService
}

// New validates the dependencies, wires middleware and registers the routes.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil || cfg.Mock == nil || cfg.Live == nil {
		return nil, fmt.Errorf("missing required dependencies for http server")
	}

	engine := gin.New()
	s := &Server{
		engine:  engine,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		mock:    cfg.Mock,
		live:    cfg.Live,
	}

	engine.Use(s.observe)
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware(cfg.CORSOrigin))

	api := engine.Group("/api")
	{
		api.GET("/settings", s.getSettings)
		api.PUT("/settings", s.updateSettings)
		api.GET("/account", s.getAccount)
		api.GET("/trades/active", s.getActiveTrades)
		api.GET("/trades/history", s.getTradeHistory)
		api.POST("/trades/:id/close", s.closeTrade)
		api.POST("/trades/close-all", s.closeAllTrades)
		api.GET("/stats/summary", s.getSummaryStats)
		api.GET("/stats", s.getDetailedStats)
		api.GET("/logs", s.getLogs)
		api.GET("/logs/recent", s.getRecentLogs)
		api.GET("/market/:symbol", s.getMarket)
		api.GET("/analyze/:symbol", s.getAnalysis)
		api.GET("/ai-predictions/all/:timeframe", s.getPredictions)
		api.GET("/klines/:symbol", s.getKlines)
		api.POST("/test-connection", s.testConnection)
		api.POST("/auto-trading/start", s.startAutoTrading)
		api.POST("/auto-trading/stop", s.stopAutoTrading)
		api.POST("/bot/toggle", s.toggleBot)
	}

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	s.mountStatic(cfg.StaticDir)
	return s, nil
}

// Handler returns the root handler for an http.Server.
func (s *Server) Handler() http.Handler { return s.engine }

// observe logs every request and feeds the HTTP metrics.
func (s *Server) observe(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := c.Writer.Status()
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		s.metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
	}
	s.logger.Info(c.Request.Context(), "HTTP request", map[string]interface{}{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  status,
		"ip":      c.ClientIP(),
		"latency": elapsed.String(),
	})
}

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqOrigin := c.GetHeader("Origin")
		c.Writer.Header().Set("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		if origin == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if reqOrigin != "" && reqOrigin == origin {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// mountStatic serves the dashboard SPA when the directory exists. Unknown
// paths fall back to index.html so client-side routing works; API paths
// never fall through to the SPA.
func (s *Server) mountStatic(dir string) {
	if dir == "" {
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		s.logger.Debug(context.Background(), "Static dir missing, serving API only", map[string]interface{}{
			"dir": dir,
		})
		return
	}

	s.engine.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet || strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, apiError{Error: "not_found", Message: "no such endpoint"})
			return
		}
		file := filepath.Join(dir, filepath.Clean("/"+c.Request.URL.Path))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(filepath.Join(dir, "index.html"))
	})
}

// --- Shared responders ---

func (s *Server) badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, apiError{Error: code, Message: msg})
}

func (s *Server) notFound(c *gin.Context, code, msg string) {
	c.JSON(http.StatusNotFound, apiError{Error: code, Message: msg})
}

func (s *Server) upstreamError(c *gin.Context, code string, err error) {
	s.logger.Error(c.Request.Context(), err, "Upstream exchange call failed")
	c.JSON(http.StatusBadGateway, apiError{Error: code, Message: err.Error()})
}

// fallback notes a failed live call before the demo store answers instead.
func (s *Server) fallback(c *gin.Context, endpoint string, err error) {
	s.metrics.CountMockFallback(endpoint)
	s.logger.Warn(c.Request.Context(), "Live endpoint failed, serving demo data", map[string]interface{}{
		"endpoint": endpoint,
		"error":    err.Error(),
	})
}

// serveRead answers from the live service when credentials resolve, falling
// back to the demo store when the live call fails.
func serveRead[T any](s *Server, c *gin.Context, endpoint string, fetch func(ports.TradingBackend) (T, error)) {
	if s.live.HasCredentials() {
		out, err := fetch(s.live)
		if err == nil {
			c.JSON(http.StatusOK, out)
			return
		}
		s.fallback(c, endpoint, err)
	}

	out, err := fetch(s.mock)
	if err != nil {
		s.logger.Error(c.Request.Context(), err, "Demo backend failed", map[string]interface{}{
			"endpoint": endpoint,
		})
		c.JSON(http.StatusInternalServerError, apiError{Error: "internal_error", Message: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// backend picks the mutation target: live when configured, demo otherwise.
func (s *Server) backend() ports.TradingBackend {
	if s.live.HasCredentials() {
		return s.live
	}
	return s.mock
}

func parseLimit(v string, def, max int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > max {
		return def
	}
	return n
}

// normalizeSymbol maps wire ("BTCUSDT") or display ("BTC/USDT") form to
// display form.
func normalizeSymbol(symbol string) string {
	return domain.FromWireSymbol(domain.ToWireSymbol(symbol))
}
