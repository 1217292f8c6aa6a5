package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algrsh400-debug/ser/internal/adapters/mockstore"
	"github.com/algrsh400-debug/ser/internal/app"
	"github.com/algrsh400-debug/ser/internal/domain"
	"github.com/algrsh400-debug/ser/internal/observability"
	"github.com/algrsh400-debug/ser/internal/ports"
)

var serverClock = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeLive is a canned LiveService for exercising the live/fallback paths.
type fakeLive struct {
	creds bool

	state    domain.AccountState
	stateErr error

	active    []domain.Trade
	activeErr error

	history    []domain.Trade
	historyErr error

	summary    domain.SummaryStats
	summaryErr error

	detailed    domain.DetailedStats
	detailedErr error

	closeResult domain.CloseResult
	closeErr    error

	closeAll    domain.CloseAllResult
	closeAllErr error

	quote    *ports.Quote
	quoteErr error

	mark    float64
	markErr error

	marks    map[string]float64
	marksErr error

	klines    []*domain.Kline
	klinesErr error

	check    app.ConnectionCheck
	checkErr error
}

func (f *fakeLive) HasCredentials() bool { return f.creds }

func (f *fakeLive) AccountState(ctx context.Context) (domain.AccountState, error) {
	return f.state, f.stateErr
}

func (f *fakeLive) ActiveTrades(ctx context.Context) ([]domain.Trade, error) {
	return f.active, f.activeErr
}

func (f *fakeLive) TradeHistory(ctx context.Context, limit int) ([]domain.Trade, error) {
	return f.history, f.historyErr
}

func (f *fakeLive) SummaryStats(ctx context.Context) (domain.SummaryStats, error) {
	return f.summary, f.summaryErr
}

func (f *fakeLive) DetailedStats(ctx context.Context) (domain.DetailedStats, error) {
	return f.detailed, f.detailedErr
}

func (f *fakeLive) ClosePosition(ctx context.Context, id string) (domain.CloseResult, error) {
	return f.closeResult, f.closeErr
}

func (f *fakeLive) CloseAllPositions(ctx context.Context) (domain.CloseAllResult, error) {
	return f.closeAll, f.closeAllErr
}

func (f *fakeLive) Quote(ctx context.Context, symbol string) (*ports.Quote, error) {
	return f.quote, f.quoteErr
}

func (f *fakeLive) MarkPrice(ctx context.Context, symbol string) (float64, error) {
	return f.mark, f.markErr
}

func (f *fakeLive) MarkPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	return f.marks, f.marksErr
}

func (f *fakeLive) Klines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	return f.klines, f.klinesErr
}

func (f *fakeLive) TestConnection(ctx context.Context) (app.ConnectionCheck, error) {
	return f.check, f.checkErr
}

type testServer struct {
	*Server
	store   *mockstore.Store
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, live LiveService, opts ...func(*Config)) *testServer {
	t.Helper()

	registry := prometheus.NewRegistry()
	metrics := observability.New(registry)
	store := mockstore.New(mockstore.Config{
		Logger: ports.NopLogger{},
		Now:    func() time.Time { return serverClock },
	})

	cfg := Config{
		Logger:     ports.NopLogger{},
		Metrics:    metrics,
		Mock:       store,
		Live:       live,
		Gatherer:   registry,
		CORSOrigin: "*",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := New(cfg)
	require.NoError(t, err)
	return &testServer{Server: srv, store: store, metrics: metrics}
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func (ts *testServer) fallbacks(endpoint string) float64 {
	return testutil.ToFloat64(ts.metrics.MockFallbacks.WithLabelValues(endpoint))
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	rec := ts.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[map[string]bool](t, rec)["ok"])
}

func TestSettingsRoundTrip(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	rec := ts.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decode[domain.BotSettings](t, rec)
	assert.Len(t, settings.TradingPairs, 4)
	assert.Empty(t, settings.APIKey)

	rec = ts.do(t, http.MethodPut, "/api/settings", `{"apiKey":"fresh-key-0123","leverage":25}`)
	require.Equal(t, http.StatusOK, rec.Code)
	settings = decode[domain.BotSettings](t, rec)
	assert.Equal(t, "****0123", settings.APIKey)
	assert.Equal(t, 25, settings.Leverage)
	assert.Equal(t, "fresh-key-0123", ts.store.Settings().APIKey)

	// Submitting the masked value back must not clobber the stored secret.
	rec = ts.do(t, http.MethodPut, "/api/settings", `{"apiKey":"****0123","riskPerTrade":0.03}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fresh-key-0123", ts.store.Settings().APIKey)
	assert.Equal(t, 0.03, ts.store.Settings().RiskPerTrade)

	rec = ts.do(t, http.MethodPut, "/api/settings", `{nope`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decode[apiError](t, rec).Error)
}

func TestAccountDemoMode(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	rec := ts.do(t, http.MethodGet, "/api/account", "")
	require.Equal(t, http.StatusOK, rec.Code)

	state := decode[domain.AccountState](t, rec)
	assert.False(t, state.Connected)
	assert.Equal(t, domain.AccountErrNoCredentials, state.Error)
	assert.Equal(t, 12450.75, state.TotalBalance)
	assert.Len(t, state.Positions, 3)
}

func TestAccountFallsBackOnLiveFailure(t *testing.T) {
	ts := newTestServer(t, &fakeLive{creds: true, stateErr: ports.ErrConnectionFailed})

	rec := ts.do(t, http.MethodGet, "/api/account", "")
	require.Equal(t, http.StatusOK, rec.Code)

	state := decode[domain.AccountState](t, rec)
	assert.False(t, state.Connected)
	assert.Equal(t, domain.AccountErrConnectionFailed, state.Error)
	assert.Equal(t, 1.0, ts.fallbacks("account"))
}

func TestAccountLive(t *testing.T) {
	ts := newTestServer(t, &fakeLive{
		creds: true,
		state: domain.AccountState{Connected: true, TotalBalance: 777.77},
	})

	rec := ts.do(t, http.MethodGet, "/api/account", "")
	require.Equal(t, http.StatusOK, rec.Code)

	state := decode[domain.AccountState](t, rec)
	assert.True(t, state.Connected)
	assert.Equal(t, 777.77, state.TotalBalance)
	assert.Equal(t, 0.0, ts.fallbacks("account"))
}

func TestActiveTradesFallsBack(t *testing.T) {
	ts := newTestServer(t, &fakeLive{creds: true, activeErr: ports.ErrRateLimited})

	rec := ts.do(t, http.MethodGet, "/api/trades/active", "")
	require.Equal(t, http.StatusOK, rec.Code)

	trades := decode[[]domain.Trade](t, rec)
	assert.Len(t, trades, 3, "demo positions expected after fallback")
	assert.Equal(t, 1.0, ts.fallbacks("trades_active"))
}

func TestTradeHistoryLimit(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	rec := ts.do(t, http.MethodGet, "/api/trades/history?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Trade](t, rec), 2)

	// Unparseable limits fall back to the backend default.
	rec = ts.do(t, http.MethodGet, "/api/trades/history?limit=bogus", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Trade](t, rec), 6)
}

func TestCloseTradeDemo(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	rec := ts.do(t, http.MethodPost, "/api/trades/demo-1/close", "")
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[domain.CloseResult](t, rec)
	assert.True(t, result.Success)
	assert.Equal(t, "demo-1", result.TradeID)

	history, err := ts.store.TradeHistory(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, history, 7)
}

func TestCloseTradeNotFound(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	rec := ts.do(t, http.MethodPost, "/api/trades/ghost/close", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "position_not_found", decode[apiError](t, rec).Error)
}

func TestCloseTradeLiveFailure(t *testing.T) {
	ts := newTestServer(t, &fakeLive{
		creds:    true,
		closeErr: fmt.Errorf("close BTC/USDT: %w", ports.ErrOrderPlacementFailed),
	})

	rec := ts.do(t, http.MethodPost, "/api/trades/BTCUSDT:LONG/close", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "close_failed", decode[apiError](t, rec).Error)
}

func TestCloseTradeLiveNotFound(t *testing.T) {
	ts := newTestServer(t, &fakeLive{
		creds:    true,
		closeErr: fmt.Errorf("close %q: %w", "BTCUSDT:SHORT", ports.ErrPositionNotFound),
	})

	rec := ts.do(t, http.MethodPost, "/api/trades/BTCUSDT:SHORT/close", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "position_not_found", decode[apiError](t, rec).Error)
}

func TestCloseAllTradesDemo(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	rec := ts.do(t, http.MethodPost, "/api/trades/close-all", "")
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[domain.CloseAllResult](t, rec)
	assert.Equal(t, 3, result.Closed)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, result.Results, 3)

	active, err := ts.store.ActiveTrades(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStatsEndpointsDemo(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	rec := ts.do(t, http.MethodGet, "/api/stats/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[domain.SummaryStats](t, rec)
	assert.Equal(t, 12450.75, summary.TotalBalance)
	assert.Equal(t, 3, summary.ActiveTrades)
	assert.Equal(t, 141.0, summary.TodayProfit)
	assert.Equal(t, 66.67, summary.SuccessRate)

	rec = ts.do(t, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	detailed := decode[domain.DetailedStats](t, rec)
	assert.Equal(t, 6, detailed.ClosedTrades)
	assert.Len(t, detailed.DailyProfit, 7)
}

func TestLogsEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	rec := ts.do(t, http.MethodGet, "/api/logs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.LogEntry](t, rec), 3)

	rec = ts.do(t, http.MethodGet, "/api/logs?level=success", "")
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]domain.LogEntry](t, rec)
	require.NotEmpty(t, entries)
	for _, entry := range entries {
		assert.Equal(t, domain.LogSuccess, entry.Level)
	}

	rec = ts.do(t, http.MethodGet, "/api/logs?level=shouting", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_level", decode[apiError](t, rec).Error)

	rec = ts.do(t, http.MethodGet, "/api/logs/recent", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.LessOrEqual(t, len(decode[[]domain.LogEntry](t, rec)), 10)
}

func TestMarketDemo(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	rec := ts.do(t, http.MethodGet, "/api/market/BTCUSDT", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := decode[domain.MarketSnapshot](t, rec)
	assert.Equal(t, "BTC/USDT", snapshot.Symbol)
	assert.Equal(t, domain.SourceSimulated, snapshot.Source)
	assert.Greater(t, snapshot.Price, 0.0)

	rec = ts.do(t, http.MethodGet, "/api/market/DOGEUSDT", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown_symbol", decode[apiError](t, rec).Error)
}

func TestMarketLiveQuote(t *testing.T) {
	ts := newTestServer(t, &fakeLive{
		creds: true,
		quote: &ports.Quote{Symbol: "BTCUSDT", Price: 70123.45, ChangePercent: 2.1},
	})

	rec := ts.do(t, http.MethodGet, "/api/market/BTCUSDT", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := decode[domain.MarketSnapshot](t, rec)
	assert.Equal(t, domain.SourceExchange, snapshot.Source)
	assert.Equal(t, 70123.45, snapshot.Price)
}

func TestMarketLiveFailureDegrades(t *testing.T) {
	ts := newTestServer(t, &fakeLive{creds: true, quoteErr: ports.ErrConnectionFailed})

	rec := ts.do(t, http.MethodGet, "/api/market/BTCUSDT", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.SourceSimulated, decode[domain.MarketSnapshot](t, rec).Source)
	assert.Equal(t, 1.0, ts.fallbacks("market"))
}

func TestAnalysisEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	rec := ts.do(t, http.MethodGet, "/api/analyze/BTCUSDT", "")
	require.Equal(t, http.StatusOK, rec.Code)
	analysis := decode[domain.TechnicalAnalysis](t, rec)
	assert.Equal(t, "BTC/USDT", analysis.Symbol)
	assert.GreaterOrEqual(t, analysis.RSI, 5.0)
	assert.LessOrEqual(t, analysis.RSI, 95.0)

	rec = ts.do(t, http.MethodGet, "/api/analyze/DOGEUSDT", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPredictionsEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	rec := ts.do(t, http.MethodGet, "/api/ai-predictions/all/1h", "")
	require.Equal(t, http.StatusOK, rec.Code)
	predictions := decode[[]domain.AIPrediction](t, rec)
	require.Len(t, predictions, 4)
	for _, p := range predictions {
		assert.Equal(t, "1h", p.Timeframe)
	}

	rec = ts.do(t, http.MethodGet, "/api/ai-predictions/all/3h", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_timeframe", decode[apiError](t, rec).Error)
}

func TestKlinesEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	rec := ts.do(t, http.MethodGet, "/api/klines/BTCUSDT?interval=1h&limit=24", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]*domain.Kline](t, rec), 24)

	rec = ts.do(t, http.MethodGet, "/api/klines/BTCUSDT?interval=2h", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_interval", decode[apiError](t, rec).Error)

	rec = ts.do(t, http.MethodGet, "/api/klines/DOGEUSDT", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestKlinesLivePassthroughAndFallback(t *testing.T) {
	ts := newTestServer(t, &fakeLive{
		creds: true,
		klines: []*domain.Kline{
			{Open: 100, High: 110, Low: 95, Close: 105},
			{Open: 105, High: 112, Low: 101, Close: 108},
		},
	})
	rec := ts.do(t, http.MethodGet, "/api/klines/BTCUSDT?interval=1h", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]*domain.Kline](t, rec), 2)

	ts = newTestServer(t, &fakeLive{creds: true, klinesErr: ports.ErrConnectionFailed})
	rec = ts.do(t, http.MethodGet, "/api/klines/BTCUSDT?interval=1h&limit=12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]*domain.Kline](t, rec), 12)
	assert.Equal(t, 1.0, ts.fallbacks("klines"))
}

func TestConnectionTestDemoMode(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	rec := ts.do(t, http.MethodPost, "/api/test-connection", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]interface{}](t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, domain.SourceSimulated, body["source"])

	entries := ts.store.Logs(1, string(domain.LogInfo))
	require.NotEmpty(t, entries)
	assert.Contains(t, entries[0].Message, "demo mode")
}

func TestConnectionTestLive(t *testing.T) {
	ts := newTestServer(t, &fakeLive{
		creds: true,
		check: app.ConnectionCheck{Success: true, Message: "Connected in 42ms", LatencyMS: 42},
	})
	rec := ts.do(t, http.MethodPost, "/api/test-connection", "")
	require.Equal(t, http.StatusOK, rec.Code)
	check := decode[app.ConnectionCheck](t, rec)
	assert.True(t, check.Success)
	assert.Equal(t, int64(42), check.LatencyMS)

	ts = newTestServer(t, &fakeLive{creds: true, checkErr: ports.ErrAuthenticationFailed})
	rec = ts.do(t, http.MethodPost, "/api/test-connection", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "connection_failed", decode[apiError](t, rec).Error)
}

func TestControlEndpoints(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	rec := ts.do(t, http.MethodPost, "/api/auto-trading/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[map[string]bool](t, rec)["autoTradingEnabled"])
	assert.True(t, ts.store.Settings().AutoTradingEnabled)

	rec = ts.do(t, http.MethodPost, "/api/auto-trading/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[map[string]bool](t, rec)["autoTradingEnabled"])

	rec = ts.do(t, http.MethodPost, "/api/bot/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[map[string]bool](t, rec)["botActive"])

	rec = ts.do(t, http.MethodPost, "/api/bot/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[map[string]bool](t, rec)["botActive"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	ts.do(t, http.MethodGet, "/healthz", "")
	rec := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dashboard_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, &fakeLive{})

	req := httptest.NewRequest(http.MethodOptions, "/api/settings", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStaticSPAFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>dash</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	ts := newTestServer(t, &fakeLive{}, func(cfg *Config) {
		cfg.StaticDir = dir
	})

	rec := ts.do(t, http.MethodGet, "/app.js", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "console.log")

	// Client-side routes serve the SPA shell.
	rec = ts.do(t, http.MethodGet, "/dashboard/positions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dash")

	// API misses never fall through to the SPA.
	rec = ts.do(t, http.MethodGet, "/api/ghost", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[apiError](t, rec).Error)
}
