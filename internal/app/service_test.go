package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algrsh400-debug/ser/internal/adapters/mockstore"
	"github.com/algrsh400-debug/ser/internal/adapters/pricecache"
	"github.com/algrsh400-debug/ser/internal/domain"
	"github.com/algrsh400-debug/ser/internal/ports"
)

var testClock = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// fakeExchange is an in-memory ports.FuturesClient that serves canned
// payloads and records what was asked of it.
type fakeExchange struct {
	mu sync.Mutex

	account      *ports.AccountInfo
	accountErr   error
	accountCalls int

	positions     []ports.PositionRisk
	positionsErr  error
	positionCalls int

	fills      map[string][]ports.TradeFill
	fillsErr   error
	fillLimits map[string]int

	income      []ports.IncomeEvent
	incomeErr   error
	incomeType  string
	incomeStart time.Time
	incomeLimit int

	quotes      map[string]*ports.Quote
	tickerCalls int

	markPrices map[string]float64

	klines      []*domain.Kline
	klineSymbol string
	klineStep   string
	klineLimit  int

	orders      []ports.OrderRequest
	orderErrFor map[string]error
	nextOrderID int64

	pingErr    error
	serverTime time.Time
	dual       bool
}

func (f *fakeExchange) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeExchange) ServerTime(ctx context.Context) (time.Time, error) {
	return f.serverTime, nil
}

func (f *fakeExchange) Account(ctx context.Context) (*ports.AccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountCalls++
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	if f.account == nil {
		return &ports.AccountInfo{}, nil
	}
	return f.account, nil
}

func (f *fakeExchange) PositionRisk(ctx context.Context) ([]ports.PositionRisk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positionCalls++
	if f.positionsErr != nil {
		return nil, f.positionsErr
	}
	return f.positions, nil
}

func (f *fakeExchange) UserTrades(ctx context.Context, symbol string, limit int) ([]ports.TradeFill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fillLimits == nil {
		f.fillLimits = make(map[string]int)
	}
	f.fillLimits[symbol] = limit
	if f.fillsErr != nil {
		return nil, f.fillsErr
	}
	return f.fills[symbol], nil
}

func (f *fakeExchange) Income(ctx context.Context, incomeType string, startTime time.Time, limit int) ([]ports.IncomeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incomeType = incomeType
	f.incomeStart = startTime
	f.incomeLimit = limit
	if f.incomeErr != nil {
		return nil, f.incomeErr
	}
	return f.income, nil
}

func (f *fakeExchange) Klines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.klineSymbol = symbol
	f.klineStep = interval
	f.klineLimit = limit
	return f.klines, nil
}

func (f *fakeExchange) Ticker24h(ctx context.Context, symbol string) (*ports.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickerCalls++
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("ticker %s: %w", symbol, ports.ErrNotFound)
	}
	return q, nil
}

func (f *fakeExchange) MarkPrice(ctx context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	price, ok := f.markPrices[symbol]
	if !ok {
		return 0, fmt.Errorf("mark price %s: %w", symbol, ports.ErrNotFound)
	}
	return price, nil
}

func (f *fakeExchange) PositionMode(ctx context.Context) (bool, error) { return f.dual, nil }

func (f *fakeExchange) PlaceOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.orderErrFor[req.Symbol]; err != nil {
		return nil, err
	}
	f.orders = append(f.orders, req)
	f.nextOrderID++
	return &ports.OrderResponse{
		OrderID:       9000 + f.nextOrderID,
		Symbol:        req.Symbol,
		ClientOrderID: req.ClientOrderID,
		Status:        "FILLED",
	}, nil
}

func (f *fakeExchange) CancelOrder(ctx context.Context, symbol string, orderID int64) (*ports.OrderResponse, error) {
	return &ports.OrderResponse{OrderID: orderID, Symbol: symbol, Status: "CANCELED"}, nil
}

func (f *fakeExchange) requestedSymbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.fillLimits))
	for symbol := range f.fillLimits {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

func newTestService(t *testing.T, fx ports.FuturesClient) (*Service, *mockstore.Store) {
	t.Helper()
	store := mockstore.New(mockstore.Config{
		Logger: ports.NopLogger{},
		Now:    func() time.Time { return testClock },
	})
	svc, err := New(Config{
		Logger:   ports.NopLogger{},
		Settings: store,
		Activity: store,
		NewClient: func(creds Credentials) (ports.FuturesClient, error) {
			return fx, nil
		},
		EnvCreds: Credentials{APIKey: "key", APISecret: "secret"},
		Now:      func() time.Time { return testClock },
	})
	require.NoError(t, err)
	return svc, store
}

func ptr[T any](v T) *T { return &v }

func TestNewValidatesDependencies(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	store := mockstore.New(mockstore.Config{Logger: ports.NopLogger{}})
	_, err = New(Config{Logger: ports.NopLogger{}, Settings: store, Activity: store})
	require.Error(t, err)
}

func TestResolveCredentials(t *testing.T) {
	env := Credentials{APIKey: "envkey", APISecret: "envsecret"}

	creds := ResolveCredentials(domain.BotSettings{}, env)
	assert.Equal(t, "envkey", creds.APIKey)
	assert.Equal(t, "envsecret", creds.APISecret)
	assert.False(t, creds.Testnet)

	creds = ResolveCredentials(domain.BotSettings{APIKey: "uikey", APISecret: "uisecret", Testnet: true}, env)
	assert.Equal(t, "uikey", creds.APIKey)
	assert.Equal(t, "uisecret", creds.APISecret)
	assert.True(t, creds.Testnet)

	assert.False(t, Credentials{APIKey: "only-key"}.Configured())
	assert.True(t, Credentials{APIKey: "k", APISecret: "s"}.Configured())
}

func TestClientRequiresCredentials(t *testing.T) {
	store := mockstore.New(mockstore.Config{Logger: ports.NopLogger{}})
	svc, err := New(Config{
		Logger:   ports.NopLogger{},
		Settings: store,
		Activity: store,
		NewClient: func(creds Credentials) (ports.FuturesClient, error) {
			t.Fatal("factory must not run without credentials")
			return nil, nil
		},
	})
	require.NoError(t, err)

	assert.False(t, svc.HasCredentials())
	_, err = svc.Client()
	require.ErrorIs(t, err, ports.ErrNoCredentials)
	_, err = svc.AccountState(context.Background())
	require.ErrorIs(t, err, ports.ErrNoCredentials)
}

func TestClientCachedUntilCredentialsChange(t *testing.T) {
	builds := 0
	store := mockstore.New(mockstore.Config{Logger: ports.NopLogger{}})
	svc, err := New(Config{
		Logger:   ports.NopLogger{},
		Settings: store,
		Activity: store,
		NewClient: func(creds Credentials) (ports.FuturesClient, error) {
			builds++
			return &fakeExchange{}, nil
		},
		EnvCreds: Credentials{APIKey: "key", APISecret: "secret"},
	})
	require.NoError(t, err)

	_, err = svc.Client()
	require.NoError(t, err)
	_, err = svc.Client()
	require.NoError(t, err)
	assert.Equal(t, 1, builds)

	store.UpdateSettings(domain.SettingsUpdate{
		APIKey:    ptr("rotated"),
		APISecret: ptr("rotated-secret"),
	})
	_, err = svc.Client()
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
}

func TestAccountStateDropsFlatRows(t *testing.T) {
	fx := &fakeExchange{
		account: &ports.AccountInfo{
			TotalWalletBalance: 5000.123,
			AvailableBalance:   4000.456,
		},
		positions: []ports.PositionRisk{
			{Symbol: "BTCUSDT", PositionSide: "BOTH", PositionAmt: 0.5, EntryPrice: 60000, MarkPrice: 61000, LiquidationPrice: 54000, Leverage: 10},
			{Symbol: "ETHUSDT", PositionSide: "BOTH", PositionAmt: 0},
			{Symbol: "SOLUSDT", PositionSide: "BOTH", PositionAmt: -20, EntryPrice: 150, MarkPrice: 148, Leverage: 5},
		},
	}
	svc, _ := newTestService(t, fx)

	state, err := svc.AccountState(context.Background())
	require.NoError(t, err)

	assert.True(t, state.Connected)
	assert.Empty(t, state.Error)
	assert.Equal(t, 5000.12, state.TotalBalance)
	assert.Equal(t, 4000.46, state.AvailableBalance)
	require.Len(t, state.Positions, 2)

	long := state.Positions[0]
	assert.Equal(t, "BTC/USDT", long.Symbol)
	assert.Equal(t, domain.Long, long.Side)
	assert.Equal(t, 0.5, long.Quantity)
	assert.Equal(t, 500.0, long.UnrealizedProfit)
	assert.Equal(t, 54000.0, long.LiquidationPrice)

	short := state.Positions[1]
	assert.Equal(t, domain.Short, short.Side)
	assert.Equal(t, 20.0, short.Quantity)
	assert.Equal(t, 40.0, short.UnrealizedProfit)

	assert.Equal(t, 540.0, state.UnrealizedProfit)

	// Balances and positions share one fetch per request.
	assert.Equal(t, 1, fx.accountCalls)
	assert.Equal(t, 1, fx.positionCalls)
}

func TestActiveTradesRendersPositions(t *testing.T) {
	opened := testClock.Add(-3 * time.Hour)
	fx := &fakeExchange{
		positions: []ports.PositionRisk{
			{Symbol: "BTCUSDT", PositionSide: "LONG", PositionAmt: 0.4, EntryPrice: 50000, Leverage: 20, UpdateTime: opened},
			{Symbol: "SOLUSDT", PositionSide: "BOTH", PositionAmt: -20, EntryPrice: 150, UpdateTime: opened},
			{Symbol: "BNBUSDT", PositionSide: "BOTH", PositionAmt: 0},
		},
	}
	svc, _ := newTestService(t, fx)

	trades, err := svc.ActiveTrades(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 2)

	long := trades[0]
	assert.Equal(t, "BTCUSDT:LONG", long.ID)
	assert.Equal(t, "BTC/USDT", long.Symbol)
	assert.Equal(t, domain.Long, long.Direction)
	assert.Equal(t, domain.TradeStatusActive, long.Status)
	assert.Equal(t, 0.4, long.Quantity)
	assert.Equal(t, 20, long.Leverage)
	assert.Equal(t, 49000.0, long.StopLoss)
	assert.Equal(t, 51000.0, long.TakeProfit)
	assert.Equal(t, opened, long.EntryTime)

	short := trades[1]
	assert.Equal(t, "SOLUSDT:SHORT", short.ID)
	assert.Equal(t, domain.Short, short.Direction)
	assert.Equal(t, 20.0, short.Quantity)
	assert.Equal(t, 1, short.Leverage)
	assert.Equal(t, 153.0, short.StopLoss)
	assert.Equal(t, 147.0, short.TakeProfit)
}

func TestTradeHistoryFanOut(t *testing.T) {
	fx := &fakeExchange{
		account: &ports.AccountInfo{
			TotalWalletBalance: 8000,
			Positions: []ports.AccountPosition{
				{Symbol: "BTCUSDT", Leverage: 20},
			},
		},
		positions: []ports.PositionRisk{
			{Symbol: "DOGEUSDT", PositionSide: "LONG", PositionAmt: 100, EntryPrice: 0.2},
			{Symbol: "LINKUSDT", PositionSide: "SHORT", PositionAmt: -5, EntryPrice: 14},
		},
		fills: map[string][]ports.TradeFill{
			"BTCUSDT": {
				{ID: 2001, OrderID: 71, Symbol: "BTCUSDT", Side: "SELL", PositionSide: "BOTH", Price: 61000, Quantity: 0.1, RealizedPnl: 50, Time: testClock.Add(-time.Hour)},
				{ID: 2002, OrderID: 72, Symbol: "BTCUSDT", Side: "BUY", PositionSide: "BOTH", Price: 60500, Quantity: 0.2, RealizedPnl: -10, Time: testClock.Add(-2 * time.Hour)},
			},
			"ETHUSDT": {
				{ID: 3001, OrderID: 73, Symbol: "ETHUSDT", Side: "SELL", PositionSide: "LONG", Price: 3100, Quantity: 1, RealizedPnl: 30, Time: testClock.Add(-90 * time.Minute)},
			},
		},
	}
	svc, _ := newTestService(t, fx)

	trades, err := svc.TradeHistory(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, trades, 3)

	// Newest first across symbols.
	assert.Equal(t, "2001", trades[0].ID)
	assert.Equal(t, "3001", trades[1].ID)
	assert.Equal(t, "2002", trades[2].ID)

	// One-way SELL closed a long; hedge fills carry the side.
	assert.Equal(t, domain.Long, trades[0].Direction)
	assert.Equal(t, domain.Long, trades[1].Direction)
	assert.Equal(t, domain.Short, trades[2].Direction)

	first := trades[0]
	assert.Equal(t, "BTC/USDT", first.Symbol)
	assert.Equal(t, domain.TradeStatusClosed, first.Status)
	assert.Equal(t, 61000.0, first.EntryPrice)
	require.NotNil(t, first.ExitPrice)
	assert.Equal(t, 61000.0, *first.ExitPrice)
	require.NotNil(t, first.Profit)
	assert.Equal(t, 50.0, *first.Profit)
	assert.Equal(t, 20, first.Leverage)
	assert.Equal(t, "71", first.OrderID)

	// Leverage defaults to 1 for symbols missing from the account payload.
	assert.Equal(t, 1, trades[1].Leverage)

	// Configured pairs plus open-position symbols, capped at five.
	symbols := fx.requestedSymbols()
	assert.Equal(t, []string{"BNBUSDT", "BTCUSDT", "DOGEUSDT", "ETHUSDT", "SOLUSDT"}, symbols)
	assert.NotContains(t, symbols, "LINKUSDT")
	assert.Equal(t, 5, fx.fillLimits["BTCUSDT"])
}

func TestTradeHistoryPropagatesFetchError(t *testing.T) {
	fx := &fakeExchange{
		account:  &ports.AccountInfo{},
		fillsErr: ports.ErrRateLimited,
	}
	svc, _ := newTestService(t, fx)

	_, err := svc.TradeHistory(context.Background(), 10)
	require.ErrorIs(t, err, ports.ErrRateLimited)
}

func TestSummaryStats(t *testing.T) {
	fx := &fakeExchange{
		account: &ports.AccountInfo{TotalWalletBalance: 8000.5},
		positions: []ports.PositionRisk{
			{Symbol: "BTCUSDT", PositionSide: "BOTH", PositionAmt: 0.5, EntryPrice: 60000, MarkPrice: 61000},
		},
		fills: map[string][]ports.TradeFill{
			"BTCUSDT": {
				{ID: 1, Symbol: "BTCUSDT", Side: "SELL", Price: 61000, Quantity: 0.1, RealizedPnl: 50, Time: testClock.Add(-time.Hour)},
				{ID: 2, Symbol: "BTCUSDT", Side: "BUY", Price: 60500, Quantity: 0.2, RealizedPnl: -10, Time: testClock.Add(-2 * time.Hour)},
				{ID: 3, Symbol: "BTCUSDT", Side: "SELL", Price: 60800, Quantity: 0.1, RealizedPnl: 30, Time: testClock.Add(-3 * time.Hour)},
			},
		},
		income: []ports.IncomeEvent{
			{IncomeType: ports.IncomeRealizedPnl, Income: 120.5, Time: testClock.Add(-time.Hour)},
			{IncomeType: ports.IncomeRealizedPnl, Income: -20.25, Time: testClock.Add(-5 * time.Hour)},
			{IncomeType: ports.IncomeRealizedPnl, Income: 10, Time: testClock.Add(-23 * time.Hour)},
		},
	}
	svc, _ := newTestService(t, fx)

	stats, err := svc.SummaryStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 110.25, stats.TodayProfit)
	assert.Equal(t, 8000.5, stats.TotalBalance)
	assert.Equal(t, 1, stats.ActiveTrades)
	assert.Equal(t, 66.67, stats.SuccessRate)

	// Today's profit queries realized P&L over the trailing 24 hours.
	assert.Equal(t, ports.IncomeRealizedPnl, fx.incomeType)
	assert.Equal(t, testClock.Add(-24*time.Hour), fx.incomeStart)
	assert.Equal(t, 1000, fx.incomeLimit)
}

func TestDetailedStats(t *testing.T) {
	fx := &fakeExchange{
		account: &ports.AccountInfo{TotalWalletBalance: 8000.5},
		fills: map[string][]ports.TradeFill{
			"BTCUSDT": {
				{ID: 1, Symbol: "BTCUSDT", Side: "SELL", Price: 61000, Quantity: 0.1, RealizedPnl: 50, Time: testClock.Add(-time.Hour)},
				{ID: 2, Symbol: "BTCUSDT", Side: "BUY", Price: 60500, Quantity: 0.2, RealizedPnl: -10, Time: testClock.Add(-2 * time.Hour)},
				{ID: 3, Symbol: "BTCUSDT", Side: "SELL", Price: 60800, Quantity: 0.1, RealizedPnl: 30, Time: testClock.Add(-3 * time.Hour)},
			},
		},
	}
	svc, _ := newTestService(t, fx)

	stats, err := svc.DetailedStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.ClosedTrades)
	assert.Equal(t, 2, stats.Wins)
	assert.Equal(t, 1, stats.Losses)
	assert.Equal(t, 66.67, stats.WinRate)
	assert.Equal(t, 40.0, stats.AvgProfit)
	assert.Equal(t, 10.0, stats.AvgLoss)
	assert.Equal(t, 50.0, stats.BestTrade)
	assert.Equal(t, -10.0, stats.WorstTrade)
	assert.Equal(t, 70.0, stats.TotalProfit)
	assert.Equal(t, int64(21300), stats.TotalVolume)
	assert.Equal(t, stats.WinRate, stats.SuccessRate)

	require.Len(t, stats.DailyProfit, 7)
	today := stats.DailyProfit[6]
	assert.Equal(t, "2025-06-15", today.Date)
	assert.Equal(t, 70.0, today.Profit)
	assert.Equal(t, 3, today.Trades)
}

func TestClosePositionHedgeMode(t *testing.T) {
	fx := &fakeExchange{
		positions: []ports.PositionRisk{
			{Symbol: "BTCUSDT", PositionSide: "LONG", PositionAmt: 0.4, EntryPrice: 50000, MarkPrice: 51000, UnRealizedProfit: 123.456, Leverage: 20},
		},
	}
	svc, store := newTestService(t, fx)

	result, err := svc.ClosePosition(context.Background(), "BTCUSDT:LONG")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "BTCUSDT:LONG", result.TradeID)
	assert.Equal(t, "BTC/USDT", result.Symbol)
	assert.Equal(t, int64(9001), result.OrderID)
	require.NotNil(t, result.Profit)
	assert.Equal(t, 123.46, *result.Profit)

	require.Len(t, fx.orders, 1)
	order := fx.orders[0]
	assert.Equal(t, domain.Sell, order.Side)
	assert.Equal(t, "LONG", order.PositionSide)
	assert.False(t, order.ReduceOnly)
	assert.Equal(t, ports.OrderTypeMarket, order.Type)
	assert.Equal(t, "0.4", order.Quantity)
	assert.Len(t, order.ClientOrderID, 36)

	logs := store.Logs(5, string(domain.LogSuccess))
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[0].Message, "Closed BTC/USDT")
}

func TestClosePositionOneWayMode(t *testing.T) {
	fx := &fakeExchange{
		positions: []ports.PositionRisk{
			{Symbol: "ETHUSDT", PositionSide: "BOTH", PositionAmt: -2.5, EntryPrice: 3200, UnRealizedProfit: -15},
		},
	}
	svc, _ := newTestService(t, fx)

	result, err := svc.ClosePosition(context.Background(), "ETHUSDT:SHORT")
	require.NoError(t, err)
	assert.True(t, result.Success)

	require.Len(t, fx.orders, 1)
	order := fx.orders[0]
	assert.Equal(t, domain.Buy, order.Side)
	assert.True(t, order.ReduceOnly)
	assert.Empty(t, order.PositionSide)
	assert.Equal(t, "2.5", order.Quantity)
}

func TestClosePositionLegacyID(t *testing.T) {
	fx := &fakeExchange{
		positions: []ports.PositionRisk{
			{Symbol: "ETHUSDT", PositionSide: "BOTH", PositionAmt: -2.5, EntryPrice: 3200},
		},
	}
	svc, _ := newTestService(t, fx)

	// Bare display-form ids from older clients still resolve.
	result, err := svc.ClosePosition(context.Background(), "ETH/USDT")
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, fx.orders, 1)
}

func TestClosePositionNotFound(t *testing.T) {
	fx := &fakeExchange{
		positions: []ports.PositionRisk{
			{Symbol: "BTCUSDT", PositionSide: "LONG", PositionAmt: 0.4},
		},
	}
	svc, store := newTestService(t, fx)

	_, err := svc.ClosePosition(context.Background(), "SOLUSDT:LONG")
	require.ErrorIs(t, err, ports.ErrPositionNotFound)
	assert.Empty(t, fx.orders)

	logs := store.Logs(5, string(domain.LogError))
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[0].Message, "not found")
}

func TestClosePositionNoOpenQuantity(t *testing.T) {
	fx := &fakeExchange{
		positions: []ports.PositionRisk{
			{Symbol: "BTCUSDT", PositionSide: "BOTH", PositionAmt: 0},
		},
	}
	svc, _ := newTestService(t, fx)

	result, err := svc.ClosePosition(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "no open quantity")
	assert.Empty(t, fx.orders)
}

func TestClosePositionOrderRejected(t *testing.T) {
	fx := &fakeExchange{
		positions: []ports.PositionRisk{
			{Symbol: "BTCUSDT", PositionSide: "LONG", PositionAmt: 0.4, EntryPrice: 50000},
		},
		orderErrFor: map[string]error{"BTCUSDT": ports.ErrInsufficientFunds},
	}
	svc, store := newTestService(t, fx)

	result, err := svc.ClosePosition(context.Background(), "BTCUSDT:LONG")
	require.ErrorIs(t, err, ports.ErrInsufficientFunds)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Message)

	logs := store.Logs(5, string(domain.LogError))
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[0].Message, "Close failed")
}

func TestCloseAllPositions(t *testing.T) {
	fx := &fakeExchange{
		positions: []ports.PositionRisk{
			{Symbol: "BTCUSDT", PositionSide: "LONG", PositionAmt: 0.4, EntryPrice: 50000, UnRealizedProfit: 80},
			{Symbol: "ETHUSDT", PositionSide: "BOTH", PositionAmt: -2, EntryPrice: 3200, UnRealizedProfit: -5},
			{Symbol: "SOLUSDT", PositionSide: "BOTH", PositionAmt: 0},
		},
		orderErrFor: map[string]error{"ETHUSDT": ports.ErrOrderPlacementFailed},
	}
	svc, _ := newTestService(t, fx)

	result, err := svc.CloseAllPositions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Closed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Results, 2)

	assert.True(t, result.Results[0].Success)
	assert.Equal(t, "BTCUSDT:LONG", result.Results[0].TradeID)
	assert.False(t, result.Results[1].Success)
	assert.Equal(t, "ETHUSDT:SHORT", result.Results[1].TradeID)
	assert.NotEmpty(t, result.Results[1].Message)
}

func TestQuoteReadsThroughCache(t *testing.T) {
	fx := &fakeExchange{
		quotes: map[string]*ports.Quote{
			"BTCUSDT": {Symbol: "BTCUSDT", Price: 70000.5, ChangePercent: 1.2, Time: testClock},
		},
	}
	cache, err := pricecache.New(time.Minute, nil)
	require.NoError(t, err)

	store := mockstore.New(mockstore.Config{Logger: ports.NopLogger{}})
	svc, err := New(Config{
		Logger:   ports.NopLogger{},
		Settings: store,
		Activity: store,
		Quotes:   cache,
		NewClient: func(creds Credentials) (ports.FuturesClient, error) {
			return fx, nil
		},
		EnvCreds: Credentials{APIKey: "key", APISecret: "secret"},
	})
	require.NoError(t, err)

	q, err := svc.Quote(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 70000.5, q.Price)
	assert.Equal(t, 1, fx.tickerCalls)

	cache.Wait()
	q, err = svc.Quote(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 70000.5, q.Price)
	assert.Equal(t, 1, fx.tickerCalls, "second lookup must come from the cache")
}

func TestMarkPrices(t *testing.T) {
	fx := &fakeExchange{
		markPrices: map[string]float64{
			"BTCUSDT": 64000.5,
			"ETHUSDT": 3200.25,
		},
	}
	svc, _ := newTestService(t, fx)

	prices, err := svc.MarkPrices(context.Background(), []string{"BTC/USDT", "ETH/USDT"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"BTC/USDT": 64000.5, "ETH/USDT": 3200.25}, prices)

	_, err = svc.MarkPrices(context.Background(), []string{"DOGE/USDT"})
	require.ErrorIs(t, err, ports.ErrNotFound)
}

func TestKlinesPassthrough(t *testing.T) {
	fx := &fakeExchange{
		klines: []*domain.Kline{
			{OpenTime: testClock.Add(-time.Hour), Open: 100, High: 110, Low: 95, Close: 105},
			{OpenTime: testClock, Open: 105, High: 112, Low: 101, Close: 108},
		},
	}
	svc, _ := newTestService(t, fx)

	klines, err := svc.Klines(context.Background(), "BTCUSDT", "1h", 24)
	require.NoError(t, err)
	assert.Len(t, klines, 2)
	assert.Equal(t, "BTCUSDT", fx.klineSymbol)
	assert.Equal(t, "1h", fx.klineStep)
	assert.Equal(t, 24, fx.klineLimit)
}

func TestTestConnection(t *testing.T) {
	fx := &fakeExchange{
		account:    &ports.AccountInfo{TotalWalletBalance: 5000.123},
		serverTime: testClock.Add(-time.Second),
		dual:       true,
	}
	svc, store := newTestService(t, fx)

	check, err := svc.TestConnection(context.Background())
	require.NoError(t, err)

	assert.True(t, check.Success)
	assert.Equal(t, "Connected in 0ms", check.Message)
	assert.True(t, check.DualSide)
	assert.False(t, check.Testnet)
	assert.Equal(t, 5000.12, check.Balance)
	assert.Equal(t, int64(0), check.LatencyMS)
	assert.Equal(t, testClock.Add(-time.Second), check.ServerTime)

	logs := store.Logs(5, string(domain.LogSuccess))
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[0].Message, "connection verified")
}

func TestTestConnectionFailure(t *testing.T) {
	fx := &fakeExchange{pingErr: ports.ErrConnectionFailed}
	svc, store := newTestService(t, fx)

	_, err := svc.TestConnection(context.Background())
	require.ErrorIs(t, err, ports.ErrConnectionFailed)

	logs := store.Logs(5, string(domain.LogError))
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[0].Message, "connection test failed")
}

func TestFormatQuantity(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0.1, "0.1"},
		{0.4, "0.4"},
		{1, "1"},
		{100, "100"},
		{1.23, "1.23"},
		{0.00012345, "0.00012345"},
		{0, "0"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatQuantity(tc.in), "qty %v", tc.in)
	}
}
