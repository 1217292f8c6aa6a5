// Package app holds the live trading service: the domain adapter that turns
// signed exchange payloads into the dashboard's account, trade and stats
// model. It implements ports.TradingBackend next to the demo store, so the
// HTTP layer can swap between them per request.
package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/algrsh400-debug/ser/internal/adapters/pricecache"
	"github.com/algrsh400-debug/ser/internal/analytics"
	"github.com/algrsh400-debug/ser/internal/domain"
	"github.com/algrsh400-debug/ser/internal/ports"
	"github.com/algrsh400-debug/ser/internal/risk"
)

const (
	// History fan-out caps: at most this many symbols per request, at least
	// this many fills per symbol.
	maxHistorySymbols = 5
	minSymbolFetch    = 5

	incomeFetchLimit = 1000
	dailyProfitDays  = 7
)

// ClientFactory builds an exchange client for a credential set. main injects
// the real HTTP client constructor; tests inject fakes.
type ClientFactory func(creds Credentials) (ports.FuturesClient, error)

// Config holds the live service dependencies.
type Config struct {
	Logger    ports.Logger
	Settings  ports.SettingsStore
	Activity  ports.ActivityRecorder
	Quotes    *pricecache.Cache // optional quote cache
	NewClient ClientFactory
	EnvCreds  Credentials      // environment fallback for credential resolution
	PageSize  int              // history page size (default 20)
	Now       func() time.Time // injectable clock, defaults to time.Now
}

// Service adapts the exchange API to the dashboard model. Safe for
// concurrent use; the cached client is guarded, everything else is
// request-scoped.
type Service struct {
	logger   ports.Logger
	settings ports.SettingsStore
	activity ports.ActivityRecorder
	quotes   *pricecache.Cache
	factory  ClientFactory
	envCreds Credentials
	pageSize int
	now      func() time.Time

	mu     sync.Mutex
	client ports.FuturesClient
	creds  Credentials
}

// New validates the dependencies and builds the service.
func New(cfg Config) (*Service, error) {
	if cfg.Logger == nil || cfg.Settings == nil || cfg.Activity == nil || cfg.NewClient == nil {
		return nil, fmt.Errorf("missing required dependencies for trading service")
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logger:   cfg.Logger,
		settings: cfg.Settings,
		activity: cfg.Activity,
		quotes:   cfg.Quotes,
		factory:  cfg.NewClient,
		envCreds: cfg.EnvCreds,
		pageSize: pageSize,
		now:      now,
	}, nil
}

// Credentials returns the currently effective exchange credentials.
func (s *Service) Credentials() Credentials {
	return ResolveCredentials(s.settings.Settings(), s.envCreds)
}

// HasCredentials reports whether the live exchange path is available.
func (s *Service) HasCredentials() bool {
	return s.Credentials().Configured()
}

// Client returns the exchange client for the current credentials, rebuilding
// it when a settings update changed them.
func (s *Service) Client() (ports.FuturesClient, error) {
	creds := s.Credentials()
	if !creds.Configured() {
		return nil, ports.ErrNoCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil && s.creds == creds {
		return s.client, nil
	}

	client, err := s.factory(creds)
	if err != nil {
		return nil, fmt.Errorf("building exchange client: %w", err)
	}
	s.client = client
	s.creds = creds
	s.logger.Info(context.Background(), "Exchange client ready", map[string]interface{}{
		"testnet": creds.Testnet,
	})
	return client, nil
}

func (s *Service) begin() (*session, error) {
	client, err := s.Client()
	if err != nil {
		return nil, err
	}
	return &session{client: client}, nil
}

// --- Account and positions ---

// AccountState implements ports.TradingBackend for the live path. Balances
// and position rows are fetched concurrently; flat rows are dropped.
func (s *Service) AccountState(ctx context.Context) (domain.AccountState, error) {
	sess, err := s.begin()
	if err != nil {
		return domain.AccountState{}, err
	}
	if err := sess.fetchBoth(ctx); err != nil {
		return domain.AccountState{}, fmt.Errorf("account state: %w", err)
	}
	acct, _ := sess.accountInfo(ctx)
	open, _ := sess.openPositions(ctx)

	state := domain.AccountState{
		Connected:        true,
		TotalBalance:     domain.Round2(acct.TotalWalletBalance),
		AvailableBalance: domain.Round2(acct.AvailableBalance),
		Positions:        make([]domain.Position, 0, len(open)),
	}
	var unrealized float64
	for _, row := range open {
		dir := domain.DirectionFromPositionSide(row.PositionSide, row.PositionAmt)
		qty := math.Abs(row.PositionAmt)
		pnl := domain.UnrealizedPnl(row.EntryPrice, row.MarkPrice, qty, dir)
		unrealized += pnl
		state.Positions = append(state.Positions, domain.Position{
			Symbol:           domain.FromWireSymbol(row.Symbol),
			Side:             dir,
			EntryPrice:       row.EntryPrice,
			MarkPrice:        row.MarkPrice,
			Quantity:         qty,
			Leverage:         leverageOrDefault(row.Leverage),
			UnrealizedProfit: pnl,
			LiquidationPrice: row.LiquidationPrice,
		})
	}
	state.UnrealizedProfit = domain.Round2(unrealized)
	return state, nil
}

// ActiveTrades implements ports.TradingBackend: open position rows rendered
// as trades.
func (s *Service) ActiveTrades(ctx context.Context) ([]domain.Trade, error) {
	sess, err := s.begin()
	if err != nil {
		return nil, err
	}
	open, err := sess.openPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("active trades: %w", err)
	}

	st := s.settings.Settings()
	trades := make([]domain.Trade, 0, len(open))
	for _, row := range open {
		trades = append(trades, positionTrade(row, st))
	}
	return trades, nil
}

// positionTrade renders one open position row as a dashboard trade. The id
// is "SYMBOL:SIDE" so hedged long and short positions on one symbol stay
// distinguishable. The exchange does not report protective orders here, so
// the stop and target shown are derived from the configured distances.
func positionTrade(row ports.PositionRisk, st domain.BotSettings) domain.Trade {
	dir := domain.DirectionFromPositionSide(row.PositionSide, row.PositionAmt)
	entry := row.EntryPrice
	brackets := risk.BracketsFor(entry, dir, st.StopLossPercent, st.TakeProfitPercent)
	return domain.Trade{
		ID:         row.Symbol + ":" + dir.PositionSide(),
		Symbol:     domain.FromWireSymbol(row.Symbol),
		Direction:  dir,
		Status:     domain.TradeStatusActive,
		EntryPrice: entry,
		Quantity:   math.Abs(row.PositionAmt),
		Leverage:   leverageOrDefault(row.Leverage),
		StopLoss:   domain.Round2(brackets.StopLoss),
		TakeProfit: domain.Round2(brackets.TakeProfit),
		EntryTime:  row.UpdateTime,
	}
}

// --- Trade history ---

// TradeHistory implements ports.TradingBackend: recent fills across the
// configured and open symbols, rendered as closed trades, newest first.
func (s *Service) TradeHistory(ctx context.Context, limit int) ([]domain.Trade, error) {
	sess, err := s.begin()
	if err != nil {
		return nil, err
	}
	return s.history(ctx, sess, limit)
}

func (s *Service) history(ctx context.Context, sess *session, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = s.pageSize
	}
	if err := sess.fetchBoth(ctx); err != nil {
		return nil, fmt.Errorf("trade history: %w", err)
	}

	symbols := s.historySymbols(ctx, sess)
	if len(symbols) == 0 {
		return []domain.Trade{}, nil
	}
	leverage, _ := sess.leverageBySymbol(ctx)
	perSymbol := limit / len(symbols)
	if perSymbol < minSymbolFetch {
		perSymbol = minSymbolFetch
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		fills    []ports.TradeFill
		firstErr error
	)
	for _, symbol := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			rows, err := sess.client.UserTrades(ctx, symbol, perSymbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			fills = append(fills, rows...)
		}(symbol)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, fmt.Errorf("trade history: %w", firstErr)
	}

	trades := make([]domain.Trade, 0, len(fills))
	for _, fill := range fills {
		trades = append(trades, fillTrade(fill, leverage))
	}
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].EntryTime.After(trades[j].EntryTime)
	})
	if len(trades) > limit {
		trades = trades[:limit]
	}
	return trades, nil
}

// historySymbols unions the configured trading pairs with the symbols that
// have open positions, capped to the fan-out limit.
func (s *Service) historySymbols(ctx context.Context, sess *session) []string {
	seen := make(map[string]bool)
	var symbols []string
	add := func(wire string) {
		if wire == "" || seen[wire] || len(symbols) >= maxHistorySymbols {
			return
		}
		seen[wire] = true
		symbols = append(symbols, wire)
	}

	for _, pair := range s.settings.Settings().TradingPairs {
		add(domain.ToWireSymbol(pair))
	}
	open, _ := sess.openPositions(ctx)
	for _, row := range open {
		add(row.Symbol)
	}
	return symbols
}

// fillTrade renders one account fill as a closed trade. Fills do not carry
// the position's entry price, so the fill price stands in for both legs; the
// realized profit is the exchange's own number.
func fillTrade(fill ports.TradeFill, leverage map[string]int) domain.Trade {
	price := fill.Price
	profit := domain.Round2(fill.RealizedPnl)
	exitTime := fill.Time
	return domain.Trade{
		ID:         strconv.FormatInt(fill.ID, 10),
		Symbol:     domain.FromWireSymbol(fill.Symbol),
		Direction:  fillDirection(fill),
		Status:     domain.TradeStatusClosed,
		EntryPrice: price,
		ExitPrice:  &price,
		Quantity:   fill.Quantity,
		Leverage:   leverageOrDefault(leverage[fill.Symbol]),
		Profit:     &profit,
		EntryTime:  fill.Time,
		ExitTime:   &exitTime,
		OrderID:    strconv.FormatInt(fill.OrderID, 10),
	}
}

// fillDirection recovers the position side a fill acted on. Hedge-mode fills
// carry it; one-way fills are classified by order side (a SELL reduces a
// long).
func fillDirection(fill ports.TradeFill) domain.Direction {
	switch strings.ToUpper(fill.PositionSide) {
	case "LONG":
		return domain.Long
	case "SHORT":
		return domain.Short
	}
	if strings.EqualFold(fill.Side, string(domain.Sell)) {
		return domain.Long
	}
	return domain.Short
}

// --- Statistics ---

// SummaryStats implements ports.TradingBackend: the headline numbers.
func (s *Service) SummaryStats(ctx context.Context) (domain.SummaryStats, error) {
	sess, err := s.begin()
	if err != nil {
		return domain.SummaryStats{}, err
	}
	page, err := s.history(ctx, sess, s.pageSize)
	if err != nil {
		return domain.SummaryStats{}, err
	}
	return s.summarize(ctx, sess, page)
}

// summarize builds the summary from an already-fetched history page. Today's
// profit comes from realized-P&L income events over the trailing 24 hours.
func (s *Service) summarize(ctx context.Context, sess *session, page []domain.Trade) (domain.SummaryStats, error) {
	acct, err := sess.accountInfo(ctx)
	if err != nil {
		return domain.SummaryStats{}, fmt.Errorf("summary stats: %w", err)
	}
	open, err := sess.openPositions(ctx)
	if err != nil {
		return domain.SummaryStats{}, fmt.Errorf("summary stats: %w", err)
	}
	events, err := sess.client.Income(ctx, ports.IncomeRealizedPnl, s.now().Add(-24*time.Hour), incomeFetchLimit)
	if err != nil {
		return domain.SummaryStats{}, fmt.Errorf("summary stats: %w", err)
	}

	var today float64
	for _, e := range events {
		today += e.Income
	}
	return domain.SummaryStats{
		TodayProfit:  domain.Round2(today),
		TotalBalance: domain.Round2(acct.TotalWalletBalance),
		ActiveTrades: len(open),
		SuccessRate:  analytics.WinRate(page),
	}, nil
}

// DetailedStats implements ports.TradingBackend. The analytics engine runs
// over a window of twice the page size; the summary's success rate stays on
// the first page of that window.
func (s *Service) DetailedStats(ctx context.Context) (domain.DetailedStats, error) {
	sess, err := s.begin()
	if err != nil {
		return domain.DetailedStats{}, err
	}
	window, err := s.history(ctx, sess, 2*s.pageSize)
	if err != nil {
		return domain.DetailedStats{}, err
	}
	page := window
	if len(page) > s.pageSize {
		page = page[:s.pageSize]
	}
	summary, err := s.summarize(ctx, sess, page)
	if err != nil {
		return domain.DetailedStats{}, err
	}
	return domain.DetailedStats{
		SummaryStats: summary,
		TradeStats:   analytics.Compute(window),
		DailyProfit:  analytics.DailyProfit(window, dailyProfitDays, s.now()),
	}, nil
}

// --- Closing positions ---

// ClosePosition implements ports.TradingBackend. The id is resolved back to
// a live position row and closed with a market order in the opposite
// direction.
func (s *Service) ClosePosition(ctx context.Context, id string) (domain.CloseResult, error) {
	sess, err := s.begin()
	if err != nil {
		return domain.CloseResult{}, err
	}
	rows, err := sess.positionRisk(ctx)
	if err != nil {
		return domain.CloseResult{}, fmt.Errorf("close %q: %w", id, err)
	}

	row, ok := matchPosition(rows, id)
	if !ok {
		s.activity.Record(domain.LogError, "Close failed: position not found", id)
		return domain.CloseResult{}, fmt.Errorf("close %q: %w", id, ports.ErrPositionNotFound)
	}
	result, err := s.closeRow(ctx, sess, id, row)
	if err != nil {
		return result, err
	}
	return result, nil
}

// CloseAllPositions implements ports.TradingBackend. Every open position is
// closed independently; failures land in the per-position results instead of
// aborting the batch.
func (s *Service) CloseAllPositions(ctx context.Context) (domain.CloseAllResult, error) {
	sess, err := s.begin()
	if err != nil {
		return domain.CloseAllResult{}, err
	}
	open, err := sess.openPositions(ctx)
	if err != nil {
		return domain.CloseAllResult{}, fmt.Errorf("close all: %w", err)
	}

	results := make([]domain.CloseResult, 0, len(open))
	for _, row := range open {
		dir := domain.DirectionFromPositionSide(row.PositionSide, row.PositionAmt)
		id := row.Symbol + ":" + dir.PositionSide()
		result, err := s.closeRow(ctx, sess, id, row)
		if err != nil {
			s.logger.Warn(ctx, "Close-all: position close failed", map[string]interface{}{
				"id":    id,
				"error": err.Error(),
			})
		}
		results = append(results, result)
	}
	return domain.NewCloseAllResult(results), nil
}

// matchPosition resolves a dashboard trade id to a position row. Ids are
// "SYMBOL:SIDE"; bare legacy "SYMBOL" ids match the first open row on that
// symbol. Display-form symbols are tolerated. A flat row on a matching
// symbol is returned when nothing is open, so the caller can answer with a
// "no quantity" result instead of a 404.
func matchPosition(rows []ports.PositionRisk, id string) (ports.PositionRisk, bool) {
	symbol, side, qualified := strings.Cut(id, ":")
	wire := domain.ToWireSymbol(symbol)

	var flat *ports.PositionRisk
	for i := range rows {
		row := rows[i]
		if row.Symbol != wire {
			continue
		}
		dir := domain.DirectionFromPositionSide(row.PositionSide, row.PositionAmt)
		if qualified && row.PositionAmt != 0 && dir.PositionSide() != strings.ToUpper(side) {
			continue
		}
		if row.PositionAmt != 0 {
			return row, true
		}
		if flat == nil {
			flat = &rows[i]
		}
	}
	if flat != nil {
		return *flat, true
	}
	return ports.PositionRisk{}, false
}

// closeRow closes one position row. Every attempt, success or failure, lands
// on the activity feed.
func (s *Service) closeRow(ctx context.Context, sess *session, id string, row ports.PositionRisk) (domain.CloseResult, error) {
	op := "ClosePosition"
	display := domain.FromWireSymbol(row.Symbol)

	if row.PositionAmt == 0 {
		s.activity.Record(domain.LogInfo, fmt.Sprintf("Close skipped for %s: no open quantity", display), id)
		return domain.CloseResult{
			TradeID: id,
			Symbol:  display,
			Success: true,
			Message: "position has no open quantity",
		}, nil
	}

	dir := domain.DirectionFromPositionSide(row.PositionSide, row.PositionAmt)
	req := ports.OrderRequest{
		Symbol:        row.Symbol,
		Side:          dir.CloseSide(),
		Type:          ports.OrderTypeMarket,
		Quantity:      formatQuantity(math.Abs(row.PositionAmt)),
		ClientOrderID: uuid.NewString(),
	}
	// Hedge mode closes by position side; one-way mode uses reduce-only.
	// The exchange rejects a request carrying both.
	if strings.EqualFold(row.PositionSide, "BOTH") {
		req.ReduceOnly = true
	} else {
		req.PositionSide = row.PositionSide
	}

	s.logger.Info(ctx, op+": placing close order", map[string]interface{}{
		"symbol":   row.Symbol,
		"side":     req.Side,
		"quantity": req.Quantity,
	})
	resp, err := sess.client.PlaceOrder(ctx, req)
	if err != nil {
		s.activity.Record(domain.LogError, fmt.Sprintf("Close failed for %s: %v", display, err), id)
		return domain.CloseResult{
			TradeID: id,
			Symbol:  display,
			Message: err.Error(),
		}, fmt.Errorf("close %s: %w", display, err)
	}

	profit := domain.Round2(row.UnRealizedProfit)
	s.activity.Record(domain.LogSuccess,
		fmt.Sprintf("Closed %s: %+.2f USDT (order %d)", display, profit, resp.OrderID), id)
	return domain.CloseResult{
		TradeID: id,
		Symbol:  display,
		Success: true,
		OrderID: resp.OrderID,
		Profit:  &profit,
		Message: "close order filled",
	}, nil
}

// --- Market data ---

// Quote returns the 24h ticker for a wire symbol, read through the TTL
// cache when one is wired.
func (s *Service) Quote(ctx context.Context, symbol string) (*ports.Quote, error) {
	if s.quotes != nil {
		if q, ok := s.quotes.Get(symbol); ok {
			return &q, nil
		}
	}
	client, err := s.Client()
	if err != nil {
		return nil, err
	}
	q, err := client.Ticker24h(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if s.quotes != nil {
		s.quotes.Set(*q)
	}
	return q, nil
}

// MarkPrice returns the current mark price for a wire symbol.
func (s *Service) MarkPrice(ctx context.Context, symbol string) (float64, error) {
	client, err := s.Client()
	if err != nil {
		return 0, err
	}
	return client.MarkPrice(ctx, symbol)
}

// MarkPrices fetches mark prices for the given display symbols in parallel,
// keyed by display symbol.
func (s *Service) MarkPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	client, err := s.Client()
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	out := make(map[string]float64, len(symbols))
	for _, display := range symbols {
		wg.Add(1)
		go func(display string) {
			defer wg.Done()
			price, err := client.MarkPrice(ctx, domain.ToWireSymbol(display))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			out[display] = price
		}(display)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, fmt.Errorf("mark prices: %w", firstErr)
	}
	return out, nil
}

// Klines proxies candlestick data for the chart feed.
func (s *Service) Klines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	client, err := s.Client()
	if err != nil {
		return nil, err
	}
	return client.Klines(ctx, symbol, interval, limit)
}

// --- Connection test ---

// ConnectionCheck is the result of a connection test against the exchange.
type ConnectionCheck struct {
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	Testnet    bool      `json:"testnet"`
	DualSide   bool      `json:"dualSidePosition"`
	Balance    float64   `json:"balance"`
	LatencyMS  int64     `json:"latencyMs"`
	ServerTime time.Time `json:"serverTime"`
}

// TestConnection verifies the exchange path end to end: connectivity, server
// time, a signed account read and the position mode. The outcome lands on
// the activity feed either way.
func (s *Service) TestConnection(ctx context.Context) (ConnectionCheck, error) {
	client, err := s.Client()
	if err != nil {
		return ConnectionCheck{}, err
	}

	fail := func(stage string, err error) (ConnectionCheck, error) {
		s.activity.Record(domain.LogError, "Exchange connection test failed", err.Error())
		return ConnectionCheck{}, fmt.Errorf("connection test %s: %w", stage, err)
	}

	start := s.now()
	if err := client.Ping(ctx); err != nil {
		return fail("ping", err)
	}
	serverTime, err := client.ServerTime(ctx)
	if err != nil {
		return fail("server time", err)
	}
	acct, err := client.Account(ctx)
	if err != nil {
		return fail("account", err)
	}
	dual, err := client.PositionMode(ctx)
	if err != nil {
		return fail("position mode", err)
	}
	latency := s.now().Sub(start).Milliseconds()

	s.activity.Record(domain.LogSuccess, fmt.Sprintf("Exchange connection verified (%dms)", latency), "")
	return ConnectionCheck{
		Success:    true,
		Message:    fmt.Sprintf("Connected in %dms", latency),
		Testnet:    s.Credentials().Testnet,
		DualSide:   dual,
		Balance:    domain.Round2(acct.TotalWalletBalance),
		LatencyMS:  latency,
		ServerTime: serverTime,
	}, nil
}

// --- Helpers ---

func leverageOrDefault(lev int) int {
	if lev <= 0 {
		return 1
	}
	return lev
}

// formatQuantity renders a base-asset quantity the way the exchange expects:
// 8 decimal places with trailing zeros stripped.
func formatQuantity(qty float64) string {
	out := decimal.NewFromFloat(qty).StringFixed(8)
	out = strings.TrimRight(out, "0")
	out = strings.TrimRight(out, ".")
	if out == "" || out == "-" {
		return "0"
	}
	return out
}
