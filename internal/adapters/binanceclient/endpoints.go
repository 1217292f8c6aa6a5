package binanceclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/algrsh400-debug/ser/internal/domain"
	"github.com/algrsh400-debug/ser/internal/ports"
)

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	start := time.Now()
	err := c.do(ctx, http.MethodGet, "/fapi/v1/ping", nil, false, nil)
	c.observe(op, start, err)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// ServerTime retrieves the current server time from the exchange.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	op := "ServerTime"
	start := time.Now()
	var resp serverTimeResponse
	err := c.do(ctx, http.MethodGet, "/fapi/v1/time", nil, false, &resp)
	c.observe(op, start, err)
	if err != nil {
		return time.Time{}, c.handleError(ctx, err, op)
	}
	return time.UnixMilli(resp.ServerTime), nil
}

// Account retrieves balances and per-symbol account rows.
func (c *Client) Account(ctx context.Context) (*ports.AccountInfo, error) {
	op := "Account"
	start := time.Now()
	var resp accountResponse
	err := c.do(ctx, http.MethodGet, "/fapi/v2/account", nil, true, &resp)
	c.observe(op, start, err)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	info, err := translateAccount(&resp)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	return info, nil
}

// PositionRisk retrieves risk rows for all positions, flat ones included.
func (c *Client) PositionRisk(ctx context.Context) ([]ports.PositionRisk, error) {
	op := "PositionRisk"
	start := time.Now()
	var rows []positionRiskRow
	err := c.do(ctx, http.MethodGet, "/fapi/v2/positionRisk", nil, true, &rows)
	c.observe(op, start, err)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	positions := make([]ports.PositionRisk, 0, len(rows))
	for _, row := range rows {
		positions = append(positions, translatePositionRisk(row))
	}
	return positions, nil
}

// UserTrades retrieves the most recent fills for a symbol, up to limit.
func (c *Client) UserTrades(ctx context.Context, symbol string, limit int) ([]ports.TradeFill, error) {
	op := "UserTrades"
	params := url.Values{}
	params.Set("symbol", symbol)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	start := time.Now()
	var rows []userTradeRow
	err := c.do(ctx, http.MethodGet, "/fapi/v1/userTrades", params, true, &rows)
	c.observe(op, start, err)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	fills := make([]ports.TradeFill, 0, len(rows))
	for _, row := range rows {
		fills = append(fills, translateFill(row))
	}
	return fills, nil
}

// Income retrieves income history of the given type since startTime.
func (c *Client) Income(ctx context.Context, incomeType string, startTime time.Time, limit int) ([]ports.IncomeEvent, error) {
	op := "Income"
	params := url.Values{}
	if incomeType != "" {
		params.Set("incomeType", incomeType)
	}
	if !startTime.IsZero() {
		params.Set("startTime", strconv.FormatInt(startTime.UnixMilli(), 10))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	start := time.Now()
	var rows []incomeRow
	err := c.do(ctx, http.MethodGet, "/fapi/v1/income", params, true, &rows)
	c.observe(op, start, err)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	events := make([]ports.IncomeEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, ports.IncomeEvent{
			Symbol:     row.Symbol,
			IncomeType: row.IncomeType,
			Income:     looseDecimal(row.Income),
			Asset:      row.Asset,
			Time:       time.UnixMilli(row.Time),
			TranID:     row.TranID,
		})
	}
	return events, nil
}

// Klines retrieves historical klines/candlestick data for the given symbol.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	op := "Klines"
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	start := time.Now()
	var rows [][]interface{}
	err := c.do(ctx, http.MethodGet, "/fapi/v1/klines", params, false, &rows)
	c.observe(op, start, err)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	klines := make([]*domain.Kline, 0, len(rows))
	for _, row := range rows {
		k, err := translateKlineRow(row, symbol, interval)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate kline: %w", err), op)
		}
		klines = append(klines, k)
	}
	return klines, nil
}

// Ticker24h retrieves the rolling 24h ticker for a symbol.
func (c *Client) Ticker24h(ctx context.Context, symbol string) (*ports.Quote, error) {
	op := "Ticker24h"
	params := url.Values{}
	params.Set("symbol", symbol)

	start := time.Now()
	var resp ticker24hResponse
	err := c.do(ctx, http.MethodGet, "/fapi/v1/ticker/24hr", params, false, &resp)
	c.observe(op, start, err)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	price, err := parseDecimal("lastPrice", resp.LastPrice)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	return &ports.Quote{
		Symbol:        resp.Symbol,
		Price:         price,
		ChangePercent: looseDecimal(resp.PriceChangePercent),
		High24h:       looseDecimal(resp.HighPrice),
		Low24h:        looseDecimal(resp.LowPrice),
		Volume24h:     looseDecimal(resp.Volume),
		Time:          time.Now(),
	}, nil
}

// MarkPrice retrieves the current mark price for a symbol from the premium
// index endpoint. Cheaper than the full 24h ticker when only a price is
// needed.
func (c *Client) MarkPrice(ctx context.Context, symbol string) (float64, error) {
	op := "MarkPrice"
	params := url.Values{}
	params.Set("symbol", symbol)

	start := time.Now()
	var resp premiumIndexResponse
	err := c.do(ctx, http.MethodGet, "/fapi/v1/premiumIndex", params, false, &resp)
	c.observe(op, start, err)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}

	price, err := parseDecimal("markPrice", resp.MarkPrice)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	return price, nil
}

// PositionMode reports whether the account is in hedge (dual-side) mode.
func (c *Client) PositionMode(ctx context.Context) (bool, error) {
	op := "PositionMode"
	start := time.Now()
	var resp positionModeResponse
	err := c.do(ctx, http.MethodGet, "/fapi/v1/positionSide/dual", nil, true, &resp)
	c.observe(op, start, err)
	if err != nil {
		return false, c.handleError(ctx, err, op)
	}
	return resp.DualSidePosition, nil
}

// PlaceOrder submits an order and returns the exchange's response.
func (c *Client) PlaceOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderResponse, error) {
	op := "PlaceOrder"
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", req.Type)
	params.Set("quantity", req.Quantity)
	// RESULT makes the exchange wait for the fill so avgPrice comes back.
	params.Set("newOrderRespType", "RESULT")
	if req.PositionSide != "" {
		params.Set("positionSide", req.PositionSide)
	}
	if req.ReduceOnly {
		params.Set("reduceOnly", "true")
	}
	if req.ClientOrderID != "" {
		params.Set("newClientOrderId", req.ClientOrderID)
	}

	start := time.Now()
	var resp orderWire
	err := c.do(ctx, http.MethodPost, "/fapi/v1/order", params, true, &resp)
	c.observe(op, start, err)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	order := translateOrder(resp)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol":   req.Symbol,
		"side":     req.Side,
		"quantity": req.Quantity,
		"orderID":  order.OrderID,
		"avgPrice": order.AvgPrice,
	})
	return order, nil
}

// CancelOrder cancels an open order by its id.
func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) (*ports.OrderResponse, error) {
	op := "CancelOrder"
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))

	start := time.Now()
	var resp orderWire
	err := c.do(ctx, http.MethodDelete, "/fapi/v1/order", params, true, &resp)
	c.observe(op, start, err)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	order := translateOrder(resp)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol":  symbol,
		"orderID": orderID,
		"status":  order.Status,
	})
	return order, nil
}

// --- Translation Helpers ---

func translateAccount(resp *accountResponse) (*ports.AccountInfo, error) {
	total, err := parseDecimal("totalWalletBalance", resp.TotalWalletBalance)
	if err != nil {
		return nil, err
	}
	available, err := parseDecimal("availableBalance", resp.AvailableBalance)
	if err != nil {
		return nil, err
	}

	info := &ports.AccountInfo{
		TotalWalletBalance: total,
		AvailableBalance:   available,
		UnrealizedProfit:   looseDecimal(resp.TotalUnrealizedProfit),
		Positions:          make([]ports.AccountPosition, 0, len(resp.Positions)),
	}
	for _, row := range resp.Positions {
		info.Positions = append(info.Positions, ports.AccountPosition{
			Symbol:           row.Symbol,
			PositionSide:     row.PositionSide,
			PositionAmt:      looseDecimal(row.PositionAmt),
			EntryPrice:       looseDecimal(row.EntryPrice),
			UnrealizedProfit: looseDecimal(row.UnrealizedProfit),
			Leverage:         looseInt(row.Leverage),
			Isolated:         row.Isolated,
		})
	}
	return info, nil
}

func translatePositionRisk(row positionRiskRow) ports.PositionRisk {
	return ports.PositionRisk{
		Symbol:           row.Symbol,
		PositionSide:     row.PositionSide,
		PositionAmt:      looseDecimal(row.PositionAmt),
		EntryPrice:       looseDecimal(row.EntryPrice),
		MarkPrice:        looseDecimal(row.MarkPrice),
		UnRealizedProfit: looseDecimal(row.UnRealizedProfit),
		LiquidationPrice: looseDecimal(row.LiquidationPrice),
		Leverage:         looseInt(row.Leverage),
		UpdateTime:       time.UnixMilli(row.UpdateTime),
	}
}

func translateFill(row userTradeRow) ports.TradeFill {
	return ports.TradeFill{
		ID:           row.ID,
		OrderID:      row.OrderID,
		Symbol:       row.Symbol,
		Side:         row.Side,
		PositionSide: row.PositionSide,
		Price:        looseDecimal(row.Price),
		Quantity:     looseDecimal(row.Qty),
		QuoteQty:     looseDecimal(row.QuoteQty),
		RealizedPnl:  looseDecimal(row.RealizedPnl),
		Commission:   looseDecimal(row.Commission),
		Maker:        row.Maker,
		Time:         time.UnixMilli(row.Time),
	}
}

func translateOrder(w orderWire) *ports.OrderResponse {
	return &ports.OrderResponse{
		OrderID:       w.OrderID,
		Symbol:        w.Symbol,
		ClientOrderID: w.ClientOrderID,
		Price:         looseDecimal(w.Price),
		AvgPrice:      looseDecimal(w.AvgPrice),
		OrigQuantity:  looseDecimal(w.OrigQty),
		ExecutedQty:   looseDecimal(w.ExecutedQty),
		Status:        w.Status,
		Type:          w.Type,
		Side:          w.Side,
		PositionSide:  w.PositionSide,
		ReduceOnly:    w.ReduceOnly,
		UpdateTime:    time.UnixMilli(w.UpdateTime),
	}
}

// translateKlineRow converts one kline array row. The exchange sends mixed
// arrays: numbers for timestamps, decimal strings for prices and volume.
func translateKlineRow(row []interface{}, symbol, interval string) (*domain.Kline, error) {
	if len(row) < 7 {
		return nil, fmt.Errorf("kline row has %d fields, expected at least 7", len(row))
	}
	openTime, ok := row[0].(float64)
	if !ok {
		return nil, fmt.Errorf("kline open time is %T, expected number", row[0])
	}
	closeTime, ok := row[6].(float64)
	if !ok {
		return nil, fmt.Errorf("kline close time is %T, expected number", row[6])
	}

	prices := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		s, ok := row[i].(string)
		if !ok {
			return nil, fmt.Errorf("kline field %d is %T, expected string", i, row[i])
		}
		v, err := parseDecimal("kline field", s)
		if err != nil {
			return nil, err
		}
		prices[i-1] = v
	}

	return &domain.Kline{
		OpenTime:  time.UnixMilli(int64(openTime)),
		CloseTime: time.UnixMilli(int64(closeTime)),
		Symbol:    domain.FromWireSymbol(symbol),
		Interval:  interval,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    prices[4],
	}, nil
}
