package binanceclient

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/algrsh400-debug/ser/internal/observability"
	"github.com/algrsh400-debug/ser/internal/ports"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	apiKeyHeader = "X-MBX-APIKEY"

	defaultRecvWindow = 5000
	defaultTimeout    = 10 * time.Second
	defaultRateLimit  = 8 // requests per second
)

// Client implements ports.FuturesClient against the USDT-margined futures
// REST API. Signed requests carry a millisecond timestamp, a receive window
// and an HMAC-SHA256 signature over the encoded parameters.
type Client struct {
	baseURL    string
	apiKey     string
	secretKey  string
	recvWindow int64
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     ports.Logger
	metrics    *observability.Metrics

	signOnce sync.Once
	signKey  []byte
}

// Config holds configuration specific to the exchange client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	BaseURL    string        // Explicit base URL override, wins over UseTestnet
	RecvWindow int64         // Signed-request receive window in ms (default 5000)
	Timeout    time.Duration // Per-request timeout (default 10s)
	RateLimit  float64       // Outbound requests per second (default 8)
	Logger     ports.Logger
	Metrics    *observability.Metrics // Optional
	HTTPClient *http.Client           // Optional, mainly for tests
}

// New creates a new exchange client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for exchange client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.UseTestnet {
			baseURL = baseURLTestnet
		} else {
			baseURL = baseURLProduction
		}
	}
	cfg.Logger.Info(context.Background(), "exchange client configured", map[string]interface{}{
		"baseURL": baseURL,
		"testnet": cfg.UseTestnet,
	})

	recvWindow := cfg.RecvWindow
	if recvWindow <= 0 {
		recvWindow = defaultRecvWindow
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = defaultRateLimit
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		secretKey:  cfg.SecretKey,
		recvWindow: recvWindow,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}, nil
}

// sign computes the hex HMAC-SHA256 of payload. The signing key is derived
// from the secret once and reused for the lifetime of the client.
func (c *Client) sign(payload string) string {
	c.signOnce.Do(func() {
		c.signKey = []byte(c.secretKey)
	})
	mac := hmac.New(sha256.New, c.signKey)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// do performs one REST call. Signed requests get timestamp and recvWindow
// parameters plus a signature appended after encoding; the API key header is
// attached on signed and non-GET requests. GET parameters travel in the query
// string, everything else as a urlencoded body.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, signed bool, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	if signed {
		if c.apiKey == "" || c.secretKey == "" {
			return ports.ErrNoCredentials
		}
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		params.Set("recvWindow", strconv.FormatInt(c.recvWindow, 10))
	}

	encoded := params.Encode()
	if signed {
		encoded += "&signature=" + c.sign(encoded)
	}

	var (
		req *http.Request
		err error
	)
	if method == http.MethodGet {
		u := c.baseURL + path
		if encoded != "" {
			u += "?" + encoded
		}
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(encoded))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	if signed || method != http.MethodGet {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, body)
	}
	return decodeBody(body, out)
}

// decodeBody parses a successful response. An empty body is treated as an
// empty object so endpoints like ping decode into nothing.
func decodeBody(body []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrMalformedResponse, err)
	}
	return nil
}

// APIError is a non-2xx response from the exchange, with the error code and
// message extracted from the body when present.
type APIError struct {
	Status int    // HTTP status code
	Code   int64  // Exchange error code (e.g., -1021), 0 when absent
	Msg    string // Exchange error message
	Body   string // Raw response body for diagnostics
}

func (e *APIError) Error() string {
	if e.Code != 0 || e.Msg != "" {
		return fmt.Sprintf("exchange API error: status=%d code=%d msg=%q", e.Status, e.Code, e.Msg)
	}
	return fmt.Sprintf("exchange API error: status=%d body=%q", e.Status, e.Body)
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Body: string(body)}
	var payload struct {
		Code int64  `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Msg = payload.Msg
	}
	return apiErr
}

// handleError translates exchange API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	if errors.Is(err, ports.ErrNoCredentials) {
		return fmt.Errorf("%s failed: %w", operation, ports.ErrNoCredentials)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Msg
		fields["httpStatus"] = apiErr.Status

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Signature for this request is not valid
			mappedErr = ports.ErrAuthenticationFailed
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115,
			-1116, -1117, -1120, -1121, -1125, -1127, -1128, -1130: // Parameter/request format errors
			mappedErr = ports.ErrInvalidRequest
		case -2010: // New order rejected
			mappedErr = ports.ErrOrderPlacementFailed
		case -2011: // Cancel order rejected
			mappedErr = ports.ErrOrderCancelFailed
		case -2013: // Order does not exist
			mappedErr = ports.ErrOrderNotFound
		case -2014, -2015: // API-key format invalid / invalid key, IP or permissions
			mappedErr = ports.ErrInvalidAPIKeys
		case -2019, -3005, -3041: // Insufficient margin/balance
			mappedErr = ports.ErrInsufficientFunds
		case -2022: // ReduceOnly order is rejected
			mappedErr = ports.ErrOrderPlacementFailed
		case -4044: // Position not found
			mappedErr = ports.ErrPositionNotFound
		default:
			switch apiErr.Status {
			case http.StatusTooManyRequests, http.StatusTeapot: // 418 is the exchange's auto-ban status
				mappedErr = ports.ErrRateLimited
			case http.StatusUnauthorized, http.StatusForbidden:
				mappedErr = ports.ErrAuthenticationFailed
			default:
				mappedErr = ports.ErrUnknown
			}
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Non-API errors: network failures, timeouts, context cancellation,
	// malformed bodies.
	var finalErr error
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	case errors.Is(err, ports.ErrMalformedResponse):
		finalErr = fmt.Errorf("%s failed: %w", operation, err)
	case errors.As(err, &urlErr):
		if urlErr.Timeout() {
			finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
		} else {
			finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
		}
	case strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "connection reset by peer"),
		strings.Contains(err.Error(), "use of closed network connection"):
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// observe records one outbound call on the shared metrics, when wired.
func (c *Client) observe(operation string, start time.Time, err error) {
	c.metrics.ObserveExchangeCall(operation, time.Since(start).Seconds(), err)
}
