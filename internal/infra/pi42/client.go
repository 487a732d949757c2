package pi42

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"pi42dash/internal/domain"
	"pi42dash/internal/infra"
)

// Client is the exchange REST boundary. It backs both the generic request
// proxy and the typed snapshot/bundle fetches.
type Client struct {
	publicURL  string
	privateURL string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new exchange API client.
func NewClient(cfg *infra.Config) *Client {
	return &Client{
		publicURL:  cfg.API.Pi42.PublicURL,
		privateURL: cfg.API.Pi42.PrivateURL,
		apiKey:     cfg.API.Pi42.APIKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger: slog.Default().With("module", "pi42_client"),
	}
}

// baseURL resolves a proxy target to its upstream base. The zero target
// means public.
func (c *Client) baseURL(target Target) string {
	if target == TargetPrivate {
		return c.privateURL
	}
	return c.publicURL
}

// Forward validates req, sends it upstream, and mirrors the upstream
// status and body back. A non-2xx upstream reply is data, not an error:
// only validation and transport failures return a non-nil error.
func (c *Client) Forward(ctx context.Context, req ProxyRequest) (*ProxyResponse, error) {
	if issues := req.Validate(); len(issues) > 0 {
		return nil, &domain.ValidationError{Issues: issues}
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, &domain.ValidationError{Issues: []domain.Issue{{Field: "body", Message: err.Error()}}}
	}

	target := req.Target
	if target == "" {
		target = TargetPublic
	}

	fullURL := c.baseURL(target) + req.Path
	if q := encodeQuery(req.Query); q != "" {
		fullURL += "?" + q
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, reader)
	if err != nil {
		return nil, domain.NewFatalNetworkError("build request", err)
	}

	// Default headers first, caller headers merged on top. Empty values
	// are ignored rather than clearing a default.
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	if target == TargetPrivate && c.apiKey != "" {
		httpReq.Header.Set("X-Api-Key", c.apiKey)
	}
	for k, v := range req.Headers {
		if v == "" {
			continue
		}
		httpReq.Header.Set(k, v)
	}

	infra.GlobalMetrics.RecordProxyRequest()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		infra.GlobalMetrics.RecordProxyFailure()
		return nil, domain.NewNetworkError("forward", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		infra.GlobalMetrics.RecordProxyFailure()
		return nil, domain.NewNetworkError("read response", err)
	}

	out := &ProxyResponse{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
	}
	var decoded any
	if len(raw) > 0 && json.Unmarshal(raw, &decoded) == nil {
		out.Data = decoded
	} else {
		// Upstream body is not valid JSON: degrade to raw text.
		out.Data = string(raw)
	}
	return out, nil
}

// get performs a typed public GET and decodes a 2xx JSON body into v.
func (c *Client) get(ctx context.Context, path string, query map[string]any, v any) error {
	fullURL := c.publicURL + path
	if q := encodeQuery(query); q != "" {
		fullURL += "?" + q
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", infra.DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewNetworkError("get "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, path)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewNetworkError("read "+path, err)
	}
	return json.Unmarshal(raw, v)
}

// ExchangeInfo fetches the contract catalog.
func (c *Client) ExchangeInfo(ctx context.Context) ([]domain.Contract, error) {
	var payload exchangeInfoResponse
	if err := c.get(ctx, "/v1/exchange/exchangeInfo", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Contracts, nil
}

// MarketStats fetches the per-contract 24h statistics, wholesale.
func (c *Client) MarketStats(ctx context.Context) ([]domain.MarketStatsEntry, error) {
	var payload []domain.MarketStatsEntry
	if err := c.get(ctx, "/v1/market/marketInfo", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Ticker24h fetches the rolling 24h ticker for one symbol.
func (c *Client) Ticker24h(ctx context.Context, symbol string) (domain.Ticker, error) {
	var payload ticker24hResponse
	err := c.get(ctx, "/v1/market/ticker24Hr", map[string]any{"symbol": symbol}, &payload)
	if err != nil {
		return domain.Ticker{}, err
	}
	return payload.toDomain(), nil
}

// Depth fetches the current order-book snapshot for one symbol.
func (c *Client) Depth(ctx context.Context, symbol string) (domain.DepthSnapshot, error) {
	var payload depthResponse
	err := c.get(ctx, "/v1/market/depth", map[string]any{"symbol": symbol}, &payload)
	if err != nil {
		return domain.DepthSnapshot{}, err
	}
	return payload.toDomain(symbol), nil
}

// AggTrades fetches recent aggregated trades, newest last.
func (c *Client) AggTrades(ctx context.Context, symbol string, limit int) ([]domain.Trade, error) {
	var payload []aggTradeRow
	err := c.get(ctx, "/v1/market/aggTrades", map[string]any{"symbol": symbol, "limit": strconv.Itoa(limit)}, &payload)
	if err != nil {
		return nil, err
	}
	trades := make([]domain.Trade, 0, len(payload))
	for _, row := range payload {
		trades = append(trades, row.toDomain(symbol))
	}
	return trades, nil
}

// Klines fetches up to limit candles for the symbol/interval, oldest first.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Kline, error) {
	var payload []klineRow
	err := c.get(ctx, "/v1/market/klines", map[string]any{
		"pair":     symbol,
		"interval": interval,
		"limit":    strconv.Itoa(limit),
	}, &payload)
	if err != nil {
		return nil, err
	}
	klines := make([]domain.Kline, 0, len(payload))
	for _, row := range payload {
		klines = append(klines, row.toDomain(interval))
	}
	return klines, nil
}
