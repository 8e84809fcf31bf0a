package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"hunter-backend/internal/domain"
	"hunter-backend/internal/metrics"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

const (
	FapiBaseURL         = "https://fapi.binance.com"
	DefaultProxyBaseURL = "http://localhost:3000/api/binance"
)

var (
	// ErrUpstreamUnavailable marks a {error, code} fallback body or a rate-limit status.
	ErrUpstreamUnavailable = errors.New("binance upstream unavailable")
	// ErrNoData marks an empty or non-array body where a list was expected.
	ErrNoData = errors.New("binance returned no data")
)

// APIError captures a non-200 response that is not a rate-limit signal.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"msg"`
	Body       string
}

func (e *APIError) Error() string {
	if e == nil {
		return "binance API error"
	}
	if e.Code != 0 || e.Message != "" {
		return fmt.Sprintf("binance API error %d (code=%d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("binance API error %d: %s", e.StatusCode, e.Body)
}

func parseAPIError(statusCode int, body []byte) error {
	var parsed struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && (parsed.Code != 0 || parsed.Msg != "") {
		return &APIError{StatusCode: statusCode, Code: parsed.Code, Message: parsed.Msg, Body: string(body)}
	}
	return &APIError{StatusCode: statusCode, Body: string(body)}
}

// Client reads market data through the REST proxy in front of Binance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultProxyBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type fallbackBody struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Details string `json:"details"`
}

// get calls one proxy endpoint and returns the raw body of a usable response.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (body []byte, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "binance.rest."+endpoint)
	span.SetTag("symbol", params.Get("symbol"))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			if errors.Is(err, ErrUpstreamUnavailable) {
				outcome = "unavailable"
			}
			ext.Error.Set(span, true)
			span.LogKV("error", err.Error())
		}
		metrics.RESTFetchesTotal.WithLabelValues(endpoint, outcome).Inc()
		span.Finish()
	}()

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusTeapot {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var fb fallbackBody
		if err := json.Unmarshal(trimmed, &fb); err == nil && fb.Error != "" {
			return nil, fmt.Errorf("%w: %s (code=%d)", ErrUpstreamUnavailable, fb.Error, fb.Code)
		}
	}
	return trimmed, nil
}

// FetchKlines returns up to limit candles, oldest first.
// Binance returns: [ [open_time, open, high, low, close, volume, ...], ... ]
func (c *Client) FetchKlines(ctx context.Context, symbol string, tf domain.Timeframe, limit int) ([]domain.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", string(tf))
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "klines", params)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 || body[0] != '[' {
		return nil, ErrNoData
	}

	var rows [][]interface{}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	candles := make([]domain.Candle, 0, len(rows))
	for _, row := range rows {
		candle, err := candleFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("decode kline row: %w", err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func candleFromRow(row []interface{}) (domain.Candle, error) {
	if len(row) < 6 {
		return domain.Candle{}, fmt.Errorf("short kline row: %d fields", len(row))
	}
	var vals [6]float64
	for i := 0; i < 6; i++ {
		v, err := parseValue(row[i])
		if err != nil {
			return domain.Candle{}, err
		}
		vals[i] = v
	}
	return domain.Candle{
		OpenTime: int64(vals[0]),
		Open:     vals[1],
		High:     vals[2],
		Low:      vals[3],
		Close:    vals[4],
		Volume:   vals[5],
	}, nil
}

// FetchOpenInterest returns the current open interest. The proxy serves either
// the point value ({openInterest}) or the history list ([{sumOpenInterest}]).
func (c *Client) FetchOpenInterest(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.get(ctx, "oi", params)
	if err != nil {
		return 0, err
	}

	if len(body) > 0 && body[0] == '[' {
		var hist []struct {
			SumOpenInterest string `json:"sumOpenInterest"`
		}
		if err := json.Unmarshal(body, &hist); err != nil {
			return 0, fmt.Errorf("decode open interest history: %w", err)
		}
		if len(hist) == 0 {
			return 0, ErrNoData
		}
		return strconv.ParseFloat(hist[len(hist)-1].SumOpenInterest, 64)
	}

	var point struct {
		OpenInterest string `json:"openInterest"`
	}
	if err := json.Unmarshal(body, &point); err != nil {
		return 0, fmt.Errorf("decode open interest: %w", err)
	}
	if point.OpenInterest == "" {
		return 0, ErrNoData
	}
	return strconv.ParseFloat(point.OpenInterest, 64)
}

type premiumIndex struct {
	Symbol          string `json:"symbol"`
	LastFundingRate string `json:"lastFundingRate"`
}

// FetchFundingRate returns the last funding rate for a symbol.
func (c *Client) FetchFundingRate(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.get(ctx, "funding", params)
	if err != nil {
		return 0, err
	}

	var data premiumIndex
	if len(body) > 0 && body[0] == '[' {
		var all []premiumIndex
		if err := json.Unmarshal(body, &all); err != nil {
			return 0, fmt.Errorf("decode funding: %w", err)
		}
		found := false
		for _, p := range all {
			if p.Symbol == symbol {
				data, found = p, true
				break
			}
		}
		if !found {
			return 0, ErrNoData
		}
	} else if err := json.Unmarshal(body, &data); err != nil {
		return 0, fmt.Errorf("decode funding: %w", err)
	}

	if data.LastFundingRate == "" {
		return 0, ErrNoData
	}
	return strconv.ParseFloat(data.LastFundingRate, 64)
}

// FetchLongShortRatio returns the newest top-account long/short ratio.
func (c *Client) FetchLongShortRatio(ctx context.Context, symbol, period string) (float64, error) {
	if period == "" {
		period = "5m"
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("period", period)
	params.Set("limit", "1")

	body, err := c.get(ctx, "lsr", params)
	if err != nil {
		return 0, err
	}
	if len(body) == 0 || body[0] != '[' {
		return 0, ErrNoData
	}

	var rows []struct {
		LongShortRatio string `json:"longShortRatio"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0, fmt.Errorf("decode long/short ratio: %w", err)
	}
	if len(rows) == 0 {
		return 0, ErrNoData
	}
	return strconv.ParseFloat(rows[len(rows)-1].LongShortRatio, 64)
}

func parseValue(v interface{}) (float64, error) {
	switch val := v.(type) {
	case string:
		return strconv.ParseFloat(val, 64)
	case float64:
		return val, nil
	case json.Number:
		return val.Float64()
	}
	return 0, fmt.Errorf("unexpected value type %T", v)
}
