package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hunter-backend/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/binance", 2*time.Second)
}

func TestFetchKlines(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/binance/klines" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "5m" || q.Get("limit") != "100" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[
			[1700000000000,"100.5","101","99.5","100.8","1234.5",1700000299999,"0",10,"0","0","0"],
			[1700000300000,"100.8","102","100","101.9","999",1700000599999,"0",10,"0","0","0"]
		]`))
	})

	candles, err := c.FetchKlines(context.Background(), "BTCUSDT", domain.Timeframe5m, 100)
	if err != nil {
		t.Fatalf("FetchKlines: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("len = %d, want 2", len(candles))
	}
	want := domain.Candle{OpenTime: 1700000000000, Open: 100.5, High: 101, Low: 99.5, Close: 100.8, Volume: 1234.5}
	if candles[0] != want {
		t.Fatalf("candle[0] = %+v, want %+v", candles[0], want)
	}
}

func TestFetchKlinesNoUpdateShapes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"fallback object", http.StatusOK, `{"error":"Rate Limit Exceeded","code":429}`, ErrUpstreamUnavailable},
		{"rate limited status", http.StatusTooManyRequests, `{"code":-1003,"msg":"Too many requests"}`, ErrUpstreamUnavailable},
		{"teapot status", http.StatusTeapot, ``, ErrUpstreamUnavailable},
		{"empty array", http.StatusOK, `[]`, ErrNoData},
		{"empty body", http.StatusOK, ``, ErrNoData},
		{"plain object", http.StatusOK, `{"symbol":"BTCUSDT"}`, ErrNoData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.FetchKlines(context.Background(), "BTCUSDT", domain.Timeframe1m, 100)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFetchKlinesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	})

	_, err := c.FetchKlines(context.Background(), "NOPEUSDT", domain.Timeframe1m, 100)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Code != -1121 || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestFetchOpenInterestShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{"point", `{"symbol":"BTCUSDT","openInterest":"10659.509","time":1589437530011}`, 10659.509},
		{"history", `[{"symbol":"BTCUSDT","sumOpenInterest":"20403.6","timestamp":1},{"symbol":"BTCUSDT","sumOpenInterest":"20411.2","timestamp":2}]`, 20411.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/binance/oi" {
					t.Errorf("path = %s", r.URL.Path)
				}
				_, _ = w.Write([]byte(tt.body))
			})
			got, err := c.FetchOpenInterest(context.Background(), "BTCUSDT")
			if err != nil {
				t.Fatalf("FetchOpenInterest: %v", err)
			}
			if got != tt.want {
				t.Fatalf("oi = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFetchFundingAndLongShortRatio(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/binance/funding":
			_, _ = w.Write([]byte(`[{"symbol":"ETHUSDT","lastFundingRate":"0.0002"},{"symbol":"BTCUSDT","lastFundingRate":"0.00010000"}]`))
		case "/api/binance/lsr":
			if r.URL.Query().Get("period") != "5m" {
				t.Errorf("period = %s", r.URL.Query().Get("period"))
			}
			_, _ = w.Write([]byte(`[{"symbol":"BTCUSDT","longShortRatio":"1.8500","longAccount":"0.65","shortAccount":"0.35","timestamp":1}]`))
		default:
			http.NotFound(w, r)
		}
	})

	rate, err := c.FetchFundingRate(context.Background(), "BTCUSDT")
	if err != nil || rate != 0.0001 {
		t.Fatalf("funding = %v, %v", rate, err)
	}
	lsr, err := c.FetchLongShortRatio(context.Background(), "BTCUSDT", "")
	if err != nil || lsr != 1.85 {
		t.Fatalf("lsr = %v, %v", lsr, err)
	}
}
