package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"hunter-backend/internal/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type chanSink struct {
	events chan domain.MarketEvent
}

func newChanSink() *chanSink {
	return &chanSink{events: make(chan domain.MarketEvent, 16)}
}

func (s *chanSink) Submit(ctx context.Context, ev domain.MarketEvent) error {
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *chanSink) next(t *testing.T) domain.MarketEvent {
	t.Helper()
	select {
	case ev := <-s.events:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

const tickerFrame = `{"stream":"!ticker@arr","data":[{"e":"24hrTicker","E":1700000000123,"s":"BTCUSDT","p":"-120.50","P":"-0.345","w":"34900","c":"34800.10","Q":"0.010","o":"34920.60","h":"35100","l":"34500","v":"123456","q":"4300000000.5","O":1699913600000,"C":1700000000000,"F":1,"L":9,"n":9}]}`

func TestDecodeTickerBatch(t *testing.T) {
	ev, err := decodeMessage([]byte(tickerFrame))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	batch, ok := ev.(domain.TickerBatch)
	if !ok || len(batch.Tickers) != 1 {
		t.Fatalf("event = %#v", ev)
	}
	want := domain.Ticker{Symbol: "BTCUSDT", Price: 34800.10, Change24h: -0.345, QuoteVolume24h: 4300000000.5}
	if batch.Tickers[0] != want {
		t.Fatalf("ticker = %+v, want %+v", batch.Tickers[0], want)
	}
}

func TestDecodeKline(t *testing.T) {
	frame := `{"stream":"btcusdt@kline_1m","data":{"e":"kline","E":1700000030000,"s":"BTCUSDT","k":{"t":1700000000000,"T":1700000059999,"s":"BTCUSDT","i":"1m","f":1,"L":2,"o":"100","c":"105","h":"106","l":"99","v":"12.5","n":2,"x":true,"q":"1300","V":"6","Q":"600","B":"0"}}}`

	ev, err := decodeMessage([]byte(frame))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	k, ok := ev.(domain.KlineUpdate)
	if !ok {
		t.Fatalf("event = %#v", ev)
	}
	want := domain.KlineUpdate{
		Symbol:    "BTCUSDT",
		Timeframe: domain.Timeframe1m,
		Candle:    domain.Candle{OpenTime: 1700000000000, Open: 100, High: 106, Low: 99, Close: 105, Volume: 12.5},
		Closed:    true,
	}
	if k != want {
		t.Fatalf("kline = %+v, want %+v", k, want)
	}
}

func TestDecodeMarkPrice(t *testing.T) {
	frame := `{"stream":"!markPrice@arr","data":[{"e":"markPriceUpdate","E":1,"s":"ETHUSDT","p":"1800.5","i":"1800.1","P":"1801","r":"0.00010000","T":1700006400000}]}`

	ev, err := decodeMessage([]byte(frame))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	batch, ok := ev.(domain.MarkPriceBatch)
	if !ok || len(batch.Prices) != 1 {
		t.Fatalf("event = %#v", ev)
	}
	if got := batch.Prices[0]; got.Symbol != "ETHUSDT" || got.MarkPrice != 1800.5 || got.FundingRate != 0.0001 {
		t.Fatalf("mark price = %+v", got)
	}
}

func TestDecodeMalformedAndControl(t *testing.T) {
	bad := []string{
		`not json`,
		`{"data":{}}`,
		`{"stream":"!ticker@arr","data":[{"s":"BTCUSDT","c":"abc","P":"1","q":"1"}]}`,
		`{"stream":"btcusdt@kline_3m","data":{"s":"BTCUSDT","k":{"t":1,"i":"3m","o":"1","h":"1","l":"1","c":"1","v":"1"}}}`,
		`{"stream":"btcusdt@depth","data":{}}`,
	}
	for _, frame := range bad {
		if ev, err := decodeMessage([]byte(frame)); err == nil {
			t.Errorf("decode(%s) = %#v, want error", frame, ev)
		}
	}

	ev, err := decodeMessage([]byte(`{"result":null,"id":3}`))
	if err != nil || ev != nil {
		t.Fatalf("control response = %#v, %v", ev, err)
	}
}

func TestReconnectBackoffSequence(t *testing.T) {
	b := newReconnectBackoff(500*time.Millisecond, 15*time.Second)

	want := []time.Duration{
		500 * time.Millisecond,
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		15 * time.Second,
		15 * time.Second,
	}
	for i, w := range want {
		if got := b.Duration(); got != w {
			t.Fatalf("attempt %d: delay = %v, want %v", i, got, w)
		}
	}

	b.Reset()
	if got := b.Duration(); got != 500*time.Millisecond {
		t.Fatalf("after reset delay = %v, want 500ms", got)
	}
}

func TestStreamURL(t *testing.T) {
	c := NewStreamClient(StreamConfig{BaseURL: "wss://fstream.binance.com/"}, newChanSink(), zap.NewNop())
	if err := c.Subscribe("BTCUSDT", domain.Timeframe1m, domain.Timeframe5m); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	want := "wss://fstream.binance.com/stream?streams=!ticker@arr/!markPrice@arr/btcusdt@kline_1m/btcusdt@kline_5m"
	if got := c.URL(); got != want {
		t.Fatalf("url = %s\nwant %s", got, want)
	}
}

type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

func TestStreamSubscribeSendsOnlyDelta(t *testing.T) {
	upgrader := websocket.Upgrader{}
	requests := make(chan subscribeRequest, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		if err := conn.WriteMessage(websocket.TextMessage, []byte(tickerFrame)); err != nil {
			return
		}
		for {
			var req subscribeRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			requests <- req
		}
	}))
	defer srv.Close()

	sink := newChanSink()
	c := NewStreamClient(StreamConfig{BaseURL: "ws" + strings.TrimPrefix(srv.URL, "http")}, sink, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if _, ok := sink.next(t).(domain.TickerBatch); !ok {
		t.Fatal("expected ticker batch first")
	}
	waitForState(t, c, StateConnected)

	if err := c.Subscribe("BTCUSDT", domain.Timeframe1m, domain.Timeframe5m); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := c.Subscribe("BTCUSDT", domain.Timeframe1m); err != nil {
		t.Fatalf("repeat subscribe: %v", err)
	}
	if err := c.Subscribe("BTCUSDT", domain.Timeframe5m, domain.Timeframe15m); err != nil {
		t.Fatalf("subscribe delta: %v", err)
	}

	first := nextRequest(t, requests)
	if first.Method != "SUBSCRIBE" || strings.Join(first.Params, ",") != "btcusdt@kline_1m,btcusdt@kline_5m" {
		t.Fatalf("first request = %+v", first)
	}
	second := nextRequest(t, requests)
	if strings.Join(second.Params, ",") != "btcusdt@kline_15m" || second.ID <= first.ID {
		t.Fatalf("second request = %+v", second)
	}
	select {
	case extra := <-requests:
		t.Fatalf("unexpected request %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStreamReconnectsWithSubscribedChannels(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var mu sync.Mutex
	var streams []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		streams = append(streams, r.URL.Query().Get("streams"))
		attempt := len(streams)
		mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if attempt == 1 {
			// drop the first session straight away
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(tickerFrame))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	sink := newChanSink()
	c := NewStreamClient(StreamConfig{
		BaseURL:      "ws" + strings.TrimPrefix(srv.URL, "http"),
		ReconnectMin: 10 * time.Millisecond,
		ReconnectMax: 50 * time.Millisecond,
	}, sink, zap.NewNop())
	if err := c.Subscribe("ethusdt", domain.Timeframe1h); err != nil {
		t.Fatalf("subscribe before connect: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()

	sink.next(t)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(streams) < 2 {
		t.Fatalf("connections = %d, want at least 2", len(streams))
	}
	if !strings.Contains(streams[1], "ethusdt@kline_1h") || !strings.HasPrefix(streams[1], "!ticker@arr") {
		t.Fatalf("second connection streams = %q", streams[1])
	}
	if c.State() != StateDisconnected {
		t.Fatalf("state after cancel = %v", c.State())
	}
}

func waitForState(t *testing.T, c *StreamClient, want StreamState) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for c.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state = %v, want %v", c.State(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func nextRequest(t *testing.T, ch <-chan subscribeRequest) subscribeRequest {
	t.Helper()
	select {
	case req := <-ch:
		return req
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for subscribe request")
	}
	return subscribeRequest{}
}
