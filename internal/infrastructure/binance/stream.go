package binance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"hunter-backend/internal/domain"
	"hunter-backend/internal/metrics"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

const (
	DefaultStreamBaseURL = "wss://fstream.binance.com"

	writeWait = 5 * time.Second
)

// DefaultBroadChannels are always part of the combined stream.
var DefaultBroadChannels = []string{"!ticker@arr", "!markPrice@arr"}

// StreamState is the connection state of a StreamClient.
type StreamState int32

const (
	StateDisconnected StreamState = iota
	StateConnecting
	StateConnected
	StateReconnectWait
)

func (s StreamState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnectWait:
		return "RECONNECT_WAIT"
	}
	return "DISCONNECTED"
}

// EventSink receives decoded stream events. Submit may block for backpressure.
type EventSink interface {
	Submit(ctx context.Context, ev domain.MarketEvent) error
}

type StreamConfig struct {
	BaseURL       string
	BroadChannels []string
	ReconnectMin  time.Duration
	ReconnectMax  time.Duration
	ReadTimeout   time.Duration
}

// StreamClient keeps one combined-stream connection to Binance futures and
// forwards every decoded message to its sink.
type StreamClient struct {
	cfg     StreamConfig
	sink    EventSink
	log     *zap.Logger
	dialer  *websocket.Dialer
	backoff *backoff.Backoff

	state  atomic.Int32
	nextID atomic.Int64

	mu         sync.Mutex
	conn       *websocket.Conn
	channels   []string
	subscribed map[string]struct{}
}

func NewStreamClient(cfg StreamConfig, sink EventSink, log *zap.Logger) *StreamClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultStreamBaseURL
	}
	if len(cfg.BroadChannels) == 0 {
		cfg.BroadChannels = DefaultBroadChannels
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	return &StreamClient{
		cfg:        cfg,
		sink:       sink,
		log:        log.Named("stream"),
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		backoff:    newReconnectBackoff(cfg.ReconnectMin, cfg.ReconnectMax),
		subscribed: make(map[string]struct{}),
	}
}

// newReconnectBackoff doubles from floor up to ceiling without jitter.
func newReconnectBackoff(floor, ceiling time.Duration) *backoff.Backoff {
	if floor <= 0 {
		floor = 500 * time.Millisecond
	}
	if ceiling < floor {
		ceiling = 15 * time.Second
	}
	return &backoff.Backoff{Min: floor, Max: ceiling, Factor: 2, Jitter: false}
}

// KlineChannel is the stream name of one symbol/timeframe candle feed.
func KlineChannel(symbol string, tf domain.Timeframe) string {
	return strings.ToLower(symbol) + "@kline_" + string(tf)
}

func (c *StreamClient) State() StreamState {
	return StreamState(c.state.Load())
}

func (c *StreamClient) setState(s StreamState) {
	c.state.Store(int32(s))
	metrics.StreamState.Set(float64(s))
}

// URL builds the combined stream URL from the broad channels and every
// subscribed kline channel.
func (c *StreamClient) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.urlLocked()
}

func (c *StreamClient) urlLocked() string {
	streams := make([]string, 0, len(c.cfg.BroadChannels)+len(c.channels))
	streams = append(streams, c.cfg.BroadChannels...)
	streams = append(streams, c.channels...)
	return fmt.Sprintf("%s/stream?streams=%s", strings.TrimRight(c.cfg.BaseURL, "/"), strings.Join(streams, "/"))
}

// Subscribe adds the kline channels of symbol. Channels already present are
// skipped; only the new ones go out in a SUBSCRIBE request, and only while connected.
func (c *StreamClient) Subscribe(symbol string, tfs ...domain.Timeframe) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var delta []string
	for _, tf := range tfs {
		ch := KlineChannel(symbol, tf)
		if _, ok := c.subscribed[ch]; ok {
			continue
		}
		c.subscribed[ch] = struct{}{}
		c.channels = append(c.channels, ch)
		delta = append(delta, ch)
	}
	metrics.StreamSubscriptions.Set(float64(len(c.channels)))

	if len(delta) == 0 || c.conn == nil {
		return nil
	}

	req := struct {
		Method string   `json:"method"`
		Params []string `json:"params"`
		ID     int64    `json:"id"`
	}{Method: "SUBSCRIBE", Params: delta, ID: c.nextID.Add(1)}

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("subscribe %s: %w", strings.Join(delta, ","), err)
	}
	return nil
}

// Subscribed reports whether the channel of symbol/tf is active.
func (c *StreamClient) Subscribed(symbol string, tf domain.Timeframe) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subscribed[KlineChannel(symbol, tf)]
	return ok
}

// Run connects and keeps reconnecting until ctx is cancelled.
// Connection failures never surface; they only drive the reconnect delay.
func (c *StreamClient) Run(ctx context.Context) error {
	defer c.setState(StateDisconnected)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.setState(StateConnecting)
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.setState(StateReconnectWait)
		delay := c.backoff.Duration()
		metrics.StreamReconnectsTotal.Inc()
		c.log.Warn("stream disconnected, reconnecting", zap.Error(err), zap.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *StreamClient) session(ctx context.Context) error {
	url := c.URL()
	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.backoff.Reset()
	conn.SetReadLimit(4 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected)
	c.log.Info("stream connected", zap.String("url", url))

	sessCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()
	go func() {
		<-sessCtx.Done()
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))

		if err := c.dispatch(sessCtx, msg); err != nil {
			return err
		}
	}
}

// dispatch decodes one frame. Malformed frames are dropped; only a sink
// failure (context cancelled) ends the session.
func (c *StreamClient) dispatch(ctx context.Context, msg []byte) error {
	ev, err := decodeMessage(msg)
	if err != nil {
		metrics.StreamDecodeErrorsTotal.Inc()
		c.log.Debug("dropping malformed frame", zap.Error(err), zap.Int("bytes", len(msg)))
		return nil
	}
	if ev == nil {
		return nil
	}

	metrics.StreamMessagesTotal.WithLabelValues(eventKind(ev)).Inc()
	return c.sink.Submit(ctx, ev)
}
