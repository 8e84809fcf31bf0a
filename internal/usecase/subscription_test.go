package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"hunter-backend/internal/domain"

	"go.uber.org/zap"
)

type seedCall struct {
	symbol      string
	tf          domain.Timeframe
	candles     int
	maxExisting int
}

type fakeQueue struct {
	mu      sync.Mutex
	top     []domain.SymbolSummary
	topN    []int
	seeds   []seedCall
	oi      map[string]float64
	lsr     map[string]float64
	funding map[string]float64
}

func newFakeQueue(top ...domain.SymbolSummary) *fakeQueue {
	return &fakeQueue{
		top:     top,
		oi:      make(map[string]float64),
		lsr:     make(map[string]float64),
		funding: make(map[string]float64),
	}
}

func (q *fakeQueue) TopByVolume(_ context.Context, n int) ([]domain.SymbolSummary, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.topN = append(q.topN, n)
	if n < len(q.top) {
		return q.top[:n], nil
	}
	return q.top, nil
}

func (q *fakeQueue) SeedHistory(_ context.Context, symbol string, tf domain.Timeframe, candles []domain.Candle, maxExisting int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seeds = append(q.seeds, seedCall{symbol: symbol, tf: tf, candles: len(candles), maxExisting: maxExisting})
	return nil
}

func (q *fakeQueue) SetOpenInterest(_ context.Context, symbol string, oi float64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.oi[symbol] = oi
	return nil
}

func (q *fakeQueue) SetLongShortRatio(_ context.Context, symbol string, lsr float64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lsr[symbol] = lsr
	return nil
}

func (q *fakeQueue) SetFunding(_ context.Context, symbol string, rate float64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.funding[symbol] = rate
	return nil
}

type fakeSubscriber struct {
	mu    sync.Mutex
	calls map[string][]domain.Timeframe
}

func (s *fakeSubscriber) Subscribe(symbol string, tfs ...domain.Timeframe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string][]domain.Timeframe)
	}
	s.calls[symbol] = append(s.calls[symbol], tfs...)
	return nil
}

type fakeSource struct {
	mu       sync.Mutex
	block    chan struct{}
	klines   []string
	oiCalls  []string
	lsrCalls []string
	funding  []string
	failOI   map[string]bool
	period   string
}

func (s *fakeSource) FetchKlines(ctx context.Context, symbol string, tf domain.Timeframe, limit int) ([]domain.Candle, error) {
	s.mu.Lock()
	s.klines = append(s.klines, symbol+"@"+string(tf))
	block := s.block
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	if symbol == "FAILUSDT" {
		return nil, errors.New("upstream down")
	}
	out := make([]domain.Candle, limit)
	for i := range out {
		out[i] = risingCandle(i)
	}
	return out, nil
}

func (s *fakeSource) FetchOpenInterest(_ context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oiCalls = append(s.oiCalls, symbol)
	if s.failOI[symbol] {
		return 0, errors.New("no oi")
	}
	return 1000, nil
}

func (s *fakeSource) FetchFundingRate(_ context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funding = append(s.funding, symbol)
	return 0.0001, nil
}

func (s *fakeSource) FetchLongShortRatio(_ context.Context, symbol, period string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lsrCalls = append(s.lsrCalls, symbol)
	s.period = period
	return 1.7, nil
}

func (s *fakeSource) klineCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.klines...)
	sort.Strings(out)
	return out
}

func summary(symbol string, lens map[domain.Timeframe]int) domain.SymbolSummary {
	return domain.SymbolSummary{Symbol: symbol, SeriesLen: lens}
}

func TestSubscriptionTickSubscribesAndBackfillsEmptySeries(t *testing.T) {
	queue := newFakeQueue(
		summary("BTCUSDT", map[domain.Timeframe]int{domain.Timeframe5m: 12, domain.Timeframe1h: 3}),
		summary("ETHUSDT", map[domain.Timeframe]int{domain.Timeframe1m: 50, domain.Timeframe5m: 50, domain.Timeframe15m: 50, domain.Timeframe1h: 50}),
	)
	stream := &fakeSubscriber{}
	source := &fakeSource{}
	m := NewSubscriptionManager(SubscriptionConfig{}, queue, stream, source, zap.NewNop())

	if !m.Tick(context.Background()) {
		t.Fatal("first tick skipped")
	}
	m.Wait()

	if queue.topN[0] != DefaultSubscriptionTopN {
		t.Fatalf("top n = %d, want %d", queue.topN[0], DefaultSubscriptionTopN)
	}
	for _, sym := range []string{"BTCUSDT", "ETHUSDT"} {
		if got := len(stream.calls[sym]); got != len(domain.Timeframes) {
			t.Fatalf("%s subscribed %d timeframes", sym, got)
		}
	}

	calls := source.klineCalls()
	if len(calls) != 2 || calls[0] != "BTCUSDT@15m" || calls[1] != "BTCUSDT@1m" {
		t.Fatalf("backfills = %v", calls)
	}
	if len(queue.seeds) != 2 {
		t.Fatalf("seeds = %+v", queue.seeds)
	}
	for _, seed := range queue.seeds {
		if seed.candles != DefaultBackfillLimit || seed.maxExisting != 10 {
			t.Fatalf("seed = %+v", seed)
		}
	}
}

func TestSubscriptionTickRateLimited(t *testing.T) {
	queue := newFakeQueue()
	m := NewSubscriptionManager(SubscriptionConfig{}, queue, &fakeSubscriber{}, &fakeSource{}, zap.NewNop())

	now := time.Unix(1700000000, 0)
	m.now = func() time.Time { return now }

	if !m.Tick(context.Background()) {
		t.Fatal("first tick skipped")
	}
	now = now.Add(4 * time.Second)
	if m.Tick(context.Background()) {
		t.Fatal("tick ran inside the interval")
	}
	now = now.Add(time.Second)
	if !m.Tick(context.Background()) {
		t.Fatal("tick skipped after the interval")
	}
	if len(queue.topN) != 2 {
		t.Fatalf("top queries = %d, want 2", len(queue.topN))
	}
}

func TestSubscriptionBackfillDeduplicated(t *testing.T) {
	full := map[domain.Timeframe]int{domain.Timeframe5m: 1, domain.Timeframe15m: 1, domain.Timeframe1h: 1}
	queue := newFakeQueue(summary("SOLUSDT", full))
	source := &fakeSource{block: make(chan struct{})}
	m := NewSubscriptionManager(SubscriptionConfig{}, queue, &fakeSubscriber{}, source, zap.NewNop())

	now := time.Unix(1700000000, 0)
	m.now = func() time.Time { return now }

	m.Tick(context.Background())
	now = now.Add(DefaultSubscriptionInterval)
	m.Tick(context.Background())
	if got := m.InFlight(); got != 1 {
		t.Fatalf("in flight = %d, want 1", got)
	}

	close(source.block)
	m.Wait()
	if calls := source.klineCalls(); len(calls) != 1 {
		t.Fatalf("fetches = %v, want one", calls)
	}
	if m.InFlight() != 0 {
		t.Fatal("in-flight entry not released")
	}
}

func TestSubscriptionBackfillFailureSkipsSeed(t *testing.T) {
	queue := newFakeQueue(summary("FAILUSDT", map[domain.Timeframe]int{
		domain.Timeframe5m: 1, domain.Timeframe15m: 1, domain.Timeframe1h: 1,
	}))
	m := NewSubscriptionManager(SubscriptionConfig{}, queue, &fakeSubscriber{}, &fakeSource{}, zap.NewNop())

	m.Tick(context.Background())
	m.Wait()
	if len(queue.seeds) != 0 {
		t.Fatalf("seeds = %+v, want none", queue.seeds)
	}
}
