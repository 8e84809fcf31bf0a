package usecase

import (
	"context"
	"sync"
	"time"

	"hunter-backend/internal/domain"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"go.uber.org/zap"
)

const (
	DefaultSubscriptionInterval = 5 * time.Second
	DefaultSubscriptionTopN     = 30
	DefaultBackfillLimit        = 100
	DefaultBackfillConcurrency  = 5

	// backfill is discarded once live data has filled this many candles
	seedMaxExisting = 10
)

// Subscriber is the stream side of the subscription manager.
type Subscriber interface {
	Subscribe(symbol string, tfs ...domain.Timeframe) error
}

// MarketQueue is the engine surface used by the periodic tasks.
type MarketQueue interface {
	TopByVolume(ctx context.Context, n int) ([]domain.SymbolSummary, error)
	SeedHistory(ctx context.Context, symbol string, tf domain.Timeframe, candles []domain.Candle, maxExisting int) error
	SetOpenInterest(ctx context.Context, symbol string, oi float64) error
	SetLongShortRatio(ctx context.Context, symbol string, lsr float64) error
	SetFunding(ctx context.Context, symbol string, rate float64) error
}

type SubscriptionConfig struct {
	Interval            time.Duration
	TopN                int
	BackfillLimit       int
	BackfillConcurrency int
}

type backfillKey struct {
	symbol string
	tf     domain.Timeframe
}

// SubscriptionManager keeps the kline channels of the most traded symbols
// open and backfills series that are still empty.
type SubscriptionManager struct {
	cfg    SubscriptionConfig
	engine MarketQueue
	stream Subscriber
	source domain.MarketDataSource
	log    *zap.Logger
	now    func() time.Time

	lastRun time.Time

	sem      chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	inFlight map[backfillKey]struct{}
}

func NewSubscriptionManager(cfg SubscriptionConfig, engine MarketQueue, stream Subscriber, source domain.MarketDataSource, log *zap.Logger) *SubscriptionManager {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSubscriptionInterval
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultSubscriptionTopN
	}
	if cfg.BackfillLimit <= 0 {
		cfg.BackfillLimit = DefaultBackfillLimit
	}
	if cfg.BackfillConcurrency <= 0 {
		cfg.BackfillConcurrency = DefaultBackfillConcurrency
	}
	return &SubscriptionManager{
		cfg:      cfg,
		engine:   engine,
		stream:   stream,
		source:   source,
		log:      log.Named("subscription"),
		now:      time.Now,
		sem:      make(chan struct{}, cfg.BackfillConcurrency),
		inFlight: make(map[backfillKey]struct{}),
	}
}

// Run ticks until ctx is cancelled and then waits for running backfills.
func (m *SubscriptionManager) Run(ctx context.Context) error {
	defer m.wg.Wait()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick runs one subscription pass, at most once per interval.
// It reports whether the pass ran.
func (m *SubscriptionManager) Tick(ctx context.Context) bool {
	now := m.now()
	if !m.lastRun.IsZero() && now.Sub(m.lastRun) < m.cfg.Interval {
		return false
	}
	m.lastRun = now

	top, err := m.engine.TopByVolume(ctx, m.cfg.TopN)
	if err != nil {
		m.log.Debug("top by volume unavailable", zap.Error(err))
		return true
	}

	for _, sym := range top {
		if err := m.stream.Subscribe(sym.Symbol, domain.Timeframes...); err != nil {
			m.log.Warn("subscribe failed", zap.String("symbol", sym.Symbol), zap.Error(err))
		}
		for _, tf := range domain.Timeframes {
			if sym.SeriesLen[tf] == 0 {
				m.backfill(ctx, sym.Symbol, tf)
			}
		}
	}
	return true
}

func (m *SubscriptionManager) backfill(ctx context.Context, symbol string, tf domain.Timeframe) {
	key := backfillKey{symbol: symbol, tf: tf}

	m.mu.Lock()
	if _, ok := m.inFlight[key]; ok {
		m.mu.Unlock()
		return
	}
	m.inFlight[key] = struct{}{}
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.inFlight, key)
			m.mu.Unlock()
		}()

		select {
		case m.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-m.sem }()

		span, spanCtx := opentracing.StartSpanFromContext(ctx, "subscription.backfill")
		span.SetTag("symbol", symbol)
		span.SetTag("tf", string(tf))
		defer span.Finish()

		candles, err := m.source.FetchKlines(spanCtx, symbol, tf, m.cfg.BackfillLimit)
		if err != nil {
			ext.Error.Set(span, true)
			m.log.Debug("backfill fetch failed",
				zap.String("symbol", symbol), zap.String("tf", string(tf)), zap.Error(err))
			return
		}
		if err := m.engine.SeedHistory(ctx, symbol, tf, candles, seedMaxExisting); err != nil {
			m.log.Debug("backfill not applied", zap.String("symbol", symbol), zap.Error(err))
		}
	}()
}

// Wait blocks until every started backfill has finished.
func (m *SubscriptionManager) Wait() {
	m.wg.Wait()
}

// InFlight returns the number of backfills currently running or queued.
func (m *SubscriptionManager) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inFlight)
}
