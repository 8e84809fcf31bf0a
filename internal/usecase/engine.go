package usecase

import (
	"context"
	"errors"
	"time"

	"hunter-backend/internal/domain"
	"hunter-backend/internal/metrics"

	"go.uber.org/zap"
)

const (
	DefaultInboxSize     = 4096
	DefaultFlushInterval = 500 * time.Millisecond
)

var ErrEngineStopped = errors.New("market engine stopped")

// mutation is one unit of work applied to the store on the engine goroutine.
type mutation func(*CandleStore)

type EngineConfig struct {
	InboxSize     int
	FlushInterval time.Duration
}

// MarketEngine serialises every write to the CandleStore through one inbox
// and periodically publishes snapshots for readers.
type MarketEngine struct {
	store     *CandleStore
	snapshots domain.SnapshotRepository
	log       *zap.Logger

	inbox         chan mutation
	flushInterval time.Duration
	done          chan struct{}
}

func NewMarketEngine(store *CandleStore, snapshots domain.SnapshotRepository, cfg EngineConfig, log *zap.Logger) *MarketEngine {
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultInboxSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	return &MarketEngine{
		store:         store,
		snapshots:     snapshots,
		log:           log.Named("engine"),
		inbox:         make(chan mutation, cfg.InboxSize),
		flushInterval: cfg.FlushInterval,
		done:          make(chan struct{}),
	}
}

// Run applies mutations in arrival order until ctx is cancelled.
func (e *MarketEngine) Run(ctx context.Context) error {
	defer close(e.done)

	ticker := time.NewTicker(e.flushInterval)
	defer ticker.Stop()

	e.log.Info("market engine started", zap.String("mode", string(e.store.Mode())))
	for {
		select {
		case <-ctx.Done():
			e.log.Info("market engine stopped", zap.Int("symbols", e.store.Len()))
			return ctx.Err()
		case m := <-e.inbox:
			m(e.store)
		case <-ticker.C:
			e.flush()
		}
	}
}

func (e *MarketEngine) flush() {
	if !e.store.Dirty() {
		return
	}
	e.snapshots.Publish(e.store.Snapshot())
	metrics.SnapshotsPublishedTotal.Inc()
}

// enqueue blocks while the inbox is full, which throttles the stream reader.
func (e *MarketEngine) enqueue(ctx context.Context, m mutation) error {
	select {
	case e.inbox <- m:
		return nil
	case <-e.done:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit queues one decoded stream event.
func (e *MarketEngine) Submit(ctx context.Context, ev domain.MarketEvent) error {
	switch ev := ev.(type) {
	case domain.TickerBatch:
		return e.enqueue(ctx, func(s *CandleStore) {
			for _, t := range ev.Tickers {
				s.UpsertTicker(t)
			}
		})
	case domain.KlineUpdate:
		return e.enqueue(ctx, func(s *CandleStore) {
			s.UpsertCandle(ev.Symbol, ev.Timeframe, ev.Candle, ev.Closed)
		})
	case domain.MarkPriceBatch:
		return e.enqueue(ctx, func(s *CandleStore) {
			for _, p := range ev.Prices {
				s.SetFunding(p.Symbol, p.FundingRate)
			}
		})
	}
	return nil
}

func (e *MarketEngine) SeedHistory(ctx context.Context, symbol string, tf domain.Timeframe, candles []domain.Candle, maxExisting int) error {
	return e.enqueue(ctx, func(s *CandleStore) {
		if !s.SeedHistory(symbol, tf, candles, maxExisting) {
			e.log.Debug("backfill discarded, live data already present",
				zap.String("symbol", symbol), zap.String("tf", string(tf)))
		}
	})
}

func (e *MarketEngine) SetOpenInterest(ctx context.Context, symbol string, oi float64) error {
	return e.enqueue(ctx, func(s *CandleStore) { s.SetOpenInterest(symbol, oi) })
}

func (e *MarketEngine) SetLongShortRatio(ctx context.Context, symbol string, lsr float64) error {
	return e.enqueue(ctx, func(s *CandleStore) { s.SetLongShortRatio(symbol, lsr) })
}

func (e *MarketEngine) SetFunding(ctx context.Context, symbol string, rate float64) error {
	return e.enqueue(ctx, func(s *CandleStore) { s.SetFunding(symbol, rate) })
}

// SwitchContext swaps the scoring mode and rescores every symbol before the
// next queued event is applied.
func (e *MarketEngine) SwitchContext(ctx context.Context, sc domain.ScoringContext) error {
	return e.enqueue(ctx, func(s *CandleStore) {
		start := time.Now()
		s.SetScoringContext(sc)
		s.RecomputeAll()
		e.log.Info("scoring mode switched",
			zap.String("mode", string(sc.Mode)),
			zap.Int("symbols", s.Len()),
			zap.Duration("took", time.Since(start)))
	})
}

// TopByVolume asks the engine goroutine for the n most traded symbols.
func (e *MarketEngine) TopByVolume(ctx context.Context, n int) ([]domain.SymbolSummary, error) {
	reply := make(chan []domain.SymbolSummary, 1)
	if err := e.enqueue(ctx, func(s *CandleStore) { reply <- s.TopByVolume(n) }); err != nil {
		return nil, err
	}
	select {
	case top := <-reply:
		return top, nil
	case <-e.done:
		return nil, ErrEngineStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
