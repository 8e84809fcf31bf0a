package usecase

import (
	"context"
	"time"

	"hunter-backend/internal/domain"

	"go.uber.org/zap"
)

const (
	DefaultOpenInterestInterval   = 60 * time.Second
	DefaultOpenInterestCandidates = 15
	DefaultOpenInterestPolled     = 5
	longShortPeriod               = "5m"
)

type OpenInterestConfig struct {
	Interval   time.Duration
	Candidates int
	Polled     int
}

// OpenInterestPoller refreshes open interest, long/short ratio and missing
// funding rates of the most traded symbols.
type OpenInterestPoller struct {
	cfg    OpenInterestConfig
	engine MarketQueue
	source domain.MarketDataSource
	log    *zap.Logger

	restart chan struct{}
}

func NewOpenInterestPoller(cfg OpenInterestConfig, engine MarketQueue, source domain.MarketDataSource, log *zap.Logger) *OpenInterestPoller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultOpenInterestInterval
	}
	if cfg.Candidates <= 0 {
		cfg.Candidates = DefaultOpenInterestCandidates
	}
	if cfg.Polled <= 0 {
		cfg.Polled = DefaultOpenInterestPolled
	}
	return &OpenInterestPoller{
		cfg:     cfg,
		engine:  engine,
		source:  source,
		log:     log.Named("open_interest"),
		restart: make(chan struct{}, 1),
	}
}

// Restart resets the interval timer and polls right away. Repeated calls
// before the loop picks them up collapse into one.
func (p *OpenInterestPoller) Restart() {
	select {
	case p.restart <- struct{}{}:
	default:
	}
}

func (p *OpenInterestPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.restart:
			ticker.Reset(p.cfg.Interval)
			p.Poll(ctx)
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll runs one pass over the first candidates. It returns the number of
// symbols whose open interest was updated.
func (p *OpenInterestPoller) Poll(ctx context.Context) int {
	top, err := p.engine.TopByVolume(ctx, p.cfg.Candidates)
	if err != nil {
		p.log.Debug("top by volume unavailable", zap.Error(err))
		return 0
	}
	if len(top) > p.cfg.Polled {
		top = top[:p.cfg.Polled]
	}

	updated := 0
	for _, sym := range top {
		if ctx.Err() != nil {
			return updated
		}
		if p.pollSymbol(ctx, sym) {
			updated++
		}
	}
	return updated
}

func (p *OpenInterestPoller) pollSymbol(ctx context.Context, sym domain.SymbolSummary) bool {
	log := p.log.With(zap.String("symbol", sym.Symbol))

	ok := false
	if oi, err := p.source.FetchOpenInterest(ctx, sym.Symbol); err != nil {
		log.Debug("open interest fetch failed", zap.Error(err))
	} else if err := p.engine.SetOpenInterest(ctx, sym.Symbol, oi); err == nil {
		ok = true
	}

	if lsr, err := p.source.FetchLongShortRatio(ctx, sym.Symbol, longShortPeriod); err != nil {
		log.Debug("long/short ratio fetch failed", zap.Error(err))
	} else {
		_ = p.engine.SetLongShortRatio(ctx, sym.Symbol, lsr)
	}

	if !sym.HasFunding {
		if rate, err := p.source.FetchFundingRate(ctx, sym.Symbol); err != nil {
			log.Debug("funding fetch failed", zap.Error(err))
		} else {
			_ = p.engine.SetFunding(ctx, sym.Symbol, rate)
		}
	}
	return ok
}
