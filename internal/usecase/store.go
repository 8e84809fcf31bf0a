package usecase

import (
	"sort"
	"time"

	"hunter-backend/internal/domain"
	"hunter-backend/internal/infrastructure/indicators"
	"hunter-backend/internal/metrics"
)

const (
	rsiPeriod    = 14
	emaFast      = 21
	emaSlow      = 50
	atrPeriod    = 14
	adxPeriod    = 14
	bbPeriod     = 20
	bbMultiplier = 2.0
	volumeMA     = 20
)

// CandleStore holds the state of every tracked symbol. It is owned by a
// single goroutine (see MarketEngine) and does no locking of its own.
type CandleStore struct {
	quoteAsset string
	scoring    domain.ScoringContext
	now        func() time.Time

	symbols map[string]*domain.SymbolState
	dirty   map[string]struct{}

	published map[string]domain.SymbolState
	seq       uint64
}

func NewCandleStore(quoteAsset string, sc domain.ScoringContext) *CandleStore {
	if quoteAsset == "" {
		quoteAsset = "USDT"
	}
	return &CandleStore{
		quoteAsset: quoteAsset,
		scoring:    sc,
		now:        time.Now,
		symbols:    make(map[string]*domain.SymbolState),
		dirty:      make(map[string]struct{}),
		published:  make(map[string]domain.SymbolState),
	}
}

func (s *CandleStore) touch(st *domain.SymbolState) {
	st.UpdatedAt = s.now()
	s.dirty[st.Symbol] = struct{}{}
}

// Dirty reports whether anything changed since the last Snapshot.
func (s *CandleStore) Dirty() bool {
	return len(s.dirty) > 0
}

func (s *CandleStore) Len() int {
	return len(s.symbols)
}

// Mode returns the active scoring mode.
func (s *CandleStore) Mode() domain.Mode {
	return s.scoring.Mode
}

// UpsertTicker creates the symbol on first sight and refreshes its 24h
// figures. Symbols quoted in another asset are ignored.
func (s *CandleStore) UpsertTicker(t domain.Ticker) bool {
	if !domain.HasQuoteAsset(t.Symbol, s.quoteAsset) {
		return false
	}
	st, ok := s.symbols[t.Symbol]
	if !ok {
		st = domain.NewSymbolState(t.Symbol)
		s.symbols[t.Symbol] = st
		metrics.TrackedSymbols.Set(float64(len(s.symbols)))
	}
	st.Price = t.Price
	st.Change24h = t.Change24h
	st.QuoteVolume24h = t.QuoteVolume24h
	s.touch(st)
	return true
}

// UpsertCandle writes one candle tick. Indicators and scores are rebuilt
// when a new candle opens or the current one closes.
func (s *CandleStore) UpsertCandle(symbol string, tf domain.Timeframe, c domain.Candle, isClosed bool) domain.UpsertResult {
	st, ok := s.symbols[symbol]
	if !ok {
		return domain.Rejected
	}
	series := st.SeriesOf(tf)
	if series == nil {
		return domain.Rejected
	}

	res := series.Upsert(c)
	if res == domain.Rejected {
		return res
	}
	if res == domain.Appended || isClosed {
		s.recompute(st)
	}
	s.touch(st)
	return res
}

func (s *CandleStore) SetFunding(symbol string, rate float64) {
	if st, ok := s.symbols[symbol]; ok {
		st.Funding = domain.Float(rate)
		s.touch(st)
	}
}

func (s *CandleStore) SetOpenInterest(symbol string, oi float64) {
	if st, ok := s.symbols[symbol]; ok {
		st.OpenInterest = domain.Float(oi)
		s.touch(st)
	}
}

func (s *CandleStore) SetLongShortRatio(symbol string, lsr float64) {
	if st, ok := s.symbols[symbol]; ok {
		st.LongShortRatio = domain.Float(lsr)
		s.touch(st)
	}
}

// SeedHistory loads backfilled candles while the series still holds fewer
// than maxExisting candles. Live data that arrived first wins otherwise.
func (s *CandleStore) SeedHistory(symbol string, tf domain.Timeframe, candles []domain.Candle, maxExisting int) bool {
	st, ok := s.symbols[symbol]
	if !ok || len(candles) == 0 {
		return false
	}
	series := st.SeriesOf(tf)
	if series == nil || series.Len() >= maxExisting {
		return false
	}

	series.Seed(candles)
	s.recompute(st)
	s.touch(st)
	return true
}

// Recompute rebuilds indicators and scores of one symbol.
func (s *CandleStore) Recompute(symbol string) {
	if st, ok := s.symbols[symbol]; ok {
		s.recompute(st)
		s.touch(st)
	}
}

func (s *CandleStore) recompute(st *domain.SymbolState) {
	defer metrics.ObserveRecompute(time.Now())

	for _, tf := range domain.Timeframes {
		st.Indicators[tf] = ComputeIndicators(st.SeriesOf(tf))
	}
	Evaluate(st, s.scoring)
}

// SetScoringContext swaps the active mode. Callers follow with RecomputeAll.
func (s *CandleStore) SetScoringContext(sc domain.ScoringContext) {
	s.scoring = sc
}

func (s *CandleStore) RecomputeAll() {
	for _, st := range s.symbols {
		s.recompute(st)
		s.touch(st)
	}
}

// Snapshot returns a deep copy of every symbol ordered by 24h quote volume.
// Only symbols changed since the previous call are cloned again.
func (s *CandleStore) Snapshot() domain.Snapshot {
	for sym := range s.dirty {
		if st, ok := s.symbols[sym]; ok {
			s.published[sym] = st.Clone()
		}
		delete(s.dirty, sym)
	}

	out := make([]domain.SymbolState, 0, len(s.published))
	for _, st := range s.published {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QuoteVolume24h != out[j].QuoteVolume24h {
			return out[i].QuoteVolume24h > out[j].QuoteVolume24h
		}
		return out[i].Symbol < out[j].Symbol
	})

	s.seq++
	return domain.Snapshot{
		Seq:     s.seq,
		TakenAt: s.now(),
		Mode:    s.scoring.Mode,
		Symbols: out,
	}
}

// TopByVolume ranks symbols by 24h quote volume and returns the first n.
func (s *CandleStore) TopByVolume(n int) []domain.SymbolSummary {
	all := make([]*domain.SymbolState, 0, len(s.symbols))
	for _, st := range s.symbols {
		all = append(all, st)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].QuoteVolume24h != all[j].QuoteVolume24h {
			return all[i].QuoteVolume24h > all[j].QuoteVolume24h
		}
		return all[i].Symbol < all[j].Symbol
	})
	if n >= 0 && n < len(all) {
		all = all[:n]
	}

	out := make([]domain.SymbolSummary, 0, len(all))
	for _, st := range all {
		lens := make(map[domain.Timeframe]int, len(domain.Timeframes))
		for _, tf := range domain.Timeframes {
			lens[tf] = st.SeriesOf(tf).Len()
		}
		out = append(out, domain.SymbolSummary{
			Symbol:         st.Symbol,
			QuoteVolume24h: st.QuoteVolume24h,
			SeriesLen:      lens,
			HasFunding:     st.Funding != nil,
		})
	}
	return out
}

// ComputeIndicators derives every indicator whose window the series covers.
func ComputeIndicators(series *domain.CandleSeries) domain.Indicators {
	var ind domain.Indicators
	if series.Len() == 0 {
		return ind
	}

	candles := series.Candles()
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}

	if v, ok := indicators.Last(indicators.CalculateRSI(closes, rsiPeriod)); ok {
		ind.RSI = domain.Float(v)
	}
	if v, ok := indicators.Last(indicators.CalculateEMA(closes, emaFast)); ok {
		ind.EMA21 = domain.Float(v)
	}
	if v, ok := indicators.Last(indicators.CalculateEMA(closes, emaSlow)); ok {
		ind.EMA50 = domain.Float(v)
	}
	if v, ok := indicators.Last(indicators.CalculateATR(highs, lows, closes, atrPeriod)); ok {
		ind.ATR = domain.Float(v)
	}
	if adx, ok := indicators.CalculateADX(highs, lows, closes, adxPeriod); ok {
		ind.ADX = &domain.ADXValue{ADX: adx.ADX, PlusDI: adx.PlusDI, MinusDI: adx.MinusDI}
	}
	if v, ok := indicators.Last(indicators.CalculateBollingerBandWidth(closes, bbPeriod, bbMultiplier)); ok {
		ind.BBWidth = domain.Float(v)
	}
	if v, ok := indicators.Last(indicators.CalculateSMA(volumes, volumeMA)); ok {
		ind.VolumeMA20 = domain.Float(v)
	}
	return ind
}
