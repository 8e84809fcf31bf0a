package domain

import (
	"strings"
	"time"
)

// Timeframe is a candle aggregation interval as named by the exchange.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
)

// Timeframes lists every tracked timeframe, fastest first.
var Timeframes = []Timeframe{Timeframe1m, Timeframe5m, Timeframe15m, Timeframe1h}

// ParseTimeframe maps an exchange interval string onto a tracked timeframe.
func ParseTimeframe(s string) (Timeframe, bool) {
	for _, tf := range Timeframes {
		if string(tf) == s {
			return tf, true
		}
	}
	return "", false
}

// Candle is one OHLCV aggregate. OpenTime is unix milliseconds.
type Candle struct {
	OpenTime int64   `json:"t"`
	Open     float64 `json:"o"`
	High     float64 `json:"h"`
	Low      float64 `json:"l"`
	Close    float64 `json:"c"`
	Volume   float64 `json:"v"`
}

// Bias is the resolved directional call for a symbol.
type Bias string

const (
	BiasLong    Bias = "LONG"
	BiasShort   Bias = "SHORT"
	BiasBoth    Bias = "BOTH"
	BiasNeutral Bias = "NEUTRAL"
)

// ADXValue holds the last ADX reading with its directional indices.
type ADXValue struct {
	ADX     float64 `json:"adx"`
	PlusDI  float64 `json:"pdi"`
	MinusDI float64 `json:"mdi"`
}

// Indicators is the derived indicator bag of one timeframe.
// A nil field means the series is still shorter than the indicator window.
type Indicators struct {
	RSI        *float64  `json:"rsi,omitempty"`
	EMA21      *float64  `json:"ema21,omitempty"`
	EMA50      *float64  `json:"ema50,omitempty"`
	ATR        *float64  `json:"atr,omitempty"`
	ADX        *ADXValue `json:"adx,omitempty"`
	BBWidth    *float64  `json:"bbWidth,omitempty"`
	VolumeMA20 *float64  `json:"volumeMa20,omitempty"`
}

// Scores are the three model outputs, each in [0,100].
type Scores struct {
	Mode1 int `json:"scoreMode1"`
	Mode2 int `json:"scoreMode2"`
	Mode3 int `json:"scoreMode3"`
}

// SymbolState is everything the engine knows about one symbol.
type SymbolState struct {
	Symbol         string   `json:"symbol"`
	Price          float64  `json:"price"`
	Change24h      float64  `json:"change24h"`
	QuoteVolume24h float64  `json:"volume"`
	Funding        *float64 `json:"funding,omitempty"`
	OpenInterest   *float64 `json:"oi,omitempty"`
	LongShortRatio *float64 `json:"lsr,omitempty"`

	Series     map[Timeframe]*CandleSeries `json:"klines"`
	Indicators map[Timeframe]Indicators    `json:"indicators"`

	Scores Scores `json:"scores"`
	Bias   Bias   `json:"bias"`
	Note   string `json:"note,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// NewSymbolState returns an empty state with all four series allocated.
func NewSymbolState(symbol string) *SymbolState {
	s := &SymbolState{
		Symbol:     symbol,
		Series:     make(map[Timeframe]*CandleSeries, len(Timeframes)),
		Indicators: make(map[Timeframe]Indicators, len(Timeframes)),
		Bias:       BiasNeutral,
	}
	for _, tf := range Timeframes {
		s.Series[tf] = NewCandleSeries(SeriesCapacity)
	}
	return s
}

// SeriesOf returns the series of tf; never nil for a state built by NewSymbolState.
func (s *SymbolState) SeriesOf(tf Timeframe) *CandleSeries {
	return s.Series[tf]
}

// IndicatorsOf returns the indicator bag of tf (zero value when never computed).
func (s *SymbolState) IndicatorsOf(tf Timeframe) Indicators {
	return s.Indicators[tf]
}

// Clone returns a deep copy safe to hand to other goroutines.
func (s *SymbolState) Clone() SymbolState {
	out := *s
	out.Funding = cloneFloat(s.Funding)
	out.OpenInterest = cloneFloat(s.OpenInterest)
	out.LongShortRatio = cloneFloat(s.LongShortRatio)

	out.Series = make(map[Timeframe]*CandleSeries, len(s.Series))
	for tf, series := range s.Series {
		out.Series[tf] = series.Clone()
	}
	out.Indicators = make(map[Timeframe]Indicators, len(s.Indicators))
	for tf, ind := range s.Indicators {
		out.Indicators[tf] = ind.clone()
	}
	return out
}

func (ind Indicators) clone() Indicators {
	out := Indicators{
		RSI:        cloneFloat(ind.RSI),
		EMA21:      cloneFloat(ind.EMA21),
		EMA50:      cloneFloat(ind.EMA50),
		ATR:        cloneFloat(ind.ATR),
		BBWidth:    cloneFloat(ind.BBWidth),
		VolumeMA20: cloneFloat(ind.VolumeMA20),
	}
	if ind.ADX != nil {
		adx := *ind.ADX
		out.ADX = &adx
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float returns a pointer to v, for optional fields.
func Float(v float64) *float64 {
	return &v
}

// HasQuoteAsset reports whether symbol trades against quote (e.g. BTCUSDT / USDT).
func HasQuoteAsset(symbol, quote string) bool {
	return len(symbol) > len(quote) && strings.HasSuffix(symbol, quote)
}

// SymbolSummary is the ranking view used by the periodic tasks.
type SymbolSummary struct {
	Symbol         string
	QuoteVolume24h float64
	SeriesLen      map[Timeframe]int
	HasFunding     bool
}

// Snapshot is a point-in-time, read-only copy of the whole store.
// Symbols are ordered by 24h quote volume, highest first.
type Snapshot struct {
	Seq     uint64        `json:"seq"`
	TakenAt time.Time     `json:"takenAt"`
	Mode    Mode          `json:"mode"`
	Symbols []SymbolState `json:"symbols"`
}

// Find returns the state of symbol if present.
func (s Snapshot) Find(symbol string) (SymbolState, bool) {
	for _, st := range s.Symbols {
		if st.Symbol == symbol {
			return st, true
		}
	}
	return SymbolState{}, false
}
