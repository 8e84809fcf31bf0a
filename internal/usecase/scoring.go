package usecase

import (
	"math"

	"hunter-backend/internal/domain"
)

const (
	noteExhaustion = "Pump Exhaustion / Squeeze"
	noteTrend      = "Trend Continuation"
	noteBreakout   = "Squeeze Breakout"
)

// feature is one weighted model input. Absent inputs are left out of the
// weighted sum instead of counting as zero.
type feature struct {
	value   float64
	weight  float64
	present bool
}

// normalize maps x linearly from [lo,hi] onto [0,1] and clamps.
func normalize(x, lo, hi float64) float64 {
	if hi == lo {
		return 0
	}
	v := (x - lo) / (hi - lo)
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func weightedSum(features ...feature) float64 {
	var sum, weights float64
	for _, f := range features {
		if !f.present {
			continue
		}
		sum += f.value * f.weight
		weights += f.weight
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

func toScore(x float64) int {
	return int(math.Round(x * 100))
}

// ScoreMode1 rates pump exhaustion: a sharp impulse candle with stretched RSI
// and crowded longs (positive funding, high long/short ratio).
func ScoreMode1(st *domain.SymbolState, cfg domain.ScoringConfig) int {
	tf := cfg.Timeframes.Impulse
	series := st.SeriesOf(tf)
	if series.Len() < 2 {
		return 0
	}
	m := cfg.Mode1

	last := series.At(series.Len() - 1)
	prev := series.At(series.Len() - 2)
	impulse := feature{weight: m.WeightImpulse}
	if prev.Close > 0 {
		pct := (last.Close - prev.Close) / prev.Close * 100
		impulse.value = normalize(pct, 0, 2*m.ImpulseThresholdPct)
		impulse.present = true
	}

	ind := st.IndicatorsOf(tf)
	rsi := feature{weight: m.WeightRSI}
	if ind.RSI != nil {
		rsi.value = normalize(*ind.RSI, m.RSILow, m.RSIHigh)
		rsi.present = true
	}

	// funding arrives as a fraction; the band is expressed in percent
	funding := feature{weight: m.WeightFunding}
	if st.Funding != nil {
		funding.value = normalize(*st.Funding*100, m.FundingLowPct, m.FundingHighPct)
		funding.present = true
	}

	lsr := feature{weight: m.WeightLSR}
	if st.LongShortRatio != nil {
		lsr.value = normalize(*st.LongShortRatio, m.LSRLow, m.LSRHigh)
		lsr.present = true
	}

	return toScore(weightedSum(impulse, rsi, funding, lsr))
}

// trendDirection returns +1 for an uptrend, -1 for a downtrend and 0 when
// price sits exactly on the anchor.
func trendDirection(price, ema50 float64) int {
	switch {
	case price > ema50:
		return 1
	case price < ema50:
		return -1
	}
	return 0
}

// ScoreMode2 rates trend continuation: price on the right side of the higher
// timeframe EMA50, a pullback into the setup EMA band and a reclaim trigger.
func ScoreMode2(st *domain.SymbolState, cfg domain.ScoringConfig) int {
	m := cfg.Mode2
	setup := st.SeriesOf(cfg.Timeframes.Setup)
	if setup.Len() < m.MinSetupCandles {
		return 0
	}

	trendInd := st.IndicatorsOf(cfg.Timeframes.Trend)
	setupInd := st.IndicatorsOf(cfg.Timeframes.Setup)
	if trendInd.EMA50 == nil || setupInd.EMA21 == nil || setupInd.EMA50 == nil || setupInd.ADX == nil {
		return 0
	}
	if setupInd.ADX.ADX < m.ADXFloor {
		return 0
	}

	dir := trendDirection(st.Price, *trendInd.EMA50)
	ema21, ema50 := *setupInd.EMA21, *setupInd.EMA50
	switch {
	case dir == 0:
		return 0
	case dir > 0 && ema21 < ema50:
		return 0
	case dir < 0 && ema21 > ema50:
		return 0
	}

	last, _ := setup.Last()

	pullback := 0.0
	if dir > 0 {
		switch {
		case last.Low <= ema21 && last.Low >= ema50*m.LowerTolerance:
			pullback = 1
		case last.Low > ema21 && last.Low < ema21*m.UpperTolerance:
			pullback = 0.8
		}
	} else {
		switch {
		case last.High >= ema21 && last.High <= ema50*m.UpperTolerance:
			pullback = 1
		case last.High < ema21 && last.High > ema21*m.LowerTolerance:
			pullback = 0.8
		}
	}

	trigger := 0.0
	reclaim := (dir > 0 && last.Close > ema21) || (dir < 0 && last.Close < ema21)
	if reclaim {
		trigger = 0.5
		volumeOK := setupInd.VolumeMA20 != nil && last.Volume > *setupInd.VolumeMA20
		bodyOK := (dir > 0 && last.Close > last.Open) || (dir < 0 && last.Close < last.Open)
		if volumeOK && bodyOK {
			trigger = 1
		}
	}

	return toScore(weightedSum(
		feature{value: 1, weight: m.WeightTrend, present: true},
		feature{value: pullback, weight: m.WeightPullback, present: true},
		feature{value: trigger, weight: m.WeightTrigger, present: true},
	))
}

// ScoreMode3 rates a volatility squeeze resolving into a breakout candle.
func ScoreMode3(st *domain.SymbolState, cfg domain.ScoringConfig) int {
	tf := cfg.Timeframes.Squeeze
	series := st.SeriesOf(tf)
	if series.Len() < 2 {
		return 0
	}
	m := cfg.Mode3
	ind := st.IndicatorsOf(tf)

	squeeze := feature{weight: m.WeightSqueeze}
	if ind.BBWidth != nil {
		squeeze.value = 1 - normalize(*ind.BBWidth, 0, m.BBWidthCeiling)
		squeeze.present = true
	}

	last, _ := series.Last()
	body := math.Abs(last.Close - last.Open)
	breakout := feature{weight: m.WeightBreakout}
	switch {
	case ind.ATR != nil && *ind.ATR > 0:
		breakout.value = normalize(body / *ind.ATR, 0, m.BreakoutATRMultiple)
		breakout.present = true
	case last.Open > 0:
		breakout.value = normalize(body/last.Open*100, 0, m.BreakoutBodyPct)
		breakout.present = true
	}

	volume := feature{
		value:   normalize(st.QuoteVolume24h, m.VolumeFloor, m.VolumeCeiling),
		weight:  m.WeightVolume,
		present: true,
	}

	return toScore(weightedSum(squeeze, breakout, volume))
}

// ResolveBias turns the three scores into a directional call. Exhaustion wins
// over continuation, which wins over breakout.
func ResolveBias(scores domain.Scores, change24h float64, threshold int) (domain.Bias, string) {
	switch {
	case scores.Mode1 > threshold:
		return domain.BiasShort, noteExhaustion
	case scores.Mode2 > threshold:
		if change24h > 0 {
			return domain.BiasLong, noteTrend
		}
		return domain.BiasShort, noteTrend
	case scores.Mode3 > threshold:
		return domain.BiasBoth, noteBreakout
	}
	return domain.BiasNeutral, ""
}

// Evaluate scores st with the active context and writes scores, bias and note back.
func Evaluate(st *domain.SymbolState, sc domain.ScoringContext) {
	cfg := sc.Config
	st.Scores = domain.Scores{
		Mode1: ScoreMode1(st, cfg),
		Mode2: ScoreMode2(st, cfg),
		Mode3: ScoreMode3(st, cfg),
	}
	st.Bias, st.Note = ResolveBias(st.Scores, st.Change24h, cfg.BiasThreshold)
}
