package domain

import (
	"errors"
	"fmt"
)

// Mode selects the scoring profile.
type Mode string

const (
	ModeScalping Mode = "scalping"
	ModeIntraday Mode = "intraday"
)

var ErrUnknownMode = errors.New("unknown mode")

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeScalping, ModeIntraday:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// TimeframeMap tells each model which series to read.
type TimeframeMap struct {
	Trend   Timeframe // EMA50 anchor of mode 2
	Setup   Timeframe // pullback/trigger series of mode 2
	Impulse Timeframe // pump series of mode 1
	Squeeze Timeframe // squeeze/breakout series of mode 3
}

type Mode1Config struct {
	ImpulseThresholdPct float64
	RSILow, RSIHigh     float64
	FundingLowPct       float64
	FundingHighPct      float64
	LSRLow, LSRHigh     float64

	WeightImpulse float64
	WeightRSI     float64
	WeightFunding float64
	WeightLSR     float64
}

type Mode2Config struct {
	MinSetupCandles int
	ADXFloor        float64
	LowerTolerance  float64
	UpperTolerance  float64

	WeightTrend    float64
	WeightPullback float64
	WeightTrigger  float64
}

type Mode3Config struct {
	BBWidthCeiling      float64
	BreakoutATRMultiple float64
	BreakoutBodyPct     float64
	VolumeFloor         float64
	VolumeCeiling       float64

	WeightSqueeze  float64
	WeightBreakout float64
	WeightVolume   float64
}

// ScoringConfig is the immutable parameter bundle of one mode.
type ScoringConfig struct {
	Timeframes    TimeframeMap
	Mode1         Mode1Config
	Mode2         Mode2Config
	Mode3         Mode3Config
	BiasThreshold int
}

var scalpingConfig = ScoringConfig{
	Timeframes: TimeframeMap{
		Trend:   Timeframe15m,
		Setup:   Timeframe1m,
		Impulse: Timeframe5m,
		Squeeze: Timeframe5m,
	},
	Mode1: Mode1Config{
		ImpulseThresholdPct: 1.5,
		RSILow:              60,
		RSIHigh:             85,
		FundingLowPct:       0.01,
		FundingHighPct:      0.05,
		LSRLow:              1.5,
		LSRHigh:             4.0,
		WeightImpulse:       0.4,
		WeightRSI:           0.3,
		WeightFunding:       0.2,
		WeightLSR:           0.1,
	},
	Mode2: Mode2Config{
		MinSetupCandles: 20,
		ADXFloor:        20,
		LowerTolerance:  0.998,
		UpperTolerance:  1.002,
		WeightTrend:     0.5,
		WeightPullback:  0.3,
		WeightTrigger:   0.2,
	},
	Mode3: Mode3Config{
		BBWidthCeiling:      0.10,
		BreakoutATRMultiple: 2.0,
		BreakoutBodyPct:     2.0,
		VolumeFloor:         1e6,
		VolumeCeiling:       5e7,
		WeightSqueeze:       0.4,
		WeightBreakout:      0.4,
		WeightVolume:        0.2,
	},
	BiasThreshold: 70,
}

// ScalpingConfig returns the fast profile: 15m trend, 1m setup, 5m impulse.
func ScalpingConfig() ScoringConfig {
	return scalpingConfig
}

// IntradayConfig returns the slow profile: 1h trend, 15m setup, 1h impulse
// with wider pullback tolerances.
func IntradayConfig() ScoringConfig {
	cfg := scalpingConfig
	cfg.Timeframes = TimeframeMap{
		Trend:   Timeframe1h,
		Setup:   Timeframe15m,
		Impulse: Timeframe1h,
		Squeeze: Timeframe1h,
	}
	cfg.Mode1.ImpulseThresholdPct = 3.0
	cfg.Mode2.LowerTolerance = 0.995
	cfg.Mode2.UpperTolerance = 1.005
	cfg.Mode3.BBWidthCeiling = 0.15
	cfg.Mode3.BreakoutBodyPct = 3.0
	return cfg
}

// ScoringContext is the mode and its bundle, passed to every recompute.
type ScoringContext struct {
	Mode   Mode
	Config ScoringConfig
}

// NewScoringContext builds the context of mode. Unknown modes fall back to scalping.
func NewScoringContext(mode Mode) ScoringContext {
	if mode == ModeIntraday {
		return ScoringContext{Mode: ModeIntraday, Config: IntradayConfig()}
	}
	return ScoringContext{Mode: ModeScalping, Config: ScalpingConfig()}
}
