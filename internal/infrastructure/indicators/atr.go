package indicators

import "math"

// CalculateATR computes the Average True Range.
// True range needs the previous close, so the first candle only seeds it;
// the output has len(closes)-period points.
func CalculateATR(highs, lows, closes []float64, period int) []float64 {
	length := len(closes)
	if period < 1 || length < period+1 || len(highs) != length || len(lows) != length {
		return nil
	}

	atr := make([]float64, 0, length-period)

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += trueRange(highs[i], lows[i], closes[i-1])
	}
	prev := sum / float64(period)
	atr = append(atr, prev)

	for i := period + 1; i < length; i++ {
		prev = wilder(prev, trueRange(highs[i], lows[i], closes[i-1]), period)
		atr = append(atr, prev)
	}

	return atr
}

func trueRange(high, low, prevClose float64) float64 {
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}

func wilder(prev, value float64, period int) float64 {
	return (prev*float64(period-1) + value) / float64(period)
}
