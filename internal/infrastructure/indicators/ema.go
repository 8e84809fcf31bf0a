package indicators

// CalculateEMA computes the Exponential Moving Average.
// The first point is the simple average of the first period values, so the
// output has len(data)-period+1 points and is empty when data is shorter than period.
func CalculateEMA(data []float64, period int) []float64 {
	if period < 1 || len(data) < period {
		return nil
	}

	k := 2.0 / (float64(period) + 1.0)
	ema := make([]float64, 0, len(data)-period+1)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	prev := sum / float64(period)
	ema = append(ema, prev)

	for i := period; i < len(data); i++ {
		prev = data[i]*k + prev*(1-k)
		ema = append(ema, prev)
	}

	return ema
}

// CalculateSMA computes the Simple Moving Average over a sliding window.
func CalculateSMA(data []float64, period int) []float64 {
	if period < 1 || len(data) < period {
		return nil
	}

	sma := make([]float64, 0, len(data)-period+1)
	sum := 0.0
	for i, v := range data {
		sum += v
		if i >= period {
			sum -= data[i-period]
		}
		if i >= period-1 {
			sma = append(sma, sum/float64(period))
		}
	}
	return sma
}

// Last returns the newest point of an indicator output.
func Last(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	return values[len(values)-1], true
}
