package indicators

import "math"

// Band is one Bollinger Bands point.
type Band struct {
	Upper  float64
	Middle float64
	Lower  float64
	Width  float64
}

// CalculateBollingerBands computes the Bollinger Bands with a population
// standard deviation. Width is (upper-lower)/middle, or 0 when the mean is 0.
func CalculateBollingerBands(closes []float64, period int, multiplier float64) []Band {
	length := len(closes)
	if period < 1 || length < period {
		return nil
	}

	bands := make([]Band, 0, length-period+1)
	for i := period - 1; i < length; i++ {
		window := closes[i-period+1 : i+1]

		sum := 0.0
		for _, v := range window {
			sum += v
		}
		ma := sum / float64(period)

		sumSqDiff := 0.0
		for _, v := range window {
			diff := v - ma
			sumSqDiff += diff * diff
		}
		stdDev := math.Sqrt(sumSqDiff / float64(period))

		b := Band{
			Upper:  ma + multiplier*stdDev,
			Middle: ma,
			Lower:  ma - multiplier*stdDev,
		}
		if ma != 0 {
			b.Width = (b.Upper - b.Lower) / ma
		}
		bands = append(bands, b)
	}

	return bands
}

// CalculateBollingerBandWidth returns only the width series.
func CalculateBollingerBandWidth(closes []float64, period int, multiplier float64) []float64 {
	bands := CalculateBollingerBands(closes, period, multiplier)
	if bands == nil {
		return nil
	}
	widths := make([]float64, len(bands))
	for i, b := range bands {
		widths[i] = b.Width
	}
	return widths
}
