package indicators

import "math"

// ADXResult is the last reading of the Average Directional Index.
type ADXResult struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// CalculateADX computes the Average Directional Index of the newest candle.
// Below 2*period candles it returns the zero result and false.
func CalculateADX(highs, lows, closes []float64, period int) (ADXResult, bool) {
	length := len(closes)
	if period < 1 || length < 2*period || len(highs) != length || len(lows) != length {
		return ADXResult{}, false
	}

	var (
		sumTR, sumPDM, sumMDM float64
		tr, pdm, mdm          float64
		adx                   float64
		seeded                bool
		last                  ADXResult
	)

	for i := 1; i < length; i++ {
		curTR := trueRange(highs[i], lows[i], closes[i-1])
		curPDM, curMDM := directionalMove(highs[i]-highs[i-1], lows[i-1]-lows[i])

		switch {
		case i < period:
			sumTR += curTR
			sumPDM += curPDM
			sumMDM += curMDM
			continue
		case i == period:
			tr = (sumTR + curTR) / float64(period)
			pdm = (sumPDM + curPDM) / float64(period)
			mdm = (sumMDM + curMDM) / float64(period)
		default:
			tr = wilder(tr, curTR, period)
			pdm = wilder(pdm, curPDM, period)
			mdm = wilder(mdm, curMDM, period)
		}

		pdi, mdi := 0.0, 0.0
		if tr > 0 {
			pdi = 100 * pdm / tr
			mdi = 100 * mdm / tr
		}
		dx := 0.0
		if sum := pdi + mdi; sum > 0 {
			dx = 100 * math.Abs(pdi-mdi) / sum
		}

		if !seeded {
			adx = dx
			seeded = true
		} else {
			adx = wilder(adx, dx, period)
		}
		last = ADXResult{ADX: adx, PlusDI: pdi, MinusDI: mdi}
	}

	return last, true
}

// directionalMove keeps only the larger positive move; ties cancel both.
func directionalMove(up, down float64) (plus, minus float64) {
	if up > down && up > 0 {
		plus = up
	}
	if down > up && down > 0 {
		minus = down
	}
	return plus, minus
}
