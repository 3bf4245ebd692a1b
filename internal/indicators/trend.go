package indicators

import "math"

// adx follows the Wilder construction with EMA smoothing of the directional
// movement and DX series. DI values are defined only once ATR is warm and
// positive.
func adx(high, low, close []float64, period int) (adxOut, plusDI, minusDI []float64) {
	n := len(close)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	atrVal := atr(high, low, close, period)
	smPlus := ema(plusDM, period)
	smMinus := ema(minusDM, period)

	plusDI, minusDI = nanSlice(n), nanSlice(n)
	dx := nanSlice(n)
	for i := period; i < n; i++ {
		if math.IsNaN(atrVal[i]) || atrVal[i] <= 0 {
			continue
		}
		plusDI[i] = smPlus[i] / atrVal[i] * 100
		minusDI[i] = smMinus[i] / atrVal[i] * 100
		sum := plusDI[i] + minusDI[i]
		if sum > 0 {
			dx[i] = math.Abs(plusDI[i]-minusDI[i]) / sum * 100
		}
	}
	adxOut = emaValid(dx, period)
	return adxOut, plusDI, minusDI
}

func aroon(high, low []float64, period int) (up, down, osc []float64) {
	n := len(high)
	up, down, osc = nanSlice(n), nanSlice(n), nanSlice(n)
	for i := period; i < n; i++ {
		hhIdx, llIdx := 0, 0
		for j := 1; j <= period; j++ {
			if high[i-period+j] > high[i-period+hhIdx] {
				hhIdx = j
			}
			if low[i-period+j] < low[i-period+llIdx] {
				llIdx = j
			}
		}
		up[i] = float64(hhIdx) / float64(period) * 100
		down[i] = float64(llIdx) / float64(period) * 100
		osc[i] = up[i] - down[i]
	}
	return up, down, osc
}

func ichimoku(high, low, close []float64, p Params) Result {
	n := len(close)
	t := orInt(p.Tenkan, 9)
	k := orInt(p.Kijun, 26)
	sb := orInt(p.SenkouB, 52)

	tenkan, kijun := nanSlice(n), nanSlice(n)
	senkouA, senkouB := nanSlice(n), nanSlice(n)

	mid := func(from, to int) float64 {
		hh, ll := windowExtremes(high, low, from, to)
		return (hh + ll) / 2
	}

	for i := 0; i < n; i++ {
		if i >= t-1 {
			tenkan[i] = mid(i-t+1, i)
		}
		if i >= k-1 {
			kijun[i] = mid(i-k+1, i)
		}
		if !math.IsNaN(tenkan[i]) && !math.IsNaN(kijun[i]) {
			senkouA[i] = (tenkan[i] + kijun[i]) / 2
		}
		if i >= sb-1 {
			senkouB[i] = mid(i-sb+1, i)
		}
	}

	chikou := append([]float64(nil), close...)
	return Result{"tenkan": tenkan, "kijun": kijun, "senkou_a": senkouA, "senkou_b": senkouB, "chikou": chikou}
}
