package indicators

import "math"

// trueRange returns the full true-range series. The first bar has no
// previous close, so its range is simply high-low.
func trueRange(high, low, close []float64) []float64 {
	n := len(close)
	tr := make([]float64, n)
	if n == 0 {
		return tr
	}
	tr[0] = high[0] - low[0]
	for i := 1; i < n; i++ {
		tr[i] = math.Max(high[i]-low[i],
			math.Max(math.Abs(high[i]-close[i-1]), math.Abs(low[i]-close[i-1])))
	}
	return tr
}

func atr(high, low, close []float64, period int) []float64 {
	return ema(trueRange(high, low, close), period)
}

func bollinger(close []float64, period int, k float64) (upper, middle, lower, width, percentB []float64) {
	n := len(close)
	middle = sma(close, period)
	upper, lower = nanSlice(n), nanSlice(n)
	width, percentB = nanSlice(n), nanSlice(n)

	for i := period - 1; i < n; i++ {
		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			diff := close[j] - middle[i]
			variance += diff * diff
		}
		sd := math.Sqrt(variance / float64(period))
		upper[i] = middle[i] + k*sd
		lower[i] = middle[i] - k*sd
		if middle[i] != 0 {
			width[i] = (upper[i] - lower[i]) / middle[i] * 100
		} else {
			width[i] = 0
		}
		if upper[i] != lower[i] {
			percentB[i] = (close[i] - lower[i]) / (upper[i] - lower[i]) * 100
		} else {
			percentB[i] = 50
		}
	}
	return upper, middle, lower, width, percentB
}

func keltner(high, low, close []float64, emaPeriod, atrPeriod int, mult float64) (upper, middle, lower []float64) {
	n := len(close)
	middle = ema(close, emaPeriod)
	a := atr(high, low, close, atrPeriod)
	upper, lower = nanSlice(n), nanSlice(n)
	for i := range close {
		if !math.IsNaN(middle[i]) && !math.IsNaN(a[i]) {
			upper[i] = middle[i] + mult*a[i]
			lower[i] = middle[i] - mult*a[i]
		}
	}
	return upper, middle, lower
}

func donchian(high, low []float64, period int) (upper, middle, lower []float64) {
	n := len(high)
	upper, middle, lower = nanSlice(n), nanSlice(n), nanSlice(n)
	for i := period - 1; i < n; i++ {
		hh, ll := windowExtremes(high, low, i-period+1, i)
		upper[i] = hh
		lower[i] = ll
		middle[i] = (hh + ll) / 2
	}
	return upper, middle, lower
}

// supertrend carries directional state across bars. The final bands
// ratchet toward price until the close escapes the opposite band, which
// flips the direction. Sequential on purpose.
func supertrend(high, low, close []float64, period int, mult float64) (st, direction []float64) {
	n := len(close)
	a := atr(high, low, close, period)
	st = nanSlice(n)
	direction = make([]float64, n)
	fu := make([]float64, n) // final upper band
	fl := make([]float64, n) // final lower band

	for i := period; i < n; i++ {
		av := a[i]
		if math.IsNaN(av) {
			av = 0
		}
		hl2 := (high[i] + low[i]) / 2
		bu := hl2 + mult*av
		bl := hl2 - mult*av

		if i == period {
			fu[i], fl[i] = bu, bl
			if close[i] < bl {
				direction[i] = -1
			} else {
				direction[i] = 1
			}
		} else {
			if bu < fu[i-1] || close[i-1] > fu[i-1] {
				fu[i] = bu
			} else {
				fu[i] = fu[i-1]
			}
			if bl > fl[i-1] || close[i-1] < fl[i-1] {
				fl[i] = bl
			} else {
				fl[i] = fl[i-1]
			}
			switch {
			case close[i] > fu[i-1]:
				direction[i] = 1
			case close[i] < fl[i-1]:
				direction[i] = -1
			default:
				direction[i] = direction[i-1]
			}
		}
		if direction[i] == 1 {
			st[i] = fl[i]
		} else {
			st[i] = fu[i]
		}
	}
	return st, direction
}

// psar is the classic parabolic stop-and-reverse recurrence with
// acceleration step/maxStep. Direction is +1 long, -1 short.
func psar(high, low []float64, step, maxStep float64) (out, direction []float64) {
	n := len(high)
	out = nanSlice(n)
	direction = make([]float64, n)
	if n < 2 {
		return out, direction
	}

	up := high[1] >= high[0]
	af := step
	var sar, ep float64
	if up {
		sar, ep = low[0], high[1]
	} else {
		sar, ep = high[0], low[1]
	}

	for i := 1; i < n; i++ {
		sar = sar + af*(ep-sar)

		if up {
			// SAR must stay below the two prior lows
			if i >= 2 && sar > low[i-2] {
				sar = low[i-2]
			}
			if sar > low[i-1] {
				sar = low[i-1]
			}
			if low[i] < sar { // reversal
				up = false
				sar = ep
				ep = low[i]
				af = step
			} else if high[i] > ep {
				ep = high[i]
				af = math.Min(af+step, maxStep)
			}
		} else {
			if i >= 2 && sar < high[i-2] {
				sar = high[i-2]
			}
			if sar < high[i-1] {
				sar = high[i-1]
			}
			if high[i] > sar { // reversal
				up = true
				sar = ep
				ep = high[i]
				af = step
			} else if low[i] < ep {
				ep = low[i]
				af = math.Min(af+step, maxStep)
			}
		}

		out[i] = sar
		if up {
			direction[i] = 1
		} else {
			direction[i] = -1
		}
	}
	return out, direction
}
