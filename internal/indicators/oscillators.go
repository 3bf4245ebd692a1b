package indicators

import "math"

// rsi uses Wilder's recursive smoothing. A zero average loss yields the
// 100 sentinel rather than a division blow-up.
func rsi(close []float64, period int) []float64 {
	n := len(close)
	out := nanSlice(n)
	if n < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := close[i] - close[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < n; i++ {
		change := close[i] - close[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	return 100.0 - 100.0/(1.0+avgGain/avgLoss)
}

// stoch returns %K and %D. A flat high/low range yields the 50 sentinel.
func stoch(high, low, close []float64, kPeriod, dPeriod, slowing int) (k, d []float64) {
	n := len(close)
	rawK := nanSlice(n)
	for i := kPeriod - 1; i < n; i++ {
		hh, ll := windowExtremes(high, low, i-kPeriod+1, i)
		if hh != ll {
			rawK[i] = (close[i] - ll) / (hh - ll) * 100
		} else {
			rawK[i] = 50
		}
	}
	k = rawK
	if slowing > 1 {
		k = smaValid(rawK, slowing)
	}
	d = smaValid(k, dPeriod)
	return k, d
}

func stochRSI(close []float64, p Params) Result {
	r := rsi(close, orInt(p.RSIPeriod, 14))
	// Warm-up NaN is clamped to neutral so the inner stochastic can run.
	filled := make([]float64, len(r))
	for i, v := range r {
		if math.IsNaN(v) {
			filled[i] = 50
		} else {
			filled[i] = v
		}
	}
	k, d := stoch(filled, filled, filled, orInt(p.StochPeriod, 14), orInt(p.DSmooth, 3), orInt(p.KSmooth, 3))
	return Result{"k": k, "d": d}
}

// smaValid is sma over a series that may carry a leading NaN warm-up.
func smaValid(data []float64, period int) []float64 {
	out := nanSlice(len(data))
	start := -1
	for i, v := range data {
		if !math.IsNaN(v) {
			start = i
			break
		}
	}
	if start < 0 || len(data)-start < period {
		return out
	}
	inner := sma(data[start:], period)
	copy(out[start:], inner)
	return out
}

func cci(high, low, close []float64, period int) []float64 {
	n := len(close)
	tp := make([]float64, n)
	for i := range tp {
		tp[i] = (high[i] + low[i] + close[i]) / 3
	}
	mid := sma(tp, period)
	out := nanSlice(n)
	for i := period - 1; i < n; i++ {
		md := 0.0
		for j := i - period + 1; j <= i; j++ {
			md += math.Abs(tp[j] - mid[i])
		}
		md /= float64(period)
		if md > 0 {
			out[i] = (tp[i] - mid[i]) / (0.015 * md)
		} else {
			out[i] = 0
		}
	}
	return out
}

func williamsR(high, low, close []float64, period int) []float64 {
	n := len(close)
	out := nanSlice(n)
	for i := period - 1; i < n; i++ {
		hh, ll := windowExtremes(high, low, i-period+1, i)
		if hh != ll {
			out[i] = (hh - close[i]) / (hh - ll) * -100
		} else {
			out[i] = -50
		}
	}
	return out
}

// mfi is a volume-weighted RSI over typical price money flow.
func mfi(high, low, close, volume []float64, period int) []float64 {
	n := len(close)
	out := nanSlice(n)
	if n < period+1 {
		return out
	}
	tp := make([]float64, n)
	for i := range tp {
		tp[i] = (high[i] + low[i] + close[i]) / 3
	}
	for i := period; i < n; i++ {
		var pos, neg float64
		for j := i - period + 1; j <= i; j++ {
			flow := tp[j] * volume[j]
			if tp[j] > tp[j-1] {
				pos += flow
			} else if tp[j] < tp[j-1] {
				neg += flow
			}
		}
		if neg == 0 {
			out[i] = 100
		} else {
			out[i] = 100 - 100/(1+pos/neg)
		}
	}
	return out
}

// windowExtremes returns the highest high and lowest low over [from, to].
func windowExtremes(high, low []float64, from, to int) (hh, ll float64) {
	hh, ll = high[from], low[from]
	for i := from + 1; i <= to; i++ {
		if high[i] > hh {
			hh = high[i]
		}
		if low[i] < ll {
			ll = low[i]
		}
	}
	return hh, ll
}
