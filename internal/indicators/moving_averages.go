package indicators

import "math"

func sma(data []float64, period int) []float64 {
	out := nanSlice(len(data))
	if period <= 0 || len(data) < period {
		return out
	}
	sum := 0.0
	for i, v := range data {
		sum += v
		if i >= period {
			sum -= data[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// ema seeds with the SMA of the first period values and then applies the
// standard recursive smoothing. Scalar by necessity: each value depends on
// the previous one.
func ema(data []float64, period int) []float64 {
	out := nanSlice(len(data))
	if period <= 0 || len(data) < period {
		return out
	}
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += data[i]
	}
	out[period-1] = seed / float64(period)
	m := 2.0 / float64(period+1)
	for i := period; i < len(data); i++ {
		out[i] = data[i]*m + out[i-1]*(1-m)
	}
	return out
}

// emaValid applies ema over a series with a leading NaN warm-up, keeping
// the output aligned. Used for EMA-of-EMA chains (DEMA, MACD signal, ADX)
// where the inner series is itself warming up.
func emaValid(data []float64, period int) []float64 {
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
	inner := ema(data[start:], period)
	copy(out[start:], inner)
	return out
}

func wma(data []float64, period int) []float64 {
	out := nanSlice(len(data))
	if period <= 0 || len(data) < period {
		return out
	}
	wsum := float64(period*(period+1)) / 2
	for i := period - 1; i < len(data); i++ {
		acc := 0.0
		for j := 0; j < period; j++ {
			acc += data[i-period+1+j] * float64(j+1)
		}
		out[i] = acc / wsum
	}
	return out
}

// macd returns the line, signal and histogram. The signal EMA runs over
// the line's valid region only.
func macd(data []float64, fast, slow, signal int) (line, sig, hist []float64) {
	n := len(data)
	ef := ema(data, fast)
	es := ema(data, slow)
	line, hist = nanSlice(n), nanSlice(n)
	for i := 0; i < n; i++ {
		if !math.IsNaN(ef[i]) && !math.IsNaN(es[i]) {
			line[i] = ef[i] - es[i]
		}
	}
	sig = emaValid(line, signal)
	for i := 0; i < n; i++ {
		if !math.IsNaN(line[i]) && !math.IsNaN(sig[i]) {
			hist[i] = line[i] - sig[i]
		}
	}
	return line, sig, hist
}

func dema(data []float64, period int) []float64 {
	e1 := ema(data, period)
	e2 := emaValid(e1, period)
	out := nanSlice(len(data))
	for i := range data {
		if !math.IsNaN(e1[i]) && !math.IsNaN(e2[i]) {
			out[i] = 2*e1[i] - e2[i]
		}
	}
	return out
}

func tema(data []float64, period int) []float64 {
	e1 := ema(data, period)
	e2 := emaValid(e1, period)
	e3 := emaValid(e2, period)
	out := nanSlice(len(data))
	for i := range data {
		if !math.IsNaN(e1[i]) && !math.IsNaN(e2[i]) && !math.IsNaN(e3[i]) {
			out[i] = 3*e1[i] - 3*e2[i] + e3[i]
		}
	}
	return out
}
