package indicators

func obv(close, volume []float64) []float64 {
	n := len(close)
	out := make([]float64, n)
	for i := 1; i < n; i++ {
		switch {
		case close[i] > close[i-1]:
			out[i] = out[i-1] + volume[i]
		case close[i] < close[i-1]:
			out[i] = out[i-1] - volume[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// vwap is the cumulative volume-weighted average of typical price. Bars
// with no volume inherit the previous value; an all-zero volume series
// degrades to the typical price itself.
func vwap(high, low, close, volume []float64) []float64 {
	n := len(close)
	out := make([]float64, n)
	var cumPV, cumV float64
	for i := 0; i < n; i++ {
		tp := (high[i] + low[i] + close[i]) / 3
		cumPV += tp * volume[i]
		cumV += volume[i]
		if cumV > 0 {
			out[i] = cumPV / cumV
		} else {
			out[i] = tp
		}
	}
	return out
}
