package indicators

// fibRetrace projects one Fibonacci retracement level from the rolling
// high/low range of the trailing lookback window.
func fibRetrace(high, low []float64, lookback int, level float64) []float64 {
	n := len(high)
	out := nanSlice(n)
	for i := lookback; i < n; i++ {
		hh, ll := windowExtremes(high, low, i-lookback, i)
		out[i] = hh - (hh-ll)*level
	}
	return out
}

// pivots computes classic floor-trader pivot levels from the previous bar.
func pivots(high, low, close []float64) Result {
	n := len(close)
	out := Result{}
	for _, name := range []string{"pp", "r1", "r2", "r3", "s1", "s2", "s3"} {
		out[name] = nanSlice(n)
	}
	for i := 1; i < n; i++ {
		h, l, c := high[i-1], low[i-1], close[i-1]
		pp := (h + l + c) / 3
		out["pp"][i] = pp
		out["r1"][i] = 2*pp - l
		out["s1"][i] = 2*pp - h
		out["r2"][i] = pp + (h - l)
		out["s2"][i] = pp - (h - l)
		out["r3"][i] = h + 2*(pp-l)
		out["s3"][i] = l - 2*(h-pp)
	}
	return out
}

// swingPoints is a centered pivot detector: a bar is a swing high/low when
// it is the extreme of its left+right window. It reads bars to the RIGHT of
// the candidate, so it is historical-analysis only and is rejected as an
// entry-condition indicator during strategy validation.
func swingPoints(high, low []float64, left, right int) (swingHigh, swingLow []float64) {
	n := len(high)
	swingHigh, swingLow = nanSlice(n), nanSlice(n)

	for i := left; i < n-right; i++ {
		isHigh := high[i] > high[i-1]
		isLow := low[i] < low[i-1]
		for j := i - left; j <= i+right && (isHigh || isLow); j++ {
			if high[j] > high[i] {
				isHigh = false
			}
			if low[j] < low[i] {
				isLow = false
			}
		}
		if isHigh {
			swingHigh[i] = high[i]
		}
		if isLow {
			swingLow[i] = low[i]
		}
	}
	return swingHigh, swingLow
}
