package indicators

import "math"

// candlePattern marks bars matching a candlestick pattern. Outputs are 0/1
// flags so they can flow through the same comparator machinery as any other
// indicator.
func candlePattern(open, high, low, close []float64, pattern string) (bullish, bearish []float64) {
	n := len(close)
	bullish = make([]float64, n)
	bearish = make([]float64, n)

	for i := 1; i < n; i++ {
		body := close[i] - open[i]
		prevBody := close[i-1] - open[i-1]
		upperWick := high[i] - math.Max(open[i], close[i])
		lowerWick := math.Min(open[i], close[i]) - low[i]
		bodySize := math.Abs(body)

		switch pattern {
		case "", "engulfing":
			if body > 0 && prevBody < 0 && bodySize > math.Abs(prevBody) {
				bullish[i] = 1
			}
			if body < 0 && prevBody > 0 && bodySize > math.Abs(prevBody) {
				bearish[i] = 1
			}
		case "hammer":
			if lowerWick > bodySize*2 && upperWick < bodySize*0.5 {
				bullish[i] = 1
			}
		case "shooting_star":
			if upperWick > bodySize*2 && lowerWick < bodySize*0.5 {
				bearish[i] = 1
			}
		case "doji":
			if bodySize < (high[i]-low[i])*0.1 {
				bullish[i] = 1
				bearish[i] = 1
			}
		case "pin_bar":
			rng := high[i] - low[i]
			if rng > 0 {
				if lowerWick/rng > 0.6 && bodySize/rng < 0.2 {
					bullish[i] = 1
				}
				if upperWick/rng > 0.6 && bodySize/rng < 0.2 {
					bearish[i] = 1
				}
			}
		default:
			if body > 0 {
				bullish[i] = 1
			}
			if body < 0 {
				bearish[i] = 1
			}
		}
	}
	return bullish, bearish
}
