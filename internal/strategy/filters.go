package strategy

import (
	"math"

	"strategy-backtester/internal/indicators"
	"strategy-backtester/internal/market"
)

// FilterGate applies the strategy's pre-entry filters. Each filter is an
// independent veto; all must pass before an entry is considered. The ATR
// and trend MA columns are precomputed through the run's indicator cache.
type FilterGate struct {
	filters []Filter
	series  *market.Series
	atr     []float64
	trendMA map[int][]float64
}

// NewFilterGate precomputes everything the filters need for the run.
func NewFilterGate(def *Definition, cache *indicators.Cache, s *market.Series) (*FilterGate, error) {
	g := &FilterGate{
		filters: def.Filters,
		series:  s,
		trendMA: make(map[int][]float64),
	}

	for _, f := range def.Filters {
		switch f.Type {
		case FilterVolatility:
			if g.atr == nil {
				res, err := cache.Get(indicators.ATR, indicators.Params{Period: 14})
				if err != nil {
					return nil, err
				}
				g.atr, _ = res.Output("value")
			}
		case FilterTrend:
			period := f.Params.MAPeriod
			if period <= 0 {
				period = 200
			}
			if _, ok := g.trendMA[period]; !ok {
				res, err := cache.Get(indicators.SMA, indicators.Params{Period: period})
				if err != nil {
					return nil, err
				}
				g.trendMA[period], _ = res.Output("value")
			}
		}
	}

	return g, nil
}

// Pass reports whether every direction-neutral filter allows an entry at
// bar i. Trend filters are directional and checked via AllowDirection.
// Bars without a usable timestamp skip the time and day filters rather
// than blocking everything.
func (g *FilterGate) Pass(i int) bool {
	c := g.series.Candles[i]

	for _, f := range g.filters {
		switch f.Type {
		case FilterTime:
			if c.Time.IsZero() {
				continue
			}
			// Both bounds are inclusive: 8 -> 17 allows the 17:00 bar.
			hour := c.Time.UTC().Hour()
			start, end := f.Params.StartHour, f.Params.EndHour
			if start <= end {
				if hour < start || hour > end {
					return false
				}
			} else {
				// window wraps midnight, e.g. 22 -> 6
				if hour < start && hour > end {
					return false
				}
			}
		case FilterDay:
			if c.Time.IsZero() || len(f.Params.Days) == 0 {
				continue
			}
			iso := int(c.Time.UTC().Weekday())
			if iso == 0 {
				iso = 7
			}
			allowed := false
			for _, d := range f.Params.Days {
				if d == iso {
					allowed = true
					break
				}
			}
			if !allowed {
				return false
			}
		case FilterVolatility:
			if g.atr == nil || i >= len(g.atr) {
				return false
			}
			a := g.atr[i]
			if math.IsNaN(a) {
				return false
			}
			if f.Params.MinATR > 0 && a < f.Params.MinATR {
				return false
			}
			if f.Params.MaxATR > 0 && a > f.Params.MaxATR {
				return false
			}
		}
	}
	return true
}

// AllowDirection applies trend filters: a BUY requires close above the
// trend MA, a SELL requires close below it. With no trend filter every
// direction passes. An unwarmed MA fails closed.
func (g *FilterGate) AllowDirection(i int, buy bool) bool {
	for _, f := range g.filters {
		if f.Type != FilterTrend {
			continue
		}
		period := f.Params.MAPeriod
		if period <= 0 {
			period = 200
		}
		ma := g.trendMA[period]
		if ma == nil || i >= len(ma) || math.IsNaN(ma[i]) {
			return false
		}
		close := g.series.Candles[i].Close
		if buy && close <= ma[i] {
			return false
		}
		if !buy && close >= ma[i] {
			return false
		}
	}
	return true
}

// MaxSpread returns the tightest spread_filter cap in pips, or 0 when no
// spread filter is configured.
func (g *FilterGate) MaxSpread() float64 {
	max := 0.0
	for _, f := range g.filters {
		if f.Type != FilterSpread {
			continue
		}
		if f.Params.MaxSpread > 0 && (max == 0 || f.Params.MaxSpread < max) {
			max = f.Params.MaxSpread
		}
	}
	return max
}
