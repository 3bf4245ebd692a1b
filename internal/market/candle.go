package market

import (
	"errors"
	"fmt"
	"time"
)

// Candle is a single OHLCV bar.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is an immutable run input: an ordered sequence of candles for one
// symbol and timeframe. External holds optional pre-scored input series
// (e.g. an ML/NLP score) aligned 1:1 with the candles.
type Series struct {
	Symbol    string
	Timeframe string
	Candles   []Candle
	External  map[string][]float64
}

// ErrEmptySeries is returned when a series has no candles at all.
var ErrEmptySeries = errors.New("market: series has no candles")

// BarError reports an invariant violation at a specific bar index.
type BarError struct {
	Index  int
	Reason string
}

func (e *BarError) Error() string {
	return fmt.Sprintf("market: bar %d: %s", e.Index, e.Reason)
}

// Validate checks the series invariants: non-decreasing timestamps,
// high >= max(open, close) and low <= min(open, close) on every bar,
// and externals aligned to the candle count.
func (s *Series) Validate() error {
	if len(s.Candles) == 0 {
		return ErrEmptySeries
	}

	for i, c := range s.Candles {
		if c.High < c.Open || c.High < c.Close {
			return &BarError{Index: i, Reason: fmt.Sprintf("high %.5f below open/close", c.High)}
		}
		if c.Low > c.Open || c.Low > c.Close {
			return &BarError{Index: i, Reason: fmt.Sprintf("low %.5f above open/close", c.Low)}
		}
		if i > 0 && !c.Time.IsZero() && !s.Candles[i-1].Time.IsZero() {
			if c.Time.Before(s.Candles[i-1].Time) {
				return &BarError{Index: i, Reason: "timestamp decreases"}
			}
		}
	}

	for name, vals := range s.External {
		if len(vals) != len(s.Candles) {
			return fmt.Errorf("market: external series %q has %d values, want %d", name, len(vals), len(s.Candles))
		}
	}

	return nil
}

// Len returns the number of candles.
func (s *Series) Len() int { return len(s.Candles) }

func (s *Series) Opens() []float64   { return s.column(func(c Candle) float64 { return c.Open }) }
func (s *Series) Highs() []float64   { return s.column(func(c Candle) float64 { return c.High }) }
func (s *Series) Lows() []float64    { return s.column(func(c Candle) float64 { return c.Low }) }
func (s *Series) Closes() []float64  { return s.column(func(c Candle) float64 { return c.Close }) }
func (s *Series) Volumes() []float64 { return s.column(func(c Candle) float64 { return c.Volume }) }

func (s *Series) column(f func(Candle) float64) []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = f(c)
	}
	return out
}
