package strategy

import (
	"fmt"
	"math"

	"strategy-backtester/internal/indicators"
	"strategy-backtester/internal/market"
)

// Evaluator resolves every entry condition to its per-bar value arrays once,
// then answers "does this strategy signal at bar i" with plain index reads.
// It borrows the run's indicator cache, so repeated (indicator, params)
// pairs cost one computation.
type Evaluator struct {
	conds []condSeries
	logic string
}

type condSeries struct {
	comparator string
	vals       []float64
	cmpVals    []float64 // nil when comparing against a fixed value
	fixed      float64
}

// NewEvaluator precomputes the condition series for one run.
func NewEvaluator(def *Definition, cache *indicators.Cache, s *market.Series) (*Evaluator, error) {
	ev := &Evaluator{logic: def.EntryLogic}

	for i, cond := range def.EntryConditions {
		res, err := cache.Get(cond.Indicator, cond.IndicatorParams)
		if err != nil {
			return nil, fmt.Errorf("entry condition %d: %w", i, err)
		}
		vals, ok := res.Output(cond.Output)
		if !ok {
			return nil, fmt.Errorf("entry condition %d: indicator %s has no output %q", i, cond.Indicator, cond.Output)
		}

		cs := condSeries{comparator: cond.Comparator, vals: vals}

		switch cond.CompareTo {
		case CompareIndicator:
			cmpRes, err := cache.Get(cond.CompareIndicator, cond.CompareIndicatorParams)
			if err != nil {
				return nil, fmt.Errorf("entry condition %d: %w", i, err)
			}
			cmpVals, ok := cmpRes.Output(cond.CompareOutput)
			if !ok {
				return nil, fmt.Errorf("entry condition %d: compare indicator %s has no output %q", i, cond.CompareIndicator, cond.CompareOutput)
			}
			cs.cmpVals = cmpVals
		case ComparePriceClose:
			cs.cmpVals = s.Closes()
		case ComparePriceHigh:
			cs.cmpVals = s.Highs()
		case ComparePriceLow:
			cs.cmpVals = s.Lows()
		default: // fixed_value
			cs.fixed = cond.CompareValue
		}

		ev.conds = append(ev.conds, cs)
	}

	return ev, nil
}

// SignalAt evaluates the combined entry conditions at bar i. An empty
// condition list never signals.
func (e *Evaluator) SignalAt(i int) bool {
	if len(e.conds) == 0 {
		return false
	}

	for _, cs := range e.conds {
		met := cs.metAt(i)
		if e.logic == LogicOR {
			if met {
				return true
			}
		} else if !met {
			return false
		}
	}
	return e.logic != LogicOR
}

func (cs *condSeries) metAt(i int) bool {
	if i >= len(cs.vals) {
		return false
	}
	a := cs.vals[i]
	prevA := math.NaN()
	if i > 0 {
		prevA = cs.vals[i-1]
	}

	b, prevB := cs.fixed, cs.fixed
	if cs.cmpVals != nil {
		if i >= len(cs.cmpVals) {
			return false
		}
		b = cs.cmpVals[i]
		prevB = b
		if i > 0 {
			prevB = cs.cmpVals[i-1]
		}
	}

	return checkComparator(cs.comparator, a, b, prevA, prevB)
}

// checkComparator applies one comparator. NaN on either current side means
// the condition is simply not met; the crosses_* and rising/falling
// variants additionally fail closed when no valid previous value exists.
func checkComparator(comp string, a, b, prevA, prevB float64) bool {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return false
	}

	switch comp {
	case IsAbove:
		return !math.IsNaN(b) && a > b
	case IsBelow:
		return !math.IsNaN(b) && a < b
	case CrossesAbove:
		if math.IsNaN(prevA) || math.IsNaN(b) || math.IsNaN(prevB) {
			return false
		}
		return prevA <= prevB && a > b
	case CrossesBelow:
		if math.IsNaN(prevA) || math.IsNaN(b) || math.IsNaN(prevB) {
			return false
		}
		return prevA >= prevB && a < b
	case IsRising:
		return !math.IsNaN(prevA) && a > prevA
	case IsFalling:
		return !math.IsNaN(prevA) && a < prevA
	case IsOverbought:
		threshold := b
		if math.IsNaN(threshold) || threshold == 0 {
			threshold = 70
		}
		return a > threshold
	case IsOversold:
		threshold := b
		if math.IsNaN(threshold) || threshold == 0 {
			threshold = 30
		}
		return a < threshold
	case Equals:
		return !math.IsNaN(b) && math.Abs(a-b) < 1e-3
	}
	return false
}
