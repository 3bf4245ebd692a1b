package risk

import (
	"math"

	"strategy-backtester/internal/strategy"
)

// TrailingState tracks the stop adjustments for one open trade: the
// break-even move and the trailing stop. The stop only ever moves in the
// trade's favor.
//
// When a break-even rule is configured the trailing stop starts dormant
// and is armed by the break-even move. Without a break-even rule the
// trailing stop is active from entry.
type TrailingState struct {
	trailing  *strategy.TrailingSpec
	breakEven *strategy.BreakEvenSpec
	pip       float64

	active  bool
	beMoved bool
}

// NewTrailingState builds the stop-adjustment state for a freshly opened
// trade. Either spec may be nil.
func NewTrailingState(tr *strategy.TrailingSpec, be *strategy.BreakEvenSpec, pipSize float64) *TrailingState {
	return &TrailingState{
		trailing:  tr,
		breakEven: be,
		pip:       pipSize,
		active:    tr != nil && be == nil,
	}
}

// BreakEvenMoved reports whether the break-even move has fired.
func (t *TrailingState) BreakEvenMoved() bool { return t.beMoved }

// Active reports whether the trailing stop is currently armed.
func (t *TrailingState) Active() bool { return t.active }

// Update advances the state for one bar close and returns the new stop.
// moved is true when the stop changed. atr is the bar's ATR value, used
// only by ATR-based trailing.
func (t *TrailingState) Update(buy bool, entry, stop, close, atr float64) (newStop float64, moved bool) {
	newStop = stop

	if t.breakEven != nil && !t.beMoved {
		trigger := t.breakEven.Trigger * t.pip
		lock := t.breakEven.Lock * t.pip
		if buy && close >= entry+trigger {
			newStop = entry + lock
			t.beMoved = true
			t.active = t.trailing != nil
			moved = newStop != stop
		} else if !buy && close <= entry-trigger {
			newStop = entry - lock
			t.beMoved = true
			t.active = t.trailing != nil
			moved = newStop != stop
		}
	}

	if t.active && t.trailing != nil {
		dist := t.trailingDistance(atr)
		if dist > 0 {
			if buy {
				if cand := close - dist; cand > newStop {
					newStop = cand
					moved = true
				}
			} else {
				if cand := close + dist; cand < newStop {
					newStop = cand
					moved = true
				}
			}
		}
	}

	return newStop, moved
}

func (t *TrailingState) trailingDistance(atr float64) float64 {
	switch t.trailing.Type {
	case strategy.TrailingATR:
		if math.IsNaN(atr) || atr <= 0 {
			return 0
		}
		return t.trailing.Value * atr
	default: // trailing_fixed, in pips
		return t.trailing.Value * t.pip
	}
}
