package strategy

import (
	"fmt"

	"strategy-backtester/internal/indicators"
)

// ValidationError reports a malformed strategy definition. Validation runs
// before any simulation so a bad definition can never be misread as "no
// signal".
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("strategy: invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

var validComparators = map[string]bool{
	IsAbove: true, IsBelow: true, CrossesAbove: true, CrossesBelow: true,
	IsRising: true, IsFalling: true, IsOverbought: true, IsOversold: true,
	Equals: true,
}

var validCompareTargets = map[string]bool{
	CompareFixedValue: true, CompareIndicator: true,
	ComparePriceClose: true, ComparePriceHigh: true, ComparePriceLow: true,
}

var validSLTypes = map[string]bool{
	ExitATRSL: true, ExitFixedSL: true, ExitPercentSL: true, ExitSwingSL: true,
}

var validTPTypes = map[string]bool{
	ExitATRTP: true, ExitFixedTP: true, ExitPercentTP: true,
}

var validFilterTypes = map[string]bool{
	FilterTime: true, FilterDay: true, FilterVolatility: true,
	FilterTrend: true, FilterSpread: true,
}

// Validate fails fast on anything the simulator would otherwise have to
// guess about. Defaults must already be applied.
func (d *Definition) Validate() error {
	if d.Symbol == "" {
		return invalid("symbol", "must not be empty")
	}
	switch d.Direction {
	case DirectionBuyOnly, DirectionSellOnly, DirectionBoth:
	default:
		return invalid("direction", "unknown mode %q", d.Direction)
	}
	if d.EntryLogic != LogicAND && d.EntryLogic != LogicOR {
		return invalid("entry_logic", "must be AND or OR, got %q", d.EntryLogic)
	}
	if len(d.EntryConditions) == 0 {
		return invalid("entry_conditions", "at least one condition is required")
	}

	for i, cond := range d.EntryConditions {
		field := fmt.Sprintf("entry_conditions[%d]", i)
		if !indicators.Known(cond.Indicator) {
			return invalid(field, "unknown indicator id %q", cond.Indicator)
		}
		if indicators.HistoricalOnly(cond.Indicator) {
			return invalid(field, "indicator %q is historical-analysis only and cannot drive entries", cond.Indicator)
		}
		if !validComparators[cond.Comparator] {
			return invalid(field, "unknown comparator %q", cond.Comparator)
		}
		target := cond.CompareTo
		if target == "" {
			target = CompareFixedValue
		}
		if !validCompareTargets[target] {
			return invalid(field, "unknown compare target %q", cond.CompareTo)
		}
		if target == CompareIndicator {
			if !indicators.Known(cond.CompareIndicator) {
				return invalid(field, "unknown compare indicator id %q", cond.CompareIndicator)
			}
			if indicators.HistoricalOnly(cond.CompareIndicator) {
				return invalid(field, "compare indicator %q is historical-analysis only", cond.CompareIndicator)
			}
		}
	}

	for i, spec := range d.ExitStopLoss {
		if !validSLTypes[spec.Type] {
			return invalid(fmt.Sprintf("exit_stop_loss[%d]", i), "unknown stop-loss type %q", spec.Type)
		}
	}
	for i, spec := range d.ExitTakeProfit {
		if !validTPTypes[spec.Type] {
			return invalid(fmt.Sprintf("exit_take_profit[%d]", i), "unknown take-profit type %q", spec.Type)
		}
	}
	if d.ExitTrailing != nil {
		if d.ExitTrailing.Type != TrailingFixed && d.ExitTrailing.Type != TrailingATR {
			return invalid("exit_trailing", "unknown trailing type %q", d.ExitTrailing.Type)
		}
		if d.ExitTrailing.Value <= 0 {
			return invalid("exit_trailing", "value must be positive, got %.2f", d.ExitTrailing.Value)
		}
	}
	if d.ExitBreakEven != nil && d.ExitBreakEven.Trigger <= 0 {
		return invalid("exit_break_even", "trigger must be positive, got %.2f", d.ExitBreakEven.Trigger)
	}
	if d.ExitTime != nil && d.ExitTime.Bars <= 0 {
		return invalid("exit_time", "bars must be positive, got %d", d.ExitTime.Bars)
	}

	for i, f := range d.Filters {
		if !validFilterTypes[f.Type] {
			return invalid(fmt.Sprintf("filters[%d]", i), "unknown filter type %q", f.Type)
		}
	}

	if d.Risk.RiskPerTrade <= 0 || d.Risk.RiskPerTrade > 100 {
		return invalid("risk.risk_per_trade", "must be in (0, 100], got %.2f", d.Risk.RiskPerTrade)
	}
	if d.Risk.MaxDrawdown <= 0 || d.Risk.MaxDrawdown > 100 {
		return invalid("risk.max_drawdown", "must be in (0, 100], got %.2f", d.Risk.MaxDrawdown)
	}
	if d.Risk.MinRR < 0 {
		return invalid("risk.min_rr", "must not be negative, got %.2f", d.Risk.MinRR)
	}
	switch d.Risk.LotType {
	case LotRiskPercent, LotBalancePercent, LotFixed:
	default:
		return invalid("risk.lot_type", "unknown lot type %q", d.Risk.LotType)
	}

	return nil
}
