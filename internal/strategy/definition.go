package strategy

import (
	"strategy-backtester/internal/indicators"
)

// Direction modes.
const (
	DirectionBuyOnly  = "buy_only"
	DirectionSellOnly = "sell_only"
	DirectionBoth     = "both"
)

// Entry logic.
const (
	LogicAND = "AND"
	LogicOR  = "OR"
)

// Comparators.
const (
	IsAbove      = "is_above"
	IsBelow      = "is_below"
	CrossesAbove = "crosses_above"
	CrossesBelow = "crosses_below"
	IsRising     = "is_rising"
	IsFalling    = "is_falling"
	IsOverbought = "is_overbought"
	IsOversold   = "is_oversold"
	Equals       = "equals"
)

// Compare targets.
const (
	CompareFixedValue = "fixed_value"
	CompareIndicator  = "indicator"
	ComparePriceClose = "price_close"
	ComparePriceHigh  = "price_high"
	ComparePriceLow   = "price_low"
)

// Exit spec types.
const (
	ExitATRSL     = "atr_sl"
	ExitFixedSL   = "fixed_sl"
	ExitPercentSL = "percent_sl"
	ExitSwingSL   = "swing_sl"
	ExitATRTP     = "atr_tp"
	ExitFixedTP   = "fixed_tp"
	ExitPercentTP = "percent_tp"

	TrailingFixed = "trailing_fixed"
	TrailingATR   = "trailing_atr"
)

// Filter types.
const (
	FilterTime       = "time_filter"
	FilterDay        = "day_filter"
	FilterVolatility = "volatility_filter"
	FilterTrend      = "trend_filter"
	FilterSpread     = "spread_filter" // accepted, handled via the spread input
)

// Direction methods for "both" strategies.
const (
	DirMethodMATrend     = "ma_trend"
	DirMethodEntrySignal = "entry_signal"
)

// Lot sizing modes.
const (
	LotRiskPercent    = "risk_percent"
	LotBalancePercent = "balance_percent"
	LotFixed          = "fixed"
)

// Definition is the declarative strategy input to a run. Immutable once a
// simulation starts.
type Definition struct {
	Name            string          `json:"name" yaml:"name"`
	Symbol          string          `json:"symbol" yaml:"symbol"`
	Timeframe       string          `json:"timeframe" yaml:"timeframe"`
	Direction       string          `json:"direction" yaml:"direction"`
	DirectionParams DirectionParams `json:"direction_params" yaml:"direction_params"`
	EntryConditions []Condition     `json:"entry_conditions" yaml:"entry_conditions"`
	EntryLogic      string          `json:"entry_logic" yaml:"entry_logic"`
	ExitTakeProfit  []ExitSpec      `json:"exit_take_profit" yaml:"exit_take_profit"`
	ExitStopLoss    []ExitSpec      `json:"exit_stop_loss" yaml:"exit_stop_loss"`
	ExitTrailing    *TrailingSpec   `json:"exit_trailing,omitempty" yaml:"exit_trailing,omitempty"`
	ExitBreakEven   *BreakEvenSpec  `json:"exit_break_even,omitempty" yaml:"exit_break_even,omitempty"`
	ExitTime        *TimeExitSpec   `json:"exit_time,omitempty" yaml:"exit_time,omitempty"`
	Filters         []Filter        `json:"filters" yaml:"filters"`
	Risk            RiskConfig      `json:"risk" yaml:"risk"`
}

// Condition compares one indicator output against a fixed value, another
// indicator, or an OHLC field. The json key for the comparator is
// "condition" to match the strategy file format.
type Condition struct {
	Indicator              indicators.ID     `json:"indicator" yaml:"indicator"`
	IndicatorParams        indicators.Params `json:"indicator_params" yaml:"indicator_params"`
	Output                 string            `json:"output,omitempty" yaml:"output,omitempty"`
	Comparator             string            `json:"condition" yaml:"condition"`
	CompareTo              string            `json:"compare_to" yaml:"compare_to"`
	CompareValue           float64           `json:"compare_value,omitempty" yaml:"compare_value,omitempty"`
	CompareIndicator       indicators.ID     `json:"compare_indicator,omitempty" yaml:"compare_indicator,omitempty"`
	CompareIndicatorParams indicators.Params `json:"compare_indicator_params" yaml:"compare_indicator_params"`
	CompareOutput          string            `json:"compare_output,omitempty" yaml:"compare_output,omitempty"`
}

// ExitSpec selects how an SL or TP distance is derived.
type ExitSpec struct {
	Type   string     `json:"type" yaml:"type"`
	Params ExitParams `json:"params" yaml:"params"`
}

type ExitParams struct {
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	Pips       float64 `json:"pips,omitempty" yaml:"pips,omitempty"`
	Percent    float64 `json:"percent,omitempty" yaml:"percent,omitempty"`
	Lookback   int     `json:"lookback,omitempty" yaml:"lookback,omitempty"`
	BufferPips float64 `json:"buffer_pips,omitempty" yaml:"buffer_pips,omitempty"`
}

// TrailingSpec configures the trailing stop: a fixed pip distance or an
// ATR multiple.
type TrailingSpec struct {
	Type  string  `json:"type" yaml:"type"`
	Value float64 `json:"value" yaml:"value"`
}

// BreakEvenSpec moves the stop to entry +/- lock once price has travelled
// trigger pips in the trade's favor, and arms the trailing stop.
type BreakEvenSpec struct {
	Trigger float64 `json:"trigger" yaml:"trigger"` // pips
	Lock    float64 `json:"lock" yaml:"lock"`       // pips
}

// TimeExitSpec closes a trade after it has been held for Bars bars.
type TimeExitSpec struct {
	Bars int `json:"bars" yaml:"bars"`
}

// Filter is an independent pre-entry gate.
type Filter struct {
	Type   string       `json:"type" yaml:"type"`
	Params FilterParams `json:"params" yaml:"params"`
}

type FilterParams struct {
	StartHour int     `json:"start_hour,omitempty" yaml:"start_hour,omitempty"`
	EndHour   int     `json:"end_hour,omitempty" yaml:"end_hour,omitempty"`
	Days      []int   `json:"days,omitempty" yaml:"days,omitempty"` // ISO weekday, Mon=1..Sun=7
	MinATR    float64 `json:"min_atr,omitempty" yaml:"min_atr,omitempty"`
	MaxATR    float64 `json:"max_atr,omitempty" yaml:"max_atr,omitempty"`
	MAPeriod  int     `json:"ma_period,omitempty" yaml:"ma_period,omitempty"`
	MaxSpread float64 `json:"max_spread,omitempty" yaml:"max_spread,omitempty"` // pips
}

// RiskConfig holds the per-strategy risk settings.
type RiskConfig struct {
	RiskPerTrade   float64 `json:"risk_per_trade" yaml:"risk_per_trade"` // percent of balance
	MaxDailyTrades int     `json:"max_daily_trades" yaml:"max_daily_trades"`
	MaxOpenTrades  int     `json:"max_open_trades" yaml:"max_open_trades"`
	MaxDrawdown    float64 `json:"max_drawdown" yaml:"max_drawdown"` // percent, circuit breaker floor
	MinRR          float64 `json:"min_rr" yaml:"min_rr"`
	LotType        string  `json:"lot_type" yaml:"lot_type"`
	FixedLot       float64 `json:"fixed_lot" yaml:"fixed_lot"`
}

type DirectionParams struct {
	Method   string `json:"method" yaml:"method"`
	MAPeriod int    `json:"ma_period" yaml:"ma_period"`
}

// ApplyDefaults fills unset fields with the engine defaults.
func (d *Definition) ApplyDefaults() {
	if d.Direction == "" {
		d.Direction = DirectionBoth
	}
	if d.EntryLogic == "" {
		d.EntryLogic = LogicAND
	}
	if d.DirectionParams.Method == "" {
		d.DirectionParams.Method = DirMethodMATrend
	}
	if d.DirectionParams.MAPeriod <= 0 {
		d.DirectionParams.MAPeriod = 200
	}
	if d.Risk.RiskPerTrade <= 0 {
		d.Risk.RiskPerTrade = 2.0
	}
	if d.Risk.MaxDailyTrades <= 0 {
		d.Risk.MaxDailyTrades = 5
	}
	if d.Risk.MaxOpenTrades <= 0 {
		d.Risk.MaxOpenTrades = 3
	}
	if d.Risk.MaxDrawdown <= 0 {
		d.Risk.MaxDrawdown = 20
	}
	if d.Risk.MinRR <= 0 {
		d.Risk.MinRR = 1.5
	}
	if d.Risk.LotType == "" {
		d.Risk.LotType = LotRiskPercent
	}
	if d.Risk.FixedLot <= 0 {
		d.Risk.FixedLot = 0.01
	}
	if d.ExitTrailing != nil && d.ExitTrailing.Value <= 0 {
		if d.ExitTrailing.Type == TrailingATR {
			d.ExitTrailing.Value = 2
		} else {
			d.ExitTrailing.Value = 20
		}
	}
	if d.ExitBreakEven != nil {
		if d.ExitBreakEven.Trigger <= 0 {
			d.ExitBreakEven.Trigger = 20
		}
		if d.ExitBreakEven.Lock <= 0 {
			d.ExitBreakEven.Lock = 5
		}
	}
}
