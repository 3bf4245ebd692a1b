package strategy

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-backtester/internal/indicators"
	"strategy-backtester/internal/market"
)

func validDefinition() *Definition {
	d := &Definition{
		Name:   "test",
		Symbol: "EURUSD",
		EntryConditions: []Condition{
			{
				Indicator:  indicators.RSI,
				Comparator: IsOversold,
				CompareTo:  CompareFixedValue,
			},
		},
	}
	d.ApplyDefaults()
	return d
}

func TestApplyDefaults(t *testing.T) {
	d := &Definition{Symbol: "EURUSD"}
	d.ApplyDefaults()

	assert.Equal(t, DirectionBoth, d.Direction)
	assert.Equal(t, LogicAND, d.EntryLogic)
	assert.Equal(t, 200, d.DirectionParams.MAPeriod)
	assert.Equal(t, 2.0, d.Risk.RiskPerTrade)
	assert.Equal(t, 5, d.Risk.MaxDailyTrades)
	assert.Equal(t, 3, d.Risk.MaxOpenTrades)
	assert.Equal(t, 20.0, d.Risk.MaxDrawdown)
	assert.Equal(t, 1.5, d.Risk.MinRR)
	assert.Equal(t, LotRiskPercent, d.Risk.LotType)
}

func TestApplyDefaultsTrailingAndBreakEven(t *testing.T) {
	d := &Definition{
		Symbol:        "EURUSD",
		ExitTrailing:  &TrailingSpec{Type: TrailingFixed},
		ExitBreakEven: &BreakEvenSpec{},
	}
	d.ApplyDefaults()
	assert.Equal(t, 20.0, d.ExitTrailing.Value)
	assert.Equal(t, 20.0, d.ExitBreakEven.Trigger)
	assert.Equal(t, 5.0, d.ExitBreakEven.Lock)

	atrTrail := &Definition{Symbol: "EURUSD", ExitTrailing: &TrailingSpec{Type: TrailingATR}}
	atrTrail.ApplyDefaults()
	assert.Equal(t, 2.0, atrTrail.ExitTrailing.Value)

	// Explicit values survive.
	set := &Definition{Symbol: "EURUSD", ExitTrailing: &TrailingSpec{Type: TrailingFixed, Value: 35}}
	set.ApplyDefaults()
	assert.Equal(t, 35.0, set.ExitTrailing.Value)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Definition)
		field  string
	}{
		{"empty symbol", func(d *Definition) { d.Symbol = "" }, "symbol"},
		{"bad direction", func(d *Definition) { d.Direction = "sideways" }, "direction"},
		{"bad logic", func(d *Definition) { d.EntryLogic = "XOR" }, "entry_logic"},
		{"no conditions", func(d *Definition) { d.EntryConditions = nil }, "entry_conditions"},
		{"unknown indicator", func(d *Definition) {
			d.EntryConditions[0].Indicator = "MAGIC"
		}, "entry_conditions[0]"},
		{"historical indicator", func(d *Definition) {
			d.EntryConditions[0].Indicator = indicators.Swing
		}, "entry_conditions[0]"},
		{"unknown comparator", func(d *Definition) {
			d.EntryConditions[0].Comparator = "is_sideways"
		}, "entry_conditions[0]"},
		{"bad compare target", func(d *Definition) {
			d.EntryConditions[0].CompareTo = "price_median"
		}, "entry_conditions[0]"},
		{"bad sl type", func(d *Definition) {
			d.ExitStopLoss = []ExitSpec{{Type: "psychic_sl"}}
		}, "exit_stop_loss[0]"},
		{"bad tp type", func(d *Definition) {
			d.ExitTakeProfit = []ExitSpec{{Type: "psychic_tp"}}
		}, "exit_take_profit[0]"},
		{"bad trailing", func(d *Definition) {
			d.ExitTrailing = &TrailingSpec{Type: "trailing_vibes"}
		}, "exit_trailing"},
		{"trailing without value", func(d *Definition) {
			d.ExitTrailing = &TrailingSpec{Type: TrailingFixed}
		}, "exit_trailing"},
		{"break-even without trigger", func(d *Definition) {
			d.ExitBreakEven = &BreakEvenSpec{Lock: 5}
		}, "exit_break_even"},
		{"bad time exit", func(d *Definition) {
			d.ExitTime = &TimeExitSpec{Bars: 0}
		}, "exit_time"},
		{"bad filter", func(d *Definition) {
			d.Filters = []Filter{{Type: "moon_phase"}}
		}, "filters[0]"},
		{"risk too high", func(d *Definition) { d.Risk.RiskPerTrade = 150 }, "risk.risk_per_trade"},
		{"bad lot type", func(d *Definition) { d.Risk.LotType = "yolo" }, "risk.lot_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDefinition()
			tt.mutate(d)
			err := d.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	require.NoError(t, validDefinition().Validate())
}

func TestCheckComparator(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name             string
		comp             string
		a, b             float64
		prevA, prevB     float64
		want             bool
	}{
		{"above true", IsAbove, 2, 1, 0, 0, true},
		{"above false", IsAbove, 1, 2, 0, 0, false},
		{"above nan a", IsAbove, nan, 1, 0, 0, false},
		{"below true", IsBelow, 1, 2, 0, 0, true},
		{"cross above", CrossesAbove, 2, 1, 0.5, 1, true},
		{"cross above touch", CrossesAbove, 2, 1, 1, 1, true},
		{"cross above already", CrossesAbove, 2, 1, 1.5, 1, false},
		{"cross above no prev", CrossesAbove, 2, 1, nan, 1, false},
		{"cross below", CrossesBelow, 1, 2, 2.5, 2, true},
		{"cross below no prev b", CrossesBelow, 1, 2, 2.5, nan, false},
		{"rising", IsRising, 2, 0, 1, 0, true},
		{"rising no prev", IsRising, 2, 0, nan, 0, false},
		{"falling", IsFalling, 1, 0, 2, 0, true},
		{"overbought default", IsOverbought, 75, 0, 0, 0, true},
		{"overbought default miss", IsOverbought, 65, 0, 0, 0, false},
		{"overbought custom", IsOverbought, 65, 60, 0, 0, true},
		{"oversold default", IsOversold, 25, 0, 0, 0, true},
		{"oversold default miss", IsOversold, 35, 0, 0, 0, false},
		{"oversold custom", IsOversold, 35, 40, 0, 0, true},
		{"equals", Equals, 1.002, 1.0, 0, 0, false},
		{"equals close", Equals, 1.0004, 1.0001, 0, 0, true},
		{"unknown comparator", "is_sideways", 1, 1, 1, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkComparator(tt.comp, tt.a, tt.b, tt.prevA, tt.prevB)
			assert.Equal(t, tt.want, got)
		})
	}
}

func crossSeries() *market.Series {
	// Closes shaped so a fast SMA crosses above a slow one near the end.
	closes := []float64{
		10, 10, 10, 10, 10, 10, 10, 10, 10, 10,
		9, 8, 7, 6, 5, 5, 5, 6, 8, 11,
		14, 17, 20, 23, 26,
	}
	s := &market.Series{Symbol: "TEST"}
	for _, c := range closes {
		s.Candles = append(s.Candles, market.Candle{
			Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100,
		})
	}
	return s
}

func TestEvaluatorCrossesAbove(t *testing.T) {
	s := crossSeries()
	def := &Definition{
		Name:   "cross",
		Symbol: "TEST",
		EntryConditions: []Condition{
			{
				Indicator:              indicators.SMA,
				IndicatorParams:        indicators.Params{Period: 3},
				Comparator:             CrossesAbove,
				CompareTo:              CompareIndicator,
				CompareIndicator:       indicators.SMA,
				CompareIndicatorParams: indicators.Params{Period: 8},
			},
		},
	}
	def.ApplyDefaults()
	require.NoError(t, def.Validate())

	cache := indicators.NewCache(s)
	ev, err := NewEvaluator(def, cache, s)
	require.NoError(t, err)

	signals := 0
	firstSignal := -1
	for i := 0; i < s.Len(); i++ {
		if ev.SignalAt(i) {
			signals++
			if firstSignal < 0 {
				firstSignal = i
			}
		}
	}
	assert.Equal(t, 1, signals, "a single cross fires exactly once")
	assert.Greater(t, firstSignal, 15, "the cross happens in the recovery leg")
}

func TestEvaluatorLogic(t *testing.T) {
	s := crossSeries()
	alwaysTrue := Condition{
		Indicator:    indicators.Price,
		Comparator:   IsAbove,
		CompareTo:    CompareFixedValue,
		CompareValue: -1,
	}
	alwaysFalse := Condition{
		Indicator:    indicators.Price,
		Comparator:   IsBelow,
		CompareTo:    CompareFixedValue,
		CompareValue: -1,
	}

	tests := []struct {
		name  string
		logic string
		conds []Condition
		want  bool
	}{
		{"and both", LogicAND, []Condition{alwaysTrue, alwaysTrue}, true},
		{"and one fails", LogicAND, []Condition{alwaysTrue, alwaysFalse}, false},
		{"or one passes", LogicOR, []Condition{alwaysFalse, alwaysTrue}, true},
		{"or none", LogicOR, []Condition{alwaysFalse, alwaysFalse}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := &Definition{Name: "t", Symbol: "TEST", EntryLogic: tt.logic, EntryConditions: tt.conds}
			def.ApplyDefaults()
			ev, err := NewEvaluator(def, indicators.NewCache(s), s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev.SignalAt(10))
		})
	}
}

func TestEvaluatorEmptyConditionsNeverSignal(t *testing.T) {
	s := crossSeries()
	def := &Definition{Name: "empty", Symbol: "TEST"}
	def.ApplyDefaults()
	ev, err := NewEvaluator(def, indicators.NewCache(s), s)
	require.NoError(t, err)
	for i := 0; i < s.Len(); i++ {
		assert.False(t, ev.SignalAt(i))
	}
}

func timedSeries(n int, start time.Time, step time.Duration) *market.Series {
	s := &market.Series{Symbol: "TEST"}
	for i := 0; i < n; i++ {
		s.Candles = append(s.Candles, market.Candle{
			Time: start.Add(time.Duration(i) * step),
			Open: 100, High: 101, Low: 99, Close: 100, Volume: 10,
		})
	}
	return s
}

func TestFilterGateTimeWindow(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC) // a Monday
	s := timedSeries(24, start, time.Hour)

	def := &Definition{
		Name: "t", Symbol: "TEST",
		EntryConditions: []Condition{{Indicator: indicators.Price, Comparator: IsAbove}},
		Filters: []Filter{
			{Type: FilterTime, Params: FilterParams{StartHour: 8, EndHour: 17}},
		},
	}
	def.ApplyDefaults()

	gate, err := NewFilterGate(def, indicators.NewCache(s), s)
	require.NoError(t, err)

	assert.False(t, gate.Pass(7), "07:00 is before the window")
	assert.True(t, gate.Pass(8), "08:00 opens the window")
	assert.True(t, gate.Pass(16))
	assert.True(t, gate.Pass(17), "the end hour is inclusive")
	assert.False(t, gate.Pass(18), "18:00 is past the window")
}

func TestFilterGateTimeWindowWrapsMidnight(t *testing.T) {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	s := timedSeries(24, start, time.Hour)

	def := &Definition{
		Name: "t", Symbol: "TEST",
		EntryConditions: []Condition{{Indicator: indicators.Price, Comparator: IsAbove}},
		Filters: []Filter{
			{Type: FilterTime, Params: FilterParams{StartHour: 22, EndHour: 6}},
		},
	}
	def.ApplyDefaults()

	gate, err := NewFilterGate(def, indicators.NewCache(s), s)
	require.NoError(t, err)

	assert.True(t, gate.Pass(22))
	assert.True(t, gate.Pass(23))
	assert.True(t, gate.Pass(0))
	assert.True(t, gate.Pass(6), "the end hour is inclusive")
	assert.False(t, gate.Pass(7))
	assert.False(t, gate.Pass(21))
}

func TestFilterGateDayFilter(t *testing.T) {
	start := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC) // Monday noon
	s := timedSeries(7, start, 24*time.Hour)

	def := &Definition{
		Name: "t", Symbol: "TEST",
		EntryConditions: []Condition{{Indicator: indicators.Price, Comparator: IsAbove}},
		Filters: []Filter{
			{Type: FilterDay, Params: FilterParams{Days: []int{1, 2, 3}}}, // Mon-Wed
		},
	}
	def.ApplyDefaults()

	gate, err := NewFilterGate(def, indicators.NewCache(s), s)
	require.NoError(t, err)

	assert.True(t, gate.Pass(0))  // Monday
	assert.True(t, gate.Pass(2))  // Wednesday
	assert.False(t, gate.Pass(3)) // Thursday
	assert.False(t, gate.Pass(6)) // Sunday
}

func TestFilterGateVolatilityFailsClosedDuringWarmup(t *testing.T) {
	s := timedSeries(30, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), time.Hour)
	def := &Definition{
		Name: "t", Symbol: "TEST",
		EntryConditions: []Condition{{Indicator: indicators.Price, Comparator: IsAbove}},
		Filters: []Filter{
			{Type: FilterVolatility, Params: FilterParams{MinATR: 0.5}},
		},
	}
	def.ApplyDefaults()

	gate, err := NewFilterGate(def, indicators.NewCache(s), s)
	require.NoError(t, err)

	assert.False(t, gate.Pass(2), "ATR warm-up must block entries")
	assert.True(t, gate.Pass(25), "range 2.0 clears the 0.5 floor")
}

func TestFilterGateTrendDirection(t *testing.T) {
	// Rising closes above a short MA: only longs allowed.
	s := &market.Series{Symbol: "TEST"}
	for i := 0; i < 40; i++ {
		c := 100 + float64(i)
		s.Candles = append(s.Candles, market.Candle{Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1})
	}
	def := &Definition{
		Name: "t", Symbol: "TEST",
		EntryConditions: []Condition{{Indicator: indicators.Price, Comparator: IsAbove}},
		Filters: []Filter{
			{Type: FilterTrend, Params: FilterParams{MAPeriod: 10}},
		},
	}
	def.ApplyDefaults()

	gate, err := NewFilterGate(def, indicators.NewCache(s), s)
	require.NoError(t, err)

	assert.True(t, gate.AllowDirection(35, true))
	assert.False(t, gate.AllowDirection(35, false))
	assert.False(t, gate.AllowDirection(3, true), "unwarmed MA fails closed")
}

func TestLoadJSONAndYAML(t *testing.T) {
	dir := t.TempDir()

	jsonDoc := `{
  "name": "rsi_bounce",
  "symbol": "XAUUSD",
  "direction": "buy_only",
  "entry_conditions": [
    {"indicator": "RSI", "indicator_params": {"period": 14}, "condition": "is_oversold", "compare_to": "fixed_value", "compare_value": 30}
  ],
  "exit_stop_loss": [{"type": "atr_sl", "params": {"multiplier": 1.5}}],
  "exit_take_profit": [{"type": "atr_tp", "params": {"multiplier": 2}}],
  "risk": {"risk_per_trade": 1.0, "min_rr": 1.2}
}`
	yamlDoc := `name: rsi_bounce
symbol: XAUUSD
direction: buy_only
entry_conditions:
  - indicator: RSI
    indicator_params:
      period: 14
    condition: is_oversold
    compare_to: fixed_value
    compare_value: 30
risk:
  risk_per_trade: 1.0
`

	jsonPath := filepath.Join(dir, "strat.json")
	yamlPath := filepath.Join(dir, "strat.yaml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(jsonDoc), 0644))
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlDoc), 0644))

	fromJSON, err := LoadFile(jsonPath)
	require.NoError(t, err)
	fromYAML, err := LoadFile(yamlPath)
	require.NoError(t, err)

	assert.Equal(t, "rsi_bounce", fromJSON.Name)
	assert.Equal(t, DirectionBuyOnly, fromJSON.Direction)
	assert.Equal(t, IsOversold, fromJSON.EntryConditions[0].Comparator)
	assert.Equal(t, 14, fromJSON.EntryConditions[0].IndicatorParams.Period)
	assert.Equal(t, 1.2, fromJSON.Risk.MinRR)

	assert.Equal(t, fromJSON.Name, fromYAML.Name)
	assert.Equal(t, fromJSON.EntryConditions[0].Indicator, fromYAML.EntryConditions[0].Indicator)
	// Defaults fill in for fields the yaml doc omits.
	assert.Equal(t, 1.5, fromYAML.Risk.MinRR)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load([]byte(`{"name": "x", "symbol": ""}`), "json")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = Load([]byte(`{not json`), "json")
	assert.Error(t, err)
}
