package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-backtester/internal/logging"
	"strategy-backtester/internal/market"
	"strategy-backtester/internal/strategy"
)

func testManager(t *testing.T, symbol string, cfg strategy.RiskConfig) *Manager {
	t.Helper()
	if cfg.LotType == "" {
		cfg.LotType = strategy.LotRiskPercent
	}
	return NewManager(market.LookupInstrument(symbol), cfg, logging.Nop())
}

func rangeSeries(n int, base, rng float64) *market.Series {
	s := &market.Series{Symbol: "TEST"}
	for i := 0; i < n; i++ {
		s.Candles = append(s.Candles, market.Candle{
			Open: base, High: base + rng, Low: base - rng, Close: base, Volume: 1,
		})
	}
	return s
}

func TestStopDistanceATR(t *testing.T) {
	m := testManager(t, "EURUSD", strategy.RiskConfig{RiskPerTrade: 1})
	s := rangeSeries(20, 1.10, 0.001)

	specs := []strategy.ExitSpec{{Type: strategy.ExitATRSL, Params: strategy.ExitParams{Multiplier: 2}}}
	d := m.StopDistance(specs, true, 19, 1.10, 0.0010, s)
	assert.InDelta(t, 0.0020, d, 1e-9)
}

func TestStopDistanceFixedPips(t *testing.T) {
	m := testManager(t, "EURUSD", strategy.RiskConfig{RiskPerTrade: 1})
	s := rangeSeries(20, 1.10, 0.001)

	specs := []strategy.ExitSpec{{Type: strategy.ExitFixedSL, Params: strategy.ExitParams{Pips: 25}}}
	d := m.StopDistance(specs, true, 19, 1.10, 0.0010, s)
	assert.InDelta(t, 25*0.0001, d, 1e-9)
}

func TestStopDistanceSwing(t *testing.T) {
	m := testManager(t, "EURUSD", strategy.RiskConfig{RiskPerTrade: 1})
	s := rangeSeries(20, 1.10, 0.001)
	s.Candles[15].Low = 1.0950 // the swing low the stop anchors to

	specs := []strategy.ExitSpec{{Type: strategy.ExitSwingSL, Params: strategy.ExitParams{Lookback: 10, BufferPips: 10}}}
	d := m.StopDistance(specs, true, 19, 1.10, 0.0010, s)
	assert.InDelta(t, 1.10-1.0950+0.0010, d, 1e-9)
}

func TestStopDistanceFallbacks(t *testing.T) {
	m := testManager(t, "EURUSD", strategy.RiskConfig{RiskPerTrade: 1})
	s := rangeSeries(20, 1.10, 0.001)

	// No specs: 1.5 x ATR.
	d := m.StopDistance(nil, true, 19, 1.10, 0.0010, s)
	assert.InDelta(t, 0.0015, d, 1e-9)

	// Dead-flat ATR: the volatility unit degrades to 1% of price.
	d = m.StopDistance(nil, true, 19, 1.10, 0, s)
	assert.InDelta(t, 1.5*0.011, d, 1e-9)

	// NaN ATR behaves the same.
	d = m.StopDistance(nil, true, 19, 1.10, math.NaN(), s)
	assert.InDelta(t, 1.5*0.011, d, 1e-9)

	// A zero-distance spec also falls back.
	specs := []strategy.ExitSpec{{Type: strategy.ExitFixedSL, Params: strategy.ExitParams{Pips: 0}}}
	d = m.StopDistance(specs, true, 19, 1.10, 0.0010, s)
	assert.InDelta(t, 0.0015, d, 1e-9)
}

func TestTargetDistance(t *testing.T) {
	m := testManager(t, "EURUSD", strategy.RiskConfig{RiskPerTrade: 1})

	specs := []strategy.ExitSpec{{Type: strategy.ExitATRTP, Params: strategy.ExitParams{Multiplier: 3}}}
	assert.InDelta(t, 0.0030, m.TargetDistance(specs, 1.10, 0.0010), 1e-9)

	// Default 2 x ATR with no specs.
	assert.InDelta(t, 0.0020, m.TargetDistance(nil, 1.10, 0.0010), 1e-9)

	specs = []strategy.ExitSpec{{Type: strategy.ExitPercentTP, Params: strategy.ExitParams{Percent: 1}}}
	assert.InDelta(t, 0.011, m.TargetDistance(specs, 1.10, 0.0010), 1e-9)
}

func TestRewardRisk(t *testing.T) {
	assert.InDelta(t, 2.0, RewardRisk(0.0010, 0.0020), 1e-9)
	assert.Equal(t, 0.0, RewardRisk(0, 0.0020))
	assert.Equal(t, 0.0, RewardRisk(math.NaN(), 0.0020))
}

func TestLotSizeRiskPercent(t *testing.T) {
	m := testManager(t, "EURUSD", strategy.RiskConfig{RiskPerTrade: 1, LotType: strategy.LotRiskPercent})

	// Risk 1% of 10000 = 100 over a 20 pip stop at $10/pip/lot -> 0.5 lots.
	lots := m.LotSize(10000, 1.10, 20*0.0001)
	assert.InDelta(t, 0.5, lots, 1e-9)
}

func TestLotSizeClampAndStep(t *testing.T) {
	m := testManager(t, "EURUSD", strategy.RiskConfig{RiskPerTrade: 1, LotType: strategy.LotRiskPercent})

	// A huge stop pushes the raw size below the minimum lot.
	lots := m.LotSize(100, 1.10, 500*0.0001)
	assert.Equal(t, 0.01, lots)

	// A tiny stop pushes it above the maximum.
	lots = m.LotSize(1e9, 1.10, 1*0.0001)
	assert.Equal(t, 10.0, lots)

	// Sizes round down to the lot step.
	lots = m.LotSize(10000, 1.10, 17*0.0001)
	// 100 / (17 * 10) = 0.588... -> 0.58
	assert.InDelta(t, 0.58, lots, 1e-9)
}

func TestLotSizeFixed(t *testing.T) {
	m := testManager(t, "EURUSD", strategy.RiskConfig{RiskPerTrade: 1, LotType: strategy.LotFixed, FixedLot: 0.30})
	assert.InDelta(t, 0.30, m.LotSize(10000, 1.10, 0.0020), 1e-9)
}

func TestPnL(t *testing.T) {
	m := testManager(t, "EURUSD", strategy.RiskConfig{RiskPerTrade: 1})
	// 30 pips at $10/pip on 0.5 lots.
	assert.InDelta(t, 150.0, m.PnL(30*0.0001, 0.5), 1e-6)
	assert.InDelta(t, -150.0, m.PnL(-30*0.0001, 0.5), 1e-6)
}

func TestTrailingFixedMovesFavorOnly(t *testing.T) {
	pip := 0.0001
	ts := NewTrailingState(&strategy.TrailingSpec{Type: strategy.TrailingFixed, Value: 20}, nil, pip)
	require.True(t, ts.Active(), "no break-even rule arms trailing from entry")

	entry, stop := 1.1000, 1.0970

	// Price advances: stop trails 20 pips behind the close.
	newStop, moved := ts.Update(true, entry, stop, 1.1050, 0)
	require.True(t, moved)
	assert.InDelta(t, 1.1030, newStop, 1e-9)

	// Price retreats: the stop must not give ground.
	stop = newStop
	newStop, moved = ts.Update(true, entry, stop, 1.1010, 0)
	assert.False(t, moved)
	assert.Equal(t, stop, newStop)
}

func TestTrailingATRDistance(t *testing.T) {
	ts := NewTrailingState(&strategy.TrailingSpec{Type: strategy.TrailingATR, Value: 2}, nil, 0.0001)

	newStop, moved := ts.Update(true, 1.10, 1.09, 1.12, 0.0050)
	require.True(t, moved)
	assert.InDelta(t, 1.12-2*0.0050, newStop, 1e-9)

	// A dead ATR disables the trail instead of collapsing the distance.
	_, moved = ts.Update(true, 1.10, newStop, 1.13, 0)
	assert.False(t, moved)
}

func TestBreakEvenArmsTrailing(t *testing.T) {
	pip := 0.0001
	ts := NewTrailingState(
		&strategy.TrailingSpec{Type: strategy.TrailingFixed, Value: 10},
		&strategy.BreakEvenSpec{Trigger: 30, Lock: 5},
		pip,
	)
	require.False(t, ts.Active(), "trailing waits for the break-even move")

	entry, stop := 1.1000, 1.0960

	// Not at the trigger yet: nothing moves.
	newStop, moved := ts.Update(true, entry, stop, 1.1020, 0)
	assert.False(t, moved)
	assert.Equal(t, stop, newStop)
	assert.False(t, ts.BreakEvenMoved())

	// Trigger reached: stop locks 5 pips past entry, trailing arms, and
	// the armed trail immediately tightens from the same close.
	newStop, moved = ts.Update(true, entry, stop, 1.1030, 0)
	require.True(t, moved)
	assert.True(t, ts.BreakEvenMoved())
	assert.True(t, ts.Active())
	assert.InDelta(t, 1.1030-10*pip, newStop, 1e-9)
}

func TestBreakEvenShortSide(t *testing.T) {
	pip := 0.0001
	ts := NewTrailingState(nil, &strategy.BreakEvenSpec{Trigger: 30, Lock: 5}, pip)

	entry, stop := 1.1000, 1.1040
	newStop, moved := ts.Update(false, entry, stop, 1.0970, 0)
	require.True(t, moved)
	assert.InDelta(t, entry-5*pip, newStop, 1e-9)
	// No trailing configured, so nothing arms.
	assert.False(t, ts.Active())
}
