package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-backtester/internal/logging"
)

func tradePnL(pnl float64, exit time.Time) ClosedTrade {
	return ClosedTrade{PnL: pnl, ExitTime: exit, RR: 1.5, BarsHeld: 4}
}

func TestComputeStatsBasics(t *testing.T) {
	trades := []ClosedTrade{
		tradePnL(100, time.Time{}),
		tradePnL(-50, time.Time{}),
		tradePnL(200, time.Time{}),
		tradePnL(-50, time.Time{}),
	}
	equity := []float64{1000, 1100, 1050, 1250, 1200}

	s := computeStats(trades, equity, 1000)

	assert.Equal(t, 4, s.TotalTrades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.InDelta(t, 50.0, s.WinRate, 1e-9)
	assert.InDelta(t, 200.0, s.NetProfit, 1e-9)
	assert.InDelta(t, 300.0, s.GrossProfit, 1e-9)
	assert.InDelta(t, 100.0, s.GrossLoss, 1e-9)
	assert.InDelta(t, 3.0, s.ProfitFactor, 1e-9)
	assert.InDelta(t, 150.0, s.AvgWin, 1e-9)
	assert.InDelta(t, 50.0, s.AvgLoss, 1e-9)
	assert.InDelta(t, 50.0, s.Expectancy, 1e-9)
	assert.InDelta(t, 200.0, s.BestTrade, 1e-9)
	assert.InDelta(t, -50.0, s.WorstTrade, 1e-9)
	assert.InDelta(t, 20.0, s.ReturnPct, 1e-9)
	assert.InDelta(t, 1.5, s.AvgRR, 1e-9)
	assert.InDelta(t, 4.0, s.AvgBarsHeld, 1e-9)
	assert.Equal(t, 1, s.MaxWinStreak)
	assert.Equal(t, 1, s.MaxLossStreak)
}

func TestComputeStatsNoLosses(t *testing.T) {
	trades := []ClosedTrade{tradePnL(100, time.Time{}), tradePnL(50, time.Time{})}
	s := computeStats(trades, []float64{1000, 1100, 1150}, 1000)

	// Gross loss defaults to 1 so the profit factor stays finite.
	assert.InDelta(t, 150.0, s.ProfitFactor, 1e-9)
	assert.Equal(t, 2, s.MaxWinStreak)
	assert.Equal(t, 0, s.MaxLossStreak)
}

func TestComputeStatsEmpty(t *testing.T) {
	s := computeStats(nil, []float64{1000}, 1000)
	assert.Equal(t, 0, s.TotalTrades)
	assert.Equal(t, 0.0, s.WinRate)
	assert.Equal(t, 0.0, s.Sharpe)
	assert.Empty(t, s.Monthly)
}

func TestMaxDrawdown(t *testing.T) {
	abs, pct := maxDrawdown([]float64{1000, 1200, 900, 1100, 800, 1500})
	assert.InDelta(t, 400.0, abs, 1e-9)
	assert.InDelta(t, 400.0/1200*100, pct, 1e-9)

	abs, pct = maxDrawdown([]float64{1000, 1100, 1200})
	assert.Equal(t, 0.0, abs)
	assert.Equal(t, 0.0, pct)
}

func TestSharpeZeroVariance(t *testing.T) {
	trades := []ClosedTrade{tradePnL(10, time.Time{}), tradePnL(10, time.Time{})}
	assert.Equal(t, 0.0, sharpe(trades))
}

func TestMonthlyStats(t *testing.T) {
	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	trades := []ClosedTrade{
		tradePnL(100, jan),
		tradePnL(-40, jan),
		tradePnL(60, feb),
	}

	monthly := monthlyStats(trades)
	require.Len(t, monthly, 2)
	assert.Equal(t, "2024-01", monthly[0].Month)
	assert.InDelta(t, 60.0, monthly[0].PnL, 1e-9)
	assert.InDelta(t, 100.0/40.0, monthly[0].ProfitFactor, 1e-9)

	// A lossless month caps at the plot ceiling instead of going infinite.
	assert.Equal(t, "2024-02", monthly[1].Month)
	assert.InDelta(t, monthlyPFCap, monthly[1].ProfitFactor, 1e-9)
}

func TestTradeDistributions(t *testing.T) {
	mon9 := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	tue14 := time.Date(2024, 5, 7, 14, 0, 0, 0, time.UTC)
	trades := []ClosedTrade{
		{PnL: 100, EntryTime: mon9},
		{PnL: -50, EntryTime: mon9.Add(30 * time.Minute)},
		{PnL: 80, EntryTime: tue14},
	}
	s := computeStats(trades, []float64{1000}, 1000)

	require.Len(t, s.ByHour, 2)
	assert.Equal(t, "09", s.ByHour[0].Label)
	assert.Equal(t, 2, s.ByHour[0].Trades)
	assert.InDelta(t, 50.0, s.ByHour[0].PnL, 1e-9)
	assert.InDelta(t, 50.0, s.ByHour[0].WinRate, 1e-9)
	assert.Equal(t, "14", s.ByHour[1].Label)

	require.Len(t, s.ByWeekday, 2)
	assert.Equal(t, "Monday", s.ByWeekday[0].Label)
	assert.Equal(t, "Tuesday", s.ByWeekday[1].Label)

	// Untimed trades stay out of the distributions.
	s = computeStats([]ClosedTrade{tradePnL(10, time.Time{})}, []float64{1000}, 1000)
	assert.Empty(t, s.ByHour)
	assert.Empty(t, s.ByWeekday)
}

func TestDrawdownCurve(t *testing.T) {
	curve := drawdownCurve([]float64{1000, 1200, 900, 1100, 1300})
	assert.Equal(t, []float64{0, 0, 300, 100, 0}, curve)
}

func TestGovernorLimits(t *testing.T) {
	g := newGovernor(2, 3, 10000, 20, logging.Nop())
	day := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	ok, _ := g.CanTrade(0, day)
	require.True(t, ok)
	g.RegisterOpen(0, day)
	g.RegisterOpen(1, day)

	ok, reason := g.CanTrade(2, day)
	assert.False(t, ok)
	assert.Contains(t, reason, "max open")

	g.RegisterClose(2, 9500)
	g.RegisterOpen(2, day)
	g.RegisterClose(3, 9400)
	g.RegisterClose(4, 9300)

	// Three entries booked on the same day exhaust the daily cap.
	ok, reason = g.CanTrade(5, day)
	assert.False(t, ok)
	assert.Contains(t, reason, "daily")

	// A new day resets the count.
	ok, _ = g.CanTrade(6, day.Add(24*time.Hour))
	assert.True(t, ok)
}

func TestGovernorBreakerLatches(t *testing.T) {
	g := newGovernor(5, 0, 10000, 20, logging.Nop())

	g.RegisterOpen(0, time.Time{})
	g.RegisterClose(1, 7999) // below the 8000 floor

	tripped, bar := g.Tripped()
	require.True(t, tripped)
	assert.Equal(t, 1, bar)

	ok, reason := g.CanTrade(2, time.Time{})
	assert.False(t, ok)
	assert.Contains(t, reason, "circuit breaker")

	// Recovery does not reset the breaker within a run.
	g.RegisterOpen(2, time.Time{})
	g.RegisterClose(3, 12000)
	ok, _ = g.CanTrade(4, time.Time{})
	assert.False(t, ok)
}

func TestGovernorUntimedBarsBypassDailyCap(t *testing.T) {
	g := newGovernor(10, 1, 10000, 20, logging.Nop())
	for i := 0; i < 5; i++ {
		ok, _ := g.CanTrade(i, time.Time{})
		require.True(t, ok, "bar %d", i)
		g.RegisterOpen(i, time.Time{})
	}
}
