package backtest

import (
	"encoding/json"
	"fmt"
	"io"
)

// maxCurvePoints bounds the curves embedded in a report so a multi-year
// minute run does not blow up its JSON.
const maxCurvePoints = 200

// Report is the full result of one run.
type Report struct {
	RunID          string  `json:"run_id"`
	Strategy       string  `json:"strategy"`
	Symbol         string  `json:"symbol"`
	Timeframe      string  `json:"timeframe,omitempty"`
	Bars           int     `json:"bars"`
	InitialBalance float64 `json:"initial_balance"`
	FinalBalance   float64 `json:"final_balance"`
	SpreadPips     float64 `json:"spread_pips"`

	BreakerTripped bool `json:"breaker_tripped"`
	BreakerBar     int  `json:"breaker_bar"` // -1 when the breaker never fired

	Trades        []ClosedTrade `json:"trades"`
	Stats         Stats         `json:"stats"`
	EquityCurve   []float64     `json:"equity_curve"`
	DrawdownCurve []float64     `json:"drawdown_curve"`
}

// WriteJSON emits the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// PrintSummary writes a human-readable summary.
func (r *Report) PrintSummary(w io.Writer) {
	s := r.Stats
	fmt.Fprintf(w, "=== Backtest Report: %s on %s ===\n", r.Strategy, r.Symbol)
	fmt.Fprintf(w, "Run ID:         %s\n", r.RunID)
	fmt.Fprintf(w, "Bars:           %d\n", r.Bars)
	fmt.Fprintf(w, "Balance:        %.2f -> %.2f (%.2f%%)\n", r.InitialBalance, r.FinalBalance, s.ReturnPct)
	fmt.Fprintf(w, "Trades:         %d (W %d / L %d, win rate %.1f%%)\n", s.TotalTrades, s.Wins, s.Losses, s.WinRate)
	fmt.Fprintf(w, "Net profit:     %.2f\n", s.NetProfit)
	fmt.Fprintf(w, "Profit factor:  %.2f\n", s.ProfitFactor)
	fmt.Fprintf(w, "Expectancy:     %.2f per trade\n", s.Expectancy)
	fmt.Fprintf(w, "Avg win/loss:   %.2f / %.2f\n", s.AvgWin, s.AvgLoss)
	fmt.Fprintf(w, "Best/worst:     %.2f / %.2f\n", s.BestTrade, s.WorstTrade)
	fmt.Fprintf(w, "Max drawdown:   %.2f (%.2f%%)\n", s.MaxDrawdown, s.MaxDrawdownPct)
	fmt.Fprintf(w, "Sharpe:         %.2f\n", s.Sharpe)
	fmt.Fprintf(w, "Streaks:        %d wins / %d losses\n", s.MaxWinStreak, s.MaxLossStreak)
	fmt.Fprintf(w, "Avg R:R:        %.2f\n", s.AvgRR)
	fmt.Fprintf(w, "Avg bars held:  %.1f\n", s.AvgBarsHeld)
	if r.BreakerTripped {
		fmt.Fprintf(w, "NOTE: drawdown circuit breaker tripped at bar %d\n", r.BreakerBar)
	}
	if len(s.Monthly) > 0 {
		fmt.Fprintln(w, "Monthly:")
		for _, m := range s.Monthly {
			fmt.Fprintf(w, "  %s  trades=%-3d pnl=%-10.2f win%%=%-5.1f pf=%.2f\n",
				m.Month, m.Trades, m.PnL, m.WinRate, m.ProfitFactor)
		}
	}
}

// downsample thins a curve to at most max points, always keeping the
// first and last values.
func downsample(curve []float64, max int) []float64 {
	if len(curve) <= max || max < 2 {
		out := make([]float64, len(curve))
		copy(out, curve)
		return out
	}
	out := make([]float64, 0, max)
	step := float64(len(curve)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(float64(i)*step + 0.5)
		if idx >= len(curve) {
			idx = len(curve) - 1
		}
		out = append(out, curve[idx])
	}
	out[max-1] = curve[len(curve)-1]
	return out
}
