package backtest

import (
	"math"
	"sort"
)

// Stats is the aggregate performance summary of one run. All money
// figures are in account currency.
type Stats struct {
	TotalTrades int     `json:"total_trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"` // percent

	NetProfit    float64 `json:"net_profit"`
	GrossProfit  float64 `json:"gross_profit"`
	GrossLoss    float64 `json:"gross_loss"` // positive magnitude
	ProfitFactor float64 `json:"profit_factor"`
	ReturnPct    float64 `json:"return_pct"`

	AvgWin     float64 `json:"avg_win"`
	AvgLoss    float64 `json:"avg_loss"` // positive magnitude
	Expectancy float64 `json:"expectancy"`
	BestTrade  float64 `json:"best_trade"`
	WorstTrade float64 `json:"worst_trade"`

	MaxDrawdown    float64 `json:"max_drawdown"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	Sharpe         float64 `json:"sharpe"`

	MaxWinStreak  int     `json:"max_win_streak"`
	MaxLossStreak int     `json:"max_loss_streak"`
	AvgRR         float64 `json:"avg_rr"`
	AvgBarsHeld   float64 `json:"avg_bars_held"`

	Monthly   []MonthStats  `json:"monthly,omitempty"`
	ByHour    []BucketStats `json:"by_hour,omitempty"`
	ByWeekday []BucketStats `json:"by_weekday,omitempty"`
}

// BucketStats is one slice of the trade distribution, bucketed by the
// entry hour or weekday.
type BucketStats struct {
	Label   string  `json:"label"`
	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	PnL     float64 `json:"pnl"`
	WinRate float64 `json:"win_rate"`
}

// MonthStats is a per-calendar-month slice of the run, keyed by the
// trade exit time.
type MonthStats struct {
	Month        string  `json:"month"` // "2006-01"
	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	PnL          float64 `json:"pnl"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
}

// monthlyPFCap bounds the profit factor of lossless months so they stay
// plottable.
const monthlyPFCap = 999.0

// computeStats folds the closed trades and equity curve into the summary.
// It is a pure function of its inputs: running it twice on the same run
// yields identical numbers.
func computeStats(trades []ClosedTrade, equity []float64, initial float64) Stats {
	var s Stats
	s.TotalTrades = len(trades)

	var sumRR, sumBars float64
	var winStreak, lossStreak int

	for _, t := range trades {
		if t.PnL > 0 {
			s.Wins++
			s.GrossProfit += t.PnL
			winStreak++
			lossStreak = 0
		} else {
			s.Losses++
			s.GrossLoss += -t.PnL
			lossStreak++
			winStreak = 0
		}
		if winStreak > s.MaxWinStreak {
			s.MaxWinStreak = winStreak
		}
		if lossStreak > s.MaxLossStreak {
			s.MaxLossStreak = lossStreak
		}

		s.NetProfit += t.PnL
		if t.PnL > s.BestTrade {
			s.BestTrade = t.PnL
		}
		if t.PnL < s.WorstTrade {
			s.WorstTrade = t.PnL
		}
		sumRR += t.RR
		sumBars += float64(t.BarsHeld)
	}

	if s.TotalTrades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.TotalTrades) * 100
		s.AvgRR = sumRR / float64(s.TotalTrades)
		s.AvgBarsHeld = sumBars / float64(s.TotalTrades)
		s.Expectancy = s.NetProfit / float64(s.TotalTrades)
	}
	if s.Wins > 0 {
		s.AvgWin = s.GrossProfit / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = s.GrossLoss / float64(s.Losses)
	}

	grossLoss := s.GrossLoss
	if grossLoss == 0 {
		grossLoss = 1
	}
	s.ProfitFactor = s.GrossProfit / grossLoss

	if initial > 0 {
		s.ReturnPct = s.NetProfit / initial * 100
	}

	s.MaxDrawdown, s.MaxDrawdownPct = maxDrawdown(equity)
	s.Sharpe = sharpe(trades)
	s.Monthly = monthlyStats(trades)
	s.ByHour = bucketStats(trades, func(t ClosedTrade) string {
		return t.EntryTime.UTC().Format("15")
	})
	s.ByWeekday = bucketStats(trades, func(t ClosedTrade) string {
		return t.EntryTime.UTC().Weekday().String()
	})

	return s
}

// bucketStats groups trades by the given key, skipping untimed entries.
// Buckets come back sorted by first appearance so weekday order follows
// the series, not the alphabet.
func bucketStats(trades []ClosedTrade, key func(ClosedTrade) string) []BucketStats {
	byKey := make(map[string]*BucketStats)
	var order []string
	for _, t := range trades {
		if t.EntryTime.IsZero() {
			continue
		}
		k := key(t)
		b, ok := byKey[k]
		if !ok {
			b = &BucketStats{Label: k}
			byKey[k] = b
			order = append(order, k)
		}
		b.Trades++
		b.PnL += t.PnL
		if t.PnL > 0 {
			b.Wins++
		}
	}
	if len(order) == 0 {
		return nil
	}
	out := make([]BucketStats, 0, len(order))
	for _, k := range order {
		b := byKey[k]
		b.WinRate = float64(b.Wins) / float64(b.Trades) * 100
		out = append(out, *b)
	}
	return out
}

// drawdownCurve is the running distance below the equity peak, one point
// per equity point.
func drawdownCurve(equity []float64) []float64 {
	out := make([]float64, len(equity))
	peak := math.Inf(-1)
	for i, v := range equity {
		if v > peak {
			peak = v
		}
		out[i] = peak - v
	}
	return out
}

// maxDrawdown walks the equity curve and returns the deepest peak-to-
// trough drop, absolute and as a percent of the peak.
func maxDrawdown(equity []float64) (abs, pct float64) {
	peak := math.Inf(-1)
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		dd := peak - v
		if dd > abs {
			abs = dd
			if peak > 0 {
				pct = dd / peak * 100
			}
		}
	}
	return abs, pct
}

// sharpe is the annualized ratio over per-trade PnL, using 252 trading
// days. Zero variance or fewer than two trades yields 0.
func sharpe(trades []ClosedTrade) float64 {
	if len(trades) < 2 {
		return 0
	}
	var sum float64
	for _, t := range trades {
		sum += t.PnL
	}
	mean := sum / float64(len(trades))

	var variance float64
	for _, t := range trades {
		d := t.PnL - mean
		variance += d * d
	}
	variance /= float64(len(trades))
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}

func monthlyStats(trades []ClosedTrade) []MonthStats {
	byMonth := make(map[string]*MonthStats)
	for _, t := range trades {
		if t.ExitTime.IsZero() {
			continue
		}
		key := t.ExitTime.UTC().Format("2006-01")
		m, ok := byMonth[key]
		if !ok {
			m = &MonthStats{Month: key}
			byMonth[key] = m
		}
		m.Trades++
		m.PnL += t.PnL
		if t.PnL > 0 {
			m.Wins++
		}
	}
	if len(byMonth) == 0 {
		return nil
	}

	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]MonthStats, 0, len(keys))
	for _, k := range keys {
		m := byMonth[k]
		m.WinRate = float64(m.Wins) / float64(m.Trades) * 100
		m.ProfitFactor = monthProfitFactor(trades, k)
		out = append(out, *m)
	}
	return out
}

func monthProfitFactor(trades []ClosedTrade, month string) float64 {
	var profit, loss float64
	for _, t := range trades {
		if t.ExitTime.IsZero() || t.ExitTime.UTC().Format("2006-01") != month {
			continue
		}
		if t.PnL > 0 {
			profit += t.PnL
		} else {
			loss += -t.PnL
		}
	}
	if loss == 0 {
		if profit == 0 {
			return 0
		}
		return monthlyPFCap
	}
	pf := profit / loss
	if pf > monthlyPFCap {
		pf = monthlyPFCap
	}
	return pf
}
