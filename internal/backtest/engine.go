package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"strategy-backtester/internal/indicators"
	"strategy-backtester/internal/market"
	"strategy-backtester/internal/risk"
	"strategy-backtester/internal/strategy"
)

// ErrInsufficientData is returned when the series is shorter than the
// warm-up window.
var ErrInsufficientData = errors.New("backtest: not enough candles for warm-up")

// defaultWarmup is the minimum candle count and the index of the first
// tradeable bar. Indicators get a full window of history before the
// first entry can fire.
const defaultWarmup = 50

// Config holds the per-run engine settings that are not part of the
// strategy definition.
type Config struct {
	InitialBalance float64
	SpreadPips     float64
	Warmup         int  // 0 means defaultWarmup
	TPBeforeSL     bool // resolve same-bar SL+TP hits in favor of the target
}

// Engine replays a candle series bar by bar against one strategy
// definition. An Engine is built per run and never shared across
// goroutines; parallel sweeps build one Engine each.
type Engine struct {
	def  *strategy.Definition
	cfg  Config
	inst market.Instrument
	log  zerolog.Logger
}

// NewEngine builds an engine for one run.
func NewEngine(def *strategy.Definition, cfg Config, logger zerolog.Logger) *Engine {
	if cfg.InitialBalance <= 0 {
		cfg.InitialBalance = 10000
	}
	if cfg.Warmup <= 0 {
		cfg.Warmup = defaultWarmup
	}
	return &Engine{
		def:  def,
		cfg:  cfg,
		inst: market.LookupInstrument(def.Symbol),
		log:  logger.With().Str("component", "engine").Str("strategy", def.Name).Logger(),
	}
}

// Run executes the simulation. The returned Report is complete: trades,
// statistics and curves. Cancellation via ctx aborts between bars.
func (e *Engine) Run(ctx context.Context, s *market.Series) (*Report, error) {
	if err := e.def.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Len() < e.cfg.Warmup {
		return nil, fmt.Errorf("%w: have %d candles, need %d", ErrInsufficientData, s.Len(), e.cfg.Warmup)
	}

	cache := indicators.NewCache(s)

	eval, err := strategy.NewEvaluator(e.def, cache, s)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}
	gate, err := strategy.NewFilterGate(e.def, cache, s)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}

	atrRes, err := cache.Get(indicators.ATR, indicators.Params{Period: 14})
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}
	atr14, _ := atrRes.Output("value")

	var trendMA []float64
	if e.def.Direction == strategy.DirectionBoth && e.def.DirectionParams.Method == strategy.DirMethodMATrend {
		res, err := cache.Get(indicators.SMA, indicators.Params{Period: e.def.DirectionParams.MAPeriod})
		if err != nil {
			return nil, fmt.Errorf("backtest: %w", err)
		}
		trendMA, _ = res.Output("value")
	}

	rm := risk.NewManager(e.inst, e.def.Risk, e.log)
	gov := newGovernor(e.def.Risk.MaxOpenTrades, e.def.Risk.MaxDailyTrades,
		e.cfg.InitialBalance, e.def.Risk.MaxDrawdown, e.log)

	// A constant spread can fail the spread filter for the whole run.
	spreadBlocked := false
	if max := gate.MaxSpread(); max > 0 && e.cfg.SpreadPips > max {
		spreadBlocked = true
		e.log.Info().Float64("spread", e.cfg.SpreadPips).Float64("max", max).
			Msg("spread filter blocks all entries for this run")
	}

	balance := e.cfg.InitialBalance
	equity := make([]float64, 0, s.Len())
	equity = append(equity, balance)

	var open []*openTrade
	var closed []ClosedTrade

	closeTrade := func(t *openTrade, i int, price float64, reason ExitReason) {
		move := price - t.entryPrice
		if t.side == SideSell {
			move = -move
		}
		pnl := rm.PnL(move, t.lots)
		balance += pnl
		closed = append(closed, ClosedTrade{
			Side:       t.side,
			EntryIndex: t.entryIndex,
			ExitIndex:  i,
			EntryTime:  t.entryTime,
			ExitTime:   s.Candles[i].Time,
			EntryPrice: t.entryPrice,
			ExitPrice:  price,
			StopLoss:   t.stopLoss,
			TakeProfit: t.takeProfit,
			Lots:       t.lots,
			PnL:        pnl,
			Pips:       move / e.inst.PipSize,
			RR:         t.rr,
			BarsHeld:   t.barsHeld,
			Reason:     reason,
			BEMoved:    t.trailing.BreakEvenMoved(),
		})
		gov.RegisterClose(i, balance)
	}

	for i := e.cfg.Warmup; i < s.Len(); i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("backtest: aborted at bar %d: %w", i, err)
			}
		}

		c := s.Candles[i]

		// Exits first. The stop is adjusted from the bar close, then
		// breach is tested against the bar's adverse extreme.
		kept := open[:0]
		for _, t := range open {
			t.barsHeld++
			buy := t.side == SideBuy

			if newStop, moved := t.trailing.Update(buy, t.entryPrice, t.stopLoss, c.Close, atr14[i]); moved {
				t.stopLoss = newStop
			}

			slHit := (buy && c.Low <= t.stopLoss) || (!buy && c.High >= t.stopLoss)
			tpHit := (buy && c.High >= t.takeProfit) || (!buy && c.Low <= t.takeProfit)

			switch {
			case slHit && tpHit && e.cfg.TPBeforeSL:
				closeTrade(t, i, t.takeProfit, ExitTakeProfit)
			case slHit:
				closeTrade(t, i, t.stopLoss, ExitStopLoss)
			case tpHit:
				closeTrade(t, i, t.takeProfit, ExitTakeProfit)
			case e.def.ExitTime != nil && t.barsHeld >= e.def.ExitTime.Bars:
				closeTrade(t, i, c.Close, ExitTimeLimit)
			default:
				kept = append(kept, t)
			}
		}
		open = kept

		// Entry.
		if !spreadBlocked && eval.SignalAt(i) && gate.Pass(i) {
			if ok, reason := gov.CanTrade(i, c.Time); ok {
				if t := e.tryOpen(i, s, rm, gate, trendMA, atr14, balance); t != nil {
					open = append(open, t)
					gov.RegisterOpen(i, c.Time)
					e.log.Debug().
						Int("bar", i).
						Str("side", string(t.side)).
						Float64("entry", t.entryPrice).
						Float64("sl", t.stopLoss).
						Float64("tp", t.takeProfit).
						Float64("lots", t.lots).
						Msg("trade opened")
				}
			} else {
				e.log.Debug().Int("bar", i).Str("reason", reason).Msg("entry blocked")
			}
		}

		equity = append(equity, balance)
	}

	// Anything still open closes on the last candle. The realized PnL
	// lands on the equity curve so the drawdown stats see it.
	last := s.Len() - 1
	for _, t := range open {
		closeTrade(t, last, s.Candles[last].Close, ExitEndOfData)
		equity = append(equity, balance)
	}
	open = nil

	stats := computeStats(closed, equity, e.cfg.InitialBalance)
	tripped, trippedBar := gov.Tripped()

	report := &Report{
		RunID:          uuid.NewString(),
		Strategy:       e.def.Name,
		Symbol:         e.def.Symbol,
		Timeframe:      s.Timeframe,
		Bars:           s.Len(),
		InitialBalance: e.cfg.InitialBalance,
		FinalBalance:   balance,
		SpreadPips:     e.cfg.SpreadPips,
		BreakerTripped: tripped,
		BreakerBar:     trippedBar,
		Trades:         closed,
		Stats:          stats,
		EquityCurve:    downsample(equity, maxCurvePoints),
		DrawdownCurve:  downsample(drawdownCurve(equity), maxCurvePoints),
	}

	e.log.Info().
		Str("run_id", report.RunID).
		Int("trades", len(closed)).
		Float64("final_balance", balance).
		Float64("return_pct", stats.ReturnPct).
		Msg("run complete")

	return report, nil
}

// tryOpen sizes and opens a trade at bar i, or returns nil when the
// direction rules, trend filter or reward:risk floor reject it.
func (e *Engine) tryOpen(i int, s *market.Series, rm *risk.Manager, gate *strategy.FilterGate, trendMA, atr14 []float64, balance float64) *openTrade {
	c := s.Candles[i]

	var side Side
	switch e.def.Direction {
	case strategy.DirectionBuyOnly:
		side = SideBuy
	case strategy.DirectionSellOnly:
		side = SideSell
	default:
		if trendMA != nil {
			ma := trendMA[i]
			if math.IsNaN(ma) {
				return nil
			}
			if c.Close > ma {
				side = SideBuy
			} else {
				side = SideSell
			}
		} else {
			// entry_signal method: take the signal bar's own direction.
			if c.Close >= c.Open {
				side = SideBuy
			} else {
				side = SideSell
			}
		}
	}

	buy := side == SideBuy
	if !gate.AllowDirection(i, buy) {
		return nil
	}

	halfSpread := e.cfg.SpreadPips / 2 * e.inst.PipSize
	entry := c.Close + halfSpread
	if !buy {
		entry = c.Close - halfSpread
	}

	slDist := rm.StopDistance(e.def.ExitStopLoss, buy, i, entry, atr14[i], s)
	tpDist := rm.TargetDistance(e.def.ExitTakeProfit, entry, atr14[i])

	rr := risk.RewardRisk(slDist, tpDist)
	if e.def.Risk.MinRR > 0 && rr < e.def.Risk.MinRR {
		e.log.Debug().Int("bar", i).Float64("rr", rr).Float64("min_rr", e.def.Risk.MinRR).
			Msg("entry rejected on reward:risk")
		return nil
	}

	stop, target := entry-slDist, entry+tpDist
	if !buy {
		stop, target = entry+slDist, entry-tpDist
	}

	return &openTrade{
		side:       side,
		entryIndex: i,
		entryTime:  c.Time,
		entryPrice: entry,
		stopLoss:   stop,
		takeProfit: target,
		lots:       rm.LotSize(balance, entry, slDist),
		rr:         rr,
		trailing:   risk.NewTrailingState(e.def.ExitTrailing, e.def.ExitBreakEven, e.inst.PipSize),
	}
}
