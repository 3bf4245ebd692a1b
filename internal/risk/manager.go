package risk

import (
	"math"

	"github.com/rs/zerolog"

	"strategy-backtester/internal/market"
	"strategy-backtester/internal/strategy"
)

// Manager turns a strategy's exit and sizing rules into concrete stop
// distances, target distances and lot sizes for one instrument. It never
// produces a non-positive distance: anything degenerate falls back to an
// ATR multiple, and a dead-flat ATR falls back to a fraction of price.
type Manager struct {
	inst market.Instrument
	cfg  strategy.RiskConfig
	log  zerolog.Logger
}

// NewManager builds a risk manager for one run.
func NewManager(inst market.Instrument, cfg strategy.RiskConfig, logger zerolog.Logger) *Manager {
	return &Manager{
		inst: inst,
		cfg:  cfg,
		log:  logger.With().Str("component", "risk").Logger(),
	}
}

// Instrument returns the contract spec the manager sizes against.
func (m *Manager) Instrument() market.Instrument { return m.inst }

// safeATR returns a usable volatility unit: the given ATR when it is a
// positive finite number, otherwise 1% of price.
func safeATR(atr, price float64) float64 {
	if math.IsNaN(atr) || math.IsInf(atr, 0) || atr <= 0 {
		return price * 0.01
	}
	return atr
}

// StopDistance resolves the stop-loss distance in price units for a trade
// entered at bar i. An empty spec list or a degenerate result falls back
// to 1.5 x ATR. With multiple specs the widest stop wins.
func (m *Manager) StopDistance(specs []strategy.ExitSpec, buy bool, i int, entry, atr float64, s *market.Series) float64 {
	unit := safeATR(atr, entry)
	fallback := 1.5 * unit

	dist := 0.0
	for _, spec := range specs {
		var d float64
		switch spec.Type {
		case strategy.ExitATRSL:
			mult := spec.Params.Multiplier
			if mult <= 0 {
				mult = 1.5
			}
			d = mult * unit
		case strategy.ExitFixedSL:
			d = spec.Params.Pips * m.inst.PipSize
		case strategy.ExitPercentSL:
			d = entry * spec.Params.Percent / 100
		case strategy.ExitSwingSL:
			d = m.swingDistance(spec.Params, buy, i, entry, s)
		}
		if d > dist {
			dist = d
		}
	}

	if dist <= 0 || math.IsNaN(dist) {
		m.log.Debug().Float64("fallback", fallback).Msg("stop distance degenerate, using ATR fallback")
		return fallback
	}
	return dist
}

// TargetDistance resolves the take-profit distance in price units. An
// empty spec list or a degenerate result falls back to 2 x ATR.
func (m *Manager) TargetDistance(specs []strategy.ExitSpec, entry, atr float64) float64 {
	unit := safeATR(atr, entry)
	fallback := 2.0 * unit

	dist := 0.0
	for _, spec := range specs {
		var d float64
		switch spec.Type {
		case strategy.ExitATRTP:
			mult := spec.Params.Multiplier
			if mult <= 0 {
				mult = 2.0
			}
			d = mult * unit
		case strategy.ExitFixedTP:
			d = spec.Params.Pips * m.inst.PipSize
		case strategy.ExitPercentTP:
			d = entry * spec.Params.Percent / 100
		}
		if d > dist {
			dist = d
		}
	}

	if dist <= 0 || math.IsNaN(dist) {
		return fallback
	}
	return dist
}

// swingDistance anchors the stop beyond the most recent swing extreme:
// the lowest low over the lookback window for a BUY, the highest high for
// a SELL, padded by buffer pips.
func (m *Manager) swingDistance(p strategy.ExitParams, buy bool, i int, entry float64, s *market.Series) float64 {
	lookback := p.Lookback
	if lookback <= 0 {
		lookback = 10
	}
	from := i - lookback
	if from < 0 {
		from = 0
	}

	buffer := p.BufferPips * m.inst.PipSize
	if buy {
		low := math.Inf(1)
		for j := from; j <= i; j++ {
			if s.Candles[j].Low < low {
				low = s.Candles[j].Low
			}
		}
		return entry - low + buffer
	}
	high := math.Inf(-1)
	for j := from; j <= i; j++ {
		if s.Candles[j].High > high {
			high = s.Candles[j].High
		}
	}
	return high - entry + buffer
}

// RewardRisk returns the reward:risk ratio for the given distances, or 0
// when the stop distance is degenerate.
func RewardRisk(slDist, tpDist float64) float64 {
	if slDist <= 0 || math.IsNaN(slDist) || math.IsNaN(tpDist) {
		return 0
	}
	return tpDist / slDist
}

// LotSize computes the position size for the account balance and stop
// distance, clamps it to the instrument's lot limits and rounds it down
// to the lot step.
func (m *Manager) LotSize(balance, entry, slDist float64) float64 {
	var lots float64

	switch m.cfg.LotType {
	case strategy.LotFixed:
		lots = m.cfg.FixedLot
	case strategy.LotBalancePercent:
		notional := entry * m.inst.Contract
		if notional > 0 {
			lots = balance * m.cfg.RiskPerTrade / 100 / notional
		}
	default: // risk_percent
		slPips := slDist / m.inst.PipSize
		riskAmount := balance * m.cfg.RiskPerTrade / 100
		if slPips > 0 && m.inst.PipValuePerLot > 0 {
			lots = riskAmount / (slPips * m.inst.PipValuePerLot)
		}
	}

	return m.clampLot(lots)
}

func (m *Manager) clampLot(lots float64) float64 {
	if math.IsNaN(lots) || lots <= 0 {
		return m.inst.MinLot
	}
	if m.inst.LotStep > 0 {
		lots = math.Floor(lots/m.inst.LotStep+1e-9) * m.inst.LotStep
	}
	if lots < m.inst.MinLot {
		lots = m.inst.MinLot
	}
	if lots > m.inst.MaxLot {
		lots = m.inst.MaxLot
	}
	return lots
}

// PnL converts a price move into account currency for the given lot size.
// A positive move means the trade went in its favor.
func (m *Manager) PnL(move, lots float64) float64 {
	pips := move / m.inst.PipSize
	return pips * m.inst.PipValuePerLot * lots
}
