package backtest

import "time"

// Side is the trade direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ExitReason records why a trade closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "SL"
	ExitTakeProfit ExitReason = "TP"
	ExitTimeLimit  ExitReason = "TIME"
	ExitEndOfData  ExitReason = "END_OF_DATA"
)

// openTrade is a live position inside a run. It mutates as bars are
// processed and is converted to a ClosedTrade on exit.
type openTrade struct {
	side       Side
	entryIndex int
	entryTime  time.Time
	entryPrice float64
	stopLoss   float64
	takeProfit float64
	lots       float64
	rr         float64
	barsHeld   int
	trailing   trailingUpdater
}

// trailingUpdater is the per-trade stop adjustment state machine.
type trailingUpdater interface {
	Update(buy bool, entry, stop, close, atr float64) (newStop float64, moved bool)
	BreakEvenMoved() bool
}

// ClosedTrade is one completed trade in the report. Prices are the
// simulated fill prices, PnL is in account currency.
type ClosedTrade struct {
	Side       Side       `json:"side"`
	EntryIndex int        `json:"entry_index"`
	ExitIndex  int        `json:"exit_index"`
	EntryTime  time.Time  `json:"entry_time,omitempty"`
	ExitTime   time.Time  `json:"exit_time,omitempty"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	StopLoss   float64    `json:"stop_loss"`
	TakeProfit float64    `json:"take_profit"`
	Lots       float64    `json:"lots"`
	PnL        float64    `json:"pnl"`
	Pips       float64    `json:"pips"`
	RR         float64    `json:"rr"`
	BarsHeld   int        `json:"bars_held"`
	Reason     ExitReason `json:"exit_reason"`
	BEMoved    bool       `json:"break_even_moved"`
}

// Win reports whether the trade closed at a profit.
func (t *ClosedTrade) Win() bool { return t.PnL > 0 }
