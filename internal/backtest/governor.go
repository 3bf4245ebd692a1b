package backtest

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// governor gates new entries for one run: concurrent position cap, daily
// trade cap and the drawdown circuit breaker. It never stops the bar
// loop itself; once tripped, open trades still run to their exits while
// new entries stay blocked for the rest of the run.
type governor struct {
	maxOpen  int
	maxDaily int
	floor    float64 // balance level that trips the breaker

	open       int
	daily      map[string]int
	tripped    bool
	trippedBar int
	log        zerolog.Logger
}

func newGovernor(maxOpen, maxDaily int, initialBalance, maxDrawdownPct float64, logger zerolog.Logger) *governor {
	return &governor{
		maxOpen:    maxOpen,
		maxDaily:   maxDaily,
		floor:      initialBalance * (1 - maxDrawdownPct/100),
		daily:      make(map[string]int),
		trippedBar: -1,
		log:        logger.With().Str("component", "governor").Logger(),
	}
}

// CanTrade reports whether a new entry is allowed at bar i, with a
// human-readable reason when it is not.
func (g *governor) CanTrade(i int, t time.Time) (bool, string) {
	if g.tripped {
		return false, "drawdown circuit breaker tripped"
	}
	if g.open >= g.maxOpen {
		return false, fmt.Sprintf("max open trades reached (%d/%d)", g.open, g.maxOpen)
	}
	if g.maxDaily > 0 {
		if n := g.daily[dayKey(i, t)]; n >= g.maxDaily {
			return false, fmt.Sprintf("daily trade limit reached (%d/%d)", n, g.maxDaily)
		}
	}
	return true, ""
}

// RegisterOpen records a new entry at bar i.
func (g *governor) RegisterOpen(i int, t time.Time) {
	g.open++
	g.daily[dayKey(i, t)]++
}

// RegisterClose records a position closing and checks the balance floor.
// The breaker latches: once tripped it stays tripped for the run.
func (g *governor) RegisterClose(i int, balance float64) {
	if g.open > 0 {
		g.open--
	}
	if !g.tripped && balance < g.floor {
		g.tripped = true
		g.trippedBar = i
		g.log.Warn().
			Int("bar", i).
			Float64("balance", balance).
			Float64("floor", g.floor).
			Msg("drawdown circuit breaker tripped, blocking new entries")
	}
}

// Tripped reports whether the breaker fired, and at which bar.
func (g *governor) Tripped() (bool, int) { return g.tripped, g.trippedBar }

// dayKey buckets trades per calendar day. Bars without timestamps get a
// unique key each, which disables the daily cap rather than lumping the
// whole series into one day.
func dayKey(i int, t time.Time) string {
	if t.IsZero() {
		return fmt.Sprintf("bar-%d", i)
	}
	return t.UTC().Format("2006-01-02")
}
