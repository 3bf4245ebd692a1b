package indicators

import (
	"fmt"

	"strategy-backtester/internal/market"
)

// Cache memoizes indicator computations for one simulation run. SL/TP
// sizing, trend filters and entry conditions frequently request the same
// (id, params) pair, so each is computed once per run.
//
// A Cache is owned by exactly one run and must not be shared: it is not
// safe for concurrent use, which is fine because a run is strictly
// sequential. Parallel runs each build their own.
type Cache struct {
	series *market.Series
	memo   map[string]Result
}

// NewCache builds an empty cache bound to the run's input series.
func NewCache(s *market.Series) *Cache {
	return &Cache{series: s, memo: make(map[string]Result)}
}

// Get computes or returns the memoized result for (id, params).
func (c *Cache) Get(id ID, p Params) (Result, error) {
	key := fingerprint(id, p)
	if res, ok := c.memo[key]; ok {
		return res, nil
	}
	res, err := Compute(c.series, id, p)
	if err != nil {
		return nil, err
	}
	c.memo[key] = res
	return res, nil
}

// Size returns the number of memoized entries.
func (c *Cache) Size() int { return len(c.memo) }

// fingerprint derives a stable memo key from the typed parameter struct.
// Field order is fixed by the struct definition, so identical parameter
// sets always render identically.
func fingerprint(id ID, p Params) string {
	return fmt.Sprintf("%s|%+v", id, p)
}
