package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported timestamp layouts for CSV input. Unix seconds are also accepted.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006.01.02 15:04",
}

// LoadCSV reads an OHLCV series from a CSV file with a header row of
// time,open,high,low,close,volume (volume optional, time optional).
func LoadCSV(path, symbol, timeframe string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("market: open candles file: %w", err)
	}
	defer f.Close()

	return ReadCSV(f, symbol, timeframe)
}

// ReadCSV parses OHLCV candles from r. Column order follows the header.
func ReadCSV(r io.Reader, symbol, timeframe string) (*Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("market: read csv header: %w", err)
	}

	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"open", "high", "low", "close"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("market: csv missing %q column", required)
		}
	}

	s := &Series{Symbol: symbol, Timeframe: timeframe}
	row := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("market: csv row %d: %w", row, err)
		}
		row++

		var c Candle
		if c.Open, err = field(rec, col, "open"); err != nil {
			return nil, fmt.Errorf("market: csv row %d: %w", row, err)
		}
		if c.High, err = field(rec, col, "high"); err != nil {
			return nil, fmt.Errorf("market: csv row %d: %w", row, err)
		}
		if c.Low, err = field(rec, col, "low"); err != nil {
			return nil, fmt.Errorf("market: csv row %d: %w", row, err)
		}
		if c.Close, err = field(rec, col, "close"); err != nil {
			return nil, fmt.Errorf("market: csv row %d: %w", row, err)
		}
		if idx, ok := col["volume"]; ok && idx < len(rec) {
			c.Volume, _ = strconv.ParseFloat(rec[idx], 64)
		}
		if idx, ok := col["time"]; ok && idx < len(rec) {
			c.Time = parseTime(rec[idx])
		}

		s.Candles = append(s.Candles, c)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func field(rec []string, col map[string]int, name string) (float64, error) {
	idx := col[name]
	if idx >= len(rec) {
		return 0, fmt.Errorf("missing %q value", name)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("bad %q value %q", name, rec[idx])
	}
	return v, nil
}

func parseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if secs > 1e12 { // milliseconds
			return time.Unix(0, secs*int64(time.Millisecond)).UTC()
		}
		return time.Unix(secs, 0).UTC()
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
