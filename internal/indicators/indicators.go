package indicators

import (
	"fmt"
	"math"

	"strategy-backtester/internal/market"
)

// ID identifies an indicator family. The set is closed: Compute dispatches
// over it exhaustively and rejects anything else, so strategy validation
// can fail fast on unknown ids.
type ID string

const (
	SMA        ID = "SMA"
	EMA        ID = "EMA"
	WMA        ID = "WMA"
	DEMA       ID = "DEMA"
	TEMA       ID = "TEMA"
	RSI        ID = "RSI"
	Stoch      ID = "STOCH"
	StochRSI   ID = "STOCHRSI"
	CCI        ID = "CCI"
	Williams   ID = "WILLIAMS"
	MFI        ID = "MFI"
	MACD       ID = "MACD"
	BB         ID = "BB"
	ATR        ID = "ATR"
	Keltner    ID = "KELTNER"
	Donchian   ID = "DONCHIAN"
	ADX        ID = "ADX"
	Aroon      ID = "AROON"
	Supertrend ID = "SUPERTREND"
	PSAR       ID = "PSAR"
	Ichimoku   ID = "ICHIMOKU"
	Volume     ID = "VOLUME"
	OBV        ID = "OBV"
	VWAP       ID = "VWAP"
	Price      ID = "PRICE"
	Candle     ID = "CANDLE"
	FibRetrace ID = "FIB_RETRACE"
	Pivot      ID = "PIVOT"
	Swing      ID = "SWING"
	External   ID = "EXTERNAL"
)

var known = map[ID]bool{
	SMA: true, EMA: true, WMA: true, DEMA: true, TEMA: true,
	RSI: true, Stoch: true, StochRSI: true, CCI: true, Williams: true,
	MFI: true, MACD: true, BB: true, ATR: true, Keltner: true,
	Donchian: true, ADX: true, Aroon: true, Supertrend: true, PSAR: true,
	Ichimoku: true, Volume: true, OBV: true, VWAP: true, Price: true,
	Candle: true, FibRetrace: true, Pivot: true, Swing: true, External: true,
}

// Known reports whether id names a supported indicator family.
func Known(id ID) bool { return known[id] }

// HistoricalOnly reports whether the indicator looks forward within its
// window. Such indicators are for after-the-fact structure analysis and
// must never drive a live entry condition.
func HistoricalOnly(id ID) bool { return id == Swing }

// Params carries the typed parameter set for every indicator family.
// Zero values mean "use the family default".
type Params struct {
	Period      int     `json:"period,omitempty" yaml:"period,omitempty"`
	Source      string  `json:"source,omitempty" yaml:"source,omitempty"`
	Fast        int     `json:"fast,omitempty" yaml:"fast,omitempty"`
	Slow        int     `json:"slow,omitempty" yaml:"slow,omitempty"`
	Signal      int     `json:"signal,omitempty" yaml:"signal,omitempty"`
	KPeriod     int     `json:"k_period,omitempty" yaml:"k_period,omitempty"`
	DPeriod     int     `json:"d_period,omitempty" yaml:"d_period,omitempty"`
	Slowing     int     `json:"slowing,omitempty" yaml:"slowing,omitempty"`
	RSIPeriod   int     `json:"rsi_period,omitempty" yaml:"rsi_period,omitempty"`
	StochPeriod int     `json:"stoch_period,omitempty" yaml:"stoch_period,omitempty"`
	KSmooth     int     `json:"k_smooth,omitempty" yaml:"k_smooth,omitempty"`
	DSmooth     int     `json:"d_smooth,omitempty" yaml:"d_smooth,omitempty"`
	StdDev      float64 `json:"std_dev,omitempty" yaml:"std_dev,omitempty"`
	EMAPeriod   int     `json:"ema_period,omitempty" yaml:"ema_period,omitempty"`
	ATRPeriod   int     `json:"atr_period,omitempty" yaml:"atr_period,omitempty"`
	Multiplier  float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	Tenkan      int     `json:"tenkan,omitempty" yaml:"tenkan,omitempty"`
	Kijun       int     `json:"kijun,omitempty" yaml:"kijun,omitempty"`
	SenkouB     int     `json:"senkou_b,omitempty" yaml:"senkou_b,omitempty"`
	Pattern     string  `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Lookback    int     `json:"lookback,omitempty" yaml:"lookback,omitempty"`
	BufferPips  float64 `json:"buffer_pips,omitempty" yaml:"buffer_pips,omitempty"`
	Level       float64 `json:"level,omitempty" yaml:"level,omitempty"`
	Left        int     `json:"left,omitempty" yaml:"left,omitempty"`
	Right       int     `json:"right,omitempty" yaml:"right,omitempty"`
	Step        float64 `json:"step,omitempty" yaml:"step,omitempty"`
	MaxStep     float64 `json:"max_step,omitempty" yaml:"max_step,omitempty"`
	Name        string  `json:"name,omitempty" yaml:"name,omitempty"`
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orFloat(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

// Result maps output names ("value", "k", "upper", ...) to arrays aligned
// 1:1 with the input candles, NaN during warm-up.
type Result map[string][]float64

// Output returns the named output array, falling back to "value" when name
// is empty.
func (r Result) Output(name string) ([]float64, bool) {
	if name == "" {
		name = "value"
	}
	vals, ok := r[name]
	return vals, ok
}

// Compute evaluates one indicator over the whole series. Output arrays are
// length n with NaN before the warm-up completes; values at index i depend
// only on bars <= i, except for the explicitly historical-only families.
func Compute(s *market.Series, id ID, p Params) (Result, error) {
	o, h, l, c := s.Opens(), s.Highs(), s.Lows(), s.Closes()

	switch id {
	case SMA:
		return Result{"value": sma(source(s, p.Source), orInt(p.Period, 20))}, nil
	case EMA:
		return Result{"value": ema(source(s, p.Source), orInt(p.Period, 20))}, nil
	case WMA:
		return Result{"value": wma(c, orInt(p.Period, 20))}, nil
	case DEMA:
		return Result{"value": dema(c, orInt(p.Period, 20))}, nil
	case TEMA:
		return Result{"value": tema(c, orInt(p.Period, 20))}, nil
	case RSI:
		return Result{"value": rsi(c, orInt(p.Period, 14))}, nil
	case Stoch:
		k, d := stoch(h, l, c, orInt(p.KPeriod, 14), orInt(p.DPeriod, 3), orInt(p.Slowing, 3))
		return Result{"k": k, "d": d}, nil
	case StochRSI:
		return stochRSI(c, p), nil
	case CCI:
		return Result{"value": cci(h, l, c, orInt(p.Period, 20))}, nil
	case Williams:
		return Result{"value": williamsR(h, l, c, orInt(p.Period, 14))}, nil
	case MFI:
		return Result{"value": mfi(h, l, c, s.Volumes(), orInt(p.Period, 14))}, nil
	case MACD:
		line, sig, hist := macd(c, orInt(p.Fast, 12), orInt(p.Slow, 26), orInt(p.Signal, 9))
		return Result{"macd": line, "signal": sig, "histogram": hist}, nil
	case BB:
		u, m, lo, w, pb := bollinger(c, orInt(p.Period, 20), orFloat(p.StdDev, 2.0))
		return Result{"upper": u, "middle": m, "lower": lo, "width": w, "percent_b": pb}, nil
	case ATR:
		return Result{"value": atr(h, l, c, orInt(p.Period, 14))}, nil
	case Keltner:
		u, m, lo := keltner(h, l, c, orInt(p.EMAPeriod, 20), orInt(p.ATRPeriod, 14), orFloat(p.Multiplier, 1.5))
		return Result{"upper": u, "middle": m, "lower": lo}, nil
	case Donchian:
		u, m, lo := donchian(h, l, orInt(p.Period, 20))
		return Result{"upper": u, "middle": m, "lower": lo}, nil
	case ADX:
		a, pdi, mdi := adx(h, l, c, orInt(p.Period, 14))
		return Result{"adx": a, "plus_di": pdi, "minus_di": mdi}, nil
	case Aroon:
		up, down, osc := aroon(h, l, orInt(p.Period, 25))
		return Result{"up": up, "down": down, "oscillator": osc}, nil
	case Supertrend:
		st, dir := supertrend(h, l, c, orInt(p.Period, 10), orFloat(p.Multiplier, 3.0))
		return Result{"value": st, "direction": dir}, nil
	case PSAR:
		value, dir := psar(h, l, orFloat(p.Step, 0.02), orFloat(p.MaxStep, 0.2))
		return Result{"value": value, "direction": dir}, nil
	case Ichimoku:
		return ichimoku(h, l, c, p), nil
	case Volume:
		return Result{"value": s.Volumes()}, nil
	case OBV:
		return Result{"value": obv(c, s.Volumes())}, nil
	case VWAP:
		return Result{"value": vwap(h, l, c, s.Volumes())}, nil
	case Price:
		return Result{"value": source(s, p.Source)}, nil
	case Candle:
		bull, bear := candlePattern(o, h, l, c, p.Pattern)
		return Result{"bullish": bull, "bearish": bear}, nil
	case FibRetrace:
		return Result{"level_price": fibRetrace(h, l, orInt(p.Lookback, 50), orFloat(p.Level, 0.618))}, nil
	case Pivot:
		return pivots(h, l, c), nil
	case Swing:
		hi, lo := swingPoints(h, l, orInt(p.Left, 5), orInt(p.Right, 5))
		return Result{"swing_high": hi, "swing_low": lo}, nil
	case External:
		vals, ok := s.External[p.Name]
		if !ok {
			return nil, fmt.Errorf("indicators: external series %q not attached to run input", p.Name)
		}
		return Result{"value": append([]float64(nil), vals...)}, nil
	}

	return nil, fmt.Errorf("indicators: unknown indicator id %q", id)
}

// source resolves a price source name to a column.
func source(s *market.Series, name string) []float64 {
	switch name {
	case "", "close":
		return s.Closes()
	case "open":
		return s.Opens()
	case "high":
		return s.Highs()
	case "low":
		return s.Lows()
	case "hl2":
		h, l := s.Highs(), s.Lows()
		out := make([]float64, len(h))
		for i := range out {
			out[i] = (h[i] + l[i]) / 2
		}
		return out
	case "hlc3":
		h, l, c := s.Highs(), s.Lows(), s.Closes()
		out := make([]float64, len(h))
		for i := range out {
			out[i] = (h[i] + l[i] + c[i]) / 3
		}
		return out
	}
	return s.Closes()
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
