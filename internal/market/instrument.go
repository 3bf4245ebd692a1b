package market

import "strings"

// Instrument describes the contract terms the simulator needs for a symbol:
// pip size, contract multiplier, pip value per standard lot and lot limits.
type Instrument struct {
	Symbol         string
	PipSize        float64
	Contract       float64 // price units -> account currency per lot
	PipValuePerLot float64 // account currency per pip per 1.0 lot
	MinLot         float64
	MaxLot         float64
	LotStep        float64
}

// Known instrument table. Symbols outside the table fall back to a
// suffix-based pip guess and derived contract size.
var instruments = map[string]Instrument{
	"XAUUSD": {Symbol: "XAUUSD", PipSize: 0.1, PipValuePerLot: 10.0},
	"XAGUSD": {Symbol: "XAGUSD", PipSize: 0.01, PipValuePerLot: 50.0},
	"EURUSD": {Symbol: "EURUSD", PipSize: 0.0001, PipValuePerLot: 10.0},
	"GBPUSD": {Symbol: "GBPUSD", PipSize: 0.0001, PipValuePerLot: 10.0},
	"USDCHF": {Symbol: "USDCHF", PipSize: 0.0001, PipValuePerLot: 10.0},
	"AUDUSD": {Symbol: "AUDUSD", PipSize: 0.0001, PipValuePerLot: 10.0},
	"NZDUSD": {Symbol: "NZDUSD", PipSize: 0.0001, PipValuePerLot: 10.0},
	"USDCAD": {Symbol: "USDCAD", PipSize: 0.0001, PipValuePerLot: 10.0},
	"USDJPY": {Symbol: "USDJPY", PipSize: 0.01, PipValuePerLot: 6.5},
	"EURJPY": {Symbol: "EURJPY", PipSize: 0.01, PipValuePerLot: 6.5},
	"EURGBP": {Symbol: "EURGBP", PipSize: 0.0001, PipValuePerLot: 10.0},
	"BTCUSD": {Symbol: "BTCUSD", PipSize: 1.0, PipValuePerLot: 1.0},
	"US30":   {Symbol: "US30", PipSize: 1.0, PipValuePerLot: 1.0},
	"NAS100": {Symbol: "NAS100", PipSize: 1.0, PipValuePerLot: 1.0},
}

// LookupInstrument resolves the instrument spec for a symbol.
// Unknown symbols get a pip size guessed from the symbol name.
func LookupInstrument(symbol string) Instrument {
	sym := strings.ToUpper(symbol)

	inst, ok := instruments[sym]
	if !ok {
		inst = Instrument{Symbol: sym, PipSize: guessPip(sym), PipValuePerLot: 10.0}
	}

	if inst.Contract == 0 {
		inst.Contract = contractForPip(inst.PipSize)
	}
	if inst.MinLot == 0 {
		inst.MinLot = 0.01
	}
	if inst.MaxLot == 0 {
		inst.MaxLot = 10.0
	}
	if inst.LotStep == 0 {
		inst.LotStep = 0.01
	}
	if inst.PipValuePerLot == 0 {
		inst.PipValuePerLot = 10.0
	}
	return inst
}

func guessPip(sym string) float64 {
	switch {
	case strings.Contains(sym, "JPY"):
		return 0.01
	case strings.Contains(sym, "XAU"), strings.Contains(sym, "GOLD"):
		return 0.1
	case strings.Contains(sym, "BTC"),
		strings.Contains(sym, "US30"),
		strings.Contains(sym, "NAS"),
		strings.Contains(sym, "SPX"):
		return 1.0
	}
	return 0.0001
}

// contractForPip maps pip size to the contract multiplier used when
// converting a price move into account currency per lot.
func contractForPip(pip float64) float64 {
	switch {
	case pip < 0.01:
		return 100000
	case pip < 1:
		return 100
	}
	return 1
}
