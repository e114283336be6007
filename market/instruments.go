package market

// InstrumentMeta describes a perpetual market the tooling knows about.
// The engine itself accepts any symbol; config validation uses this table.
type InstrumentMeta struct {
	Symbol      string
	Base        string
	Quote       string
	MaxLeverage float64
	MinSize     float64
}

var Instruments = map[string]InstrumentMeta{
	"BTC-USD": {
		Symbol:      "BTC-USD",
		Base:        "BTC",
		Quote:       "USD",
		MaxLeverage: 50,
		MinSize:     0.0001,
	},
	"ETH-USD": {
		Symbol:      "ETH-USD",
		Base:        "ETH",
		Quote:       "USD",
		MaxLeverage: 50,
		MinSize:     0.001,
	},
	"SOL-USD": {
		Symbol:      "SOL-USD",
		Base:        "SOL",
		Quote:       "USD",
		MaxLeverage: 20,
		MinSize:     0.01,
	},
}

// Lookup returns the metadata for symbol.
func Lookup(symbol string) (InstrumentMeta, bool) {
	m, ok := Instruments[symbol]
	return m, ok
}
