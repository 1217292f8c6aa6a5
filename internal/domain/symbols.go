package domain

import "strings"

// quoteAssets lists the quote assets recognized when splitting an exchange
// symbol, highest priority first. USDT is checked before BTC so that
// "BTCUSDT" splits as BTC/USDT and "ETHBTC" as ETH/BTC.
var quoteAssets = []string{
	"USDT", "FDUSD", "USDC", "BUSD", "TUSD",
	"BTC", "ETH", "BNB", "DAI", "TRY", "EUR",
}

// ToWireSymbol converts a display symbol ("BTC/USDT") to the exchange wire
// form ("BTCUSDT"). Symbols already in wire form pass through unchanged.
func ToWireSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	return strings.ReplaceAll(s, "/", "")
}

// FromWireSymbol converts an exchange symbol ("BTCUSDT") to the display form
// ("BTC/USDT") by matching the highest-priority quote asset suffix. Symbols
// with no recognized quote asset are returned unchanged.
func FromWireSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(s, "/") {
		return s
	}
	for _, quote := range quoteAssets {
		if len(s) > len(quote) && strings.HasSuffix(s, quote) {
			return s[:len(s)-len(quote)] + "/" + quote
		}
	}
	return s
}
