package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrepAndTrimSymbol(t *testing.T) {
	for _, s := range []string{"BTC", "LTC", "ETH", "", "1ST", "-"} {
		assert.Equal(t, "T"+s, PrepSymbol(s))
		assert.Equal(t, s, TrimSymbol(PrepSymbol(s)), "round trip %q", s)
	}
}

func TestTrimSymbolIsNoopWithoutMarker(t *testing.T) {
	assert.Equal(t, "BTC", TrimSymbol("BTC"))
	assert.Equal(t, "", TrimSymbol(""))
	// 只去掉一个前缀
	assert.Equal(t, "TBTC", TrimSymbol("TTBTC"))
	assert.Equal(t, TrimSymbol("TBTC"), TrimSymbol(TrimSymbol("TBTC")))
}

func TestMarketRoundTrip(t *testing.T) {
	cases := map[string]string{
		"BTC-LTC":  "TBTC-TLTC",
		"USDT-ETH": "TUSDT-TETH",
		"BTC":      "TBTC",
		"":         "T",
		"A-B-C":    "TA-TB-TC",
		"BTC-":     "TBTC-T",
	}
	for real, testnet := range cases {
		assert.Equal(t, testnet, PrepMarket(real))
		assert.Equal(t, real, TrimMarket(PrepMarket(real)))
	}
}

func TestTrimMarketMalformedInput(t *testing.T) {
	assert.Equal(t, "BTC-LTC", TrimMarket("BTC-LTC"))
	assert.Equal(t, "BTC-LTC", TrimMarket("TBTC-LTC"))
	assert.Equal(t, "--", TrimMarket("T-T-T"))
	assert.Equal(t, "", TrimMarket(""))
}

func TestNamespace(t *testing.T) {
	off := Namespace{}
	assert.Equal(t, "TBTC-TLTC", off.Inbound("TBTC-TLTC"))
	assert.Equal(t, "BTC-LTC", off.Outbound("BTC-LTC"))
	assert.Equal(t, "BTC", off.OutboundSymbol("BTC"))

	on := Namespace{Testnet: true}
	assert.Equal(t, "BTC-LTC", on.Inbound("TBTC-TLTC"))
	assert.Equal(t, "TBTC-TLTC", on.Outbound("BTC-LTC"))
	assert.Equal(t, "TBTC", on.OutboundSymbol("BTC"))
}
