package symbols

import "strings"

// TestnetMarker 练习网命名空间前缀（BTC -> TBTC）
const TestnetMarker = "T"

const marketSeparator = "-"

// PrepSymbol 把真实币种映射到练习网命名空间
func PrepSymbol(s string) string {
	return TestnetMarker + s
}

// TrimSymbol 去掉练习网前缀；没有前缀时原样返回
func TrimSymbol(s string) string {
	return strings.TrimPrefix(s, TestnetMarker)
}

// PrepMarket 对市场名的每一段分别加前缀（BTC-LTC -> TBTC-TLTC）
func PrepMarket(m string) string {
	return mapLegs(m, PrepSymbol)
}

// TrimMarket 对市场名的每一段分别去前缀（TBTC-TLTC -> BTC-LTC）
func TrimMarket(m string) string {
	return mapLegs(m, TrimSymbol)
}

func mapLegs(m string, fn func(string) string) string {
	legs := strings.Split(m, marketSeparator)
	for i, leg := range legs {
		legs[i] = fn(leg)
	}
	return strings.Join(legs, marketSeparator)
}

// Namespace 根据是否启用练习网符号选择映射方向
type Namespace struct {
	Testnet bool
}

// Inbound 调用方传入的市场名 -> 上游真实市场名
func (n Namespace) Inbound(market string) string {
	if !n.Testnet {
		return market
	}
	return TrimMarket(market)
}

// Outbound 真实市场名 -> 调用方看到的市场名
func (n Namespace) Outbound(market string) string {
	if !n.Testnet {
		return market
	}
	return PrepMarket(market)
}

// OutboundSymbol 真实币种 -> 调用方看到的币种
func (n Namespace) OutboundSymbol(symbol string) string {
	if !n.Testnet {
		return symbol
	}
	return PrepSymbol(symbol)
}
