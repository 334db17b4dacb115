package domain

import "github.com/shopspring/decimal"

// Market 上游交易所的交易对
type Market struct {
	Name           string          `json:"MarketName"`
	BaseCurrency   string          `json:"BaseCurrency"`
	MarketCurrency string          `json:"MarketCurrency"`
	MinTradeSize   decimal.Decimal `json:"MinTradeSize"`
	IsActive       bool            `json:"IsActive"`
}

// IsValid 验证市场是否有效
func (m *Market) IsValid() bool {
	return m.Name != "" && m.BaseCurrency != "" && m.MarketCurrency != ""
}
