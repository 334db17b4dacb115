package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction 订单方向
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// OrderType 返回 Bittrex 风格的订单类型（BUY_LIMIT / SELL_LIMIT）
func (d Direction) OrderType() string {
	if d == DirectionSell {
		return "SELL_LIMIT"
	}
	return "BUY_LIMIT"
}

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusOpened   OrderStatus = "opened"   // 挂单中
	OrderStatusCanceled OrderStatus = "canceled" // 已撤销
	OrderStatusFilled   OrderStatus = "filled"   // 已成交（保留状态，当前没有撮合引擎会产生它）
)

// Order 模拟订单
type Order struct {
	ID              string
	Owner           string // 调用方 API key
	Direction       Direction
	Market          string // 真实市场名（BTC-LTC）
	RequestedAmount decimal.Decimal
	RequestedPrice  decimal.Decimal
	ExecutedAmount  decimal.Decimal
	ExecutedPrice   *decimal.Decimal // 成交均价（可选）
	Fee             decimal.Decimal
	Status          OrderStatus
	OpenedAt        time.Time
	ClosedAt        *time.Time // 仅在非 opened 状态下存在
}

// IsOpen 检查订单是否挂单中
func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusOpened
}

// IsClosed 检查订单是否已结束（canceled / filled）
func (o *Order) IsClosed() bool {
	return o.Status == OrderStatusCanceled || o.Status == OrderStatusFilled
}

// QuantityRemaining 未成交数量
func (o *Order) QuantityRemaining() decimal.Decimal {
	return o.RequestedAmount.Sub(o.ExecutedAmount)
}

// Total 已成交金额；没有成交价时为 0
func (o *Order) Total() decimal.Decimal {
	if o.ExecutedPrice == nil {
		return decimal.Zero
	}
	return o.ExecutedAmount.Mul(*o.ExecutedPrice)
}

// Reserved 挂单冻结额 = 价格 * 数量
func (o *Order) Reserved() decimal.Decimal {
	return o.RequestedPrice.Mul(o.RequestedAmount)
}
