package orderview

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/betbot/tradegw/internal/domain"
	"github.com/betbot/tradegw/pkg/symbols"
)

func init() {
	// 金额按 JSON 数字输出，与上游一致
	decimal.MarshalJSONWithoutQuotes = true
}

// FeeRate 固定手续费率
var FeeRate = decimal.RequireFromString("0.0025")

// TimeLayout 时间格式（毫秒精度，UTC，无时区后缀）
const TimeLayout = "2006-01-02T15:04:05.000"

const conditionNone = "NONE"

// OpenOrder getopenorders 的单条记录
type OpenOrder struct {
	Uuid              *string          `json:"Uuid"`
	OrderUuid         string           `json:"OrderUuid"`
	Exchange          string           `json:"Exchange"`
	OrderType         string           `json:"OrderType"`
	Quantity          decimal.Decimal  `json:"Quantity"`
	QuantityRemaining decimal.Decimal  `json:"QuantityRemaining"`
	Limit             decimal.Decimal  `json:"Limit"`
	CommissionPaid    decimal.Decimal  `json:"CommissionPaid"`
	Price             decimal.Decimal  `json:"Price"`
	PricePerUnit      *decimal.Decimal `json:"PricePerUnit"`
	Opened            string           `json:"Opened"`
	Closed            *string          `json:"Closed"`
	CancelInitiated   bool             `json:"CancelInitiated"`
	ImmediateOrCancel bool             `json:"ImmediateOrCancel"`
	IsConditional     bool             `json:"IsConditional"`
	Condition         string           `json:"Condition"`
	ConditionTarget   *string          `json:"ConditionTarget"`
}

// HistoryOrder getorderhistory 的单条记录
type HistoryOrder struct {
	OrderUuid         string           `json:"OrderUuid"`
	Exchange          string           `json:"Exchange"`
	TimeStamp         string           `json:"TimeStamp"`
	OrderType         string           `json:"OrderType"`
	Limit             decimal.Decimal  `json:"Limit"`
	Quantity          decimal.Decimal  `json:"Quantity"`
	QuantityRemaining decimal.Decimal  `json:"QuantityRemaining"`
	Commission        decimal.Decimal  `json:"Commission"`
	Price             decimal.Decimal  `json:"Price"`
	PricePerUnit      *decimal.Decimal `json:"PricePerUnit"`
	Closed            *string          `json:"Closed"`
	ImmediateOrCancel bool             `json:"ImmediateOrCancel"`
	IsConditional     bool             `json:"IsConditional"`
	Condition         string           `json:"Condition"`
	ConditionTarget   *string          `json:"ConditionTarget"`
}

// SingleOrder getorder 的结果
type SingleOrder struct {
	AccountId                  *string         `json:"AccountId"`
	OrderUuid                  string          `json:"OrderUuid"`
	Exchange                   string          `json:"Exchange"`
	Type                       string          `json:"Type"`
	Quantity                   decimal.Decimal `json:"Quantity"`
	QuantityRemaining          decimal.Decimal `json:"QuantityRemaining"`
	Limit                      decimal.Decimal `json:"Limit"`
	Reserved                   decimal.Decimal `json:"Reserved"`
	ReserveRemaining           decimal.Decimal `json:"ReserveRemaining"`
	CommissionReserved         decimal.Decimal `json:"CommissionReserved"`
	CommissionReserveRemaining decimal.Decimal `json:"CommissionReserveRemaining"`
	CommissionPaid             decimal.Decimal `json:"CommissionPaid"`
	Price                      decimal.Decimal `json:"Price"`
	// PricePerUnit 与列表视图不同：没有成交价时输出 0 而不是 null
	PricePerUnit      decimal.Decimal `json:"PricePerUnit"`
	Opened            string          `json:"Opened"`
	Closed            *string         `json:"Closed"`
	IsOpen            bool            `json:"IsOpen"`
	Sentinel          string          `json:"Sentinel"`
	CancelInitiated   bool            `json:"CancelInitiated"`
	ImmediateOrCancel bool            `json:"ImmediateOrCancel"`
	IsConditional     bool            `json:"IsConditional"`
	Condition         string          `json:"Condition"`
	ConditionTarget   *string         `json:"ConditionTarget"`
}

// FormatTime 按 TimeLayout 输出 UTC 时间
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func formatClosed(o *domain.Order) *string {
	if o.ClosedAt == nil || !o.IsClosed() {
		return nil
	}
	s := FormatTime(*o.ClosedAt)
	return &s
}

// Open 挂单视图
func Open(o *domain.Order, ns symbols.Namespace) OpenOrder {
	return OpenOrder{
		OrderUuid:         o.ID,
		Exchange:          ns.Outbound(o.Market),
		OrderType:         o.Direction.OrderType(),
		Quantity:          o.RequestedAmount,
		QuantityRemaining: o.QuantityRemaining(),
		Limit:             o.RequestedPrice,
		CommissionPaid:    o.Fee,
		Price:             decimal.Zero,
		PricePerUnit:      nil,
		Opened:            FormatTime(o.OpenedAt),
		Closed:            nil,
		Condition:         conditionNone,
	}
}

// History 历史订单视图
func History(o *domain.Order, ns symbols.Namespace) HistoryOrder {
	return HistoryOrder{
		OrderUuid:         o.ID,
		Exchange:          ns.Outbound(o.Market),
		TimeStamp:         FormatTime(o.OpenedAt),
		OrderType:         o.Direction.OrderType(),
		Limit:             o.RequestedPrice,
		Quantity:          o.RequestedAmount,
		QuantityRemaining: o.QuantityRemaining(),
		Commission:        o.Fee,
		Price:             o.Total(),
		PricePerUnit:      o.ExecutedPrice,
		Closed:            formatClosed(o),
		Condition:         conditionNone,
	}
}

// Single 单个订单视图，附带冻结额与手续费预留
func Single(o *domain.Order, ns symbols.Namespace) SingleOrder {
	reserved := o.Reserved()
	commissionReserved := reserved.Mul(FeeRate)

	var pricePerUnit decimal.Decimal
	if o.ExecutedPrice != nil {
		pricePerUnit = *o.ExecutedPrice
	}

	return SingleOrder{
		OrderUuid:                  o.ID,
		Exchange:                   ns.Outbound(o.Market),
		Type:                       o.Direction.OrderType(),
		Quantity:                   o.RequestedAmount,
		QuantityRemaining:          o.QuantityRemaining(),
		Limit:                      o.RequestedPrice,
		Reserved:                   reserved,
		ReserveRemaining:           reserved.Sub(o.ExecutedAmount.Mul(o.RequestedPrice)),
		CommissionReserved:         commissionReserved,
		CommissionReserveRemaining: commissionReserved.Sub(o.Fee),
		CommissionPaid:             o.Fee,
		Price:                      o.Total(),
		PricePerUnit:               pricePerUnit,
		Opened:                     FormatTime(o.OpenedAt),
		Closed:                     formatClosed(o),
		IsOpen:                     o.IsOpen(),
		Sentinel:                   uuid.NewString(),
		Condition:                  conditionNone,
	}
}

// OpenList 批量挂单视图；空列表输出 []
func OpenList(orders []*domain.Order, ns symbols.Namespace) []OpenOrder {
	out := make([]OpenOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, Open(o, ns))
	}
	return out
}

// HistoryList 批量历史视图；空列表输出 []
func HistoryList(orders []*domain.Order, ns symbols.Namespace) []HistoryOrder {
	out := make([]HistoryOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, History(o, ns))
	}
	return out
}
