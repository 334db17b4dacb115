package gateway

import (
	"context"

	"github.com/betbot/tradegw/internal/apierr"
	"github.com/betbot/tradegw/internal/domain"
	"github.com/betbot/tradegw/internal/orderview"
)

// OrderCreated buylimit/selllimit 的结果
type OrderCreated struct {
	UUID string `json:"uuid"`
}

// BuyLimit 限价买单
func (g *Gateway) BuyLimit(ctx context.Context, req *Request) apierr.Response {
	return g.placeOrder(ctx, "buylimit", domain.DirectionBuy, req)
}

// SellLimit 限价卖单
func (g *Gateway) SellLimit(ctx context.Context, req *Request) apierr.Response {
	return g.placeOrder(ctx, "selllimit", domain.DirectionSell, req)
}

func (g *Gateway) placeOrder(ctx context.Context, op string, direction domain.Direction, req *Request) apierr.Response {
	owner, err := g.authenticate(req)
	if err != nil {
		return g.fail(op, err)
	}
	id, err := g.orders.CreateOrder(ctx, owner, direction, req.Param(paramMarket), req.Param(paramQuantity), req.Param(paramRate))
	if err != nil {
		return g.fail(op, err)
	}
	return apierr.OK(OrderCreated{UUID: id})
}

// Cancel 撤单，成功时 result 为 null
func (g *Gateway) Cancel(ctx context.Context, req *Request) apierr.Response {
	owner, err := g.authenticate(req)
	if err != nil {
		return g.fail("cancel", err)
	}
	return g.respond("cancel", nil, g.orders.CancelOrder(ctx, owner, req.Param(paramUUID)))
}

// GetOpenOrders 调用方的挂单，market 可选
func (g *Gateway) GetOpenOrders(ctx context.Context, req *Request) apierr.Response {
	owner, err := g.authenticate(req)
	if err != nil {
		return g.fail("getopenorders", err)
	}
	orders, err := g.orders.ListOpenOrders(ctx, owner, req.Param(paramMarket))
	if err != nil {
		return g.fail("getopenorders", err)
	}
	return apierr.OK(orderview.OpenList(orders, g.ns))
}

// GetOrder 调用方的单个订单
func (g *Gateway) GetOrder(ctx context.Context, req *Request) apierr.Response {
	owner, err := g.authenticate(req)
	if err != nil {
		return g.fail("getorder", err)
	}
	order, err := g.orders.GetOrder(ctx, owner, req.Param(paramUUID))
	if err != nil {
		return g.fail("getorder", err)
	}
	return apierr.OK(orderview.Single(order, g.ns))
}

// GetOrderHistory 调用方已成交订单，market 可选
func (g *Gateway) GetOrderHistory(ctx context.Context, req *Request) apierr.Response {
	owner, err := g.authenticate(req)
	if err != nil {
		return g.fail("getorderhistory", err)
	}
	orders, err := g.orders.ListFilledOrders(ctx, owner, req.Param(paramMarket))
	if err != nil {
		return g.fail("getorderhistory", err)
	}
	return apierr.OK(orderview.HistoryList(orders, g.ns))
}
