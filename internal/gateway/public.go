package gateway

import (
	"context"

	"github.com/betbot/tradegw/internal/apierr"
)

// 查询参数
const (
	paramMarket       = "market"
	paramType         = "type"
	paramMarketName   = "marketName"
	paramTickInterval = "tickInterval"
	paramQuantity     = "quantity"
	paramRate         = "rate"
	paramUUID         = "uuid"
	paramCurrency     = "currency"
)

const (
	defaultOrderBookType = "both"
	defaultTickInterval  = "day"
)

func (g *Gateway) GetMarkets(ctx context.Context, _ *Request) apierr.Response {
	resp, err := g.market.GetMarkets(ctx)
	return g.relay("getmarkets", resp, err)
}

func (g *Gateway) GetCurrencies(ctx context.Context, _ *Request) apierr.Response {
	resp, err := g.market.GetCurrencies(ctx)
	return g.relay("getcurrencies", resp, err)
}

func (g *Gateway) GetTicker(ctx context.Context, req *Request) apierr.Response {
	resp, err := g.market.GetTicker(ctx, req.Param(paramMarket))
	return g.relay("getticker", resp, err)
}

func (g *Gateway) GetMarketSummaries(ctx context.Context, _ *Request) apierr.Response {
	resp, err := g.market.GetMarketSummaries(ctx)
	return g.relay("getmarketsummaries", resp, err)
}

func (g *Gateway) GetMarketSummary(ctx context.Context, req *Request) apierr.Response {
	resp, err := g.market.GetMarketSummary(ctx, req.Param(paramMarket))
	return g.relay("getmarketsummary", resp, err)
}

// GetOrderBook type 缺省为 both
func (g *Gateway) GetOrderBook(ctx context.Context, req *Request) apierr.Response {
	orderType := req.Param(paramType)
	if orderType == "" {
		orderType = defaultOrderBookType
	}
	resp, err := g.market.GetOrderBook(ctx, req.Param(paramMarket), orderType)
	return g.relay("getorderbook", resp, err)
}

func (g *Gateway) GetMarketHistory(ctx context.Context, req *Request) apierr.Response {
	resp, err := g.market.GetMarketHistory(ctx, req.Param(paramMarket))
	return g.relay("getmarkethistory", resp, err)
}

// GetTicks tickInterval 缺省为 day
func (g *Gateway) GetTicks(ctx context.Context, req *Request) apierr.Response {
	interval := req.Param(paramTickInterval)
	if interval == "" {
		interval = defaultTickInterval
	}
	resp, err := g.market.GetTicks(ctx, req.Param(paramMarketName), interval)
	return g.relay("GetTicks", resp, err)
}
