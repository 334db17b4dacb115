package ports

import (
	"context"

	"github.com/betbot/tradegw/internal/apierr"
)

// Small capability interfaces shared between the gateway and its collaborators.

// MarketData 公共行情（缓存 + 符号改写之后的出站响应）
type MarketData interface {
	GetMarkets(ctx context.Context) (apierr.Response, error)
	GetCurrencies(ctx context.Context) (apierr.Response, error)
	GetTicker(ctx context.Context, market string) (apierr.Response, error)
	GetMarketSummaries(ctx context.Context) (apierr.Response, error)
	GetMarketSummary(ctx context.Context, market string) (apierr.Response, error)
	GetOrderBook(ctx context.Context, market, orderType string) (apierr.Response, error)
	GetMarketHistory(ctx context.Context, market string) (apierr.Response, error)
	GetTicks(ctx context.Context, marketName, tickInterval string) (apierr.Response, error)
}
