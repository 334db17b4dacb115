package marketcache

import (
	"context"

	"github.com/betbot/tradegw/pkg/sdk/bittrex"
)

// Upstream 行情数据来源（*bittrex.Client 实现）
type Upstream interface {
	GetMarkets(ctx context.Context) (*bittrex.Envelope, error)
	GetCurrencies(ctx context.Context) (*bittrex.Envelope, error)
	GetTicker(ctx context.Context, market string) (*bittrex.Envelope, error)
	GetMarketSummaries(ctx context.Context) (*bittrex.Envelope, error)
	GetMarketSummary(ctx context.Context, market string) (*bittrex.Envelope, error)
	GetOrderBook(ctx context.Context, market, orderType string) (*bittrex.Envelope, error)
	GetMarketHistory(ctx context.Context, market string) (*bittrex.Envelope, error)
	GetTicks(ctx context.Context, marketName, tickInterval string) (*bittrex.Envelope, error)
}

// Endpoint 名称，同时用作缓存键前缀和指标标签
const (
	EndpointMarkets         = "getmarkets"
	EndpointCurrencies      = "getcurrencies"
	EndpointTicker          = "getticker"
	EndpointMarketSummaries = "getmarketsummaries"
	EndpointMarketSummary   = "getmarketsummary"
	EndpointOrderBook       = "getorderbook"
	EndpointMarketHistory   = "getmarkethistory"
	EndpointTicks           = "GetTicks"
)

var _ Upstream = (*bittrex.Client)(nil)
