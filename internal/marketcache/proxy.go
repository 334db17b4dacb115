package marketcache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/betbot/tradegw/internal/apierr"
	"github.com/betbot/tradegw/internal/metrics"
	"github.com/betbot/tradegw/pkg/cache"
	"github.com/betbot/tradegw/pkg/logger"
	"github.com/betbot/tradegw/pkg/sdk/bittrex"
	"github.com/betbot/tradegw/pkg/symbols"
)

// TTLs 三档缓存有效期
type TTLs struct {
	Short  time.Duration // ticker / orderbook / markethistory
	Medium time.Duration // markets / currencies / summaries
	Long   time.Duration // ticks
}

// DefaultTTLs 默认有效期
var DefaultTTLs = TTLs{
	Short:  5 * time.Second,
	Medium: 60 * time.Second,
	Long:   time.Hour,
}

// fieldRewrites 字段名 -> 出站改写函数
type fieldRewrites map[string]func(string) string

// rejected 上游返回 success=false；不进缓存，但原样转给调用方
type rejected struct {
	resp apierr.Response
}

func (r *rejected) Error() string {
	return "upstream rejected: " + r.resp.Message
}

// Proxy 公共行情代理：按 endpoint+参数缓存，练习网模式下改写符号
type Proxy struct {
	upstream Upstream
	markets  *MarketCache
	ns       symbols.Namespace

	short  *cache.InMemoryCache[string, apierr.Response]
	medium *cache.InMemoryCache[string, apierr.Response]
	long   *cache.InMemoryCache[string, apierr.Response]
}

// NewProxy 创建行情代理，markets 与下单校验共享同一份市场列表
func NewProxy(upstream Upstream, markets *MarketCache, ttls TTLs, opts ...Option) *Proxy {
	o := buildOptions(opts)
	return &Proxy{
		upstream: upstream,
		markets:  markets,
		ns:       markets.Namespace(),
		short:    newCache[apierr.Response](ttls.Short, o),
		medium:   newCache[apierr.Response](ttls.Medium, o),
		long:     newCache[apierr.Response](ttls.Long, o),
	}
}

// Close 停止后台清理
func (p *Proxy) Close() {
	p.short.Close()
	p.medium.Close()
	p.long.Close()
}

func (p *Proxy) marketRewrites() fieldRewrites {
	if !p.ns.Testnet {
		return nil
	}
	return fieldRewrites{
		"BaseCurrency":   symbols.PrepSymbol,
		"MarketCurrency": symbols.PrepSymbol,
		"MarketName":     symbols.PrepMarket,
	}
}

func (p *Proxy) currencyRewrites() fieldRewrites {
	if !p.ns.Testnet {
		return nil
	}
	return fieldRewrites{"Currency": symbols.PrepSymbol}
}

func (p *Proxy) summaryRewrites() fieldRewrites {
	if !p.ns.Testnet {
		return nil
	}
	return fieldRewrites{"MarketName": symbols.PrepMarket}
}

// GetMarkets 返回市场列表（与 MarketCache 共享同一次拉取）
func (p *Proxy) GetMarkets(ctx context.Context) (apierr.Response, error) {
	listing, err := p.markets.Markets(ctx)
	if err != nil {
		return apierr.Response{}, err
	}
	resp, err := render(listing.Payload, p.marketRewrites())
	if err != nil {
		return apierr.Response{}, apierr.Wrap(apierr.UpstreamUnavailable, err)
	}
	return resp, nil
}

// GetCurrencies 返回币种列表
func (p *Proxy) GetCurrencies(ctx context.Context) (apierr.Response, error) {
	return p.fetch(ctx, p.medium, EndpointCurrencies, "", p.upstream.GetCurrencies, p.currencyRewrites())
}

// GetMarketSummaries 返回所有市场摘要
func (p *Proxy) GetMarketSummaries(ctx context.Context) (apierr.Response, error) {
	return p.fetch(ctx, p.medium, EndpointMarketSummaries, "", p.upstream.GetMarketSummaries, p.summaryRewrites())
}

// GetMarketSummary 返回单个市场摘要
func (p *Proxy) GetMarketSummary(ctx context.Context, market string) (apierr.Response, error) {
	upstreamMarket := p.ns.Inbound(market)
	return p.fetch(ctx, p.medium, EndpointMarketSummary, upstreamMarket, func(ctx context.Context) (*bittrex.Envelope, error) {
		return p.upstream.GetMarketSummary(ctx, upstreamMarket)
	}, p.summaryRewrites())
}

// GetTicker 返回最新价格
func (p *Proxy) GetTicker(ctx context.Context, market string) (apierr.Response, error) {
	upstreamMarket := p.ns.Inbound(market)
	return p.fetch(ctx, p.short, EndpointTicker, upstreamMarket, func(ctx context.Context) (*bittrex.Envelope, error) {
		return p.upstream.GetTicker(ctx, upstreamMarket)
	}, nil)
}

// GetOrderBook 返回订单簿
func (p *Proxy) GetOrderBook(ctx context.Context, market, orderType string) (apierr.Response, error) {
	upstreamMarket := p.ns.Inbound(market)
	return p.fetch(ctx, p.short, EndpointOrderBook, upstreamMarket+"|"+orderType, func(ctx context.Context) (*bittrex.Envelope, error) {
		return p.upstream.GetOrderBook(ctx, upstreamMarket, orderType)
	}, nil)
}

// GetMarketHistory 返回最近成交
func (p *Proxy) GetMarketHistory(ctx context.Context, market string) (apierr.Response, error) {
	upstreamMarket := p.ns.Inbound(market)
	return p.fetch(ctx, p.short, EndpointMarketHistory, upstreamMarket, func(ctx context.Context) (*bittrex.Envelope, error) {
		return p.upstream.GetMarketHistory(ctx, upstreamMarket)
	}, nil)
}

// GetTicks 返回 K 线
func (p *Proxy) GetTicks(ctx context.Context, marketName, tickInterval string) (apierr.Response, error) {
	upstreamMarket := p.ns.Inbound(marketName)
	return p.fetch(ctx, p.long, EndpointTicks, upstreamMarket+"|"+tickInterval, func(ctx context.Context) (*bittrex.Envelope, error) {
		return p.upstream.GetTicks(ctx, upstreamMarket, tickInterval)
	}, nil)
}

func (p *Proxy) fetch(
	ctx context.Context,
	c *cache.InMemoryCache[string, apierr.Response],
	endpoint, args string,
	call func(ctx context.Context) (*bittrex.Envelope, error),
	rewrites fieldRewrites,
) (apierr.Response, error) {
	resp, hit, err := c.GetOrLoad(ctx, endpoint+"?"+args, func(ctx context.Context) (apierr.Response, error) {
		env, err := call(ctx)
		metrics.ObserveUpstream(endpoint, err)
		if err != nil {
			logger.WithField("endpoint", endpoint).Warnf("上游请求失败: %v", err)
			return apierr.Response{}, apierr.Wrap(apierr.UpstreamUnavailable, err)
		}
		out, err := render(env, rewrites)
		if err != nil {
			logger.WithField("endpoint", endpoint).Warnf("上游响应无法解析: %v", err)
			return apierr.Response{}, apierr.Wrap(apierr.UpstreamUnavailable, err)
		}
		if !env.Success {
			return apierr.Response{}, &rejected{resp: out}
		}
		logger.WithField("endpoint", endpoint).Debugf("缓存已刷新: %s (写入前 %d 项)", args, c.Size())
		return out, nil
	})
	metrics.ObserveCache(endpoint, hit)

	var rej *rejected
	if errors.As(err, &rej) {
		return rej.resp, nil
	}
	return resp, abandoned(err)
}

// abandoned 调用方放弃等待时 GetOrLoad 返回的是 ctx 错误，统一按上游不可用返回
func abandoned(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apierr.Wrap(apierr.UpstreamUnavailable, err)
	}
	return err
}

// render 把上游响应转成出站响应；rewrites 为空时 result 原样透传
func render(env *bittrex.Envelope, rewrites fieldRewrites) (apierr.Response, error) {
	out := apierr.Response{Success: env.Success, Message: env.Message, Result: env.Result}
	if len(rewrites) == 0 || len(env.Result) == 0 {
		return out, nil
	}

	// UseNumber 保证数值原样输出，不经过 float64
	dec := json.NewDecoder(bytes.NewReader(env.Result))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return apierr.Response{}, fmt.Errorf("解析上游 result 失败: %w", err)
	}
	out.Result = applyRewrites(v, rewrites)
	return out, nil
}

// applyRewrites 对列表中的每条记录（或单条记录）改写指定字段
func applyRewrites(v any, rewrites fieldRewrites) any {
	switch t := v.(type) {
	case []any:
		for i, item := range t {
			t[i] = applyRewrites(item, rewrites)
		}
		return t
	case map[string]any:
		for field, fn := range rewrites {
			if s, ok := t[field].(string); ok {
				t[field] = fn(s)
			}
		}
		return t
	default:
		return v
	}
}
