package marketcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/betbot/tradegw/internal/apierr"
	"github.com/betbot/tradegw/internal/domain"
	"github.com/betbot/tradegw/internal/metrics"
	"github.com/betbot/tradegw/pkg/cache"
	"github.com/betbot/tradegw/pkg/logger"
	"github.com/betbot/tradegw/pkg/sdk/bittrex"
	"github.com/betbot/tradegw/pkg/symbols"
)

// Listing 一次 getmarkets 拉取的不可变快照
type Listing struct {
	// Payload 上游原始响应（真实市场名）
	Payload *bittrex.Envelope
	byName  map[string]domain.Market
}

func newListing(env *bittrex.Envelope) (*Listing, error) {
	var markets []domain.Market
	if len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, &markets); err != nil {
			return nil, fmt.Errorf("解析 getmarkets 结果失败: %w", err)
		}
	}
	byName := make(map[string]domain.Market, len(markets))
	for _, m := range markets {
		// 缺少市场名或币种的条目无法用于下单校验
		if !m.IsValid() {
			continue
		}
		byName[m.Name] = m
	}
	return &Listing{Payload: env, byName: byName}, nil
}

// Lookup 按真实市场名查找
func (l *Listing) Lookup(name string) (domain.Market, bool) {
	m, ok := l.byName[name]
	return m, ok
}

// Len 市场数量
func (l *Listing) Len() int {
	return len(l.byName)
}

// MarketCache 缓存上游市场列表，用于下单时校验市场和最小交易量
type MarketCache struct {
	upstream Upstream
	ns       symbols.Namespace
	listings *cache.InMemoryCache[string, *Listing]
}

// Option MarketCache 选项
type Option func(*options)

type options struct {
	now     func() time.Time
	cleanup bool
}

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithoutCleanup 不启动缓存的后台清理 goroutine
func WithoutCleanup() Option {
	return func(o *options) { o.cleanup = false }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, cleanup: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newCache[V any](ttl time.Duration, o options) *cache.InMemoryCache[string, V] {
	copts := []cache.Option[string, V]{cache.WithClock[string, V](o.now)}
	if !o.cleanup {
		copts = append(copts, cache.WithoutCleanup[string, V]())
	}
	return cache.NewInMemoryCache[string, V](ttl, func(k string) string { return k }, copts...)
}

// NewMarketCache 创建市场列表缓存，ttl 为列表的有效期
func NewMarketCache(upstream Upstream, ns symbols.Namespace, ttl time.Duration, opts ...Option) *MarketCache {
	o := buildOptions(opts)
	return &MarketCache{
		upstream: upstream,
		ns:       ns,
		listings: newCache[*Listing](ttl, o),
	}
}

// Markets 返回当前有效的市场列表；过期后由一个调用者回源，其余调用者共享结果
func (m *MarketCache) Markets(ctx context.Context) (*Listing, error) {
	listing, hit, err := m.listings.GetOrLoad(ctx, EndpointMarkets, func(ctx context.Context) (*Listing, error) {
		env, err := m.upstream.GetMarkets(ctx)
		metrics.ObserveUpstream(EndpointMarkets, err)
		if err != nil {
			logger.WithField("endpoint", EndpointMarkets).Warnf("拉取市场列表失败: %v", err)
			return nil, apierr.Wrap(apierr.UpstreamUnavailable, err)
		}
		if !env.Success {
			logger.WithField("endpoint", EndpointMarkets).Warnf("上游拒绝市场列表请求: %s", env.Message)
			return nil, apierr.Wrap(apierr.UpstreamUnavailable, fmt.Errorf("getmarkets: %s", env.Message))
		}
		listing, err := newListing(env)
		if err != nil {
			return nil, apierr.Wrap(apierr.UpstreamUnavailable, err)
		}
		logger.Debugf("市场列表已刷新: %d 个市场", listing.Len())
		return listing, nil
	})
	metrics.ObserveCache(EndpointMarkets, hit)
	return listing, abandoned(err)
}

// Market 校验并返回市场
// name 为调用方命名空间下的市场名；optional 时空名返回 nil
func (m *MarketCache) Market(ctx context.Context, name string, optional bool) (*domain.Market, error) {
	if name == "" {
		if optional {
			return nil, nil
		}
		return nil, apierr.New(apierr.MarketNotProvided)
	}

	listing, err := m.Markets(ctx)
	if err != nil {
		return nil, err
	}
	market, ok := listing.Lookup(m.ns.Inbound(name))
	if !ok {
		return nil, apierr.New(apierr.InvalidMarket)
	}
	return &market, nil
}

// Namespace 返回调用方命名空间
func (m *MarketCache) Namespace() symbols.Namespace {
	return m.ns
}

// Close 停止后台清理
func (m *MarketCache) Close() {
	m.listings.Close()
}
