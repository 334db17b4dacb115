package metrics

import "expvar"

var (
	// 行情缓存命中/未命中，按 endpoint 分组
	CacheHits   = expvar.NewMap("cache_hits")
	CacheMisses = expvar.NewMap("cache_misses")

	// 上游调用，按 endpoint 分组
	UpstreamRequests = expvar.NewMap("upstream_requests")
	UpstreamErrors   = expvar.NewMap("upstream_errors")

	// 入站请求失败，按错误码分组
	RequestFailures = expvar.NewMap("request_failures")

	OrdersCreated  = expvar.NewInt("orders_created")
	OrdersCanceled = expvar.NewInt("orders_canceled")
)

// ObserveCache 记录一次缓存访问
func ObserveCache(endpoint string, hit bool) {
	if hit {
		CacheHits.Add(endpoint, 1)
		return
	}
	CacheMisses.Add(endpoint, 1)
}

// ObserveUpstream 记录一次上游调用
func ObserveUpstream(endpoint string, err error) {
	UpstreamRequests.Add(endpoint, 1)
	if err != nil {
		UpstreamErrors.Add(endpoint, 1)
	}
}
