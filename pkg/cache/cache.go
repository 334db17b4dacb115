package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader 缓存未命中时的回源函数
type Loader[V any] func(ctx context.Context) (V, error)

// InMemoryCache 内存缓存实现
type InMemoryCache[K comparable, V any] struct {
	items      map[K]*cacheItem[V]
	mu         sync.RWMutex
	defaultTTL time.Duration
	now        func() time.Time

	group singleflight.Group
	keyFn func(K) string

	stopOnce sync.Once
	stop     chan struct{}
}

// cacheItem 缓存项
type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// Option 缓存选项
type Option[K comparable, V any] func(c *InMemoryCache[K, V])

// WithClock 替换时钟（测试用）
func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *InMemoryCache[K, V]) {
		c.now = now
	}
}

// WithoutCleanup 不启动后台清理 goroutine
func WithoutCleanup[K comparable, V any]() Option[K, V] {
	return func(c *InMemoryCache[K, V]) {
		c.stopOnce.Do(func() { close(c.stop) })
	}
}

// NewInMemoryCache 创建新的内存缓存
// keyFn 把 key 转成 singleflight 的分组键
func NewInMemoryCache[K comparable, V any](defaultTTL time.Duration, keyFn func(K) string, opts ...Option[K, V]) *InMemoryCache[K, V] {
	c := &InMemoryCache[K, V]{
		items:      make(map[K]*cacheItem[V]),
		defaultTTL: defaultTTL,
		now:        time.Now,
		keyFn:      keyFn,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	select {
	case <-c.stop:
	default:
		// 启动清理 goroutine
		go c.startCleanup()
	}

	return c
}

// Get 获取缓存值，过期项视为不存在
func (c *InMemoryCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || !c.now().Before(item.expiresAt) {
		var zero V
		return zero, false
	}
	return item.value, true
}

// Set 设置缓存值，ttl 为 0 时使用默认 TTL
func (c *InMemoryCache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	c.items[key] = &cacheItem[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

// GetOrLoad 命中直接返回；未命中时同一个 key 只会有一个 loader 在执行
// 返回值 hit 表示是否命中缓存。loader 出错时不写缓存。
// loader 不随某个调用方取消，超时由 loader 自己控制；每个调用方只按自己的 ctx 放弃等待。
func (c *InMemoryCache[K, V]) GetOrLoad(ctx context.Context, key K, loader Loader[V]) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(c.keyFn(key), func() (interface{}, error) {
		// 等待期间其他调用可能已经写入
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := loader(loadCtx)
		if err != nil {
			return v, err
		}
		c.Set(key, v, 0)
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(V), false, nil
	}
}

// Size 获取缓存大小（包含尚未清理的过期项）
func (c *InMemoryCache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close 停止后台清理
func (c *InMemoryCache[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// startCleanup 启动清理 goroutine（定期清理过期项）
func (c *InMemoryCache[K, V]) startCleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup 清理过期项
func (c *InMemoryCache[K, V]) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if !now.Before(item.expiresAt) {
			delete(c.items, key)
		}
	}
}
