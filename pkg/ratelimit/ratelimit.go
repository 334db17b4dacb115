package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 速率限制器接口
type RateLimiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	GetRemaining() int
}

// SlidingWindow 滑动窗口速率限制器
type SlidingWindow struct {
	limit      int           // 限制数量
	windowSize time.Duration // 窗口大小
	requests   []time.Time   // 请求时间戳
	mu         sync.Mutex
	now        func() time.Time
}

// NewSlidingWindow 创建新的滑动窗口速率限制器
func NewSlidingWindow(limit int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:      limit,
		windowSize: windowSize,
		requests:   make([]time.Time, 0, limit),
		now:        time.Now,
	}
}

// prune 移除窗口外的请求，调用方持有锁
func (sw *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-sw.windowSize)
	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}
	sw.requests = sw.requests[i:]
}

// Allow 检查是否允许请求
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.prune(now)

	if len(sw.requests) >= sw.limit {
		return false
	}
	sw.requests = append(sw.requests, now)
	return true
}

// Wait 等待直到允许请求
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		if sw.Allow() {
			return nil
		}

		// 等到最早的请求滑出窗口
		sw.mu.Lock()
		waitTime := 10 * time.Millisecond
		if len(sw.requests) > 0 {
			if d := sw.requests[0].Add(sw.windowSize).Sub(sw.now()); d > waitTime {
				waitTime = d
			}
		}
		sw.mu.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// GetRemaining 获取剩余请求数
func (sw *SlidingWindow) GetRemaining() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.prune(sw.now())
	return max(0, sw.limit-len(sw.requests))
}

// Unlimited 不做限制
type Unlimited struct{}

func (Unlimited) Wait(context.Context) error { return nil }
func (Unlimited) Allow() bool                { return true }
func (Unlimited) GetRemaining() int          { return -1 }

// RateLimitManager 按上游分段管理速率限制器
type RateLimitManager struct {
	limiters map[string]RateLimiter
	fallback RateLimiter
	mu       sync.RWMutex
}

// NewRateLimitManager 创建速率限制管理器
// perSecond <= 0 时不限速
func NewRateLimitManager(perSecond int) *RateLimitManager {
	var fallback RateLimiter = Unlimited{}
	if perSecond > 0 {
		fallback = NewSlidingWindow(perSecond, time.Second)
	}
	return &RateLimitManager{
		limiters: make(map[string]RateLimiter),
		fallback: fallback,
	}
}

// SetLimiter 为指定分段设置独立的限制器
func (rlm *RateLimitManager) SetLimiter(segment string, limiter RateLimiter) {
	rlm.mu.Lock()
	defer rlm.mu.Unlock()
	rlm.limiters[segment] = limiter
}

// GetLimiter 获取指定分段的速率限制器，未单独配置时共享默认限制器
func (rlm *RateLimitManager) GetLimiter(segment string) RateLimiter {
	rlm.mu.RLock()
	defer rlm.mu.RUnlock()

	if limiter, exists := rlm.limiters[segment]; exists {
		return limiter
	}
	return rlm.fallback
}

// Wait 等待直到允许请求
func (rlm *RateLimitManager) Wait(ctx context.Context, segment string) error {
	return rlm.GetLimiter(segment).Wait(ctx)
}
