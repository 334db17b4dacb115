package breaker

import (
	"errors"
	"sync/atomic"
	"time"
)

// ErrOpen 断路器已打开，调用被直接拒绝
var ErrOpen = errors.New("circuit breaker open")

// Config 断路器配置
// 约定：MaxConsecutiveErrors <= 0 表示关闭断路器
type Config struct {
	// MaxConsecutiveErrors 连续失败达到该值后打开
	MaxConsecutiveErrors int64
	// Cooldown 打开后经过该时长放行一次探测请求
	Cooldown time.Duration
}

// CircuitBreaker 上游连续失败时快速失败，冷却后放行探测请求
// 快路径只读原子变量
type CircuitBreaker struct {
	consecutiveErrors atomic.Int64
	openedAt          atomic.Int64 // unix nano，0 表示关闭
	probing           atomic.Bool

	maxConsecutiveErrors int64
	cooldown             time.Duration
	now                  func() time.Time
}

func New(cfg Config) *CircuitBreaker {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		maxConsecutiveErrors: cfg.MaxConsecutiveErrors,
		cooldown:             cfg.Cooldown,
		now:                  time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.now = now
	return cb
}

// Allow 检查是否允许发起调用
// 打开状态下冷却结束后只放行一个探测请求，其结果决定关闭还是继续打开
func (cb *CircuitBreaker) Allow() error {
	if cb == nil || cb.maxConsecutiveErrors <= 0 {
		return nil
	}
	opened := cb.openedAt.Load()
	if opened == 0 {
		return nil
	}
	if cb.now().UnixNano()-opened < int64(cb.cooldown) {
		return ErrOpen
	}
	if cb.probing.CompareAndSwap(false, true) {
		return nil
	}
	return ErrOpen
}

// OnSuccess 调用成功，清空计数并关闭
func (cb *CircuitBreaker) OnSuccess() {
	if cb == nil {
		return
	}
	cb.consecutiveErrors.Store(0)
	cb.openedAt.Store(0)
	cb.probing.Store(false)
}

// OnError 调用失败，累计连续失败次数
func (cb *CircuitBreaker) OnError() {
	if cb == nil || cb.maxConsecutiveErrors <= 0 {
		return
	}
	n := cb.consecutiveErrors.Add(1)
	if cb.probing.Load() || n >= cb.maxConsecutiveErrors {
		// 探测失败时重新计时
		cb.openedAt.Store(cb.now().UnixNano())
		cb.probing.Store(false)
	}
}

// Release 放弃本次调用而不计入结果（请求未真正发出或被调用方取消）
// 若该调用是半开探测，释放探测名额，下一个调用可以重新探测
func (cb *CircuitBreaker) Release() {
	if cb == nil {
		return
	}
	cb.probing.Store(false)
}

// IsOpen 当前是否处于打开状态
func (cb *CircuitBreaker) IsOpen() bool {
	return cb != nil && cb.openedAt.Load() != 0
}
