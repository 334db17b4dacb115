package signing

import (
	"sync"
	"time"
)

// NonceIssuer 按 API key 发放严格递增的毫秒级 nonce
// 同一毫秒内重复请求时在上一个值的基础上 +1
type NonceIssuer struct {
	mu   sync.Mutex
	last map[string]int64
	now  func() time.Time
}

// NewNonceIssuer 创建 nonce 发放器
func NewNonceIssuer() *NonceIssuer {
	return &NonceIssuer{
		last: make(map[string]int64),
		now:  time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (n *NonceIssuer) WithClock(now func() time.Time) *NonceIssuer {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.now = now
	return n
}

// Next 返回 apiKey 的下一个 nonce
func (n *NonceIssuer) Next(apiKey string) int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	nonce := n.now().UnixMilli()
	if last, ok := n.last[apiKey]; ok && nonce <= last {
		// 时钟没走或回拨时沿用上一个值递增
		nonce = last + 1
	}
	n.last[apiKey] = nonce
	return nonce
}
