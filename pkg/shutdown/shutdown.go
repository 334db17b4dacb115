package shutdown

import (
	"context"
	"sync"

	"github.com/betbot/tradegw/pkg/logger"
)

// Handler 关闭处理函数
type Handler func(ctx context.Context) error

type namedHandler struct {
	name string
	fn   Handler
}

// Manager 优雅关闭管理器
// 回调按注册的逆序依次执行：先停入口（HTTP），再关存储
type Manager struct {
	callbacks []namedHandler
	mu        sync.Mutex
	once      sync.Once
}

// NewManager 创建新的关闭管理器
func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown 注册关闭回调
func (m *Manager) OnShutdown(name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, namedHandler{name: name, fn: handler})
}

// Shutdown 执行所有关闭回调（阻塞调用，只生效一次）
// ctx 应该是一个带超时的 context，避免无限等待
func (m *Manager) Shutdown(ctx context.Context) {
	m.once.Do(func() {
		m.mu.Lock()
		callbacks := make([]namedHandler, len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.Unlock()

		if len(callbacks) == 0 {
			logger.Info("没有注册的关闭回调")
			return
		}

		logger.Infof("开始优雅关闭，共 %d 个回调", len(callbacks))
		for i := len(callbacks) - 1; i >= 0; i-- {
			cb := callbacks[i]
			if ctx.Err() != nil {
				logger.Warnf("关闭超时，跳过 %s: %v", cb.name, ctx.Err())
				continue
			}
			if err := cb.fn(ctx); err != nil {
				logger.Warnf("关闭 %s 失败: %v", cb.name, err)
				continue
			}
			logger.Debugf("已关闭 %s", cb.name)
		}
		logger.Info("所有关闭回调已完成")
	})
}
