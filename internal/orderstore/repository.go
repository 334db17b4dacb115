package orderstore

import (
	"context"
	"time"

	"github.com/betbot/tradegw/internal/domain"
)

// Filter 列表查询条件；Market 为空时不过滤市场
type Filter struct {
	Owner  string
	Status domain.OrderStatus
	Market string
}

// Repository 订单持久化
// 所有读取都按 owner 限定，不存在跨用户查询
type Repository interface {
	// Insert 写入一条新订单
	Insert(ctx context.Context, o *domain.Order) error
	// Get 按 (owner, id) 读取；不存在时返回 nil, nil
	Get(ctx context.Context, owner, id string) (*domain.Order, error)
	// Cancel 条件更新 opened -> canceled；返回是否真的更新了一行
	Cancel(ctx context.Context, owner, id string, closedAt time.Time) (bool, error)
	// List 按 openedAt、id 升序返回
	List(ctx context.Context, f Filter) ([]*domain.Order, error)
	Close() error
}
