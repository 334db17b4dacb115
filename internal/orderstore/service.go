package orderstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/tradegw/internal/apierr"
	"github.com/betbot/tradegw/internal/domain"
	"github.com/betbot/tradegw/internal/metrics"
	"github.com/betbot/tradegw/pkg/logger"
)

// MinTradeValue 最小名义价值（数量 * 价格），低于此值视为粉尘单
var MinTradeValue = decimal.RequireFromString("0.001")

// MarketResolver 校验调用方传入的市场名并返回真实市场
type MarketResolver interface {
	Market(ctx context.Context, name string, optional bool) (*domain.Market, error)
}

// Service 模拟订单的生命周期：下单、撤单、查询
type Service struct {
	repo    Repository
	markets MarketResolver
	now     func() time.Time
	newID   func() string
}

// ServiceOption 选项
type ServiceOption func(*Service)

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator 替换订单 id 生成器（测试用）
func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) { s.newID = fn }
}

func NewService(repo Repository, markets MarketResolver, opts ...ServiceOption) *Service {
	s := &Service{
		repo:    repo,
		markets: markets,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder 校验并写入一笔 opened 订单，返回订单 id
// 校验顺序：市场 -> 数量 -> 价格 -> 最小交易量 -> 最小名义价值
func (s *Service) CreateOrder(ctx context.Context, owner string, direction domain.Direction, market, quantity, rate string) (string, error) {
	m, err := s.markets.Market(ctx, market, false)
	if err != nil {
		return "", err
	}

	if quantity == "" {
		return "", apierr.New(apierr.QuantityNotProvided)
	}
	amount, err := decimal.NewFromString(quantity)
	if err != nil {
		return "", apierr.Wrap(apierr.QuantityInvalid, err)
	}

	if rate == "" {
		return "", apierr.New(apierr.RateNotProvided)
	}
	price, err := decimal.NewFromString(rate)
	if err != nil {
		return "", apierr.Wrap(apierr.RateInvalid, err)
	}

	if amount.LessThan(m.MinTradeSize) {
		return "", apierr.New(apierr.MinTradeRequirementNotMet)
	}
	if amount.Mul(price).LessThan(MinTradeValue) {
		return "", apierr.New(apierr.DustTradeDisallowedMinValue50KSat)
	}

	order := &domain.Order{
		ID:              s.newID(),
		Owner:           owner,
		Direction:       direction,
		Market:          m.Name,
		RequestedAmount: amount,
		RequestedPrice:  price,
		ExecutedAmount:  decimal.Zero,
		Fee:             decimal.Zero,
		Status:          domain.OrderStatusOpened,
		OpenedAt:        s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, order); err != nil {
		logger.Errorf("写入订单失败: %v", err)
		return "", apierr.Wrap(apierr.InternalError, err)
	}

	metrics.OrdersCreated.Add(1)
	logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"owner":    owner,
		"market":   order.Market,
		"side":     string(direction),
		"amount":   amount.String(),
		"price":    price.String(),
	}).Info("订单已创建")
	return order.ID, nil
}

// CancelOrder 撤销调用方自己的 opened 订单
func (s *Service) CancelOrder(ctx context.Context, owner, id string) error {
	order, err := s.lookup(ctx, owner, id)
	if err != nil {
		return err
	}
	if !order.IsOpen() {
		return apierr.New(apierr.OrderNotOpen)
	}

	ok, err := s.repo.Cancel(ctx, owner, order.ID, s.now().UTC())
	if err != nil {
		logger.Errorf("撤销订单失败: %v", err)
		return apierr.Wrap(apierr.InternalError, err)
	}
	if !ok {
		// 读取之后被并发撤销
		return apierr.New(apierr.OrderNotOpen)
	}

	metrics.OrdersCanceled.Add(1)
	logger.WithFields(logrus.Fields{"order_id": order.ID, "owner": owner}).Info("订单已撤销")
	return nil
}

// GetOrder 查询调用方自己的订单；其他用户的订单与不存在的订单无法区分
func (s *Service) GetOrder(ctx context.Context, owner, id string) (*domain.Order, error) {
	return s.lookup(ctx, owner, id)
}

// ListOpenOrders 列出挂单，market 可选
func (s *Service) ListOpenOrders(ctx context.Context, owner, market string) ([]*domain.Order, error) {
	return s.list(ctx, owner, domain.OrderStatusOpened, market)
}

// ListFilledOrders 列出已成交订单，market 可选
func (s *Service) ListFilledOrders(ctx context.Context, owner, market string) ([]*domain.Order, error) {
	return s.list(ctx, owner, domain.OrderStatusFilled, market)
}

func (s *Service) list(ctx context.Context, owner string, status domain.OrderStatus, market string) ([]*domain.Order, error) {
	m, err := s.markets.Market(ctx, market, true)
	if err != nil {
		return nil, err
	}
	f := Filter{Owner: owner, Status: status}
	if m != nil {
		f.Market = m.Name
	}
	orders, err := s.repo.List(ctx, f)
	if err != nil {
		logger.Errorf("查询订单列表失败: %v", err)
		return nil, apierr.Wrap(apierr.InternalError, err)
	}
	return orders, nil
}

func (s *Service) lookup(ctx context.Context, owner, id string) (*domain.Order, error) {
	if id == "" {
		return nil, apierr.New(apierr.UUIDNotProvided)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apierr.Wrap(apierr.UUIDInvalid, err)
	}

	order, err := s.repo.Get(ctx, owner, parsed.String())
	if err != nil {
		logger.Errorf("查询订单失败: %v", err)
		return nil, apierr.Wrap(apierr.InternalError, err)
	}
	if order == nil {
		return nil, apierr.New(apierr.InvalidOrder)
	}
	return order, nil
}
