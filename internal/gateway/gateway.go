package gateway

import (
	"context"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/betbot/tradegw/internal/apierr"
	"github.com/betbot/tradegw/internal/domain"
	"github.com/betbot/tradegw/internal/metrics"
	"github.com/betbot/tradegw/internal/ports"
	"github.com/betbot/tradegw/pkg/logger"
	"github.com/betbot/tradegw/pkg/signing"
	"github.com/betbot/tradegw/pkg/symbols"
)

// Request 一次入站调用
type Request struct {
	// URL 调用方请求的完整 URL（含查询串），签名覆盖的就是它
	URL     string
	Params  url.Values
	APISign string
}

// Param 读取查询参数，缺失时为空串
func (r *Request) Param(name string) string {
	if r == nil || r.Params == nil {
		return ""
	}
	return r.Params.Get(name)
}

// OrderService 模拟订单（*orderstore.Service 实现）
type OrderService interface {
	CreateOrder(ctx context.Context, owner string, direction domain.Direction, market, quantity, rate string) (string, error)
	CancelOrder(ctx context.Context, owner, id string) error
	GetOrder(ctx context.Context, owner, id string) (*domain.Order, error)
	ListOpenOrders(ctx context.Context, owner, market string) ([]*domain.Order, error)
	ListFilledOrders(ctx context.Context, owner, market string) ([]*domain.Order, error)
}

// Options 可选协作者与开关
type Options struct {
	// Keys 为空时 secret 等于 API key
	Keys ports.KeyLookup
	// RequireRegisteredKeys 未注册的 key 返回 APIKEY_INVALID
	RequireRegisteredKeys bool

	// Account 上游 account 接口；为空或无凭证时 account 操作返回空结果
	Account          ports.AccountUpstream
	Passthrough      bool
	InfiniteBalances bool
}

// Gateway 入站操作的统一入口，每个操作都返回 {success, message, result}
type Gateway struct {
	market ports.MarketData
	orders OrderService
	ns     symbols.Namespace
	opts   Options
}

func New(market ports.MarketData, orders OrderService, ns symbols.Namespace, opts Options) *Gateway {
	return &Gateway{
		market: market,
		orders: orders,
		ns:     ns,
		opts:   opts,
	}
}

// authenticate 校验 nonce/apikey/apisign，返回调用方 API key
func (g *Gateway) authenticate(req *Request) (string, error) {
	if req.Param(signing.ParamNonce) == "" {
		return "", apierr.New(apierr.NonceNotProvided)
	}
	apiKey := req.Param(signing.ParamAPIKey)
	if apiKey == "" {
		return "", apierr.New(apierr.APIKeyNotProvided)
	}
	if req.APISign == "" {
		return "", apierr.New(apierr.APISignNotProvided)
	}

	secret, err := g.secretFor(apiKey)
	if err != nil {
		return "", err
	}
	if !signing.VerifySignature(secret, req.URL, req.APISign) {
		return "", apierr.New(apierr.InvalidSignature)
	}
	return apiKey, nil
}

func (g *Gateway) secretFor(apiKey string) (string, error) {
	if g.opts.Keys == nil {
		if g.opts.RequireRegisteredKeys {
			return "", apierr.New(apierr.APIKeyInvalid)
		}
		return apiKey, nil
	}
	secret, found, err := g.opts.Keys.Lookup(apiKey)
	if err != nil {
		return "", apierr.Wrap(apierr.InternalError, err)
	}
	if found {
		return secret, nil
	}
	if g.opts.RequireRegisteredKeys {
		return "", apierr.New(apierr.APIKeyInvalid)
	}
	return apiKey, nil
}

// respond 把结果或错误渲染成统一响应
func (g *Gateway) respond(op string, result any, err error) apierr.Response {
	if err != nil {
		return g.fail(op, err)
	}
	return apierr.OK(result)
}

// relay 转发行情代理已经渲染好的响应
func (g *Gateway) relay(op string, resp apierr.Response, err error) apierr.Response {
	if err != nil {
		return g.fail(op, err)
	}
	return resp
}

func (g *Gateway) fail(op string, err error) apierr.Response {
	code := apierr.CodeOf(err)
	metrics.RequestFailures.Add(string(code), 1)

	switch code.Kind() {
	case apierr.KindUpstream, apierr.KindInternal:
		logger.WithFields(logrus.Fields{"op": op, "code": code}).Warnf("请求失败: %v", err)
	default:
		logger.WithFields(logrus.Fields{"op": op, "code": code}).Debugf("请求被拒绝")
	}
	return apierr.Fail(err)
}
