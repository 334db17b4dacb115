package gateway

import (
	"context"

	"github.com/betbot/tradegw/internal/apierr"
	"github.com/betbot/tradegw/internal/metrics"
	"github.com/betbot/tradegw/pkg/logger"
	"github.com/betbot/tradegw/pkg/sdk/bittrex"
)

// account 操作：认证后转发到上游（配置了凭证且开启 passthrough），否则返回空结果

func (g *Gateway) passthrough() bool {
	return g.opts.Passthrough && g.opts.Account != nil && g.opts.Account.HasCredentials()
}

// GetBalances infinite_balances 开启时始终返回空列表
func (g *Gateway) GetBalances(ctx context.Context, req *Request) apierr.Response {
	if g.opts.InfiniteBalances {
		return g.stub(req, "getbalances", []any{})
	}
	return g.forward(ctx, req, "getbalances", []any{}, func(ctx context.Context) (*bittrex.Envelope, error) {
		return g.opts.Account.GetBalances(ctx)
	})
}

func (g *Gateway) GetBalance(ctx context.Context, req *Request) apierr.Response {
	return g.forward(ctx, req, "getbalance", nil, func(ctx context.Context) (*bittrex.Envelope, error) {
		return g.opts.Account.GetBalance(ctx, req.Param(paramCurrency))
	})
}

func (g *Gateway) GetDepositAddress(ctx context.Context, req *Request) apierr.Response {
	return g.forward(ctx, req, "getdepositaddress", nil, func(ctx context.Context) (*bittrex.Envelope, error) {
		return g.opts.Account.GetDepositAddress(ctx, req.Param(paramCurrency))
	})
}

// Withdraw 从不转发到上游
func (g *Gateway) Withdraw(_ context.Context, req *Request) apierr.Response {
	return g.stub(req, "withdraw", nil)
}

func (g *Gateway) GetWithdrawalHistory(ctx context.Context, req *Request) apierr.Response {
	return g.forward(ctx, req, "getwithdrawalhistory", []any{}, func(ctx context.Context) (*bittrex.Envelope, error) {
		return g.opts.Account.GetWithdrawalHistory(ctx, req.Param(paramCurrency))
	})
}

func (g *Gateway) GetDepositHistory(ctx context.Context, req *Request) apierr.Response {
	return g.forward(ctx, req, "getdeposithistory", []any{}, func(ctx context.Context) (*bittrex.Envelope, error) {
		return g.opts.Account.GetDepositHistory(ctx, req.Param(paramCurrency))
	})
}

func (g *Gateway) stub(req *Request, op string, empty any) apierr.Response {
	if _, err := g.authenticate(req); err != nil {
		return g.fail(op, err)
	}
	return apierr.OK(empty)
}

func (g *Gateway) forward(
	ctx context.Context,
	req *Request,
	op string,
	empty any,
	call func(ctx context.Context) (*bittrex.Envelope, error),
) apierr.Response {
	if _, err := g.authenticate(req); err != nil {
		return g.fail(op, err)
	}
	if !g.passthrough() {
		return apierr.OK(empty)
	}

	env, err := call(ctx)
	metrics.ObserveUpstream(op, err)
	if err != nil {
		return g.fail(op, apierr.Wrap(apierr.UpstreamUnavailable, err))
	}
	if !env.Success {
		logger.WithField("op", op).Infof("上游拒绝 account 请求: %s", env.Message)
	}
	return apierr.Response{Success: env.Success, Message: env.Message, Result: env.Result}
}
