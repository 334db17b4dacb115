package bittrex

import (
	"context"
	"net/url"
)

// GetMarkets 所有交易对
func (c *Client) GetMarkets(ctx context.Context) (*Envelope, error) {
	return c.Public(ctx, "getmarkets", nil)
}

// GetCurrencies 所有币种
func (c *Client) GetCurrencies(ctx context.Context) (*Envelope, error) {
	return c.Public(ctx, "getcurrencies", nil)
}

// GetTicker 最新买一/卖一/成交价
func (c *Client) GetTicker(ctx context.Context, market string) (*Envelope, error) {
	return c.Public(ctx, "getticker", param("market", market))
}

// GetMarketSummaries 所有交易对 24h 摘要
func (c *Client) GetMarketSummaries(ctx context.Context) (*Envelope, error) {
	return c.Public(ctx, "getmarketsummaries", nil)
}

// GetMarketSummary 单个交易对 24h 摘要
func (c *Client) GetMarketSummary(ctx context.Context, market string) (*Envelope, error) {
	return c.Public(ctx, "getmarketsummary", param("market", market))
}

// GetOrderBook 订单簿，orderType 为 buy/sell/both
func (c *Client) GetOrderBook(ctx context.Context, market, orderType string) (*Envelope, error) {
	return c.Public(ctx, "getorderbook", param("market", market, "type", orderType))
}

// GetMarketHistory 最近成交
func (c *Client) GetMarketHistory(ctx context.Context, market string) (*Envelope, error) {
	return c.Public(ctx, "getmarkethistory", param("market", market))
}

// GetTicks K 线（v2.0 接口）
func (c *Client) GetTicks(ctx context.Context, marketName, tickInterval string) (*Envelope, error) {
	return c.PublicV2(ctx, "GetTicks", param("marketName", marketName, "tickInterval", tickInterval))
}

// GetBalances 账户全部余额（签名）
func (c *Client) GetBalances(ctx context.Context) (*Envelope, error) {
	return c.Account(ctx, "getbalances", url.Values{})
}

// GetBalance 单币种余额（签名）
func (c *Client) GetBalance(ctx context.Context, currency string) (*Envelope, error) {
	return c.Account(ctx, "getbalance", param("currency", currency))
}

// GetDepositAddress 充值地址（签名）
func (c *Client) GetDepositAddress(ctx context.Context, currency string) (*Envelope, error) {
	return c.Account(ctx, "getdepositaddress", param("currency", currency))
}

// GetWithdrawalHistory 提现记录（签名）
func (c *Client) GetWithdrawalHistory(ctx context.Context, currency string) (*Envelope, error) {
	return c.Account(ctx, "getwithdrawalhistory", param("currency", currency))
}

// GetDepositHistory 充值记录（签名）
func (c *Client) GetDepositHistory(ctx context.Context, currency string) (*Envelope, error) {
	return c.Account(ctx, "getdeposithistory", param("currency", currency))
}
