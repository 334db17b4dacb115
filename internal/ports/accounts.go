package ports

import (
	"context"

	"github.com/betbot/tradegw/pkg/sdk/bittrex"
)

// KeyLookup 根据 API key 查 secret
type KeyLookup interface {
	Lookup(apiKey string) (secret string, found bool, err error)
}

// AccountUpstream 上游签名 account 接口
type AccountUpstream interface {
	HasCredentials() bool
	GetBalances(ctx context.Context) (*bittrex.Envelope, error)
	GetBalance(ctx context.Context, currency string) (*bittrex.Envelope, error)
	GetDepositAddress(ctx context.Context, currency string) (*bittrex.Envelope, error)
	GetWithdrawalHistory(ctx context.Context, currency string) (*bittrex.Envelope, error)
	GetDepositHistory(ctx context.Context, currency string) (*bittrex.Envelope, error)
}
