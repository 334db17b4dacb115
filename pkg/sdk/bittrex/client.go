package bittrex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/betbot/tradegw/pkg/breaker"
	"github.com/betbot/tradegw/pkg/ratelimit"
	sdkhttp "github.com/betbot/tradegw/pkg/sdk/http"
	"github.com/betbot/tradegw/pkg/signing"
)

// 上游 API 分段
const (
	SegmentPublic   = "api/v1.1/public/"
	SegmentPublicV2 = "Api/v2.0/pub/market/"
	SegmentAccount  = "api/v1.1/account/"
)

// DefaultHost 上游默认地址
const DefaultHost = "https://bittrex.com/"

// Envelope 上游统一响应结构
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Config 客户端配置
type Config struct {
	Host       string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
	APIKey     string
	APISecret  string
	Limiter    *ratelimit.RateLimitManager // 可选，按分段限速
	Nonces     *signing.NonceIssuer        // 可选，签名请求的 nonce 来源
	Breaker    *breaker.CircuitBreaker     // 可选，上游连续失败时快速失败
}

// Client Bittrex 上游客户端
// public 客户端按配置重试；signed 客户端不重试，避免同一个 nonce 被重复提交
type Client struct {
	public  *sdkhttp.Client
	signed  *sdkhttp.Client
	limiter *ratelimit.RateLimitManager
	nonces  *signing.NonceIssuer
	breaker *breaker.CircuitBreaker

	apiKey    string
	apiSecret string
}

func NewClient(cfg Config) *Client {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.NewRateLimitManager(0)
	}
	if cfg.Nonces == nil {
		cfg.Nonces = signing.NewNonceIssuer()
	}
	return &Client{
		public: sdkhttp.NewClient(cfg.Host, sdkhttp.Options{
			Timeout:    cfg.Timeout,
			RetryCount: cfg.RetryCount,
			RetryWait:  cfg.RetryWait,
		}),
		signed: sdkhttp.NewClient(cfg.Host, sdkhttp.Options{
			Timeout: cfg.Timeout,
		}),
		limiter:   cfg.Limiter,
		nonces:    cfg.Nonces,
		breaker:   cfg.Breaker,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
	}
}

// HasCredentials 是否配置了上游凭证
func (c *Client) HasCredentials() bool {
	return c.apiKey != "" && c.apiSecret != ""
}

// Public 调用 v1.1 public 分段
func (c *Client) Public(ctx context.Context, method string, params url.Values) (*Envelope, error) {
	return c.get(ctx, SegmentPublic, method, params)
}

// PublicV2 调用 v2.0 pub/market 分段
func (c *Client) PublicV2(ctx context.Context, method string, params url.Values) (*Envelope, error) {
	return c.get(ctx, SegmentPublicV2, method, params)
}

// Account 调用签名的 account 分段
func (c *Client) Account(ctx context.Context, method string, params url.Values) (*Envelope, error) {
	if !c.HasCredentials() {
		return nil, ErrNoCredentials
	}
	if err := c.admit(ctx, SegmentAccount); err != nil {
		return nil, &UpstreamError{Segment: SegmentAccount, Method: method, Err: err}
	}

	endpoint := c.signed.BaseURL() + "/" + SegmentAccount + method
	nonce := c.nonces.Next(c.apiKey)
	fullURL, sign := signing.SignedURL(endpoint, params, c.apiKey, c.apiSecret, nonce)

	resp, err := c.signed.DoRequest(ctx, http.MethodGet, fullURL, &sdkhttp.RequestOptions{
		Headers: map[string]string{signing.HeaderAPISign: sign},
	})
	env, err := decode(SegmentAccount, method, resp, err)
	return c.observe(ctx, env, err)
}

func (c *Client) get(ctx context.Context, segment, method string, params url.Values) (*Envelope, error) {
	if err := c.admit(ctx, segment); err != nil {
		return nil, &UpstreamError{Segment: segment, Method: method, Err: err}
	}
	resp, err := c.public.DoRequest(ctx, http.MethodGet, "/"+segment+method, &sdkhttp.RequestOptions{
		Params: params,
	})
	env, err := decode(segment, method, resp, err)
	return c.observe(ctx, env, err)
}

// admit 断路器和限速都通过后才发请求；限速等待失败时归还断路器的放行名额
func (c *Client) admit(ctx context.Context, segment string) error {
	if err := c.breaker.Allow(); err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx, segment); err != nil {
		c.breaker.Release()
		return err
	}
	return nil
}

// observe 把调用结果反馈给断路器；上游 success=false 和调用方自己取消都不算失败
func (c *Client) observe(ctx context.Context, env *Envelope, err error) (*Envelope, error) {
	if err != nil {
		if ctx.Err() != nil {
			c.breaker.Release()
		} else {
			c.breaker.OnError()
		}
		return nil, err
	}
	c.breaker.OnSuccess()
	return env, nil
}

// param 构造单个参数，值为空时省略
func param(kv ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if strings.TrimSpace(kv[i+1]) != "" {
			v.Set(kv[i], kv[i+1])
		}
	}
	return v
}

// decode 解析上游响应；非 2xx、传输错误和无法解析的响应都归为 UpstreamError
func decode(segment, method string, resp *resty.Response, err error) (*Envelope, error) {
	if herr := sdkhttp.ParseHTTPError(resp, err); herr != nil {
		return nil, &UpstreamError{Segment: segment, Method: method, Err: herr}
	}
	var env Envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, &UpstreamError{Segment: segment, Method: method, Err: errors.Wrap(err, "decode envelope")}
	}
	return &env, nil
}
