package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

type Client struct {
	client *resty.Client
}

// Options 传输层选项
type Options struct {
	Timeout      time.Duration
	RetryCount   int // 0 表示不重试（签名请求必须为 0，重试会复用 nonce）
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	UserAgent    string
}

func NewClient(host string, opt Options) *Client {
	host = strings.TrimSuffix(host, "/")
	if opt.Timeout <= 0 {
		opt.Timeout = 10 * time.Second
	}
	if opt.RetryWait <= 0 {
		opt.RetryWait = 500 * time.Millisecond
	}
	if opt.RetryMaxWait <= 0 {
		opt.RetryMaxWait = 5 * time.Second
	}
	if opt.UserAgent == "" {
		opt.UserAgent = "tradegw/1.0"
	}

	// resty 会自动从环境变量读取代理配置（HTTP_PROXY, HTTPS_PROXY）
	client := resty.New().
		SetBaseURL(host).
		SetTimeout(opt.Timeout).
		SetHeader("User-Agent", opt.UserAgent).
		SetRetryCount(opt.RetryCount).
		SetRetryWaitTime(opt.RetryWait).
		SetRetryMaxWaitTime(opt.RetryMaxWait).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			// 429 / 5xx 重试，其余状态码直接返回
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
		}).
		SetRetryAfter(func(client *resty.Client, resp *resty.Response) (time.Duration, error) {
			// 如果遇到 429 限流，使用 Retry-After 头
			if resp != nil && resp.StatusCode() == http.StatusTooManyRequests {
				if retryAfter := resp.Header().Get("Retry-After"); retryAfter != "" {
					if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
						return seconds, nil
					}
				}
			}
			return 0, nil
		})

	return &Client{client: client}
}

// BaseURL 返回去掉末尾斜杠的根地址
func (c *Client) BaseURL() string {
	return c.client.BaseURL
}

type RequestOptions struct {
	Headers map[string]string
	Params  url.Values
}

// 仅设置本次请求的默认 Header（不要再改 client 级 Header）
func (c *Client) newRequest(ctx context.Context) *resty.Request {
	r := c.client.R()
	if ctx != nil {
		r.SetContext(ctx)
	}
	r.SetHeader("Accept", "application/json")
	return r
}

// DoRequest 发起请求并返回原始响应；endpoint 可以是相对路径或完整 URL
func (c *Client) DoRequest(ctx context.Context, method, endpoint string, opt *RequestOptions) (*resty.Response, error) {
	rc := c.newRequest(ctx)
	if opt != nil {
		for k, v := range opt.Headers {
			rc.SetHeader(k, v)
		}
		if opt.Params != nil {
			rc.SetQueryParamsFromValues(opt.Params)
		}
	}

	switch strings.ToUpper(method) {
	case http.MethodGet:
		return rc.Get(endpoint)
	case http.MethodPost:
		return rc.Post(endpoint)
	default:
		return nil, fmt.Errorf("unsupported method: %s", method)
	}
}

// HTTPError 非 2xx 响应
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http non-2xx: status=%d body=%s", e.Status, e.Body)
}

// ParseHTTPError 把传输错误和非 2xx 响应统一成 error
func ParseHTTPError(resp *resty.Response, err error) error {
	if err != nil {
		return errors.Wrap(err, "http request failed")
	}
	if resp.IsSuccess() {
		return nil
	}
	b := resp.Body()
	body := string(b)
	var v any
	if json.Unmarshal(b, &v) == nil {
		if compact, merr := json.Marshal(v); merr == nil {
			body = string(compact)
		}
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return errors.WithStack(&HTTPError{Status: resp.StatusCode(), Body: body})
}
