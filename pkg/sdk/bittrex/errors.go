package bittrex

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoCredentials 未配置上游凭证
var ErrNoCredentials = errors.New("bittrex: upstream credentials not configured")

// UpstreamError 上游不可用（传输失败、超时、非 2xx、响应无法解析）
type UpstreamError struct {
	Segment string
	Method  string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("bittrex %s%s: %v", e.Segment, e.Method, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
