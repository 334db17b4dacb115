package signing

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
)

const (
	// HeaderAPISign 签名所在的请求头
	HeaderAPISign = "apisign"
	// ParamAPIKey 查询参数：API key
	ParamAPIKey = "apikey"
	// ParamNonce 查询参数：nonce
	ParamNonce = "nonce"
)

// DeriveSignature 计算 Bittrex apisign：以 secret 为 key，对完整 URI 做 HMAC-SHA512，输出小写 hex
func DeriveSignature(secret, uri string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(uri))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature 常数时间比较调用方签名
func VerifySignature(secret, uri, sign string) bool {
	expected := DeriveSignature(secret, uri)
	return hmac.Equal([]byte(expected), []byte(sign))
}

// SignedURL 给请求追加 apikey/nonce 参数并计算签名
// 返回的 URL 与签名覆盖的字符串完全一致，调用方必须原样发送
func SignedURL(endpoint string, params url.Values, apiKey, secret string, nonce int64) (string, string) {
	q := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set(ParamNonce, strconv.FormatInt(nonce, 10))
	q.Set(ParamAPIKey, apiKey)

	full := endpoint
	if strings.Contains(full, "?") {
		full += "&" + q.Encode()
	} else {
		full += "?" + q.Encode()
	}
	return full, DeriveSignature(secret, full)
}
