package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/betbot/tradegw/internal/apierr"
	"github.com/betbot/tradegw/internal/gateway"
	"github.com/betbot/tradegw/pkg/logger"
	"github.com/betbot/tradegw/pkg/signing"
)

// 路由前缀，与 bittrex.com 的路径保持一致
const (
	prefixV1   = "/bittrex.com/api/v1.1"
	prefixV2   = "/bittrex.com/Api/v2.0/pub/market"
	headerSign = signing.HeaderAPISign
)

type operation func(ctx context.Context, req *gateway.Request) apierr.Response

type Router struct {
	gw *gateway.Gateway
	// baseURL 非空时用于还原签名覆盖的完整 URL（反向代理之后）
	baseURL string
}

// NewRouter 注册所有 Bittrex 兼容路由；每个操作都返回 HTTP 200 + 统一响应
func NewRouter(gw *gateway.Gateway, publicBaseURL string) http.Handler {
	rt := &Router{gw: gw, baseURL: strings.TrimSuffix(publicBaseURL, "/")}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), accessLog())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	public := r.Group(prefixV1 + "/public")
	public.GET("/getmarkets", rt.wrap(gw.GetMarkets))
	public.GET("/getcurrencies", rt.wrap(gw.GetCurrencies))
	public.GET("/getticker", rt.wrap(gw.GetTicker))
	public.GET("/getmarketsummaries", rt.wrap(gw.GetMarketSummaries))
	public.GET("/getmarketsummary", rt.wrap(gw.GetMarketSummary))
	public.GET("/getorderbook", rt.wrap(gw.GetOrderBook))
	public.GET("/getmarkethistory", rt.wrap(gw.GetMarketHistory))

	market := r.Group(prefixV1 + "/market")
	market.GET("/buylimit", rt.wrap(gw.BuyLimit))
	market.GET("/selllimit", rt.wrap(gw.SellLimit))
	market.GET("/cancel", rt.wrap(gw.Cancel))
	market.GET("/getopenorders", rt.wrap(gw.GetOpenOrders))

	account := r.Group(prefixV1 + "/account")
	account.GET("/getbalances", rt.wrap(gw.GetBalances))
	account.GET("/getbalance", rt.wrap(gw.GetBalance))
	account.GET("/getdepositaddress", rt.wrap(gw.GetDepositAddress))
	account.GET("/withdraw", rt.wrap(gw.Withdraw))
	account.GET("/getorder", rt.wrap(gw.GetOrder))
	account.GET("/getorderhistory", rt.wrap(gw.GetOrderHistory))
	account.GET("/getwithdrawalhistory", rt.wrap(gw.GetWithdrawalHistory))
	// 老客户端使用的拼写
	account.GET("/getwitdrawalhistory", rt.wrap(gw.GetWithdrawalHistory))
	account.GET("/getdeposithistory", rt.wrap(gw.GetDepositHistory))

	v2 := r.Group(prefixV2)
	v2.GET("/GetTicks", rt.wrap(gw.GetTicks))

	return r
}

func (rt *Router) wrap(op operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := &gateway.Request{
			URL:     rt.fullURL(c.Request),
			Params:  c.Request.URL.Query(),
			APISign: c.GetHeader(headerSign),
		}
		c.JSON(http.StatusOK, op(c.Request.Context(), req))
	}
}

// fullURL 还原调用方请求的完整 URL（scheme://host/path?query）
func (rt *Router) fullURL(r *http.Request) string {
	if rt.baseURL != "" {
		return rt.baseURL + r.URL.RequestURI()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debugf("%s %s", c.Request.Method, c.Request.URL.Path)
	}
}
