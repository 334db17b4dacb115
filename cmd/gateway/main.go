package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/betbot/tradegw/internal/gateway"
	"github.com/betbot/tradegw/internal/httpapi"
	"github.com/betbot/tradegw/internal/marketcache"
	"github.com/betbot/tradegw/internal/metrics"
	"github.com/betbot/tradegw/internal/orderstore"
	"github.com/betbot/tradegw/pkg/breaker"
	"github.com/betbot/tradegw/pkg/config"
	"github.com/betbot/tradegw/pkg/keystore"
	"github.com/betbot/tradegw/pkg/logger"
	"github.com/betbot/tradegw/pkg/ratelimit"
	"github.com/betbot/tradegw/pkg/sdk/bittrex"
	"github.com/betbot/tradegw/pkg/shutdown"
	"github.com/betbot/tradegw/pkg/symbols"
)

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "config file (yaml/json)")
		listenAddr = flag.String("listen", "", "HTTP listen address (overrides config)")
	)
	flag.Parse()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fatal(err)
	}
	if *listenAddr != "" {
		cfg.Listen = *listenAddr
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		fatal(err)
	}
	defer logger.Close()

	if err := run(cfg); err != nil {
		logger.Errorf("网关退出: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sm := shutdown.NewManager()

	repo, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	sm.OnShutdown("order store", func(context.Context) error { return repo.Close() })

	var keys *keystore.Store
	if cfg.Keystore.Path != "" {
		encKey, err := keystore.ParseKey(cfg.Keystore.EncryptionKey)
		if err != nil {
			return err
		}
		keys, err = keystore.Open(keystore.OpenOptions{
			Path:          cfg.Keystore.Path,
			EncryptionKey: encKey,
			ReadOnly:      true,
		})
		if err != nil {
			return fmt.Errorf("打开 keystore 失败: %w", err)
		}
		sm.OnShutdown("keystore", func(context.Context) error { return keys.Close() })
	}

	client := bittrex.NewClient(bittrex.Config{
		Host:       cfg.Upstream.Host,
		Timeout:    cfg.Upstream.Timeout.Duration,
		RetryCount: cfg.Upstream.RetryCount,
		RetryWait:  cfg.Upstream.RetryWait.Duration,
		APIKey:     cfg.Upstream.APIKey,
		APISecret:  cfg.Upstream.APISecret,
		Limiter:    ratelimit.NewRateLimitManager(cfg.Upstream.RateLimit),
		Breaker: breaker.New(breaker.Config{
			MaxConsecutiveErrors: int64(cfg.Upstream.BreakerThreshold),
			Cooldown:             cfg.Upstream.BreakerCooldown.Duration,
		}),
	})

	ns := symbols.Namespace{Testnet: cfg.TestnetSymbols}
	markets := marketcache.NewMarketCache(client, ns, cfg.Cache.Medium.Duration)
	proxy := marketcache.NewProxy(client, markets, marketcache.TTLs{
		Short:  cfg.Cache.Short.Duration,
		Medium: cfg.Cache.Medium.Duration,
		Long:   cfg.Cache.Long.Duration,
	})
	sm.OnShutdown("market cache", func(context.Context) error {
		proxy.Close()
		markets.Close()
		return nil
	})

	opts := gateway.Options{
		RequireRegisteredKeys: cfg.Auth.RequireRegisteredKeys,
		Account:               client,
		Passthrough:           cfg.Account.Passthrough,
		InfiniteBalances:      cfg.Account.InfiniteBalances,
	}
	if keys != nil {
		opts.Keys = keys
	}
	gw := gateway.New(proxy, orderstore.NewService(repo, markets), ns, opts)

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           httpapi.NewRouter(gw, cfg.PublicBaseURL),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("网关监听 %s（testnet_symbols=%v, store=%s）", cfg.Listen, cfg.TestnetSymbols, cfg.Store.Driver)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	sm.OnShutdown("http server", httpSrv.Shutdown)

	if cfg.Metrics.Listen != "" {
		msrv, err := metrics.StartAsync(ctx, cfg.Metrics.Listen, func(err error) {
			logger.Warnf("metrics 服务异常: %v", err)
		})
		if err != nil {
			return err
		}
		sm.OnShutdown("metrics server", msrv.Shutdown)
	}

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	var runErr error
	select {
	case sig := <-stopCh:
		logger.Infof("收到信号 %s，开始关闭", sig)
	case runErr = <-serveErr:
		logger.Errorf("HTTP 服务异常: %v", runErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	sm.Shutdown(shutdownCtx)
	return runErr
}

func openStore(ctx context.Context, sc config.StoreConfig) (orderstore.Repository, error) {
	switch sc.Driver {
	case "postgres":
		return orderstore.OpenPostgres(ctx, sc.DSN)
	default:
		return orderstore.OpenSQLite(sc.DSN)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
