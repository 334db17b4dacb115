package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "TRADEGW_"

// UpstreamConfig 上游交易所配置
type UpstreamConfig struct {
	Host       string   `yaml:"host" json:"host"`               // 上游根地址，例如 https://bittrex.com/
	Timeout    Duration `yaml:"timeout" json:"timeout"`         // 单次请求超时
	RetryCount int      `yaml:"retry_count" json:"retry_count"` // 公共接口重试次数（签名接口不重试）
	RetryWait  Duration `yaml:"retry_wait" json:"retry_wait"`   // 重试间隔
	RateLimit  int      `yaml:"rate_limit" json:"rate_limit"`   // 每秒最多请求数，0 表示不限
	APIKey     string   `yaml:"api_key" json:"api_key"`         // 网关自身的上游凭证（account 透传用）
	APISecret  string   `yaml:"api_secret" json:"api_secret"`

	// 连续失败 breaker_threshold 次后快速失败，breaker_cooldown 后放行探测请求；0 表示关闭
	BreakerThreshold int      `yaml:"breaker_threshold" json:"breaker_threshold"`
	BreakerCooldown  Duration `yaml:"breaker_cooldown" json:"breaker_cooldown"`
}

// StoreConfig 订单存储配置
type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver"` // sqlite 或 postgres
	DSN    string `yaml:"dsn" json:"dsn"`       // sqlite 为文件路径，postgres 为连接串
}

// KeystoreConfig API key 注册表配置
type KeystoreConfig struct {
	Path          string `yaml:"path" json:"path"`                     // badger 目录，为空则不启用
	EncryptionKey string `yaml:"encryption_key" json:"encryption_key"` // 可选，32 字节的 hex 或 base64
}

// AuthConfig 入站鉴权配置
type AuthConfig struct {
	RequireRegisteredKeys bool `yaml:"require_registered_keys" json:"require_registered_keys"` // 未注册的 apikey 直接拒绝
}

// CacheConfig 行情缓存 TTL
type CacheConfig struct {
	Short  Duration `yaml:"short" json:"short"`   // ticker / orderbook / markethistory
	Medium Duration `yaml:"medium" json:"medium"` // markets / currencies / summaries
	Long   Duration `yaml:"long" json:"long"`     // ticks
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// MetricsConfig 指标与 pprof 服务
type MetricsConfig struct {
	Listen string `yaml:"listen" json:"listen"` // 为空则不启动
}

// AccountConfig account 分段行为
type AccountConfig struct {
	Passthrough      bool `yaml:"passthrough" json:"passthrough"`             // 配置了上游凭证时转发到上游
	InfiniteBalances bool `yaml:"infinite_balances" json:"infinite_balances"` // getbalances 始终返回空成功结果
}

// Config 网关配置
type Config struct {
	Listen         string         `yaml:"listen" json:"listen"`
	PublicBaseURL  string         `yaml:"public_base_url" json:"public_base_url"` // 客户端签名时使用的外部地址，为空则按请求推断
	TestnetSymbols bool           `yaml:"testnet_symbols" json:"testnet_symbols"`
	Upstream       UpstreamConfig `yaml:"upstream" json:"upstream"`
	Store          StoreConfig    `yaml:"store" json:"store"`
	Keystore       KeystoreConfig `yaml:"keystore" json:"keystore"`
	Auth           AuthConfig     `yaml:"auth" json:"auth"`
	Cache          CacheConfig    `yaml:"cache" json:"cache"`
	Log            LogConfig      `yaml:"log" json:"log"`
	Metrics        MetricsConfig  `yaml:"metrics" json:"metrics"`
	Account        AccountConfig  `yaml:"account" json:"account"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Listen:         ":5000",
		TestnetSymbols: true,
		Upstream: UpstreamConfig{
			Host:       "https://bittrex.com/",
			Timeout:    Duration{10 * time.Second},
			RetryCount: 2,
			RetryWait:  Duration{500 * time.Millisecond},

			BreakerThreshold: 5,
			BreakerCooldown:  Duration{30 * time.Second},
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "data/orders.db",
		},
		Cache: CacheConfig{
			Short:  Duration{5 * time.Second},
			Medium: Duration{60 * time.Second},
			Long:   Duration{time.Hour},
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// LoadFromFile 加载配置：默认值 < 配置文件 < 环境变量
// filePath 为空时只使用默认值和环境变量
func LoadFromFile(filePath string) (*Config, error) {
	cfg := Default()
	if filePath != "" {
		if err := loadConfigFile(filePath, cfg); err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return cfg, nil
}

// loadConfigFile 加载配置文件（支持 YAML 和 JSON）
func loadConfigFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}
	return nil
}

// applyEnv 用 TRADEGW_* 环境变量覆盖配置
func (c *Config) applyEnv() error {
	c.Listen = getEnv("LISTEN", c.Listen)
	c.PublicBaseURL = getEnv("PUBLIC_BASE_URL", c.PublicBaseURL)
	c.Upstream.Host = getEnv("UPSTREAM_HOST", c.Upstream.Host)
	c.Upstream.APIKey = getEnv("UPSTREAM_API_KEY", c.Upstream.APIKey)
	c.Upstream.APISecret = getEnv("UPSTREAM_API_SECRET", c.Upstream.APISecret)
	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.DSN = getEnv("STORE_DSN", c.Store.DSN)
	c.Keystore.Path = getEnv("KEYSTORE_PATH", c.Keystore.Path)
	c.Keystore.EncryptionKey = getEnv("KEYSTORE_ENCRYPTION_KEY", c.Keystore.EncryptionKey)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
	c.Metrics.Listen = getEnv("METRICS_LISTEN", c.Metrics.Listen)

	var err error
	if c.TestnetSymbols, err = parseBoolEnv("TESTNET_SYMBOLS", c.TestnetSymbols); err != nil {
		return err
	}
	if c.Auth.RequireRegisteredKeys, err = parseBoolEnv("REQUIRE_REGISTERED_KEYS", c.Auth.RequireRegisteredKeys); err != nil {
		return err
	}
	if c.Account.Passthrough, err = parseBoolEnv("ACCOUNT_PASSTHROUGH", c.Account.Passthrough); err != nil {
		return err
	}
	if c.Account.InfiniteBalances, err = parseBoolEnv("ACCOUNT_INFINITE_BALANCES", c.Account.InfiniteBalances); err != nil {
		return err
	}
	if c.Upstream.RetryCount, err = parseIntEnv("UPSTREAM_RETRY_COUNT", c.Upstream.RetryCount); err != nil {
		return err
	}
	if c.Upstream.RateLimit, err = parseIntEnv("UPSTREAM_RATE_LIMIT", c.Upstream.RateLimit); err != nil {
		return err
	}
	if c.Upstream.BreakerThreshold, err = parseIntEnv("UPSTREAM_BREAKER_THRESHOLD", c.Upstream.BreakerThreshold); err != nil {
		return err
	}
	for name, d := range map[string]*Duration{
		"UPSTREAM_TIMEOUT":          &c.Upstream.Timeout,
		"UPSTREAM_RETRY_WAIT":       &c.Upstream.RetryWait,
		"UPSTREAM_BREAKER_COOLDOWN": &c.Upstream.BreakerCooldown,
		"CACHE_SHORT":               &c.Cache.Short,
		"CACHE_MEDIUM":              &c.Cache.Medium,
		"CACHE_LONG":                &c.Cache.Long,
	} {
		if err := parseDurationEnv(name, d); err != nil {
			return err
		}
	}
	return nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen 未配置")
	}
	if c.Upstream.Host == "" {
		return fmt.Errorf("upstream.host 未配置")
	}
	if !strings.HasPrefix(c.Upstream.Host, "http://") && !strings.HasPrefix(c.Upstream.Host, "https://") {
		return fmt.Errorf("upstream.host 必须以 http:// 或 https:// 开头: %s", c.Upstream.Host)
	}
	if c.Upstream.Timeout.Duration <= 0 {
		return fmt.Errorf("upstream.timeout 必须大于 0")
	}
	if c.Upstream.RetryCount < 0 {
		return fmt.Errorf("upstream.retry_count 不能为负数")
	}
	if c.Upstream.RateLimit < 0 {
		return fmt.Errorf("upstream.rate_limit 不能为负数")
	}
	if c.Upstream.BreakerThreshold < 0 {
		return fmt.Errorf("upstream.breaker_threshold 不能为负数")
	}
	if (c.Upstream.APIKey == "") != (c.Upstream.APISecret == "") {
		return fmt.Errorf("upstream.api_key 和 upstream.api_secret 必须同时配置")
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("不支持的 store.driver: %q (支持 sqlite, postgres)", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("store.dsn 未配置")
	}

	if c.Auth.RequireRegisteredKeys && c.Keystore.Path == "" {
		return fmt.Errorf("auth.require_registered_keys 需要配置 keystore.path")
	}

	if c.Cache.Short.Duration <= 0 || c.Cache.Medium.Duration <= 0 || c.Cache.Long.Duration <= 0 {
		return fmt.Errorf("cache TTL 必须大于 0")
	}
	return nil
}

// HasUpstreamCredentials 是否配置了网关自身的上游凭证
func (c *Config) HasUpstreamCredentials() bool {
	return c.Upstream.APIKey != "" && c.Upstream.APISecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s%s 不是整数: %q", EnvPrefix, key, value)
	}
	return parsed, nil
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s%s 不是布尔值: %q", EnvPrefix, key, value)
	}
	return parsed, nil
}

func parseDurationEnv(key string, d *Duration) error {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return nil
	}
	parsed, err := parseDuration(value)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	d.Duration = parsed
	return nil
}
