package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, "https://bittrex.com/", cfg.Upstream.Host)
	assert.Equal(t, 10*time.Second, cfg.Upstream.Timeout.Duration)
	assert.Equal(t, 5*time.Second, cfg.Cache.Short.Duration)
	assert.Equal(t, time.Minute, cfg.Cache.Medium.Duration)
	assert.Equal(t, time.Hour, cfg.Cache.Long.Duration)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.True(t, cfg.TestnetSymbols)
	assert.False(t, cfg.HasUpstreamCredentials())
	assert.Equal(t, 5, cfg.Upstream.BreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.Upstream.BreakerCooldown.Duration)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "gw.yaml", `
listen: ":8080"
testnet_symbols: false
upstream:
  host: "http://upstream.local/"
  timeout: 3
  retry_wait: "250ms"
  rate_limit: 10
store:
  driver: postgres
  dsn: "postgres://u:p@localhost/gw"
cache:
  short: 2s
account:
  passthrough: true
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.False(t, cfg.TestnetSymbols)
	assert.Equal(t, 3*time.Second, cfg.Upstream.Timeout.Duration)
	assert.Equal(t, 250*time.Millisecond, cfg.Upstream.RetryWait.Duration)
	assert.Equal(t, 10, cfg.Upstream.RateLimit)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 2*time.Second, cfg.Cache.Short.Duration)
	// 未出现在文件中的字段保留默认值
	assert.Equal(t, time.Hour, cfg.Cache.Long.Duration)
	assert.True(t, cfg.Account.Passthrough)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "gw.json", `{"upstream":{"timeout":"7s"},"cache":{"long":120}}`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, cfg.Upstream.Timeout.Duration)
	assert.Equal(t, 2*time.Minute, cfg.Cache.Long.Duration)
}

func TestUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "gw.toml", "listen = ':1'")
	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TRADEGW_LISTEN", ":9999")
	t.Setenv("TRADEGW_UPSTREAM_API_KEY", "k")
	t.Setenv("TRADEGW_UPSTREAM_API_SECRET", "s")
	t.Setenv("TRADEGW_CACHE_SHORT", "1s")
	t.Setenv("TRADEGW_TESTNET_SYMBOLS", "false")

	cfg, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Listen)
	assert.True(t, cfg.HasUpstreamCredentials())
	assert.Equal(t, time.Second, cfg.Cache.Short.Duration)
	assert.False(t, cfg.TestnetSymbols)
}

func TestBadEnvValue(t *testing.T) {
	t.Setenv("TRADEGW_UPSTREAM_RETRY_COUNT", "many")
	_, err := LoadFromFile("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"empty host":         func(c *Config) { c.Upstream.Host = "" },
		"bad scheme":         func(c *Config) { c.Upstream.Host = "ftp://x" },
		"zero timeout":       func(c *Config) { c.Upstream.Timeout.Duration = 0 },
		"unknown driver":     func(c *Config) { c.Store.Driver = "mongo" },
		"empty dsn":          func(c *Config) { c.Store.DSN = "" },
		"half credentials":   func(c *Config) { c.Upstream.APIKey = "k" },
		"strict no keystore": func(c *Config) { c.Auth.RequireRegisteredKeys = true },
		"zero ttl":           func(c *Config) { c.Cache.Medium.Duration = 0 },
		"negative breaker":   func(c *Config) { c.Upstream.BreakerThreshold = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationRoundTrip(t *testing.T) {
	var v struct {
		D Duration `yaml:"d" json:"d"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("d: 1.5"), &v))
	assert.Equal(t, 1500*time.Millisecond, v.D.Duration)

	require.NoError(t, json.Unmarshal([]byte(`{"d":null}`), &v))
	assert.Equal(t, time.Duration(0), v.D.Duration)

	out, err := json.Marshal(Duration{90 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(out))

	assert.Error(t, yaml.Unmarshal([]byte("d: [1]"), &v))
}
