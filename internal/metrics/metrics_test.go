package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCounters(t *testing.T) {
	ObserveCache("test.endpoint", true)
	ObserveCache("test.endpoint", false)
	ObserveCache("test.endpoint", false)
	ObserveUpstream("test.endpoint", nil)
	ObserveUpstream("test.endpoint", errors.New("x"))

	assert.Equal(t, "1", CacheHits.Get("test.endpoint").String())
	assert.Equal(t, "2", CacheMisses.Get("test.endpoint").String())
	assert.Equal(t, "2", UpstreamRequests.Get("test.endpoint").String())
	assert.Equal(t, "1", UpstreamErrors.Get("test.endpoint").String())
}

func TestMuxServesVarsAndHealth(t *testing.T) {
	srv := httptest.NewServer(newMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/debug/vars")
	require.NoError(t, err)
	defer resp.Body.Close()
	var vars map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&vars))
	assert.Contains(t, vars, "orders_created")
	assert.Contains(t, vars, "cache_hits")
}

func TestStartAsyncStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := StartAsync(ctx, "127.0.0.1:0", nil)
	require.NoError(t, err)
	require.NotNil(t, s)
	cancel()
}
