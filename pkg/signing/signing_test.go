package signing

import (
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveSignatureKnownVector(t *testing.T) {
	// RFC 4231 test case 2
	got := DeriveSignature("Jefe", "what do ya want for nothing?")
	want := "164b7a7bfcf819e2e395fbe73b56e0a387bd64222e831fd610270cd7ea2505549758bf75c05a994a6d034f65f8f0e6fdcaeab1a34d4a6b4b636e070a38bce737"
	assert.Equal(t, want, got)
	assert.Len(t, got, 128)
}

func TestVerifySignature(t *testing.T) {
	uri := "https://example.com/bittrex.com/api/v1.1/market/buylimit?apikey=k1&nonce=1&market=BTC-LTC"
	sign := DeriveSignature("secret", uri)

	assert.True(t, VerifySignature("secret", uri, sign))
	assert.False(t, VerifySignature("other", uri, sign))
	assert.False(t, VerifySignature("secret", uri+"&x=1", sign))
	assert.False(t, VerifySignature("secret", uri, ""))
}

func TestSignedURLCoversQuery(t *testing.T) {
	params := url.Values{"currency": {"BTC"}}
	full, sign := SignedURL("https://bittrex.com/api/v1.1/account/getbalance", params, "key", "sec", 42)

	u, err := url.Parse(full)
	require.NoError(t, err)
	assert.Equal(t, "BTC", u.Query().Get("currency"))
	assert.Equal(t, "key", u.Query().Get(ParamAPIKey))
	assert.Equal(t, "42", u.Query().Get(ParamNonce))
	assert.Equal(t, DeriveSignature("sec", full), sign)
	// 入参不应被修改
	assert.Empty(t, params.Get(ParamAPIKey))
}

func TestNonceStrictlyIncreasingWithinSameMillisecond(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	n := NewNonceIssuer().WithClock(func() time.Time { return fixed })

	a := n.Next("k1")
	b := n.Next("k1")
	c := n.Next("k1")
	assert.Equal(t, fixed.UnixMilli(), a)
	assert.Equal(t, a+1, b)
	assert.Equal(t, b+1, c)

	// 不同 key 互不影响
	assert.Equal(t, fixed.UnixMilli(), n.Next("k2"))
}

func TestNonceSurvivesClockGoingBackwards(t *testing.T) {
	now := time.UnixMilli(2_000)
	n := NewNonceIssuer().WithClock(func() time.Time { return now })

	first := n.Next("k")
	now = time.UnixMilli(1_000)
	assert.Greater(t, n.Next("k"), first)
}

func TestNonceConcurrent(t *testing.T) {
	n := NewNonceIssuer()

	const workers, perWorker = 8, 200
	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				v := n.Next("shared")
				mu.Lock()
				seen[v] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*perWorker)
}
