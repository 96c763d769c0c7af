package httpcache

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBaseURL_StripsTrailingSlashes(t *testing.T) {
	assert.Equal(t, "https://api.example.com", NormalizeBaseURL("https://api.example.com///"))
}

func TestNormalizeBaseURL_EmptyBecomesDefaultSentinel(t *testing.T) {
	assert.Equal(t, "default-endpoint", NormalizeBaseURL(""))
}

func TestHashAuth_SameTokenSameHash(t *testing.T) {
	assert.Equal(t, HashAuth("sk-abc"), HashAuth("sk-abc"))
	assert.NotEqual(t, HashAuth("sk-abc"), HashAuth("sk-xyz"))
}

func TestGetOrCreate_ReturnsSameClientOnRepeatedLookup(t *testing.T) {
	c := New()
	key := Key{RuntimeKey: "rt-1", BaseURL: "default-endpoint", AuthHash: HashAuth("tok")}
	built := 0
	factory := func() *http.Client {
		built++
		return &http.Client{}
	}
	first := c.GetOrCreate(key, factory)
	second := c.GetOrCreate(key, factory)
	assert.Same(t, first, second)
	assert.Equal(t, 1, built)
	assert.Equal(t, 1, c.Len())
}

func TestGetOrCreate_TwoRuntimesDoNotShareAClient(t *testing.T) {
	c := New()
	keyA := Key{RuntimeKey: "rt-a", BaseURL: "default-endpoint", AuthHash: HashAuth("tok")}
	keyB := Key{RuntimeKey: "rt-b", BaseURL: "default-endpoint", AuthHash: HashAuth("tok")}
	clientA := c.GetOrCreate(keyA, func() *http.Client { return &http.Client{} })
	clientB := c.GetOrCreate(keyB, func() *http.Client { return &http.Client{} })
	assert.NotSame(t, clientA, clientB)
	assert.Equal(t, 2, c.Len())
}

func TestClearRuntime_EvictsOnlyThatRuntimesEntries(t *testing.T) {
	c := New()
	keyA := Key{RuntimeKey: "rt-a", BaseURL: "default-endpoint", AuthHash: HashAuth("tok")}
	keyB := Key{RuntimeKey: "rt-b", BaseURL: "default-endpoint", AuthHash: HashAuth("tok")}
	c.GetOrCreate(keyA, func() *http.Client { return &http.Client{} })
	c.GetOrCreate(keyB, func() *http.Client { return &http.Client{} })
	require.Equal(t, 2, c.Len())

	c.ClearRuntime("rt-a")
	assert.Equal(t, 1, c.Len())

	rebuilt := c.GetOrCreate(keyA, func() *http.Client { return &http.Client{} })
	assert.NotNil(t, rebuilt)
	assert.Equal(t, 2, c.Len())
}

func TestGetOrCreate_ConcurrentCallsConvergeOnOneEntry(t *testing.T) {
	c := New()
	key := Key{RuntimeKey: "rt-concurrent", BaseURL: "default-endpoint", AuthHash: HashAuth("tok")}

	const n = 50
	var wg sync.WaitGroup
	results := make([]*http.Client, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = c.GetOrCreate(key, func() *http.Client { return &http.Client{} })
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, c.Len())
	for _, r := range results {
		assert.NotNil(t, r)
	}
}
