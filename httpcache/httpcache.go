// Package httpcache implements the HTTP client cache keyed by
// (runtime_key, normalized_base_url, sha256(auth_token)) that spec.md §4.D
// specifies. One sync.RWMutex guards the cache: lookups share the read lock,
// while insertion and eviction take the write lock, so a writer waits for
// in-flight readers. Insertion is a get-or-insert that re-checks under the
// write lock, and eviction is scoped per runtime so a runtime teardown
// can bulk-evict without scanning every entry.
package httpcache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
)

// Key identifies one cached client.
type Key struct {
	RuntimeKey string
	BaseURL    string
	AuthHash   string
}

// NormalizeBaseURL strips trailing slashes and replaces an empty base URL
// with the "default-endpoint" sentinel, per spec.md §4.D.
func NormalizeBaseURL(raw string) string {
	trimmed := strings.TrimRight(raw, "/")
	if trimmed == "" {
		return "default-endpoint"
	}
	return trimmed
}

// HashAuth hashes an auth token into the key space so rotations produce
// cache misses without leaking plaintext credentials into the key.
func HashAuth(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Cache is a concurrent-safe client cache. Entries are indexed both by Key
// (for lookup) and by RuntimeKey (for bulk eviction).
type Cache struct {
	mu      sync.RWMutex
	clients map[Key]*http.Client
	byRT    map[string]map[Key]bool
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{
		clients: make(map[Key]*http.Client),
		byRT:    make(map[string]map[Key]bool),
	}
}

// GetOrCreate returns the cached client for key, constructing one with
// factory and storing it if absent. Concurrent calls for the same key race
// on construction but converge on the same stored value (the first stored
// client wins; later constructions are discarded);
// factory should be cheap and side-effect-free.
func (c *Cache) GetOrCreate(key Key, factory func() *http.Client) *http.Client {
	c.mu.RLock()
	if cl, ok := c.clients[key]; ok {
		c.mu.RUnlock()
		return cl
	}
	c.mu.RUnlock()

	cl := factory()

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.clients[key]; ok {
		return existing
	}
	c.clients[key] = cl
	if c.byRT[key.RuntimeKey] == nil {
		c.byRT[key.RuntimeKey] = make(map[Key]bool)
	}
	c.byRT[key.RuntimeKey][key] = true
	return cl
}

// ClearRuntime evicts every client cached under runtimeKey.
func (c *Cache) ClearRuntime(runtimeKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.byRT[runtimeKey] {
		delete(c.clients, k)
	}
	delete(c.byRT, runtimeKey)
}

// Len reports the number of cached clients, for tests and LRU-bound checks.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clients)
}
