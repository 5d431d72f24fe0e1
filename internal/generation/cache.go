package generation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

const resultCacheTTL = time.Hour

// cacheKeyPrefixChars bounds how much of the source text feeds the key.
const cacheKeyPrefixChars = 4096

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// resultCache is a small in-process TTL cache for generation results.
// Hits are recorded as cached usage entries that do not count against
// the hourly quota.
type resultCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	nowFn   func() time.Time
}

func newResultCache() *resultCache {
	return &resultCache{
		entries: make(map[string]cacheEntry),
		nowFn:   time.Now,
	}
}

// cacheKey hashes the operation, a bounded prefix of the source text,
// and the operation parameters.
func cacheKey(operation, text string, params ...any) string {
	runes := []rune(text)
	if len(runes) > cacheKeyPrefixChars {
		runes = runes[:cacheKeyPrefixChars]
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%s\x00", operation, len(text), string(runes))
	for _, p := range params {
		fmt.Fprintf(h, "%v\x00", p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *resultCache) get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.nowFn().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

func (c *resultCache) put(key string, value any) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.nowFn().Add(resultCacheTTL)}
}
