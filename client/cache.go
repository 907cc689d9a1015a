package client

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type cacheEntry struct {
	result    *ToolResult
	expiresAt time.Time
}

// CacheInterceptor memoizes successful tool results for a fixed TTL, keyed
// by connection, tool name and canonicalized arguments. Failures are never
// cached. Expired entries are dropped lazily on lookup.
type CacheInterceptor struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCacheInterceptor creates a cache with the given TTL. A non-positive
// TTL disables caching entirely.
func NewCacheInterceptor(ttl time.Duration) *CacheInterceptor {
	return &CacheInterceptor{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Intercept implements the caching behavior as an Interceptor.
func (c *CacheInterceptor) Intercept() Interceptor {
	return func(next Handler) Handler {
		return func(ctx context.Context, inv *Invocation) (*ToolResult, error) {
			if c.ttl <= 0 {
				return next(ctx, inv)
			}
			key, err := c.key(inv)
			if err != nil {
				// Unkeyable arguments fall through to the real call.
				return next(ctx, inv)
			}

			if result, ok := c.lookup(key); ok {
				inv.Meta["cache"] = "hit"
				return result, nil
			}

			result, err := next(ctx, inv)
			if err != nil {
				return nil, err
			}
			c.store(key, result)
			return result, nil
		}
	}
}

// key builds a deterministic cache key. json.Marshal emits map keys in
// sorted order, so semantically equal argument maps hash identically.
func (c *CacheInterceptor) key(inv *Invocation) (string, error) {
	args, err := json.Marshal(inv.Args)
	if err != nil {
		return "", err
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s\x00%s\x00%s", inv.ConnectionID, inv.Tool, args)))
	return hex.EncodeToString(sum[:]), nil
}

func (c *CacheInterceptor) lookup(key string) (*ToolResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.result, true
}

func (c *CacheInterceptor) store(key string, result *ToolResult) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{result: result, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Clear drops all cached entries.
func (c *CacheInterceptor) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of cached entries, expired ones included.
func (c *CacheInterceptor) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
