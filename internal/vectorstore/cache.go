package vectorstore

import (
	"context"
	"sync"
)

// EnumerationCache memoizes filename enumeration results per scope.
//
// The cache is keyed by username ("" is the unscoped enumeration) so a
// cached unscoped list is never reused to answer a scoped query. Entries
// have no TTL: the cache holds a result until a caller invalidates it after
// a mutation (ingest or deletion) or the process restarts. The engine never
// invalidates proactively.
type EnumerationCache struct {
	mu      sync.Mutex
	entries map[string][]string
}

// NewEnumerationCache creates an empty cache.
func NewEnumerationCache() *EnumerationCache {
	return &EnumerationCache{entries: make(map[string][]string)}
}

// GetOrCompute returns the cached enumeration for username, computing and
// storing it on a miss. The lock is held across compute so at most one
// enumeration per cache is in flight at a time.
func (c *EnumerationCache) GetOrCompute(ctx context.Context, username string, compute func(context.Context) ([]string, error)) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.entries[username]; ok {
		recordCacheLookup(true)
		return copyStrings(cached), nil
	}
	recordCacheLookup(false)

	result, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	c.entries[username] = copyStrings(result)
	return result, nil
}

// Invalidate drops the cached enumeration for username.
func (c *EnumerationCache) Invalidate(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, username)
}

// InvalidateAll drops every cached enumeration. Used after mutations whose
// scope is broader than one user (bulk deletion).
func (c *EnumerationCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]string)
}

// Len returns the number of cached scopes.
func (c *EnumerationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func copyStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
