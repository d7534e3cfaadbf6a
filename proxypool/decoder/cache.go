package decoder

import "sync"

type cacheKey struct {
	vars    string
	formula string
}

// tableCache is a fixed-capacity FIFO cache of decoded tables.
type tableCache struct {
	mu      sync.Mutex
	size    int
	entries map[cacheKey]CipherTable
	order   []cacheKey
}

func newTableCache(size int) *tableCache {
	return &tableCache{
		size:    size,
		entries: make(map[cacheKey]CipherTable, size),
	}
}

func (c *tableCache) get(k cacheKey) (CipherTable, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[k]
	return t, ok
}

func (c *tableCache) put(k cacheKey, t CipherTable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[k]; exists {
		return
	}
	if len(c.order) >= c.size {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[k] = t
	c.order = append(c.order, k)
}

func (c *tableCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
