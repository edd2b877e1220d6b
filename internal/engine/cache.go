package engine

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
)

const defaultMemoryCacheEntries = 1024

type Cache interface {
	Get(ctx context.Context, key string) (map[string]json.RawMessage, bool)
	Set(ctx context.Context, key string, outputs map[string]json.RawMessage)
}

type memoryEntry struct {
	key     string
	outputs map[string]json.RawMessage
}

type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = defaultMemoryCacheEntries
	}
	return &MemoryCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (map[string]json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*memoryEntry).outputs, true
}

func (c *MemoryCache) Set(_ context.Context, key string, outputs map[string]json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*memoryEntry).outputs = outputs
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&memoryEntry{key: key, outputs: outputs})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*memoryEntry).key)
	}
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
