package cache

import (
	"context"
	"sync"
)

// MemoryCache - реализация Cache в памяти с теми же семантиками тегов, что
// и у RedisCache. Используется в тестах и как запасной вариант без Redis.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	byTag   map[string]map[string]struct{}
}

// NewMemoryCache создает пустой кэш в памяти
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string][]byte),
		byTag:   make(map[string]map[string]struct{}),
	}
}

// Get возвращает снимок по отпечатку запроса или ErrCacheMiss
func (c *MemoryCache) Get(_ context.Context, fingerprint string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.entries[fingerprint]
	if !ok {
		return nil, ErrCacheMiss
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// Put сохраняет снимок и привязывает его к тегам
func (c *MemoryCache) Put(_ context.Context, fingerprint string, value []byte, tags []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	c.entries[fingerprint] = stored
	for _, tag := range tags {
		if c.byTag[tag] == nil {
			c.byTag[tag] = make(map[string]struct{})
		}
		c.byTag[tag][fingerprint] = struct{}{}
	}
	return nil
}

// Invalidate удаляет все записи, помеченные любым из тегов
func (c *MemoryCache) Invalidate(_ context.Context, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range tags {
		for fingerprint := range c.byTag[tag] {
			delete(c.entries, fingerprint)
		}
		delete(c.byTag, tag)
	}
	return nil
}

// Close очищает состояние кэша
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
	c.byTag = make(map[string]map[string]struct{})
	return nil
}
