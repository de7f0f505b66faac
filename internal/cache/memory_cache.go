package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/annel0/hexvoxel/internal/logging"
)

type memoryEntry struct {
	value   []byte
	expires time.Time // нулевое значение - без истечения
}

// MemoryCache - кеш геометрии в памяти процесса. Используется, когда Redis не настроен.
type MemoryCache struct {
	mu          sync.RWMutex
	items       map[string]memoryEntry
	invalidator CacheInvalidator
	now         func() time.Time
	stats       stats
}

// NewMemoryCache создаёт кеш в памяти. invalidator может быть nil.
func NewMemoryCache(invalidator CacheInvalidator) *MemoryCache {
	return &MemoryCache{
		items:       make(map[string]memoryEntry),
		invalidator: invalidator,
		now:         time.Now,
	}
}

// Get возвращает копию значения или ErrCacheMiss
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	defer m.stats.recordLatency(time.Now())

	m.mu.RLock()
	entry, ok := m.items[key]
	m.mu.RUnlock()

	if !ok || m.expired(entry) {
		m.stats.miss()
		return nil, ErrCacheMiss
	}
	m.stats.hit()
	return append([]byte(nil), entry.value...), nil
}

// Set сохраняет копию значения; ttl <= 0 - без истечения
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := validKey(key); err != nil {
		return err
	}
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.items[key] = entry
	m.mu.Unlock()
	return nil
}

// Delete удаляет ключ
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// DeletePrefix удаляет все ключи с префиксом
func (m *MemoryCache) DeletePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

// Invalidate удаляет геометрию суши локально и уведомляет другие узлы
func (m *MemoryCache) Invalidate(ctx context.Context, inv Invalidation) error {
	if err := m.DeletePrefix(ctx, LandmassPrefix(inv.LandmassID)); err != nil {
		return err
	}
	m.stats.invalidated()
	return publish(ctx, m.invalidator, inv)
}

// Close очищает кеш
func (m *MemoryCache) Close() error {
	m.mu.Lock()
	m.items = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// GetMetrics возвращает текущие метрики кеша.
func (m *MemoryCache) GetMetrics() *CacheMetrics {
	m.mu.RLock()
	total := int64(len(m.items))
	m.mu.RUnlock()
	return m.stats.snapshot(total)
}

func (m *MemoryCache) expired(e memoryEntry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}

// publish рассылает инвалидацию, если invalidator задан
func publish(ctx context.Context, invalidator CacheInvalidator, inv Invalidation) error {
	if invalidator == nil {
		return nil
	}
	if err := invalidator.PublishInvalidation(ctx, inv); err != nil {
		logging.Error("Failed to publish invalidation for %s: %v", inv.LandmassID, err)
		return err
	}
	return nil
}
