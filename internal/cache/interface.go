package cache

import (
	"context"
	"errors"
	"time"
)

// MeshCache кэширует готовые JSON-ответы с геометрией суши.
// Геометрия полностью выводится из суши и параметров вокселя,
// поэтому промах всегда можно закрыть пересборкой.
//
// Использование:
//
//	key := cache.MeshKey("north", "active", "landscape")
//	data, err := c.Get(ctx, key)
//	err = c.Set(ctx, key, data, time.Minute)
//	err = c.Invalidate(ctx, cache.Invalidation{LandmassID: "north", Status: "disabled"})
type MeshCache interface {
	// Get получает значение по ключу. Возвращает ErrCacheMiss если ключ не найден.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение с указанным TTL. TTL <= 0 - TTL реализации по умолчанию
	// (у MemoryCache его нет, у RedisCache - RedisConfig.DefaultTTL).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет ключ.
	Delete(ctx context.Context, key string) error

	// DeletePrefix удаляет все ключи с префиксом. Уведомления не рассылаются.
	DeletePrefix(ctx context.Context, prefix string) error

	// Invalidate удаляет всю геометрию суши и рассылает уведомление другим узлам.
	Invalidate(ctx context.Context, inv Invalidation) error

	// Close закрывает соединение с кешем.
	Close() error

	// GetMetrics возвращает метрики кеша.
	GetMetrics() *CacheMetrics
}

// CacheInvalidator управляет инвалидацией кеша через Pub/Sub.
type CacheInvalidator interface {
	// PublishInvalidation отправляет уведомление об инвалидации.
	PublishInvalidation(ctx context.Context, inv Invalidation) error

	// SubscribeInvalidations подписывается на уведомления об инвалидации.
	SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error

	// Close закрывает соединение.
	Close() error
}

// Причины инвалидации
const (
	ReasonStatusChange = "status_change"
	ReasonReload       = "reload"
)

// Invalidation - событие об устаревшей геометрии суши.
// Status заполнен при смене статуса: узел-получатель применяет его к своей карте.
type Invalidation struct {
	LandmassID string `json:"landmass_id"`
	Status     string `json:"status,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// InvalidationHandler обрабатывает уведомления об инвалидации кеша.
type InvalidationHandler func(inv Invalidation) error

// CacheMetrics содержит метрики кеша.
type CacheMetrics struct {
	TotalRequests int64   `json:"total_requests"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	HitRatio      float64 `json:"hit_ratio"`

	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`

	TotalKeys     int64 `json:"total_keys"`
	Invalidations int64 `json:"invalidations"`

	LastUpdate time.Time `json:"last_update"`
}

// Ошибки кеша
var (
	ErrCacheMiss  = errors.New("cache miss")
	ErrInvalidKey = errors.New("invalid key")
)

// IsCacheMiss проверяет, является ли ошибка промахом кеша.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

const meshKeyPrefix = "mesh:"

// MeshKey - ключ геометрии определённого вида для суши в заданном статусе.
// Статус входит в ключ: узел, ещё не узнавший о смене статуса, пишет
// геометрию под старым ключом и не подменяет актуальную.
func MeshKey(landmassID, status, kind string) string {
	return LandmassPrefix(landmassID) + status + ":" + kind
}

// LandmassPrefix - общий префикс всех ключей суши
func LandmassPrefix(landmassID string) string {
	return meshKeyPrefix + landmassID + ":"
}

func validKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return nil
}
