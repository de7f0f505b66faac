package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/hexvoxel/internal/logging"
)

// RedisConfig содержит конфигурацию Redis кеша.
type RedisConfig struct {
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// TTL настройки
	DefaultTTL time.Duration
	MaxTTL     time.Duration

	// Производительность
	MaxConnections int
	PoolTimeout    time.Duration
}

// RedisCache реализует MeshCache поверх Redis. Кеш общий для всех узлов,
// поэтому инвалидация через NATS нужна только локальным MemoryCache соседей.
type RedisCache struct {
	client      *redis.Client
	config      *RedisConfig
	invalidator CacheInvalidator
	stats       stats
}

func (c *RedisConfig) withDefaults() *RedisConfig {
	out := *c
	if out.DefaultTTL <= 0 {
		out.DefaultTTL = 10 * time.Minute
	}
	if out.MaxTTL <= 0 {
		out.MaxTTL = 24 * time.Hour
	}
	if out.DefaultTTL > out.MaxTTL {
		out.DefaultTTL = out.MaxTTL
	}
	if out.MaxConnections == 0 {
		out.MaxConnections = 10
	}
	if out.PoolTimeout == 0 {
		out.PoolTimeout = 30 * time.Second
	}
	return &out
}

// effectiveTTL: ttl <= 0 - DefaultTTL, больше MaxTTL обрезается.
// Записи без истечения в общем Redis не допускаются.
func (c *RedisConfig) effectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = c.DefaultTTL
	}
	if ttl > c.MaxTTL {
		ttl = c.MaxTTL
	}
	return ttl
}

// NewRedisCache создаёт новый Redis кеш. invalidator может быть nil.
func NewRedisCache(cfg *RedisConfig, invalidator CacheInvalidator) (*RedisCache, error) {
	config := cfg.withDefaults()

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.RedisURL,
		Password:     config.RedisPassword,
		DB:           config.RedisDB,
		PoolSize:     config.MaxConnections,
		PoolTimeout:  config.PoolTimeout,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	// Проверяем соединение
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("Redis cache initialized: %s", config.RedisURL)
	return &RedisCache{client: rdb, config: config, invalidator: invalidator}, nil
}

// Get получает значение по ключу из Redis.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	defer r.stats.recordLatency(time.Now())

	val, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		r.stats.hit()
		return val, nil
	}

	r.stats.miss()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	logging.Error("Redis Get error for key %s: %v", key, err)
	return nil, fmt.Errorf("redis get error: %w", err)
}

// Set сохраняет значение в Redis с TTL из effectiveTTL
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	defer r.stats.recordLatency(time.Now())

	if err := validKey(key); err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, value, r.config.effectiveTTL(ttl)).Err(); err != nil {
		logging.Error("Redis Set error for key %s: %v", key, err)
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// Delete удаляет ключ
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	defer r.stats.recordLatency(time.Now())

	if err := r.client.Del(ctx, key).Err(); err != nil {
		logging.Error("Redis Delete error for key %s: %v", key, err)
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

// DeletePrefix удаляет ключи с префиксом через SCAN, без блокировки Redis на KEYS
func (r *RedisCache) DeletePrefix(ctx context.Context, prefix string) error {
	defer r.stats.recordLatency(time.Now())

	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis delete error: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan error: %w", err)
	}
	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis delete error: %w", err)
		}
	}
	return nil
}

// Invalidate удаляет геометрию суши и уведомляет другие узлы
func (r *RedisCache) Invalidate(ctx context.Context, inv Invalidation) error {
	if err := r.DeletePrefix(ctx, LandmassPrefix(inv.LandmassID)); err != nil {
		return err
	}
	r.stats.invalidated()
	return publish(ctx, r.invalidator, inv)
}

// Close закрывает соединение с Redis.
func (r *RedisCache) Close() error {
	if err := r.client.Close(); err != nil {
		logging.Error("Error closing Redis connection: %v", err)
		return err
	}

	logging.Info("Redis cache closed")
	return nil
}

// GetMetrics возвращает текущие метрики кеша. TotalKeys - размер всей базы Redis.
func (r *RedisCache) GetMetrics() *CacheMetrics {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	size, err := r.client.DBSize(ctx).Result()
	if err != nil {
		size = -1
	}
	return r.stats.snapshot(size)
}
