package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache - реализация Cache поверх Redis. Индекс тегов хранится в
// множествах tag:<имя>, инвалидация удаляет все ключи множества одним
// pipeline-вызовом.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache создает кэш поверх существующего клиента Redis
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func tagKey(tag string) string {
	return "cache_tag:" + tag
}

// Get возвращает снимок по отпечатку запроса или ErrCacheMiss
func (c *RedisCache) Get(ctx context.Context, fingerprint string) ([]byte, error) {
	val, err := c.client.Get(ctx, fingerprint).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return val, nil
}

// Put сохраняет снимок и регистрирует его во множествах тегов.
// TTL - защитный: основной механизм устаревания - инвалидация по тегам.
func (c *RedisCache) Put(ctx context.Context, fingerprint string, value []byte, tags []string) error {
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, fingerprint, value, c.ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, tagKey(tag), fingerprint)
		pipe.Expire(ctx, tagKey(tag), 2*c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}
	return nil
}

// Invalidate удаляет все записи, помеченные любым из тегов
func (c *RedisCache) Invalidate(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		members, err := c.client.SMembers(ctx, tagKey(tag)).Result()
		if err != nil {
			return fmt.Errorf("failed to read tag set %s: %w", tag, err)
		}
		if len(members) == 0 {
			continue
		}
		pipe := c.client.TxPipeline()
		pipe.Del(ctx, members...)
		pipe.Del(ctx, tagKey(tag))
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to invalidate tag %s: %w", tag, err)
		}
	}
	return nil
}

// Close ничего не делает: временем жизни клиента Redis владеет main
func (c *RedisCache) Close() error { return nil }
