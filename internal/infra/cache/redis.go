package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Пространство ключей бота: курсор упоминаний и защита от повторных
// ответов живут в общем Redis рядом с очередью задач.
const keyPrefix = "nate:"

// RedisCache реализует domain.Cache через Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedis создаёт кэш.
func NewRedis(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) key(k string) string { return keyPrefix + k }

// Once выполняет функцию, если ключ ещё не занят. Ключ занимается до
// вызова fn и освобождается, если fn вернула ошибку: неудавшееся
// действие можно повторить, успешное — нет.
func (c *RedisCache) Once(key string, ttl time.Duration, fn func() error) error {
	ctx := context.Background()
	ok, err := c.client.SetNX(ctx, c.key(key), "1", ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := fn(); err != nil {
		_ = c.client.Del(ctx, c.key(key)).Err()
		return err
	}
	return nil
}

// Set задаёт значение.
func (c *RedisCache) Set(key string, value []byte, ttl time.Duration) error {
	return c.client.Set(context.Background(), c.key(key), value, ttl).Err()
}

// Get возвращает значение.
func (c *RedisCache) Get(key string) ([]byte, error) {
	return c.client.Get(context.Background(), c.key(key)).Bytes()
}
