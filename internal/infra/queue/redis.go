package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nate-bot/internal/domain"
)

// RedisPostQueue реализует очередь задач на базе Redis lists.
type RedisPostQueue struct {
	client *redis.Client
	key    string
}

// NewRedisPostQueue создаёт очередь по указанному ключу.
func NewRedisPostQueue(client *redis.Client, key string) *RedisPostQueue {
	return &RedisPostQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisPostQueue) Enqueue(ctx context.Context, job domain.PostJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *RedisPostQueue) Pop(ctx context.Context) (domain.PostJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.PostJob{}, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.PostJob{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.PostJob{}, err
		}
		if len(res) != 2 {
			return domain.PostJob{}, errors.New("redis queue: unexpected response")
		}
		var job domain.PostJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.PostJob{}, fmt.Errorf("decode job: %w", err)
		}
		return job, nil
	}
}
