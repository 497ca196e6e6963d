package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"nate-bot/internal/domain"
	"nate-bot/internal/infra/config"
	applog "nate-bot/internal/infra/log"
	"nate-bot/internal/infra/queue"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobQueue := buildQueue(cfg, logger)

	postTicker := time.NewTicker(cfg.Schedule.PostEvery)
	defer postTicker.Stop()
	replyTicker := time.NewTicker(cfg.Schedule.ReplyEvery)
	defer replyTicker.Stop()

	logger.Info().
		Dur("post_every", cfg.Schedule.PostEvery).
		Dur("reply_every", cfg.Schedule.ReplyEvery).
		Msg("scheduler: запущен")

	// Публикации чередуются: одиночный пост, затем тред.
	nextAction := domain.ActionSingle
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("scheduler: остановлен")
			return
		case <-postTicker.C:
			enqueue(ctx, jobQueue, nextAction, logger)
			if nextAction == domain.ActionSingle {
				nextAction = domain.ActionThread
			} else {
				nextAction = domain.ActionSingle
			}
		case <-replyTicker.C:
			enqueue(ctx, jobQueue, domain.ActionReply, logger)
		}
	}
}

func enqueue(ctx context.Context, jobQueue domain.JobQueue, action domain.Action, logger zerolog.Logger) {
	job := domain.PostJob{
		ID:          uuid.NewString(),
		Action:      action,
		RequestedAt: time.Now().UTC(),
		Cause:       domain.PostCauseScheduled,
	}
	if err := jobQueue.Enqueue(ctx, job); err != nil {
		logger.Error().Err(err).Str("action", string(action)).Msg("scheduler: не удалось поставить задачу")
		return
	}
	logger.Info().Str("job_id", job.ID).Str("action", string(action)).Msg("scheduler: задача поставлена")
}

func buildQueue(cfg config.AppConfig, logger zerolog.Logger) domain.JobQueue {
	switch cfg.Queue.Driver {
	case "rabbitmq":
		q, err := queue.NewRabbitPostQueue(cfg.Queue.AMQPURL, cfg.Queue.Key)
		if err != nil {
			logger.Fatal().Err(err).Msg("scheduler: не удалось инициализировать очередь RabbitMQ")
		}
		return q
	case "redis":
		if cfg.RedisAddr == "" {
			logger.Fatal().Msg("scheduler: очередь redis требует REDIS_ADDR")
		}
		return queue.NewRedisPostQueue(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.Queue.Key)
	default:
		logger.Fatal().Str("driver", cfg.Queue.Driver).Msg("scheduler: неизвестный драйвер очереди")
		return nil
	}
}
